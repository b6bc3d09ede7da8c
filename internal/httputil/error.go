package httputil

import (
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string       `json:"error"`
	Kind  bracket.Kind `json:"kind,omitempty"`
}

// StatusFor maps an engine error kind to its HTTP status.
func StatusFor(kind bracket.Kind) int {
	switch kind {
	case bracket.KindNotFound:
		return http.StatusNotFound
	case bracket.KindForbidden:
		return http.StatusForbidden
	case bracket.KindStaleState, bracket.KindInvalidState, bracket.KindNotReady,
		bracket.KindWrongTurn, bracket.KindReadyCheckExpired:
		return http.StatusConflict
	case bracket.KindInvalidParticipantCount, bracket.KindMapUnavailable, bracket.KindSeriesNotDecided,
		bracket.KindInvalidSeriesScore, bracket.KindWinnerConflictsWithMaps, bracket.KindInvalidSide,
		bracket.KindInvalidMapPool:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as JSON. Engine errors keep their message and kind; anything
// else is logged and reported as an internal error.
func Error(w http.ResponseWriter, r *http.Request, msg string, err error) {
	kind := bracket.KindOf(err)
	if kind == "" {
		InternalServerError(w, r, msg, err)
		return
	}
	slog.WarnContext(r.Context(), "request rejected", "message", msg, "kind", kind, "error", err)
	WriteJSON(w, StatusFor(kind), ErrorResponse{Error: err.Error(), Kind: kind})
}

func InternalServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.ErrorContext(r.Context(), msg, "error", err)
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal Server Error"})
}

func BadRequest(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if err != nil {
		slog.WarnContext(r.Context(), "bad request", "message", msg, "error", err)
	} else {
		slog.WarnContext(r.Context(), "bad request", "message", msg)
	}
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

func Unauthorized(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "sign in required"})
}

func TooManyRequests(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "rate limited", "remote", r.RemoteAddr)
	WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: http.StatusText(http.StatusTooManyRequests)})
}
