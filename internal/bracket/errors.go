package bracket

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures. Callers switch on the kind, never on the message.
type Kind string

const (
	KindInvalidParticipantCount Kind = "invalid_participant_count"
	KindNotReady                Kind = "not_ready"
	KindWrongTurn               Kind = "wrong_turn"
	KindMapUnavailable          Kind = "map_unavailable"
	KindSeriesNotDecided        Kind = "series_not_decided"
	KindInvalidSeriesScore      Kind = "invalid_series_score"
	KindWinnerConflictsWithMaps Kind = "winner_conflicts_with_maps"
	KindStaleState              Kind = "stale_state"
	KindNotFound                Kind = "not_found"

	KindForbidden         Kind = "forbidden"
	KindInvalidSide       Kind = "invalid_side"
	KindInvalidState      Kind = "invalid_state"
	KindReadyCheckExpired Kind = "ready_check_expired"
	KindInvalidMapPool    Kind = "invalid_map_pool"
)

// Error is the engine's error type. Two errors match under errors.Is when their
// kinds are equal and the target carries no message of its own.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

var (
	ErrInvalidParticipantCount = &Error{Kind: KindInvalidParticipantCount}
	ErrNotReady                = &Error{Kind: KindNotReady}
	ErrWrongTurn               = &Error{Kind: KindWrongTurn}
	ErrMapUnavailable          = &Error{Kind: KindMapUnavailable}
	ErrSeriesNotDecided        = &Error{Kind: KindSeriesNotDecided}
	ErrInvalidSeriesScore      = &Error{Kind: KindInvalidSeriesScore}
	ErrWinnerConflictsWithMaps = &Error{Kind: KindWinnerConflictsWithMaps}
	ErrStaleState              = &Error{Kind: KindStaleState}
	ErrNotFound                = &Error{Kind: KindNotFound}
	ErrForbidden               = &Error{Kind: KindForbidden}
	ErrInvalidSide             = &Error{Kind: KindInvalidSide}
	ErrInvalidState            = &Error{Kind: KindInvalidState}
	ErrReadyCheckExpired       = &Error{Kind: KindReadyCheckExpired}
	ErrInvalidMapPool          = &Error{Kind: KindInvalidMapPool}
)

// Errorf builds an engine error of the given kind.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first engine error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
