package main

import (
	"net/http"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/httputil"
	"github.com/AdamBeresnev/op-bracket/internal/middleware"
	"github.com/AdamBeresnev/op-bracket/internal/service"
	"github.com/AdamBeresnev/op-bracket/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"
)

func actor(r *http.Request) service.Actor {
	a, _ := service.ActorFromContext(r.Context())
	return a
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httputil.BadRequest(w, r, "Invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}

func (a *app) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	gothUser, err := gothic.CompleteUserAuth(w, withProvider(r))
	if err != nil {
		httputil.BadRequest(w, r, "Authentication failure", err)
		return
	}

	user, err := a.accounts.FindOrCreateUserByProvider(r.Context(), gothUser)
	if err != nil {
		httputil.InternalServerError(w, r, "Failed to find or create user", err)
		return
	}

	if err := a.sessionManager.RenewToken(r.Context()); err != nil {
		httputil.InternalServerError(w, r, "Failed to renew session", err)
		return
	}
	a.sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())
	http.Redirect(w, r, "/me", http.StatusFound)
}

func (a *app) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessionManager.Destroy(r.Context()); err != nil {
		httputil.InternalServerError(w, r, "Failed to end session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) handleMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetAuthenticatedUser(r.Context())
	if user == nil {
		httputil.Unauthorized(w, r)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (a *app) handleListTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := a.tournaments.GetTournamentsForOwner(r.Context(), actor(r).UserID)
	if err != nil {
		httputil.Error(w, r, "Failed to list tournaments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tournaments)
}

func (a *app) handleCreateTournament(w http.ResponseWriter, r *http.Request) {
	var in service.TournamentInput
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.BadRequest(w, r, "Invalid tournament", err)
		return
	}
	if len(in.MapPool) == 0 {
		in.MapPool = a.cfg.Engine.DefaultMapPool
	}
	in.BestOf = utils.Coalesce(in.BestOf, a.cfg.Engine.DefaultBestOf)

	t, err := a.tournaments.CreateTournament(r.Context(), actor(r), in)
	if err != nil {
		httputil.Error(w, r, "Failed to create tournament", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (a *app) handleGetTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	data, err := a.tournaments.GetTournamentData(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, "Failed to get tournament", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, data)
}

func (a *app) handleStandings(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	standings, err := a.tournaments.Standings(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, "Failed to calculate standings", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, standings)
}

func (a *app) handleEligible(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	sides, err := a.registrations.Eligible(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, "Failed to list eligible teams", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sides)
}

func (a *app) handleGenerateBracket(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	matches, err := a.tournaments.GenerateBracket(r.Context(), actor(r), id)
	if err != nil {
		httputil.Error(w, r, "Failed to generate bracket", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, matches)
}

func (a *app) handleGeneratePlayoff(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	matches, err := a.tournaments.GeneratePlayoff(r.Context(), actor(r), id)
	if err != nil {
		httputil.Error(w, r, "Failed to generate playoff", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, matches)
}

func (a *app) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var in service.TeamInput
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.BadRequest(w, r, "Invalid team", err)
		return
	}
	t, err := a.registrations.CreateTeam(r.Context(), actor(r), in)
	if err != nil {
		httputil.Error(w, r, "Failed to create team", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (a *app) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	t, err := a.registrations.GetTeam(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, "Failed to get team", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (a *app) handleRegister(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var in struct {
		TeamID uuid.UUID `json:"teamId"`
	}
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.BadRequest(w, r, "Invalid registration", err)
		return
	}
	if err := a.registrations.Register(r.Context(), actor(r), id, in.TeamID); err != nil {
		httputil.Error(w, r, "Failed to register team", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	m, err := a.matches.GetMatch(r.Context(), id, chi.URLParam(r, "matchID"))
	if err != nil {
		httputil.Error(w, r, "Failed to get match", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

type sideRequest struct {
	SideID string `json:"sideId"`
}

func (a *app) handleConfirmReady(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var in sideRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(w, r, &in); err != nil {
			httputil.BadRequest(w, r, "Invalid ready confirmation", err)
			return
		}
	}
	m, err := a.matches.ConfirmReady(r.Context(), actor(r), id, chi.URLParam(r, "matchID"), in.SideID)
	if err != nil {
		httputil.Error(w, r, "Failed to confirm ready", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (a *app) handleApplyVeto(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var in struct {
		SideID string             `json:"sideId"`
		Action bracket.VetoAction `json:"action"`
		Map    string             `json:"map"`
	}
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.BadRequest(w, r, "Invalid veto action", err)
		return
	}
	m, err := a.matches.ApplyVeto(r.Context(), actor(r), id, chi.URLParam(r, "matchID"), in.SideID, in.Action, in.Map)
	if err != nil {
		httputil.Error(w, r, "Failed to apply veto", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (a *app) handleSubmitResult(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var sub bracket.Submission
	if err := httputil.DecodeJSON(w, r, &sub); err != nil {
		httputil.BadRequest(w, r, "Invalid result", err)
		return
	}
	m, err := a.matches.SubmitResult(r.Context(), actor(r), id, chi.URLParam(r, "matchID"), sub)
	if err != nil {
		httputil.Error(w, r, "Failed to submit result", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}

func (a *app) handleResetResult(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	m, err := a.matches.ResetResult(r.Context(), actor(r), id, chi.URLParam(r, "matchID"))
	if err != nil {
		httputil.Error(w, r, "Failed to reset result", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, m)
}
