package main

import (
	"context"
	"net/http"

	"github.com/AdamBeresnev/op-bracket/internal/config"
	"github.com/AdamBeresnev/op-bracket/internal/middleware"
	"github.com/AdamBeresnev/op-bracket/internal/service"
	"github.com/AdamBeresnev/op-bracket/internal/store"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/markbates/goth/gothic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type app struct {
	cfg            *config.Config
	sessionManager *scs.SessionManager
	users          *store.UserStore
	registry       *prometheus.Registry
	limiter        *middleware.RateLimiter

	tournaments   *service.TournamentService
	matches       *service.MatchService
	registrations *service.RegistrationService
	accounts      *service.UserService
}

func (a *app) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))

	r.Group(func(r chi.Router) {
		r.Use(a.sessionManager.LoadAndSave)
		r.Use(middleware.LoadAuthenticatedUser(a.sessionManager, a.users))

		r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
			gothic.BeginAuthHandler(w, withProvider(r))
		})
		r.Get("/auth/{provider}/callback", a.handleAuthCallback)
		r.Post("/logout", a.handleLogout)

		r.Get("/tournaments/{id}", a.handleGetTournament)
		r.Get("/tournaments/{id}/standings", a.handleStandings)
		r.Get("/tournaments/{id}/eligible", a.handleEligible)
		r.Get("/tournaments/{id}/matches/{matchID}", a.handleGetMatch)
		r.Get("/teams/{id}", a.handleGetTeam)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.RateLimit(a.limiter))

			r.Get("/me", a.handleMe)
			r.Get("/tournaments", a.handleListTournaments)
			r.Post("/tournaments", a.handleCreateTournament)
			r.Post("/teams", a.handleCreateTeam)

			r.Post("/tournaments/{id}/bracket", a.handleGenerateBracket)
			r.Post("/tournaments/{id}/playoff", a.handleGeneratePlayoff)
			r.Post("/tournaments/{id}/registrations", a.handleRegister)

			r.Post("/tournaments/{id}/matches/{matchID}/ready", a.handleConfirmReady)
			r.Post("/tournaments/{id}/matches/{matchID}/veto", a.handleApplyVeto)
			r.Post("/tournaments/{id}/matches/{matchID}/result", a.handleSubmitResult)
			r.Post("/tournaments/{id}/matches/{matchID}/reset", a.handleResetResult)
		})
	})

	return r
}

// withProvider hands the chi provider param to gothic, which reads it from the context.
func withProvider(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), gothic.ProviderParamKey, chi.URLParam(r, "provider")))
}
