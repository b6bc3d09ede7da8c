package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/config"
	"github.com/AdamBeresnev/op-bracket/internal/db"
	"github.com/AdamBeresnev/op-bracket/internal/httputil"
	"github.com/AdamBeresnev/op-bracket/internal/metrics"
	"github.com/AdamBeresnev/op-bracket/internal/middleware"
	"github.com/AdamBeresnev/op-bracket/internal/service"
	"github.com/AdamBeresnev/op-bracket/internal/store"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler http.Handler
	cookie  *http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	require.NoError(t, db.RunMigrations(database.DB))
	t.Cleanup(func() { database.Close() })

	cfg := config.Default()
	cfg.Engine.DefaultMapPool = []string{"Ancient", "Mirage", "Nuke"}

	registry := prometheus.NewRegistry()
	engineMetrics, err := metrics.NewEngine(registry)
	require.NoError(t, err)

	rt := service.NewRuntime(database, cfg.Policy(), service.WithMetrics(engineMetrics))
	tournaments := store.NewTournamentStore(database)
	participants := store.NewParticipantStore(database)
	users := store.NewUserStore(database)
	authz := service.RosterAuthorizer{}

	a := &app{
		cfg:            cfg,
		sessionManager: scs.New(),
		users:          users,
		registry:       registry,
		limiter:        middleware.NewRateLimiter(1000, 1000),
		tournaments:    service.NewTournamentService(rt, tournaments, participants, authz),
		matches:        service.NewMatchService(rt, tournaments, authz),
		registrations:  service.NewRegistrationService(rt, tournaments, participants, authz),
		accounts:       service.NewUserService(users, cfg.IsAdminEmail),
	}

	mux := a.routes().(*chi.Mux)
	mux.With(a.sessionManager.LoadAndSave).Post("/test/login", func(w http.ResponseWriter, r *http.Request) {
		a.sessionManager.Put(r.Context(), middleware.SessionUserKey, middleware.SuperUserID)
	})
	return &testServer{handler: mux}
}

func (s *testServer) login(t *testing.T) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/test/login", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			s.cookie = c
		}
	}
	require.NotNil(t, s.cookie)
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	if s.cookie != nil {
		r.AddCookie(s.cookie)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)
	return w
}

func TestTournamentAPI(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/tournaments", service.TournamentInput{Title: "Anon Cup"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	srv.login(t)
	w = srv.do(t, http.MethodPost, "/tournaments", service.TournamentInput{
		Title:       "Autumn Open",
		TeamFormat:  "2v2",
		BracketType: bracket.DoubleElimination,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created bracket.Tournament
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, []string{"Ancient", "Mirage", "Nuke"}, []string(created.MapPool))
	assert.Equal(t, 1, created.BestOf)

	w = srv.do(t, http.MethodGet, "/tournaments/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data service.TournamentData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	assert.Equal(t, "Autumn Open", data.Tournament.Title)
	assert.Empty(t, data.Matches)

	w = srv.do(t, http.MethodPost, "/tournaments/"+created.ID.String()+"/bracket", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var rejected httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rejected))
	assert.Equal(t, bracket.KindInvalidParticipantCount, rejected.Kind)

	w = srv.do(t, http.MethodGet, "/tournaments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Autumn Open")
}

func TestAPIErrors(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/tournaments/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodGet, "/tournaments/00000000-0000-0000-0000-0000000000aa", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	srv.login(t)
	w = srv.do(t, http.MethodPost, "/tournaments", map[string]string{"name": "wrong field"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "op_bracket_operations_total")
}
