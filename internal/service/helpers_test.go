package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/db"
	"github.com/AdamBeresnev/op-bracket/internal/events"
	"github.com/AdamBeresnev/op-bracket/internal/metrics"
	"github.com/AdamBeresnev/op-bracket/internal/middleware"
	"github.com/AdamBeresnev/op-bracket/internal/store"
	"github.com/AdamBeresnev/op-bracket/internal/team"
	"github.com/AdamBeresnev/op-bracket/internal/seed"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var (
	testNow = time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	admin   = Actor{UserID: uuid.MustParse(middleware.SuperUserID), IsAdmin: true}
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	require.NoError(t, db.RunMigrations(database.DB), "Failed to apply migrations")
	t.Cleanup(func() { database.Close() })
	return database
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEnv struct {
	db           *sqlx.DB
	clock        *fakeClock
	metrics      *metrics.Engine
	pubsub       *gochannel.GoChannel
	tournaments  *store.TournamentStore
	participants *store.ParticipantStore

	tournamentService   *TournamentService
	matchService        *MatchService
	registrationService *RegistrationService
}

func newTestEnv(t *testing.T, policy bracket.Policy) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	database := setupTestDB(t)

	engineMetrics, err := metrics.NewEngine(prometheus.NewRegistry())
	require.NoError(t, err)

	pubsub := events.NewGoChannel(logger)
	t.Cleanup(func() { pubsub.Close() })

	clock := &fakeClock{now: testNow}
	rt := NewRuntime(database, policy,
		WithClock(clock),
		WithLogger(logger),
		WithMetrics(engineMetrics),
		WithPublisher(events.NewPublisher(pubsub, logger)),
		WithRetry(3, time.Millisecond),
	)

	tournaments := store.NewTournamentStore(database)
	participants := store.NewParticipantStore(database)
	authz := RosterAuthorizer{}

	return &testEnv{
		db:                  database,
		clock:               clock,
		metrics:             engineMetrics,
		pubsub:              pubsub,
		tournaments:         tournaments,
		participants:        participants,
		tournamentService:   NewTournamentService(rt, tournaments, participants, authz),
		matchService:        NewMatchService(rt, tournaments, authz),
		registrationService: NewRegistrationService(rt, tournaments, participants, authz),
	}
}

func (e *testEnv) subscribe(t *testing.T, topic string) <-chan *message.Message {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ch, err := e.pubsub.Subscribe(ctx, topic)
	require.NoError(t, err)
	return ch
}

func receive[T any](t *testing.T, ch <-chan *message.Message) T {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		_, payload, err := events.UnmarshalPayload[T](msg)
		require.NoError(t, err)
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	var zero T
	return zero
}

// setupTournament creates a tournament owned by the admin with n registered solo
// teams and returns it with the teams in registration order.
func (e *testEnv) setupTournament(t *testing.T, in TournamentInput, n int) (*bracket.Tournament, []team.Team) {
	t.Helper()
	ctx := context.Background()
	if in.Title == "" {
		in.Title = "Friday Cup"
	}
	if in.TeamFormat == "" {
		in.TeamFormat = "1v1"
	}

	tour, err := e.tournamentService.CreateTournament(ctx, admin, in)
	require.NoError(t, err)

	teams := seed.NewDataGenerator(11).GenerateTeams(n, in.TeamFormat, admin.UserID)
	for i := range teams {
		tx, err := e.db.BeginTxx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, e.participants.CreateTeamTx(ctx, tx, &teams[i]))
		require.NoError(t, tx.Commit())

		require.NoError(t, e.registrationService.Register(ctx, admin, tour.ID, teams[i].ID))
		e.clock.Advance(time.Second)
	}
	return tour, teams
}

// captainOf returns the actor captaining side.
func captainOf(t *testing.T, side *bracket.Side) Actor {
	t.Helper()
	require.NotNil(t, side)
	c, ok := side.Captain()
	require.True(t, ok)
	return Actor{UserID: uuid.MustParse(c.UserID)}
}

func seriesWin(a, b int) bracket.Submission {
	return bracket.Submission{TeamAScore: &a, TeamBScore: &b}
}

// finishMatch submits a win for team A of matchID and returns the stored match.
func (e *testEnv) finishMatch(t *testing.T, tournamentID uuid.UUID, matchID string) *bracket.Match {
	t.Helper()
	m, err := e.matchService.SubmitResult(context.Background(), admin, tournamentID, matchID, seriesWin(1, 0))
	require.NoError(t, err, matchID)
	return m
}
