package store

import (
	"context"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/team"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ParticipantStore is the directory of teams, their rosters and tournament registrations.
type ParticipantStore struct {
	db *sqlx.DB
}

func NewParticipantStore(db *sqlx.DB) *ParticipantStore {
	return &ParticipantStore{db: db}
}

const (
	createTeamQuery = `
		INSERT INTO teams (id, name, avatar, owner_id, matches_played, created_at)
		VALUES (:id, :name, :avatar, :owner_id, :matches_played, :created_at)
	`
	createMemberQuery = `
		INSERT INTO team_members (team_id, user_id, name, role, rating)
		VALUES (:team_id, :user_id, :name, :role, :rating)
	`
	registeredTeamsQuery = `
		SELECT t.*, r.registered_at FROM teams t
		JOIN registrations r ON r.team_id = t.id
		WHERE r.tournament_id = ?
		ORDER BY r.registered_at ASC, t.id ASC
	`
)

func (s *ParticipantStore) CreateTeamTx(ctx context.Context, tx *sqlx.Tx, t *team.Team) error {
	if _, err := tx.NamedExecContext(ctx, createTeamQuery, t); err != nil {
		return WrapErr(err, "create team")
	}
	if len(t.Members) == 0 {
		return nil
	}
	for i := range t.Members {
		t.Members[i].TeamID = t.ID
	}
	_, err := tx.NamedExecContext(ctx, createMemberQuery, t.Members)
	return WrapErr(err, "create team members")
}

func (s *ParticipantStore) GetTeam(ctx context.Context, id uuid.UUID) (*team.Team, error) {
	return getTeam(ctx, s.db, id)
}

func (s *ParticipantStore) GetTeamTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*team.Team, error) {
	return getTeam(ctx, tx, id)
}

func getTeam(ctx context.Context, q queryBinder, id uuid.UUID) (*team.Team, error) {
	var t team.Team
	if err := sqlx.GetContext(ctx, q, &t, "SELECT * FROM teams WHERE id = ?", id); err != nil {
		return nil, WrapErr(err, "get team "+id.String())
	}
	teams := []team.Team{t}
	if err := loadMembers(ctx, q, teams); err != nil {
		return nil, err
	}
	return &teams[0], nil
}

// RegisterTx enters a team into a tournament. Registering twice keeps the first time.
func (s *ParticipantStore) RegisterTx(ctx context.Context, tx *sqlx.Tx, tournamentID, teamID uuid.UUID, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO registrations (tournament_id, team_id, registered_at) VALUES (?, ?, ?)",
		tournamentID, teamID, at)
	return WrapErr(err, "register team")
}

func (s *ParticipantStore) UnregisterTx(ctx context.Context, tx *sqlx.Tx, tournamentID, teamID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM registrations WHERE tournament_id = ? AND team_id = ?", tournamentID, teamID)
	return WrapErr(err, "unregister team")
}

// RegisteredTeamsTx lists registered teams with their rosters, in registration order.
func (s *ParticipantStore) RegisteredTeamsTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) ([]team.Team, error) {
	return registeredTeams(ctx, tx, tournamentID)
}

func (s *ParticipantStore) RegisteredTeams(ctx context.Context, tournamentID uuid.UUID) ([]team.Team, error) {
	return registeredTeams(ctx, s.db, tournamentID)
}

func registeredTeams(ctx context.Context, q queryBinder, tournamentID uuid.UUID) ([]team.Team, error) {
	var teams []team.Team
	if err := sqlx.SelectContext(ctx, q, &teams, registeredTeamsQuery, tournamentID); err != nil {
		return nil, WrapErr(err, "list registered teams")
	}
	if err := loadMembers(ctx, q, teams); err != nil {
		return nil, err
	}
	return teams, nil
}

type queryBinder interface {
	sqlx.QueryerContext
	Rebind(string) string
}

func loadMembers(ctx context.Context, q queryBinder, teams []team.Team) error {
	if len(teams) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(teams))
	byID := make(map[uuid.UUID]*team.Team, len(teams))
	for i := range teams {
		ids[i] = teams[i].ID
		byID[teams[i].ID] = &teams[i]
	}

	query, args, err := sqlx.In("SELECT * FROM team_members WHERE team_id IN (?) ORDER BY rowid", ids)
	if err != nil {
		return WrapErr(err, "build member query")
	}
	var members []team.Member
	if err := sqlx.SelectContext(ctx, q, &members, q.Rebind(query), args...); err != nil {
		return WrapErr(err, "load team members")
	}
	for _, m := range members {
		if t, ok := byID[m.TeamID]; ok {
			t.Members = append(t.Members, m)
		}
	}
	return nil
}
