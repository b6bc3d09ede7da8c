package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

const (
	createTournamentQuery = `
		INSERT INTO tournaments (id, owner_id, title, slug, team_format, bracket_type, max_teams, min_rating,
			min_matches, best_of, map_pool, status, entrants, playoff_entrants, starts_at, ends_at, champion, version, created_at)
		VALUES (:id, :owner_id, :title, :slug, :team_format, :bracket_type, :max_teams, :min_rating,
			:min_matches, :best_of, :map_pool, :status, :entrants, :playoff_entrants, :starts_at, :ends_at, :champion, :version, :created_at)
	`
	updateTournamentQuery = `
		UPDATE tournaments SET
		title = :title,
		best_of = :best_of,
		map_pool = :map_pool,
		status = :status,
		entrants = :entrants,
		playoff_entrants = :playoff_entrants,
		ends_at = :ends_at,
		champion = :champion,
		version = version + 1
		WHERE id = :id AND version = :version
	`
	insertMatchQuery = `
		INSERT INTO matches (tournament_id, id, stage, group_name, round, idx, status, version, doc, updated_at)
		VALUES (:tournament_id, :id, :stage, :group_name, :round, :idx, :status, :version, :doc, :updated_at)
	`
	updateMatchQuery = `
		UPDATE matches SET
		status = :status,
		doc = :doc,
		updated_at = :updated_at,
		version = version + 1
		WHERE tournament_id = :tournament_id AND id = :id AND version = :version
	`
	selectMatchesQuery = "SELECT * FROM matches WHERE tournament_id = ?"
)

// matchRow is the stored form of a match: the whole document as JSON plus the
// columns needed to query and order it.
type matchRow struct {
	TournamentID uuid.UUID           `db:"tournament_id"`
	ID           string              `db:"id"`
	Stage        bracket.Stage       `db:"stage"`
	Group        string              `db:"group_name"`
	Round        int                 `db:"round"`
	Index        int                 `db:"idx"`
	Status       bracket.MatchStatus `db:"status"`
	Version      int                 `db:"version"`
	Doc          string              `db:"doc"`
	UpdatedAt    time.Time           `db:"updated_at"`
}

func toRow(m *bracket.Match) (matchRow, error) {
	doc, err := json.Marshal(m)
	if err != nil {
		return matchRow{}, err
	}
	return matchRow{
		TournamentID: m.TournamentID,
		ID:           m.ID,
		Stage:        m.Stage,
		Group:        m.Group,
		Round:        m.Round,
		Index:        m.Index,
		Status:       m.Status,
		Version:      m.Version,
		Doc:          string(doc),
		UpdatedAt:    time.Now().UTC(),
	}, nil
}

func (r matchRow) match() (*bracket.Match, error) {
	var m bracket.Match
	if err := json.Unmarshal([]byte(r.Doc), &m); err != nil {
		return nil, err
	}
	m.Version = r.Version
	return &m, nil
}

func (s *TournamentStore) CreateTournamentTx(ctx context.Context, tx *sqlx.Tx, t *bracket.Tournament) error {
	t.Version = 1
	_, err := tx.NamedExecContext(ctx, createTournamentQuery, t)
	return WrapErr(err, "create tournament")
}

func (s *TournamentStore) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	return getTournament(ctx, s.db, id)
}

func (s *TournamentStore) GetTournamentTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Tournament, error) {
	return getTournament(ctx, tx, id)
}

func getTournament(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*bracket.Tournament, error) {
	var t bracket.Tournament
	if err := sqlx.GetContext(ctx, q, &t, "SELECT * FROM tournaments WHERE id = ?", id); err != nil {
		return nil, WrapErr(err, "get tournament "+id.String())
	}
	return &t, nil
}

// UpdateTournamentTx writes t if nobody changed it since it was read.
func (s *TournamentStore) UpdateTournamentTx(ctx context.Context, tx *sqlx.Tx, t *bracket.Tournament) error {
	res, err := tx.NamedExecContext(ctx, updateTournamentQuery, t)
	if err != nil {
		return WrapErr(err, "update tournament")
	}
	if err := checkVersion(res, "update tournament "+t.ID.String()); err != nil {
		return err
	}
	t.Version++
	return nil
}

func (s *TournamentStore) GetTournamentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	err := s.db.SelectContext(ctx, &tournaments, "SELECT * FROM tournaments WHERE owner_id = ? ORDER BY created_at DESC", ownerID)
	return tournaments, WrapErr(err, "list tournaments")
}

func (s *TournamentStore) GetMatches(ctx context.Context, tournamentID uuid.UUID) ([]*bracket.Match, error) {
	return getMatches(ctx, s.db, tournamentID)
}

func (s *TournamentStore) GetMatchesTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) ([]*bracket.Match, error) {
	return getMatches(ctx, tx, tournamentID)
}

func getMatches(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) ([]*bracket.Match, error) {
	var rows []matchRow
	if err := sqlx.SelectContext(ctx, q, &rows, selectMatchesQuery, tournamentID); err != nil {
		return nil, WrapErr(err, "get matches")
	}
	matches := make([]*bracket.Match, 0, len(rows))
	for _, r := range rows {
		m, err := r.match()
		if err != nil {
			return nil, WrapErr(err, "decode match "+r.ID)
		}
		matches = append(matches, m)
	}
	bracket.SortMatches(matches)
	return matches, nil
}

func (s *TournamentStore) GetMatch(ctx context.Context, tournamentID uuid.UUID, matchID string) (*bracket.Match, error) {
	var r matchRow
	err := s.db.GetContext(ctx, &r, selectMatchesQuery+" AND id = ?", tournamentID, matchID)
	if err != nil {
		return nil, WrapErr(err, "get match "+matchID)
	}
	m, err := r.match()
	return m, WrapErr(err, "decode match "+matchID)
}

// ReplaceMatchesTx drops every stored match of the tournament and inserts matches.
func (s *TournamentStore) ReplaceMatchesTx(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, matches []*bracket.Match) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE tournament_id = ?", tournamentID); err != nil {
		return WrapErr(err, "delete matches")
	}
	for _, m := range matches {
		m.Version = 0
	}
	return s.SaveMatchesTx(ctx, tx, matches)
}

// SaveMatchesTx inserts matches that were never stored (version 0) and updates the
// rest under their version. Versions are bumped in place on success.
func (s *TournamentStore) SaveMatchesTx(ctx context.Context, tx *sqlx.Tx, matches []*bracket.Match) error {
	for _, m := range matches {
		r, err := toRow(m)
		if err != nil {
			return WrapErr(err, "encode match "+m.ID)
		}
		if m.Version == 0 {
			r.Version = 1
			if _, err := tx.NamedExecContext(ctx, insertMatchQuery, r); err != nil {
				return WrapErr(err, "insert match "+m.ID)
			}
			m.Version = 1
			continue
		}
		res, err := tx.NamedExecContext(ctx, updateMatchQuery, r)
		if err != nil {
			return WrapErr(err, "update match "+m.ID)
		}
		if err := checkVersion(res, "update match "+m.ID); err != nil {
			return err
		}
		m.Version++
	}
	return nil
}
