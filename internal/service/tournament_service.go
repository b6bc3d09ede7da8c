package service

import (
	"context"
	"strings"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/events"
	"github.com/AdamBeresnev/op-bracket/internal/store"
	"github.com/AdamBeresnev/op-bracket/internal/team"
	"github.com/AdamBeresnev/op-bracket/internal/utils"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
)

type TournamentService struct {
	rt           *Runtime
	store        *store.TournamentStore
	participants *store.ParticipantStore
	authz        Authorizer
}

func NewTournamentService(rt *Runtime, store *store.TournamentStore, participants *store.ParticipantStore, authz Authorizer) *TournamentService {
	return &TournamentService{rt: rt, store: store, participants: participants, authz: authz}
}

type TournamentInput struct {
	Title       string              `json:"title"`
	TeamFormat  string              `json:"teamFormat"`
	BracketType bracket.BracketType `json:"bracketType"`
	MaxTeams    int                 `json:"maxTeams"`
	MinRating   float64             `json:"minRating"`
	MinMatches  int                 `json:"minMatches"`
	BestOf      int                 `json:"bestOf"`
	MapPool     []string            `json:"mapPool"`
	StartsAt    time.Time           `json:"startsAt"`
}

type TournamentData struct {
	Tournament  *bracket.Tournament      `json:"tournament"`
	Matches     []*bracket.Match         `json:"matches"`
	Rounds      []bracket.RoundView      `json:"rounds"`
	Standings   []bracket.GroupStandings `json:"standings,omitempty"`
	NextMatchID string                   `json:"nextMatchId,omitempty"`
}

func tournamentAttrs(id uuid.UUID) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String("tournament_id", id.String())}
}

func (s *TournamentService) CreateTournament(ctx context.Context, actor Actor, in TournamentInput) (*bracket.Tournament, error) {
	var created *bracket.Tournament
	err := s.rt.mutate(ctx, "create_tournament", nil, func(ctx context.Context, tx *sqlx.Tx, now time.Time) ([]events.Event, error) {
		if actor.UserID == uuid.Nil {
			return nil, bracket.Errorf(bracket.KindForbidden, "sign in to create a tournament")
		}
		title := strings.TrimSpace(in.Title)
		if title == "" {
			return nil, bracket.Errorf(bracket.KindInvalidState, "title is required")
		}
		if !in.BracketType.Valid() {
			return nil, bracket.Errorf(bracket.KindInvalidState, "unknown bracket type %q", in.BracketType)
		}
		in.BestOf = utils.Coalesce(in.BestOf, 1)
		if err := bracket.ValidateMapPool(in.MapPool, in.BestOf); err != nil {
			return nil, err
		}
		startsAt := in.StartsAt.UTC()
		if startsAt.IsZero() {
			startsAt = now
		}

		t := &bracket.Tournament{
			ID:          uuid.New(),
			OwnerID:     actor.UserID,
			Title:       title,
			Slug:        slug.Make(title),
			TeamFormat:  utils.Coalesce(strings.TrimSpace(in.TeamFormat), "5v5"),
			BracketType: in.BracketType,
			MaxTeams:    in.MaxTeams,
			MinRating:   in.MinRating,
			MinMatches:  in.MinMatches,
			BestOf:      in.BestOf,
			MapPool:     bracket.StringList(in.MapPool),
			Status:      bracket.TournamentDraft,
			StartsAt:    startsAt,
			CreatedAt:   now,
		}
		if err := s.store.CreateTournamentTx(ctx, tx, t); err != nil {
			return nil, err
		}
		created = t
		return nil, nil
	})
	return created, err
}

func (s *TournamentService) GetTournamentData(ctx context.Context, id uuid.UUID) (*TournamentData, error) {
	var data *TournamentData
	err := s.rt.read(ctx, "get_tournament", tournamentAttrs(id), func(ctx context.Context) error {
		t, err := s.store.GetTournament(ctx, id)
		if err != nil {
			return err
		}
		matches, err := s.store.GetMatches(ctx, id)
		if err != nil {
			return err
		}

		now := s.rt.Now()
		data = &TournamentData{Tournament: t, Matches: matches}
		for _, m := range matches {
			m.Evaluate(now, s.rt.Policy())
			if data.NextMatchID == "" && m.Status == bracket.MatchPending {
				data.NextMatchID = m.ID
			}
		}
		data.Rounds = bracket.Rounds(matches)
		if t.BracketType == bracket.GroupPlayoff {
			data.Standings = bracket.CalculateStandings(matches)
		}
		return nil
	})
	return data, err
}

func (s *TournamentService) GetTournamentsForOwner(ctx context.Context, ownerID uuid.UUID) ([]bracket.Tournament, error) {
	return s.store.GetTournamentsByOwner(ctx, ownerID)
}

// GenerateBracket builds the bracket from the eligible registered teams and
// replaces whatever bracket existed. Once any result is in, the bracket is locked.
func (s *TournamentService) GenerateBracket(ctx context.Context, actor Actor, id uuid.UUID) ([]*bracket.Match, error) {
	var built []*bracket.Match
	err := s.rt.mutate(ctx, "generate_bracket", tournamentAttrs(id), func(ctx context.Context, tx *sqlx.Tx, now time.Time) ([]events.Event, error) {
		t, err := s.store.GetTournamentTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if err := requireOrganizer(s.authz, actor, t); err != nil {
			return nil, err
		}
		existing, err := s.store.GetMatchesTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		for _, m := range existing {
			if m.Status == bracket.MatchCompleted {
				return nil, bracket.Errorf(bracket.KindInvalidState, "bracket is locked, match %s already has a result", m.ID)
			}
		}

		teams, err := s.participants.RegisteredTeamsTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		matches, err := bracket.Build(t, team.Sides(t, teams), s.rt.Policy())
		if err != nil {
			return nil, err
		}
		if err := s.store.ReplaceMatchesTx(ctx, tx, id, matches); err != nil {
			return nil, err
		}

		t.Status = bracket.TournamentStarted
		t.Champion = nil
		t.EndsAt = nil
		if err := s.store.UpdateTournamentTx(ctx, tx, t); err != nil {
			return nil, err
		}

		built = matches
		s.rt.logger.InfoContext(ctx, "Bracket generated",
			"tournament_id", id.String(),
			"bracket_type", string(t.BracketType),
			"entrants", t.Entrants,
			"matches", len(matches),
		)
		return []events.Event{{Topic: events.TopicBracketGenerated, Payload: events.BracketGeneratedPayload{
			TournamentID: id.String(),
			Matches:      len(matches),
			Entrants:     t.Entrants,
		}}}, nil
	})
	return built, err
}

// GeneratePlayoff seeds the playoff from the finished group stage.
func (s *TournamentService) GeneratePlayoff(ctx context.Context, actor Actor, id uuid.UUID) ([]*bracket.Match, error) {
	var built []*bracket.Match
	err := s.rt.mutate(ctx, "generate_playoff", tournamentAttrs(id), func(ctx context.Context, tx *sqlx.Tx, now time.Time) ([]events.Event, error) {
		t, err := s.store.GetTournamentTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if err := requireOrganizer(s.authz, actor, t); err != nil {
			return nil, err
		}
		matches, err := s.store.GetMatchesTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		playoff, err := bracket.GeneratePlayoff(t, matches, s.rt.Policy())
		if err != nil {
			return nil, err
		}
		if err := s.store.SaveMatchesTx(ctx, tx, playoff); err != nil {
			return nil, err
		}
		if err := s.store.UpdateTournamentTx(ctx, tx, t); err != nil {
			return nil, err
		}

		built = playoff
		return []events.Event{{Topic: events.TopicBracketGenerated, Payload: events.BracketGeneratedPayload{
			TournamentID: id.String(),
			Stage:        bracket.StagePlayoff,
			Matches:      len(playoff),
			Entrants:     t.PlayoffEntrants,
		}}}, nil
	})
	return built, err
}

func (s *TournamentService) Standings(ctx context.Context, id uuid.UUID) ([]bracket.GroupStandings, error) {
	var standings []bracket.GroupStandings
	err := s.rt.read(ctx, "standings", tournamentAttrs(id), func(ctx context.Context) error {
		if _, err := s.store.GetTournament(ctx, id); err != nil {
			return err
		}
		matches, err := s.store.GetMatches(ctx, id)
		if err != nil {
			return err
		}
		standings = bracket.CalculateStandings(matches)
		return nil
	})
	return standings, err
}
