package service

import (
	"context"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/events"
	"github.com/AdamBeresnev/op-bracket/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
)

type MatchService struct {
	rt    *Runtime
	store *store.TournamentStore
	authz Authorizer
}

func NewMatchService(rt *Runtime, store *store.TournamentStore, authz Authorizer) *MatchService {
	return &MatchService{rt: rt, store: store, authz: authz}
}

func matchAttrs(tournamentID uuid.UUID, matchID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("tournament_id", tournamentID.String()),
		attribute.String("match_id", matchID),
	}
}

// GetMatch returns the match as it stands now, with lapsed deadlines applied. The
// evaluation is not written back; the next mutation persists it.
func (s *MatchService) GetMatch(ctx context.Context, tournamentID uuid.UUID, matchID string) (*bracket.Match, error) {
	var m *bracket.Match
	err := s.rt.read(ctx, "get_match", matchAttrs(tournamentID, matchID), func(ctx context.Context) error {
		var err error
		if m, err = s.store.GetMatch(ctx, tournamentID, matchID); err != nil {
			return err
		}
		m.Evaluate(s.rt.Now(), s.rt.Policy())
		return nil
	})
	return m, err
}

// load reads the tournament and all its matches inside tx.
func (s *MatchService) load(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, now time.Time) (*bracket.Arena, error) {
	t, err := s.store.GetTournamentTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}
	matches, err := s.store.GetMatchesTx(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}
	return bracket.NewArena(t, matches, now, s.rt.Policy()), nil
}

// ConfirmReady marks the actor's side ready. Once both sides are, the veto opens
// after the configured buffer.
func (s *MatchService) ConfirmReady(ctx context.Context, actor Actor, tournamentID uuid.UUID, matchID, sideID string) (*bracket.Match, error) {
	var out *bracket.Match
	err := s.rt.mutate(ctx, "confirm_ready", matchAttrs(tournamentID, matchID), func(ctx context.Context, tx *sqlx.Tx, now time.Time) ([]events.Event, error) {
		a, err := s.load(ctx, tx, tournamentID, now)
		if err != nil {
			return nil, err
		}
		m, err := a.Match(matchID)
		if err != nil {
			return nil, err
		}
		side, err := actingSide(s.authz, actor, a.Tournament, m, sideID)
		if err != nil {
			return nil, err
		}
		done, err := m.ConfirmReady(side, now, s.rt.Policy())
		if err != nil {
			return nil, err
		}
		if err := s.store.SaveMatchesTx(ctx, tx, []*bracket.Match{m}); err != nil {
			return nil, err
		}

		out = m
		if !done {
			return nil, nil
		}
		return []events.Event{{Topic: events.TopicMatchReady, Payload: events.MatchReadyPayload{
			TournamentID: tournamentID.String(),
			MatchID:      m.ID,
			VetoOpensAt:  *m.ReadyCheck.VetoOpensAt,
		}}}, nil
	})
	return out, err
}

// ApplyVeto records one ban or pick for the actor's side.
func (s *MatchService) ApplyVeto(ctx context.Context, actor Actor, tournamentID uuid.UUID, matchID, sideID string, action bracket.VetoAction, mapName string) (*bracket.Match, error) {
	var out *bracket.Match
	err := s.rt.mutate(ctx, "apply_veto", matchAttrs(tournamentID, matchID), func(ctx context.Context, tx *sqlx.Tx, now time.Time) ([]events.Event, error) {
		a, err := s.load(ctx, tx, tournamentID, now)
		if err != nil {
			return nil, err
		}
		m, err := a.Match(matchID)
		if err != nil {
			return nil, err
		}
		side, err := actingSide(s.authz, actor, a.Tournament, m, sideID)
		if err != nil {
			return nil, err
		}
		if err := m.ApplyVeto(side, action, mapName, now, s.rt.Policy()); err != nil {
			return nil, err
		}
		if err := s.store.SaveMatchesTx(ctx, tx, []*bracket.Match{m}); err != nil {
			return nil, err
		}

		out = m
		if m.Veto.Status != bracket.VetoDone {
			return nil, nil
		}
		return []events.Event{{Topic: events.TopicVetoCompleted, Payload: events.VetoCompletedPayload{
			TournamentID: tournamentID.String(),
			MatchID:      m.ID,
			Maps:         m.Veto.Picks,
		}}}, nil
	})
	return out, err
}

// SubmitResult applies an organizer's submission: reschedule, best-of change and
// result, committed together with everything the result propagates into.
func (s *MatchService) SubmitResult(ctx context.Context, actor Actor, tournamentID uuid.UUID, matchID string, sub bracket.Submission) (*bracket.Match, error) {
	var out *bracket.Match
	err := s.rt.mutate(ctx, "submit_result", matchAttrs(tournamentID, matchID), func(ctx context.Context, tx *sqlx.Tx, now time.Time) ([]events.Event, error) {
		a, err := s.load(ctx, tx, tournamentID, now)
		if err != nil {
			return nil, err
		}
		if err := requireOrganizer(s.authz, actor, a.Tournament); err != nil {
			return nil, err
		}
		m, err := a.Match(matchID)
		if err != nil {
			return nil, err
		}
		wasCompleted := m.Status == bracket.MatchCompleted

		res, err := a.Submit(matchID, sub)
		if err != nil {
			return nil, err
		}
		if err := s.persist(ctx, tx, a); err != nil {
			return nil, err
		}

		out = m
		var evs []events.Event
		if res != nil && !wasCompleted {
			evs = append(evs, events.Event{Topic: events.TopicMatchCompleted, Payload: events.MatchCompletedPayload{
				TournamentID: tournamentID.String(),
				MatchID:      m.ID,
				WinnerSideID: res.WinnerSideID,
				TeamAScore:   res.TeamAScore,
				TeamBScore:   res.TeamBScore,
				Forfeit:      res.Forfeit,
			}})
		}
		if t := a.Tournament; a.TournamentTouched() && t.Champion != nil {
			evs = append(evs, events.Event{Topic: events.TopicTournamentCompleted, Payload: events.TournamentCompletedPayload{
				TournamentID: tournamentID.String(),
				Champion:     *t.Champion,
				EndsAt:       *t.EndsAt,
			}})
		}
		return evs, nil
	})
	return out, err
}

// ResetResult reverts a completed match and everything built on its result.
func (s *MatchService) ResetResult(ctx context.Context, actor Actor, tournamentID uuid.UUID, matchID string) (*bracket.Match, error) {
	var out *bracket.Match
	err := s.rt.mutate(ctx, "reset_result", matchAttrs(tournamentID, matchID), func(ctx context.Context, tx *sqlx.Tx, now time.Time) ([]events.Event, error) {
		a, err := s.load(ctx, tx, tournamentID, now)
		if err != nil {
			return nil, err
		}
		if err := requireOrganizer(s.authz, actor, a.Tournament); err != nil {
			return nil, err
		}
		if err := a.Reset(matchID); err != nil {
			return nil, err
		}
		if err := s.persist(ctx, tx, a); err != nil {
			return nil, err
		}

		out = a.Matches[matchID]
		affected := make([]string, 0)
		for _, m := range a.Touched() {
			affected = append(affected, m.ID)
		}
		s.rt.logger.InfoContext(ctx, "Match result reset",
			"tournament_id", tournamentID.String(),
			"match_id", matchID,
			"affected", affected,
		)
		return []events.Event{{Topic: events.TopicMatchReset, Payload: events.MatchResetPayload{
			TournamentID: tournamentID.String(),
			MatchID:      matchID,
			Affected:     affected,
		}}}, nil
	})
	return out, err
}

// persist writes every document the arena touched.
func (s *MatchService) persist(ctx context.Context, tx *sqlx.Tx, a *bracket.Arena) error {
	if err := s.store.SaveMatchesTx(ctx, tx, a.Touched()); err != nil {
		return err
	}
	if a.TournamentTouched() {
		return s.store.UpdateTournamentTx(ctx, tx, a.Tournament)
	}
	return nil
}
