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
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
)

// RegistrationService manages teams and their entries into tournaments.
type RegistrationService struct {
	rt           *Runtime
	tournaments  *store.TournamentStore
	participants *store.ParticipantStore
	authz        Authorizer
}

func NewRegistrationService(rt *Runtime, tournaments *store.TournamentStore, participants *store.ParticipantStore, authz Authorizer) *RegistrationService {
	return &RegistrationService{rt: rt, tournaments: tournaments, participants: participants, authz: authz}
}

type MemberInput struct {
	UserID string       `json:"userId"`
	Name   string       `json:"name"`
	Role   bracket.Role `json:"role"`
	Rating float64      `json:"rating"`
}

type TeamInput struct {
	Name          string        `json:"name"`
	Avatar        string        `json:"avatar"`
	MatchesPlayed int           `json:"matchesPlayed"`
	Members       []MemberInput `json:"members"`
}

func (s *RegistrationService) CreateTeam(ctx context.Context, actor Actor, in TeamInput) (*team.Team, error) {
	var created *team.Team
	err := s.rt.mutate(ctx, "create_team", nil, func(ctx context.Context, tx *sqlx.Tx, now time.Time) ([]events.Event, error) {
		if actor.UserID == uuid.Nil {
			return nil, bracket.Errorf(bracket.KindForbidden, "sign in to create a team")
		}
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, bracket.Errorf(bracket.KindInvalidState, "team name is required")
		}

		t := &team.Team{
			ID:            uuid.New(),
			Name:          name,
			Avatar:        utils.StringOrNil(in.Avatar),
			OwnerID:       actor.UserID,
			MatchesPlayed: in.MatchesPlayed,
			CreatedAt:     now,
		}
		captains := 0
		for _, m := range in.Members {
			switch m.Role {
			case bracket.RoleCaptain:
				captains++
			case bracket.RolePlayer, bracket.RoleReserve:
			default:
				return nil, bracket.Errorf(bracket.KindInvalidState, "unknown role %q", m.Role)
			}
			t.Members = append(t.Members, team.Member{UserID: m.UserID, Name: m.Name, Role: m.Role, Rating: m.Rating})
		}
		if len(t.Members) > 0 && captains != 1 {
			return nil, bracket.Errorf(bracket.KindInvalidState, "a roster needs exactly one captain, got %d", captains)
		}

		if err := s.participants.CreateTeamTx(ctx, tx, t); err != nil {
			return nil, err
		}
		created = t
		return nil, nil
	})
	return created, err
}

func (s *RegistrationService) GetTeam(ctx context.Context, id uuid.UUID) (*team.Team, error) {
	return s.participants.GetTeam(ctx, id)
}

// Register enters a team the actor owns or captains. Registration closes once the
// bracket exists.
func (s *RegistrationService) Register(ctx context.Context, actor Actor, tournamentID, teamID uuid.UUID) error {
	attrs := []attribute.KeyValue{attribute.String("tournament_id", tournamentID.String()), attribute.String("team_id", teamID.String())}
	return s.rt.mutate(ctx, "register_team", attrs, func(ctx context.Context, tx *sqlx.Tx, now time.Time) ([]events.Event, error) {
		t, err := s.tournaments.GetTournamentTx(ctx, tx, tournamentID)
		if err != nil {
			return nil, err
		}
		if t.Status != bracket.TournamentDraft {
			return nil, bracket.Errorf(bracket.KindInvalidState, "registration for %s is closed", t.Title)
		}
		tm, err := s.participants.GetTeamTx(ctx, tx, teamID)
		if err != nil {
			return nil, err
		}
		snapshot := tm.Snapshot()
		if tm.OwnerID != actor.UserID && !s.authz.IsCaptainOf(actor, &snapshot) && !canOrganize(s.authz, actor, t) {
			return nil, bracket.Errorf(bracket.KindForbidden, "only the team's captain may register it")
		}
		return nil, s.participants.RegisterTx(ctx, tx, tournamentID, teamID, now)
	})
}

// Eligible lists the sides a bracket generated now would contain.
func (s *RegistrationService) Eligible(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Side, error) {
	var sides []bracket.Side
	err := s.rt.read(ctx, "list_eligible", tournamentAttrs(tournamentID), func(ctx context.Context) error {
		t, err := s.tournaments.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		teams, err := s.participants.RegisteredTeams(ctx, tournamentID)
		if err != nil {
			return err
		}
		sides = bracket.SeedOrder(team.Sides(t, teams))
		return nil
	})
	return sides, err
}
