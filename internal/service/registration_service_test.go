package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/store"
	users "github.com/AdamBeresnev/op-bracket/internal/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signUp stores a fresh user and returns it as an actor.
func (e *testEnv) signUp(t *testing.T, name string) Actor {
	t.Helper()
	u := &users.User{ID: uuid.New(), Email: name + "@example.com", Username: name}
	require.NoError(t, store.NewUserStore(e.db).CreateUser(context.Background(), u))
	return ActorFromUser(u)
}

func soloTeam(name string, captain Actor, rating float64) TeamInput {
	return TeamInput{
		Name:          name,
		MatchesPlayed: 10,
		Members: []MemberInput{
			{UserID: captain.UserID.String(), Name: name, Role: bracket.RoleCaptain, Rating: rating},
		},
	}
}

func TestCreateTeam(t *testing.T) {
	env := newTestEnv(t, bracket.DefaultPolicy())
	ctx := context.Background()
	owner := env.signUp(t, "nova")

	created, err := env.registrationService.CreateTeam(ctx, owner, TeamInput{
		Name:   "  Night Owls ",
		Avatar: "https://cdn.example.com/owls.png",
		Members: []MemberInput{
			{UserID: owner.UserID.String(), Name: "nova", Role: bracket.RoleCaptain, Rating: 1800},
			{UserID: uuid.NewString(), Name: "moth", Role: bracket.RolePlayer, Rating: 1600},
			{UserID: uuid.NewString(), Name: "bat", Role: bracket.RoleReserve, Rating: 900},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Night Owls", created.Name)

	got, err := env.registrationService.GetTeam(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Members, 3)
	require.NotNil(t, got.Avatar)
	assert.Equal(t, 1700.0, got.AverageRating(), "reserves do not count")
	assert.Equal(t, owner.UserID.String(), got.Captain())

	testCases := []struct {
		name    string
		actor   Actor
		in      TeamInput
		wantErr error
	}{
		{
			name:    "anonymous",
			in:      TeamInput{Name: "Ghosts"},
			wantErr: bracket.ErrForbidden,
		},
		{
			name:    "blank name",
			actor:   owner,
			in:      TeamInput{Name: "   "},
			wantErr: bracket.ErrInvalidState,
		},
		{
			name:  "two captains",
			actor: owner,
			in: TeamInput{Name: "Crowd", Members: []MemberInput{
				{UserID: uuid.NewString(), Role: bracket.RoleCaptain},
				{UserID: uuid.NewString(), Role: bracket.RoleCaptain},
			}},
			wantErr: bracket.ErrInvalidState,
		},
		{
			name:  "no captain",
			actor: owner,
			in: TeamInput{Name: "Headless", Members: []MemberInput{
				{UserID: uuid.NewString(), Role: bracket.RolePlayer},
			}},
			wantErr: bracket.ErrInvalidState,
		},
		{
			name:  "unknown role",
			actor: owner,
			in: TeamInput{Name: "Coaches", Members: []MemberInput{
				{UserID: uuid.NewString(), Role: "coach"},
			}},
			wantErr: bracket.ErrInvalidState,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.registrationService.CreateTeam(ctx, tc.actor, tc.in)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t, bracket.DefaultPolicy())
	ctx := context.Background()

	tour, _ := env.setupTournament(t, TournamentInput{BracketType: bracket.SingleElimination}, 2)

	owner := env.signUp(t, "ember")
	stranger := env.signUp(t, "drift")
	tm, err := env.registrationService.CreateTeam(ctx, owner, soloTeam("ember", owner, 1500))
	require.NoError(t, err)

	err = env.registrationService.Register(ctx, stranger, tour.ID, tm.ID)
	assert.ErrorIs(t, err, bracket.ErrForbidden)

	require.NoError(t, env.registrationService.Register(ctx, owner, tour.ID, tm.ID))
	require.NoError(t, env.registrationService.Register(ctx, owner, tour.ID, tm.ID), "registering twice is a no-op")

	sides, err := env.registrationService.Eligible(ctx, tour.ID)
	require.NoError(t, err)
	assert.Len(t, sides, 3)

	err = env.registrationService.Register(ctx, owner, uuid.New(), tm.ID)
	assert.ErrorIs(t, err, bracket.ErrNotFound)
	err = env.registrationService.Register(ctx, owner, tour.ID, uuid.New())
	assert.ErrorIs(t, err, bracket.ErrNotFound)

	_, err = env.tournamentService.GenerateBracket(ctx, admin, tour.ID)
	require.NoError(t, err)

	late, err := env.registrationService.CreateTeam(ctx, stranger, soloTeam("drift", stranger, 1500))
	require.NoError(t, err)
	err = env.registrationService.Register(ctx, stranger, tour.ID, late.ID)
	assert.ErrorIs(t, err, bracket.ErrInvalidState, "registration closes with the bracket")
}

func TestEligibleFiltersAndSeeds(t *testing.T) {
	env := newTestEnv(t, bracket.DefaultPolicy())
	ctx := context.Background()

	tour, err := env.tournamentService.CreateTournament(ctx, admin, TournamentInput{
		Title:       "Rated Open",
		TeamFormat:  "1v1",
		BracketType: bracket.SingleElimination,
		MinRating:   1400,
		MinMatches:  5,
	})
	require.NoError(t, err)

	register := func(name string, rating float64, played int) {
		captain := env.signUp(t, name)
		in := soloTeam(name, captain, rating)
		in.MatchesPlayed = played
		tm, err := env.registrationService.CreateTeam(ctx, captain, in)
		require.NoError(t, err)
		require.NoError(t, env.registrationService.Register(ctx, captain, tour.ID, tm.ID))
	}
	register("low", 1200, 20)
	register("mid", 1500, 20)
	register("fresh", 2400, 1)
	register("top", 2000, 6)

	sides, err := env.registrationService.Eligible(ctx, tour.ID)
	require.NoError(t, err)
	require.Len(t, sides, 2)
	assert.Equal(t, "top", sides[0].Name)
	assert.Equal(t, "mid", sides[1].Name)
}
