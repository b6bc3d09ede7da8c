package team

import (
	"testing"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roster(ratings ...float64) []Member {
	out := make([]Member, len(ratings))
	for i, r := range ratings {
		role := bracket.RolePlayer
		if i == 0 {
			role = bracket.RoleCaptain
		}
		out[i] = Member{UserID: uuid.NewString(), Name: "p", Role: role, Rating: r}
	}
	return out
}

func TestAverageRatingSkipsReserves(t *testing.T) {
	tm := Team{Members: append(roster(1000, 2000), Member{Role: bracket.RoleReserve, Rating: 9000})}

	assert.Equal(t, 1500.0, tm.AverageRating())
	assert.Equal(t, 2, tm.ActiveMembers())
	assert.Zero(t, (&Team{}).AverageRating())
}

func TestSnapshot(t *testing.T) {
	avatar := "https://cdn/x.png"
	tm := Team{ID: uuid.New(), Name: "Navi", Avatar: &avatar, Members: roster(1200, 1400)}

	s := tm.Snapshot()
	assert.Equal(t, tm.ID.String(), s.SideID)
	assert.Equal(t, "Navi", s.Name)
	assert.Equal(t, avatar, s.Avatar)
	assert.Equal(t, 1300.0, s.AvgRating)
	require.Len(t, s.Members, 2)

	c, ok := s.Captain()
	require.True(t, ok)
	assert.Equal(t, tm.Members[0].UserID, c.UserID)
	assert.Equal(t, tm.Members[0].UserID, tm.Captain())

	// later roster edits do not reach the snapshot
	tm.Members[0].Rating = 0
	assert.Equal(t, 1200.0, s.Members[0].Rating)
}

func TestEligible(t *testing.T) {
	tour := &bracket.Tournament{TeamFormat: "2v2", MinRating: 1000, MinMatches: 3}

	testCases := []struct {
		name string
		team Team
		want bool
	}{
		{"meets everything", Team{Members: roster(1000, 1100), MatchesPlayed: 3}, true},
		{"short roster", Team{Members: roster(1500), MatchesPlayed: 3}, false},
		{"reserves do not fill the roster", Team{Members: append(roster(1500), Member{Role: bracket.RoleReserve, Rating: 1500}), MatchesPlayed: 3}, false},
		{"rating too low", Team{Members: roster(900, 1000), MatchesPlayed: 3}, false},
		{"too few matches", Team{Members: roster(1500, 1500), MatchesPlayed: 2}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Eligible(tour, &tc.team))
		})
	}
}

func TestSidesCapsAtMaxTeams(t *testing.T) {
	tour := &bracket.Tournament{TeamFormat: "1v1", MinRating: 1000, MaxTeams: 2}
	teams := []Team{
		{ID: uuid.New(), Name: "a", Members: roster(1100)},
		{ID: uuid.New(), Name: "low", Members: roster(500)},
		{ID: uuid.New(), Name: "b", Members: roster(1200)},
		{ID: uuid.New(), Name: "c", Members: roster(1300)},
	}
	teams = append(teams, teams[0])

	sides := Sides(tour, teams)
	require.Len(t, sides, 2)
	assert.Equal(t, "a", sides[0].Name)
	assert.Equal(t, "b", sides[1].Name)
}
