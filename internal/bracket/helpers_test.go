package bracket

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func makeSides(n int) []Side {
	sides := make([]Side, n)
	for i := range sides {
		sides[i] = Side{
			SideID:    fmt.Sprintf("s%02d", i+1),
			Name:      fmt.Sprintf("Team %d", i+1),
			AvgRating: float64(2000 - i*10),
			Members: []Member{
				{UserID: fmt.Sprintf("u%02d", i+1), Name: fmt.Sprintf("Captain %d", i+1), Role: RoleCaptain, Rating: float64(2000 - i*10)},
			},
		}
	}
	return sides
}

func newTournament(bt BracketType, bestOf int, pool ...string) *Tournament {
	return &Tournament{
		ID:          uuid.New(),
		Title:       "Spring Cup",
		TeamFormat:  "5v5",
		BracketType: bt,
		BestOf:      bestOf,
		MapPool:     pool,
		Status:      TournamentStarted,
	}
}

func build(t *testing.T, bt BracketType, n int) (*Tournament, []*Match) {
	t.Helper()
	tour := newTournament(bt, 1)
	matches, err := Build(tour, makeSides(n), DefaultPolicy())
	require.NoError(t, err)
	return tour, matches
}

func score(a, b int) Submission {
	return Submission{TeamAScore: &a, TeamBScore: &b}
}

// playOut completes every playable match with side A winning until nothing is left.
func playOut(t *testing.T, a *Arena) int {
	t.Helper()
	played := 0
	for {
		var next *Match
		for _, m := range a.Matches {
			if m.Status == MatchPending && (next == nil || matchLess(m, next)) {
				next = m
			}
		}
		if next == nil {
			return played
		}
		_, err := a.Submit(next.ID, score(1, 0))
		require.NoError(t, err, next.ID)
		played++
	}
}

func matchLess(a, b *Match) bool {
	ms := []*Match{b, a}
	SortMatches(ms)
	return ms[0] == a
}

func byID(matches []*Match) map[string]*Match {
	out := make(map[string]*Match, len(matches))
	for _, m := range matches {
		out[m.ID] = m
	}
	return out
}
