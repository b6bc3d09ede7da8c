package bracket

import (
	"slices"
	"time"
)

// Submission is what an organizer sends for a match. Any subset may be present:
// only ScheduledAt and BestOf is a reschedule and never completes the match.
type Submission struct {
	WinnerSideID string     `json:"winnerSideId,omitempty"`
	TeamAScore   *int       `json:"teamAScore,omitempty"`
	TeamBScore   *int       `json:"teamBScore,omitempty"`
	MapScores    []MapScore `json:"mapScores,omitempty"`
	Forfeit      bool       `json:"forfeit,omitempty"`
	ScheduledAt  *time.Time `json:"scheduledAt,omitempty"`
	BestOf       *int       `json:"bestOf,omitempty"`
}

func (s Submission) HasResult() bool {
	return s.WinnerSideID != "" || s.TeamAScore != nil || s.TeamBScore != nil || len(s.MapScores) > 0 || s.Forfeit
}

// Result is a validated outcome ready to be committed.
type Result struct {
	WinnerSideID string
	TeamAScore   int
	TeamBScore   int
	MapScores    []MapScore
	Forfeit      bool
}

func (r *Result) sameAs(m *Match) bool {
	return r.WinnerSideID == m.WinnerSideID &&
		r.TeamAScore == m.TeamAScore &&
		r.TeamBScore == m.TeamBScore &&
		r.Forfeit == m.Forfeit &&
		slices.Equal(r.MapScores, m.MapScores)
}

// RequiredWins is the number of maps a side needs to take a best-of series.
func RequiredWins(bestOf int) int {
	return bestOf/2 + 1
}

// Validate checks a submission against the match and returns the result it implies,
// or nil when the submission carries no result.
func Validate(m *Match, sub Submission) (*Result, error) {
	bestOf := m.BestOf
	if sub.BestOf != nil {
		bestOf = *sub.BestOf
	}
	if !ValidBestOf(bestOf) {
		return nil, Errorf(KindInvalidSeriesScore, "best of %d, must be 1, 3 or 5", bestOf)
	}
	if !sub.HasResult() {
		return nil, nil
	}
	if m.TeamA == nil || m.TeamB == nil {
		return nil, Errorf(KindInvalidState, "match %s is still waiting for its sides", m.ID)
	}
	if sub.WinnerSideID != "" {
		if _, ok := m.PositionOf(sub.WinnerSideID); !ok {
			return nil, Errorf(KindInvalidSide, "side %s does not play match %s", sub.WinnerSideID, m.ID)
		}
	}

	need := RequiredWins(bestOf)

	if sub.Forfeit {
		if sub.WinnerSideID == "" {
			return nil, Errorf(KindInvalidSeriesScore, "a forfeit needs a winner")
		}
		res := &Result{WinnerSideID: sub.WinnerSideID, Forfeit: true}
		if sub.WinnerSideID == m.TeamA.SideID {
			res.TeamAScore = need
		} else {
			res.TeamBScore = need
		}
		return res, nil
	}

	if len(sub.MapScores) > 0 {
		return fromMaps(m, sub, bestOf, need)
	}

	if sub.TeamAScore == nil || sub.TeamBScore == nil {
		return nil, Errorf(KindInvalidSeriesScore, "both series scores or per-map scores are required")
	}
	a, b := *sub.TeamAScore, *sub.TeamBScore
	winner, err := seriesWinner(m, a, b, need)
	if err != nil {
		return nil, err
	}
	if sub.WinnerSideID != "" && sub.WinnerSideID != winner {
		return nil, Errorf(KindInvalidSeriesScore, "declared winner %s does not match %d-%d", sub.WinnerSideID, a, b)
	}
	return &Result{WinnerSideID: winner, TeamAScore: a, TeamBScore: b}, nil
}

func fromMaps(m *Match, sub Submission, bestOf, need int) (*Result, error) {
	if len(sub.MapScores) > bestOf {
		return nil, Errorf(KindInvalidSeriesScore, "%d maps submitted for a best of %d", len(sub.MapScores), bestOf)
	}

	var a, b int
	maps := make([]MapScore, len(sub.MapScores))
	for i, ms := range sub.MapScores {
		if ms.TeamA < 0 || ms.TeamB < 0 {
			return nil, Errorf(KindInvalidSeriesScore, "map %d has a negative score", i+1)
		}
		if a >= need || b >= need {
			return nil, Errorf(KindInvalidSeriesScore, "map %d was played after the series was decided", i+1)
		}
		switch {
		case ms.TeamA > ms.TeamB:
			a++
		case ms.TeamB > ms.TeamA:
			b++
		}
		if ms.Map == "" && m.Veto.Status == VetoDone && i < len(m.Veto.Picks) {
			ms.Map = m.Veto.Picks[i]
		}
		maps[i] = ms
	}

	winner, err := seriesWinner(m, a, b, need)
	if err != nil {
		return nil, err
	}
	if sub.WinnerSideID != "" && sub.WinnerSideID != winner {
		return nil, Errorf(KindWinnerConflictsWithMaps, "maps give the series to %s", winner)
	}
	if (sub.TeamAScore != nil && *sub.TeamAScore != a) || (sub.TeamBScore != nil && *sub.TeamBScore != b) {
		return nil, Errorf(KindInvalidSeriesScore, "series score does not match the maps (%d-%d)", a, b)
	}
	return &Result{WinnerSideID: winner, TeamAScore: a, TeamBScore: b, MapScores: maps}, nil
}

func seriesWinner(m *Match, a, b, need int) (string, error) {
	switch {
	case a < 0 || b < 0:
		return "", Errorf(KindInvalidSeriesScore, "negative series score %d-%d", a, b)
	case a >= need && b >= need:
		return "", Errorf(KindInvalidSeriesScore, "both sides reach %d wins", need)
	case a > need || b > need:
		return "", Errorf(KindInvalidSeriesScore, "%d-%d exceeds the %d wins needed", a, b, need)
	case a == need:
		return m.TeamA.SideID, nil
	case b == need:
		return m.TeamB.SideID, nil
	}
	return "", Errorf(KindSeriesNotDecided, "%d-%d, %d wins needed", a, b, need)
}
