package bracket

import (
	"testing"

	"github.com/AdamBeresnev/op-bracket/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seriesMatch(bestOf int) *Match {
	sides := makeSides(2)
	m := &Match{ID: "r1_m1", BestOf: bestOf, TeamA: &sides[0], TeamB: &sides[1]}
	m.refreshStatus()
	return m
}

func TestValidateMapScores(t *testing.T) {
	maps := []MapScore{{TeamA: 13, TeamB: 9}, {TeamA: 7, TeamB: 13}, {TeamA: 13, TeamB: 11}}

	res, err := Validate(seriesMatch(3), Submission{MapScores: maps})
	require.NoError(t, err)
	assert.Equal(t, "s01", res.WinnerSideID)
	assert.Equal(t, 2, res.TeamAScore)
	assert.Equal(t, 1, res.TeamBScore)

	_, err = Validate(seriesMatch(3), Submission{MapScores: maps, WinnerSideID: "s02"})
	assert.ErrorIs(t, err, ErrWinnerConflictsWithMaps)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		bestOf  int
		sub     Submission
		wantErr error
		winner  string
		a, b    int
	}{
		{
			name:   "bo1 explicit score",
			bestOf: 1,
			sub:    score(0, 1),
			winner: "s02", a: 0, b: 1,
		},
		{
			name:   "explicit score with matching winner",
			bestOf: 3,
			sub:    Submission{WinnerSideID: "s01", TeamAScore: utils.Ptr(2), TeamBScore: utils.Ptr(0)},
			winner: "s01", a: 2, b: 0,
		},
		{
			name:    "explicit score with other winner",
			bestOf:  3,
			sub:     Submission{WinnerSideID: "s02", TeamAScore: utils.Ptr(2), TeamBScore: utils.Ptr(0)},
			wantErr: ErrInvalidSeriesScore,
		},
		{
			name:    "neither side reaches the threshold",
			bestOf:  3,
			sub:     score(1, 1),
			wantErr: ErrSeriesNotDecided,
		},
		{
			name:    "both sides reach the threshold",
			bestOf:  3,
			sub:     score(2, 2),
			wantErr: ErrInvalidSeriesScore,
		},
		{
			name:    "more wins than the series allows",
			bestOf:  3,
			sub:     score(3, 0),
			wantErr: ErrInvalidSeriesScore,
		},
		{
			name:    "winner without scores",
			bestOf:  1,
			sub:     Submission{WinnerSideID: "s01"},
			wantErr: ErrInvalidSeriesScore,
		},
		{
			name:    "winner not in match",
			bestOf:  1,
			sub:     Submission{WinnerSideID: "s07", TeamAScore: utils.Ptr(1), TeamBScore: utils.Ptr(0)},
			wantErr: ErrInvalidSide,
		},
		{
			name:   "tied map is excluded",
			bestOf: 3,
			sub:    Submission{MapScores: []MapScore{{TeamA: 12, TeamB: 12}, {TeamA: 13, TeamB: 2}, {TeamA: 13, TeamB: 5}}},
			winner: "s01", a: 2, b: 0,
		},
		{
			name:    "tied maps leave the series open",
			bestOf:  1,
			sub:     Submission{MapScores: []MapScore{{TeamA: 15, TeamB: 15}}},
			wantErr: ErrSeriesNotDecided,
		},
		{
			name:    "too many maps",
			bestOf:  1,
			sub:     Submission{MapScores: []MapScore{{TeamA: 13}, {TeamB: 13}}},
			wantErr: ErrInvalidSeriesScore,
		},
		{
			name:    "map after the series was decided",
			bestOf:  3,
			sub:     Submission{MapScores: []MapScore{{TeamA: 13}, {TeamA: 13}, {TeamB: 13}}},
			wantErr: ErrInvalidSeriesScore,
		},
		{
			name:    "negative map score",
			bestOf:  1,
			sub:     Submission{MapScores: []MapScore{{TeamA: 13, TeamB: -1}}},
			wantErr: ErrInvalidSeriesScore,
		},
		{
			name:    "series score contradicts maps",
			bestOf:  3,
			sub:     Submission{MapScores: []MapScore{{TeamA: 13}, {TeamA: 13}}, TeamAScore: utils.Ptr(2), TeamBScore: utils.Ptr(1)},
			wantErr: ErrInvalidSeriesScore,
		},
		{
			name:   "forfeit",
			bestOf: 5,
			sub:    Submission{WinnerSideID: "s02", Forfeit: true},
			winner: "s02", a: 0, b: 3,
		},
		{
			name:    "forfeit without winner",
			bestOf:  1,
			sub:     Submission{Forfeit: true},
			wantErr: ErrInvalidSeriesScore,
		},
		{
			name:    "unsupported best of",
			bestOf:  1,
			sub:     Submission{BestOf: utils.Ptr(4)},
			wantErr: ErrInvalidSeriesScore,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Validate(seriesMatch(tc.bestOf), tc.sub)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, res)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.Equal(t, tc.winner, res.WinnerSideID)
			assert.Equal(t, tc.a, res.TeamAScore)
			assert.Equal(t, tc.b, res.TeamBScore)
		})
	}
}

func TestValidateRescheduleOnly(t *testing.T) {
	at := testNow
	res, err := Validate(seriesMatch(1), Submission{ScheduledAt: &at, BestOf: utils.Ptr(3)})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestValidateLabelsMapsFromVeto(t *testing.T) {
	m := seriesMatch(3)
	m.prepare([]string{"Inferno", "Mirage", "Nuke"}, DefaultPolicy())
	for m.Veto.Status == VetoPending {
		require.NoError(t, m.Veto.Apply(m.Veto.NextSideID, m.Veto.NextAction, m.Veto.AvailableMaps[0], testNow))
	}

	res, err := Validate(m, Submission{MapScores: []MapScore{{TeamA: 13, TeamB: 3}, {Map: "custom", TeamA: 13, TeamB: 8}}})
	require.NoError(t, err)
	assert.Equal(t, "Inferno", res.MapScores[0].Map)
	assert.Equal(t, "custom", res.MapScores[1].Map)
}
