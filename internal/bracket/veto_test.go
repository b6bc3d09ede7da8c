package bracket

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var maps7 = []string{"Ancient", "Anubis", "Dust2", "Inferno", "Mirage", "Nuke", "Vertigo"}

func turns(schedule []Turn) string {
	out := ""
	for _, t := range schedule {
		switch t.Action {
		case ActionDecider:
			out += "D"
		case ActionBan:
			out += fmt.Sprintf("%db ", t.Side)
		case ActionPick:
			out += fmt.Sprintf("%dp ", t.Side)
		}
	}
	return out
}

func TestVetoSchedule(t *testing.T) {
	testCases := []struct {
		name   string
		k      int
		bestOf int
		want   string
	}{
		{"bo1 single map", 1, 1, "D"},
		{"bo1 three maps", 3, 1, "1b 2b D"},
		{"bo1 seven maps", 7, 1, "1b 2b 1b 2b 1b 2b D"},
		{"bo3 three maps", 3, 3, "1p 2p D"},
		{"bo3 seven maps", 7, 3, "1b 2b 1p 2p 1b 2b D"},
		{"bo5 seven maps", 7, 5, "1b 2b 1p 2p 1p 2p D"},
		{"bo5 five maps", 5, 5, "1p 2p 1p 2p D"},
		{"pool too small", 2, 3, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, turns(VetoSchedule(tc.k, tc.bestOf)))
		})
	}
}

func TestVetoBestOfOneScenario(t *testing.T) {
	v, err := NewVeto([]string{"A", "B", "C"}, 1, "X", "Y")
	require.NoError(t, err)

	require.NoError(t, v.Apply("X", ActionBan, "A", testNow))
	require.NoError(t, v.Apply("Y", ActionBan, "B", testNow.Add(time.Second)))

	assert.Equal(t, VetoDone, v.Status)
	assert.Equal(t, []string{"C"}, v.Picks)
	assert.Empty(t, v.AvailableMaps)
	require.Len(t, v.Bans, 3)
	assert.Equal(t, VetoEntry{Idx: 2, Action: ActionDecider, Map: "C", Auto: true, At: testNow.Add(time.Second)}, v.Bans[2])
	assert.Nil(t, v.TurnStartedAt)
}

func TestVetoBestOfOneBanCount(t *testing.T) {
	for k := 1; k <= len(maps7); k++ {
		t.Run(fmt.Sprintf("%d maps", k), func(t *testing.T) {
			v, err := NewVeto(maps7[:k], 1, "X", "Y")
			require.NoError(t, err)

			bans := 0
			for v.Status == VetoPending {
				require.Equal(t, ActionBan, v.NextAction)
				require.NoError(t, v.Apply(v.NextSideID, ActionBan, v.AvailableMaps[0], testNow))
				bans++
			}
			assert.Equal(t, k-1, bans)
			assert.Len(t, v.Picks, 1)
		})
	}
}

func TestVetoBestOfNPicks(t *testing.T) {
	for _, bestOf := range []int{3, 5} {
		for k := bestOf; k <= len(maps7); k++ {
			t.Run(fmt.Sprintf("bo%d with %d maps", bestOf, k), func(t *testing.T) {
				v, err := NewVeto(maps7[:k], bestOf, "X", "Y")
				require.NoError(t, err)

				for v.Status == VetoPending {
					before := len(v.AvailableMaps)
					last := v.AvailableMaps[len(v.AvailableMaps)-1]
					require.NoError(t, v.Apply(v.NextSideID, v.NextAction, last, testNow))
					assert.Less(t, len(v.AvailableMaps), before)
				}
				assert.Len(t, v.Picks, bestOf)
				assert.Equal(t, ActionDecider, v.Bans[len(v.Bans)-1].Action)
				assert.GreaterOrEqual(t, len(v.Picks), RequiredWins(bestOf))
			})
		}
	}
}

func TestVetoRejections(t *testing.T) {
	v, err := NewVeto([]string{"A", "B", "C"}, 1, "X", "Y")
	require.NoError(t, err)

	err = v.Apply("Y", ActionBan, "A", testNow)
	assert.ErrorIs(t, err, ErrWrongTurn)

	err = v.Apply("X", ActionPick, "A", testNow)
	assert.ErrorIs(t, err, ErrWrongTurn)

	err = v.Apply("X", ActionBan, "Z", testNow)
	assert.ErrorIs(t, err, ErrMapUnavailable)

	require.NoError(t, v.Apply("X", ActionBan, "a", testNow))
	assert.Equal(t, "A", v.Bans[0].Map)

	err = v.Apply("Y", ActionBan, "A", testNow)
	assert.ErrorIs(t, err, ErrMapUnavailable)

	require.NoError(t, v.Apply("Y", ActionBan, "B", testNow))
	err = v.Apply("X", ActionBan, "C", testNow)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestValidateMapPool(t *testing.T) {
	testCases := []struct {
		name   string
		pool   []string
		bestOf int
		want   error
	}{
		{"empty pool", nil, 3, nil},
		{"exact size", []string{"A", "B", "C"}, 3, nil},
		{"too small", []string{"A", "B"}, 3, ErrInvalidMapPool},
		{"duplicate", []string{"A", "a", "B"}, 1, ErrInvalidMapPool},
		{"blank", []string{"A", " "}, 1, ErrInvalidMapPool},
		{"bad best of", []string{"A", "B"}, 2, ErrInvalidSeriesScore},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateMapPool(tc.pool, tc.bestOf)
			if tc.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.want)
			}
		})
	}
}

func vetoMatch(t *testing.T, scheduled bool) *Match {
	t.Helper()
	m := &Match{
		ID:     "r1_m1",
		BestOf: 1,
		TeamA:  &makeSides(2)[0],
		TeamB:  &makeSides(2)[1],
	}
	if scheduled {
		at := testNow
		m.ScheduledAt = &at
	}
	m.refreshStatus()
	m.prepare([]string{"A", "B", "C"}, DefaultPolicy())
	return m
}

func TestApplyVetoOnUnscheduledMatch(t *testing.T) {
	m := vetoMatch(t, false)
	p := DefaultPolicy()

	require.NoError(t, m.ApplyVeto("s01", ActionBan, "A", testNow, p))
	require.NoError(t, m.ApplyVeto("s02", ActionBan, "B", testNow.Add(5*time.Second), p))
	assert.Equal(t, VetoDone, m.Veto.Status)

	err := m.ApplyVeto("s03", ActionBan, "C", testNow, p)
	assert.ErrorIs(t, err, ErrInvalidSide)
}

func TestApplyVetoAfterExpiredReadyCheck(t *testing.T) {
	m := vetoMatch(t, true)
	p := DefaultPolicy()

	_, err := m.ConfirmReady("s01", testNow.Add(time.Minute), p)
	require.NoError(t, err)

	late := testNow.Add(p.ReadyGrace + time.Second)
	for _, side := range []string{"s01", "s02"} {
		err := m.ApplyVeto(side, ActionBan, "A", late, p)
		assert.ErrorIs(t, err, ErrNotReady, side)
	}
	assert.Equal(t, ReadyExpired, m.ReadyCheck.Status)
	assert.Empty(t, m.Veto.Bans)
}

func TestVetoTurnTimeoutAutoBan(t *testing.T) {
	p := DefaultPolicy()
	m := vetoMatch(t, false)
	m.ID = "upper_r1_m2"
	m.prepare([]string{"A", "B", "C", "D"}, p)

	m.Evaluate(testNow, p)
	require.NotNil(t, m.Veto.TurnStartedAt)
	assert.Equal(t, testNow, *m.Veto.TurnStartedAt)

	other := *m
	other.Veto.Bans = append([]VetoEntry(nil), m.Veto.Bans...)

	later := testNow.Add(p.TurnDuration*2 + time.Second)
	m.Evaluate(later, p)
	other.Evaluate(later, p)

	require.Len(t, m.Veto.Bans, 2)
	for i, e := range m.Veto.Bans {
		assert.True(t, e.Auto)
		assert.Equal(t, ActionBan, e.Action)
		assert.Equal(t, testNow.Add(time.Duration(i+1)*p.TurnDuration), e.At)
	}
	assert.Equal(t, m.Veto.Bans, other.Veto.Bans)
	assert.Equal(t, "s01", m.Veto.NextSideID)
	assert.Equal(t, testNow.Add(2*p.TurnDuration), *m.Veto.TurnStartedAt)
}

func TestVetoTurnTimeoutNone(t *testing.T) {
	p := DefaultPolicy()
	p.TurnTimeout = TimeoutNone
	m := vetoMatch(t, false)

	m.Evaluate(testNow, p)
	late := testNow.Add(10 * p.TurnDuration)
	require.NoError(t, m.ApplyVeto("s01", ActionBan, "A", late, p))
	assert.False(t, m.Veto.Bans[0].Auto)
	assert.Equal(t, "s02", m.Veto.NextSideID)
}
