package bracket

import (
	"fmt"
	"hash/fnv"
	"slices"
	"strings"
	"time"
)

type VetoStatus string

const (
	VetoPending VetoStatus = "pending"
	VetoDone    VetoStatus = "done"
)

type VetoAction string

const (
	ActionBan     VetoAction = "ban"
	ActionPick    VetoAction = "pick"
	ActionDecider VetoAction = "decider"
)

// VetoEntry is one line of the append-only action log.
type VetoEntry struct {
	Idx    int        `json:"idx"`
	SideID string     `json:"sideId,omitempty"`
	Action VetoAction `json:"action"`
	Map    string     `json:"map"`
	Auto   bool       `json:"auto,omitempty"`
	At     time.Time  `json:"at"`
}

// Turn is one step of a veto schedule. Decider turns belong to no side.
type Turn struct {
	Side   SlotPos
	Action VetoAction
}

// Veto is the ban/pick negotiation of one match. Bans is the full action log; every
// other exported field is derived from it by fold.
type Veto struct {
	Status        VetoStatus  `json:"status"`
	Pool          []string    `json:"pool,omitempty"`
	BestOf        int         `json:"bestOf,omitempty"`
	SideA         string      `json:"sideA,omitempty"`
	SideB         string      `json:"sideB,omitempty"`
	Bans          []VetoEntry `json:"bans"`
	AvailableMaps []string    `json:"availableMaps"`
	Picks         []string    `json:"picks"`
	NextSideID    string      `json:"nextSideId,omitempty"`
	NextAction    VetoAction  `json:"nextAction,omitempty"`
	TurnStartedAt *time.Time  `json:"turnStartedAt,omitempty"`
}

func ValidBestOf(bestOf int) bool {
	return bestOf == 1 || bestOf == 3 || bestOf == 5
}

// ValidateMapPool checks a pool can carry a veto for bestOf. An empty pool is valid
// and means matches are played without a veto.
func ValidateMapPool(pool []string, bestOf int) error {
	if !ValidBestOf(bestOf) {
		return Errorf(KindInvalidSeriesScore, "best of %d, must be 1, 3 or 5", bestOf)
	}
	if len(pool) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(pool))
	for _, name := range pool {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return Errorf(KindInvalidMapPool, "blank map name")
		}
		if seen[key] {
			return Errorf(KindInvalidMapPool, "map %q listed twice", name)
		}
		seen[key] = true
	}
	if len(pool) < bestOf {
		return Errorf(KindInvalidMapPool, "%d maps cannot cover a best of %d", len(pool), bestOf)
	}
	return nil
}

// VetoSchedule is the fixed turn order for a pool of k maps.
//
// BO1 alternates bans until one map is left. BO3 and BO5 open with up to two bans,
// then bestOf-1 picks, then the remaining bans. In both cases the last map becomes
// the decider, so a finished veto always yields bestOf maps in play order. Sides
// alternate strictly and side A acts first.
func VetoSchedule(k, bestOf int) []Turn {
	if k < 1 || k < bestOf {
		return nil
	}
	var actions []VetoAction
	if bestOf == 1 {
		for i := 0; i < k-1; i++ {
			actions = append(actions, ActionBan)
		}
	} else {
		bans := k - bestOf
		opening := min(2, bans)
		for i := 0; i < opening; i++ {
			actions = append(actions, ActionBan)
		}
		for i := 0; i < bestOf-1; i++ {
			actions = append(actions, ActionPick)
		}
		for i := opening; i < bans; i++ {
			actions = append(actions, ActionBan)
		}
	}

	turns := make([]Turn, 0, k)
	for i, a := range actions {
		side := SlotA
		if i%2 == 1 {
			side = SlotB
		}
		turns = append(turns, Turn{Side: side, Action: a})
	}
	return append(turns, Turn{Action: ActionDecider})
}

// NewVeto opens a veto between sideA and sideB. With no pool there is nothing to veto.
func NewVeto(pool []string, bestOf int, sideA, sideB string) (Veto, error) {
	if len(pool) == 0 {
		return Veto{Status: VetoDone}, nil
	}
	if err := ValidateMapPool(pool, bestOf); err != nil {
		return Veto{}, err
	}
	v := Veto{
		Pool:   slices.Clone(pool),
		BestOf: bestOf,
		SideA:  sideA,
		SideB:  sideB,
	}
	v.fold()
	v.settle(time.Time{})
	return v, nil
}

// Required reports whether the match has a veto to run at all.
func (v *Veto) Required() bool {
	return len(v.Pool) > 0
}

// fold recomputes the derived view from the pool and the log.
func (v *Veto) fold() {
	if !v.Required() {
		v.Status = VetoDone
		return
	}
	if v.Bans == nil {
		v.Bans = []VetoEntry{}
	}
	available := slices.Clone(v.Pool)
	picks := []string{}
	for _, e := range v.Bans {
		available = slices.DeleteFunc(available, func(m string) bool { return m == e.Map })
		if e.Action == ActionPick || e.Action == ActionDecider {
			picks = append(picks, e.Map)
		}
	}
	v.AvailableMaps = available
	v.Picks = picks

	turn, ok := v.nextTurn()
	if !ok {
		v.Status = VetoDone
		v.NextSideID = ""
		v.NextAction = ""
		v.TurnStartedAt = nil
		return
	}
	v.Status = VetoPending
	v.NextSideID = v.sideAt(turn.Side)
	v.NextAction = turn.Action
}

func (v *Veto) nextTurn() (Turn, bool) {
	schedule := VetoSchedule(len(v.Pool), v.BestOf)
	if len(v.Bans) >= len(schedule) {
		return Turn{}, false
	}
	return schedule[len(v.Bans)], true
}

func (v *Veto) sideAt(pos SlotPos) string {
	switch pos {
	case SlotA:
		return v.SideA
	case SlotB:
		return v.SideB
	}
	return ""
}

// Apply validates and records one action by sideID. A decider turn that follows is
// resolved immediately since it involves no choice.
func (v *Veto) Apply(sideID string, action VetoAction, mapName string, now time.Time) error {
	if v.Status != VetoPending {
		return Errorf(KindInvalidState, "veto is already done")
	}
	if sideID != v.NextSideID {
		return Errorf(KindWrongTurn, "it is %s's turn", v.NextSideID)
	}
	if action != v.NextAction {
		return Errorf(KindWrongTurn, "expected %s, got %s", v.NextAction, action)
	}
	name, ok := v.available(mapName)
	if !ok {
		return Errorf(KindMapUnavailable, "map %q is not available", mapName)
	}
	v.record(sideID, action, name, false, now)
	return nil
}

func (v *Veto) available(mapName string) (string, bool) {
	for _, m := range v.AvailableMaps {
		if strings.EqualFold(m, strings.TrimSpace(mapName)) {
			return m, true
		}
	}
	return "", false
}

func (v *Veto) record(sideID string, action VetoAction, mapName string, auto bool, at time.Time) {
	v.Bans = append(v.Bans, VetoEntry{
		Idx:    len(v.Bans),
		SideID: sideID,
		Action: action,
		Map:    mapName,
		Auto:   auto,
		At:     at,
	})
	v.fold()
	if v.settle(at) {
		return
	}
	if v.Status == VetoPending {
		started := at
		v.TurnStartedAt = &started
	}
}

// settle takes the decider once it is the only move left.
func (v *Veto) settle(at time.Time) bool {
	if v.Status != VetoPending || v.NextAction != ActionDecider {
		return false
	}
	v.record("", ActionDecider, v.AvailableMaps[0], true, at)
	return true
}

// expire resolves every turn whose budget elapsed before now. The map taken is a
// hash of seed and the turn index, so evaluating the same state twice agrees.
func (v *Veto) expire(now time.Time, turn time.Duration, seed string) {
	for v.Status == VetoPending && v.TurnStartedAt != nil {
		deadline := v.TurnStartedAt.Add(turn)
		if now.Before(deadline) {
			return
		}
		h := fnv.New32a()
		fmt.Fprintf(h, "%s:%d", seed, len(v.Bans))
		choice := v.AvailableMaps[int(h.Sum32()%uint32(len(v.AvailableMaps)))]
		v.record(v.NextSideID, v.NextAction, choice, true, deadline)
	}
}

// restart drops the log and reopens the veto over the same pool.
func (v Veto) restart() Veto {
	fresh := Veto{Pool: v.Pool, BestOf: v.BestOf, SideA: v.SideA, SideB: v.SideB}
	fresh.fold()
	fresh.settle(time.Time{})
	return fresh
}

// Deadline is when the current turn times out under p, if it can.
func (v *Veto) Deadline(p Policy) *time.Time {
	if v.Status != VetoPending || v.TurnStartedAt == nil || p.TurnDuration <= 0 {
		return nil
	}
	d := v.TurnStartedAt.Add(p.TurnDuration)
	return &d
}

// ApplyVeto runs one veto action on the match after evaluating pending timeouts.
func (m *Match) ApplyVeto(sideID string, action VetoAction, mapName string, now time.Time, p Policy) error {
	m.Evaluate(now, p)

	if m.Closed() {
		return Errorf(KindInvalidState, "match %s is %s", m.ID, m.Status)
	}
	if _, ok := m.PositionOf(sideID); !ok {
		return Errorf(KindInvalidSide, "side %s does not play match %s", sideID, m.ID)
	}
	if !m.Gate(now) {
		return Errorf(KindNotReady, "ready check of match %s is %s", m.ID, m.ReadyCheck.Status)
	}
	if !m.Veto.Required() {
		return Errorf(KindInvalidState, "match %s has no map veto", m.ID)
	}
	return m.Veto.Apply(sideID, action, mapName, now)
}
