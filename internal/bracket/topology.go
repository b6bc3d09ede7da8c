package bracket

import (
	"math"
)

// Route is where a match sends its winner and loser. A nil Winner on an
// elimination stage means the match decides the tournament.
type Route struct {
	Winner *Slot
	Loser  *Slot
}

// Topology is the placement table of one elimination stage for a given entrant count.
// It is a pure function of (stage, double, entrants): the same inputs always give the
// same matches and routes, so propagation never has to store or parse links.
//
// Byes are never materialized. A seed facing an empty slot is placed straight into its
// next slot, and a lower bracket match that can only ever receive one side is a
// pass-through: whatever would enter it is routed to where its winner would go.
type Topology struct {
	Stage    Stage
	Double   bool
	Entrants int
	Size     int
	Rounds   int

	skeletons []skeleton
	routes    map[string]Route
}

type skeleton struct {
	id    string
	stage Stage
	round int
	index int
	seedA int // -1 when the slot is filled later
	seedB int
}

type rawMatch struct {
	id     string
	stage  Stage
	round  int
	index  int
	winner *Slot
	loser  *Slot
}

type slotKind int

const (
	slotUnset slotKind = iota
	slotLive
	slotDead
	slotSeed
)

type slotState struct {
	kind slotKind
	seed int
}

// SingleTopology is a single elimination bracket without a stage prefix.
func SingleTopology(entrants int) *Topology {
	return newTopology(StageSingle, false, entrants)
}

// PlayoffTopology is a single elimination bracket for group stage qualifiers.
func PlayoffTopology(entrants int) *Topology {
	return newTopology(StagePlayoff, false, entrants)
}

// DoubleTopology is an upper bracket, a lower ladder and a grand final.
func DoubleTopology(entrants int) *Topology {
	return newTopology(StageUpper, true, entrants)
}

// TopologyFor returns the placement table a match of t belongs to, or nil for
// stages without one (groups).
func TopologyFor(t *Tournament, stage Stage) *Topology {
	switch stage {
	case StageSingle:
		return SingleTopology(t.Entrants)
	case StageUpper, StageLower, StageGrandFinal:
		return DoubleTopology(t.Entrants)
	case StagePlayoff:
		return PlayoffTopology(t.PlayoffEntrants)
	}
	return nil
}

// Route returns the placement of a match's winner and loser.
func (t *Topology) Route(matchID string) (Route, bool) {
	r, ok := t.routes[matchID]
	return r, ok
}

// MatchCount is the number of playable matches the stage holds once fully propagated.
func (t *Topology) MatchCount() int {
	return len(t.skeletons)
}

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func calcBracketSize(count int) int {
	if count <= 0 {
		return 0
	}

	// Log2 -> Ceil -> 2^^log2 to round up
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

// generateRound1Pairs orders seeds so every pair sums to bracketSize-1 and the top
// seeds meet as late as possible. Seeds >= the entrant count are byes.
func generateRound1Pairs(bracketSize int) [][2]int {
	if bracketSize == 0 {
		return [][2]int{}
	}

	rounds := []int{0}
	for len(rounds) < bracketSize {
		var nextRound []int
		currentCount := len(rounds) * 2

		for _, seed := range rounds {
			nextRound = append(nextRound, seed)
			nextRound = append(nextRound, (currentCount-1)-seed)
		}
		rounds = nextRound
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(rounds); i += 2 {
		pairs = append(pairs, [2]int{rounds[i], rounds[i+1]})
	}

	return pairs
}

func newTopology(stage Stage, double bool, entrants int) *Topology {
	t := &Topology{
		Stage:    stage,
		Double:   double,
		Entrants: entrants,
		routes:   make(map[string]Route),
	}
	if entrants < 2 {
		return t
	}
	t.Size = calcBracketSize(entrants)
	t.Rounds = int(math.Log2(float64(t.Size)))

	raw := rawSkeleton(stage, double, t.Size, t.Rounds)
	prefix := StagePrefix(stage, "")

	state := make(map[Slot]slotState)
	for i, pair := range generateRound1Pairs(t.Size) {
		id := MatchID(prefix, 1, i+1)
		state[Slot{id, SlotA}] = seedOrBye(pair[0], entrants)
		state[Slot{id, SlotB}] = seedOrBye(pair[1], entrants)
	}

	mark := func(s *Slot, st slotState) {
		if s != nil {
			state[*s] = st
		}
	}

	alias := make(map[Slot]Slot)
	for _, rm := range raw {
		a := state[Slot{rm.id, SlotA}]
		b := state[Slot{rm.id, SlotB}]
		aDead := a.kind == slotDead || a.kind == slotUnset
		bDead := b.kind == slotDead || b.kind == slotUnset

		switch {
		case aDead && bDead:
			mark(rm.winner, slotState{kind: slotDead})
			mark(rm.loser, slotState{kind: slotDead})
		case aDead || bDead:
			live, pos := a, SlotA
			if aDead {
				live, pos = b, SlotB
			}
			if live.kind == slotSeed {
				mark(rm.winner, live)
			} else {
				mark(rm.winner, slotState{kind: slotLive})
				if rm.winner != nil {
					alias[Slot{rm.id, pos}] = *rm.winner
				}
			}
			mark(rm.loser, slotState{kind: slotDead})
		default:
			sk := skeleton{id: rm.id, stage: rm.stage, round: rm.round, index: rm.index, seedA: -1, seedB: -1}
			if a.kind == slotSeed {
				sk.seedA = a.seed
			}
			if b.kind == slotSeed {
				sk.seedB = b.seed
			}
			t.skeletons = append(t.skeletons, sk)
			mark(rm.winner, slotState{kind: slotLive})
			mark(rm.loser, slotState{kind: slotLive})
		}
	}

	resolve := func(s *Slot) *Slot {
		if s == nil {
			return nil
		}
		cur := *s
		for {
			next, ok := alias[cur]
			if !ok {
				return &cur
			}
			cur = next
		}
	}

	byID := make(map[string]rawMatch, len(raw))
	for _, rm := range raw {
		byID[rm.id] = rm
	}
	for _, sk := range t.skeletons {
		rm := byID[sk.id]
		t.routes[sk.id] = Route{Winner: resolve(rm.winner), Loser: resolve(rm.loser)}
	}
	return t
}

func seedOrBye(seed, entrants int) slotState {
	if seed < entrants {
		return slotState{kind: slotSeed, seed: seed}
	}
	return slotState{kind: slotDead}
}

// rawSkeleton lists every match of a full bracket of the given size in dependency
// order with its unresolved routes.
//
// Lower bracket placement for 2^k entrants (k >= 2), 2(k-1) lower rounds:
//
//	lower r1        losers of upper r1: m(2i-1) -> A, m(2i) -> B of lower r1 m(i)
//	lower r2j       winner of lower r(2j-1) m(i) -> A, loser of upper r(j+1) m(i) -> B
//	lower r2j+1     winners of lower r2j m(2i-1), m(2i) -> A, B of lower r(2j+1) m(i)
//	lower final     winner -> grand final B; upper final winner -> grand final A
//
// With two entrants there is no lower bracket and the upper loser goes straight to
// grand final B.
func rawSkeleton(stage Stage, double bool, size, rounds int) []rawMatch {
	prefix := StagePrefix(stage, "")
	gf := MatchID(prefixGrandFinal, 1, 1)
	lowerRounds := 0
	if double {
		lowerRounds = 2 * (rounds - 1)
	}

	var out []rawMatch
	for r := 1; r <= rounds; r++ {
		count := size >> r
		for i := 1; i <= count; i++ {
			rm := rawMatch{id: MatchID(prefix, r, i), stage: stage, round: r, index: i}
			if r < rounds {
				nr, ni, pos := NextInRound(r, i)
				rm.winner = &Slot{MatchID(prefix, nr, ni), pos}
			} else if double {
				rm.winner = &Slot{gf, SlotA}
			}
			if double {
				rm.loser = upperLoserSlot(r, i, rounds)
			}
			out = append(out, rm)
		}
	}

	for lr := 1; lr <= lowerRounds; lr++ {
		count := lowerRoundSize(size, lr)
		for i := 1; i <= count; i++ {
			rm := rawMatch{id: MatchID(prefixLower, lr, i), stage: StageLower, round: lr, index: i}
			switch {
			case lr == lowerRounds:
				rm.winner = &Slot{gf, SlotB}
			case lr%2 == 1:
				rm.winner = &Slot{MatchID(prefixLower, lr+1, i), SlotA}
			default:
				nr, ni, pos := NextInRound(lr, i)
				rm.winner = &Slot{MatchID(prefixLower, nr, ni), pos}
			}
			out = append(out, rm)
		}
	}

	if double {
		out = append(out, rawMatch{id: gf, stage: StageGrandFinal, round: 1, index: 1})
	}
	return out
}

// upperLoserSlot is the lower bracket drop table.
func upperLoserSlot(round, index, rounds int) *Slot {
	if rounds == 1 {
		return &Slot{MatchID(prefixGrandFinal, 1, 1), SlotB}
	}
	if round == 1 {
		_, ni, pos := NextInRound(round, index)
		return &Slot{MatchID(prefixLower, 1, ni), pos}
	}
	return &Slot{MatchID(prefixLower, 2*(round-1), index), SlotB}
}

func lowerRoundSize(size, lr int) int {
	j := lr / 2
	if lr%2 == 0 {
		return size >> (j + 1)
	}
	return size >> (j + 2)
}
