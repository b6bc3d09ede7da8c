package bracket

import (
	"fmt"
	"sort"
)

const minGroupSize = 4

// SeedOrder returns the sides by descending rating. Ties fall back to side id so the
// order is total. Duplicate side ids keep their first occurrence only.
func SeedOrder(sides []Side) []Side {
	seen := make(map[string]bool, len(sides))
	out := make([]Side, 0, len(sides))
	for _, s := range sides {
		if s.SideID == "" || seen[s.SideID] {
			continue
		}
		seen[s.SideID] = true
		out = append(out, *s.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AvgRating != out[j].AvgRating {
			return out[i].AvgRating > out[j].AvgRating
		}
		return out[i].SideID < out[j].SideID
	})
	return out
}

// Build produces the initial match set for t from its eligible sides and records on t
// the entrant count the elimination topology was built for. Group+playoff tournaments
// only get their group stage here; the playoff comes from GeneratePlayoff.
func Build(t *Tournament, sides []Side, p Policy) ([]*Match, error) {
	seeded := SeedOrder(sides)
	if len(seeded) < 2 {
		return nil, Errorf(KindInvalidParticipantCount, "need at least 2 eligible sides, got %d", len(seeded))
	}
	if err := ValidateMapPool(t.MapPool, t.BestOf); err != nil {
		return nil, err
	}

	t.Entrants = len(seeded)
	t.PlayoffEntrants = 0

	var matches []*Match
	switch t.BracketType {
	case SingleElimination:
		matches = materialize(t, SingleTopology(len(seeded)), seeded, p)
	case DoubleElimination:
		matches = materialize(t, DoubleTopology(len(seeded)), seeded, p)
	case GroupPlayoff:
		for _, g := range PartitionGroups(seeded) {
			matches = append(matches, RoundRobin(t, g.Name, g.Sides, p)...)
		}
	default:
		return nil, fmt.Errorf("unknown bracket type %q", t.BracketType)
	}
	SortMatches(matches)
	return matches, nil
}

// BuildPlayoff seeds qualifiers by rating and lays them out exactly like a single
// elimination bracket of that size, under the playoff stage.
func BuildPlayoff(t *Tournament, qualifiers []Side, p Policy) ([]*Match, error) {
	seeded := SeedOrder(qualifiers)
	if len(seeded) < 2 {
		return nil, Errorf(KindInvalidParticipantCount, "need at least 2 qualifiers, got %d", len(seeded))
	}
	t.PlayoffEntrants = len(seeded)
	matches := materialize(t, PlayoffTopology(len(seeded)), seeded, p)
	SortMatches(matches)
	return matches, nil
}

func materialize(t *Tournament, top *Topology, seeded []Side, p Policy) []*Match {
	matches := make([]*Match, 0, len(top.skeletons))
	for _, sk := range top.skeletons {
		m := &Match{
			ID:           sk.id,
			TournamentID: t.ID,
			Stage:        sk.stage,
			Round:        sk.round,
			Index:        sk.index,
			BestOf:       t.BestOf,
		}
		if sk.seedA >= 0 {
			m.TeamA = seeded[sk.seedA].Clone()
		}
		if sk.seedB >= 0 {
			m.TeamB = seeded[sk.seedB].Clone()
		}
		if sameSide(m.TeamA, m.TeamB) {
			continue
		}
		m.refreshStatus()
		m.prepare(t.MapPool, p)
		matches = append(matches, m)
	}
	return matches
}

type Group struct {
	Name  string
	Sides []Side
}

// PartitionGroups splits seeded sides into as many groups as keeps each one at 4 or
// more sides, dealing them out in snake order (A B C C B A ...) so group strength
// stays balanced. Fewer than 8 sides form a single group.
func PartitionGroups(seeded []Side) []Group {
	n := len(seeded)
	count := max(1, n/minGroupSize)

	groups := make([]Group, count)
	for i := range groups {
		groups[i].Name = GroupName(i)
	}
	for i, s := range seeded {
		lap, pos := i/count, i%count
		if lap%2 == 1 {
			pos = count - 1 - pos
		}
		groups[pos].Sides = append(groups[pos].Sides, s)
	}
	return groups
}

func GroupName(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("G%d", i+1)
}

// RoundRobin pairs every two sides of a group exactly once using the circle method:
// the first side stays fixed and the rest rotate one place per round. An odd group
// gets a phantom entrant and whoever draws it sits the round out.
func RoundRobin(t *Tournament, group string, sides []Side, p Policy) []*Match {
	idx := make([]int, len(sides))
	for i := range idx {
		idx[i] = i
	}
	if len(idx)%2 == 1 {
		idx = append(idx, -1)
	}
	n := len(idx)
	if n < 2 {
		return nil
	}

	prefix := StagePrefix(StageGroup, group)
	var matches []*Match
	for r := 1; r < n; r++ {
		index := 0
		for i := 0; i < n/2; i++ {
			a, b := idx[i], idx[n-1-i]
			if a < 0 || b < 0 || sides[a].SideID == sides[b].SideID {
				continue
			}
			// Alternate the fixed side's slot so it does not always pick first.
			if i == 0 && r%2 == 0 {
				a, b = b, a
			}
			index++
			m := &Match{
				ID:           MatchID(prefix, r, index),
				TournamentID: t.ID,
				Stage:        StageGroup,
				Group:        group,
				Round:        r,
				Index:        index,
				BestOf:       t.BestOf,
				TeamA:        sides[a].Clone(),
				TeamB:        sides[b].Clone(),
			}
			m.refreshStatus()
			m.prepare(t.MapPool, p)
			matches = append(matches, m)
		}
		// rotate everything but the first entry one step to the right
		last := idx[n-1]
		copy(idx[2:], idx[1:n-1])
		idx[1] = last
	}
	return matches
}

var stageOrder = map[Stage]int{
	StageGroup:      0,
	StageSingle:     1,
	StageUpper:      1,
	StageLower:      2,
	StageGrandFinal: 3,
	StagePlayoff:    4,
}

// SortMatches orders by stage, group, round and index. Propagation relies on index
// order being stable.
func SortMatches(matches []*Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if stageOrder[a.Stage] != stageOrder[b.Stage] {
			return stageOrder[a.Stage] < stageOrder[b.Stage]
		}
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		return a.Index < b.Index
	})
}
