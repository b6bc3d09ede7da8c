package bracket

import "sort"

// RoundView is one column of a rendered bracket.
type RoundView struct {
	Stage   Stage    `json:"stage"`
	Group   string   `json:"group,omitempty"`
	Round   int      `json:"round"`
	Matches []*Match `json:"matches"`
}

type roundKey struct {
	stage Stage
	group string
	round int
}

// Rounds groups matches into columns by stage, group and round, each sorted by index.
func Rounds(matches []*Match) []RoundView {
	byRound := make(map[roundKey][]*Match)
	var keys []roundKey

	for _, m := range matches {
		k := roundKey{m.Stage, m.Group, m.Round}
		if _, exists := byRound[k]; !exists {
			keys = append(keys, k)
		}
		byRound[k] = append(byRound[k], m)
	}

	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if stageOrder[a.stage] != stageOrder[b.stage] {
			return stageOrder[a.stage] < stageOrder[b.stage]
		}
		if a.group != b.group {
			return a.group < b.group
		}
		return a.round < b.round
	})

	out := make([]RoundView, 0, len(keys))
	for _, k := range keys {
		round := byRound[k]
		sort.Slice(round, func(i, j int) bool {
			return round[i].Index < round[j].Index
		})
		out = append(out, RoundView{Stage: k.stage, Group: k.group, Round: k.round, Matches: round})
	}
	return out
}
