package bracket

import "sort"

type Standing struct {
	Side         Side `json:"side"`
	Wins         int  `json:"wins"`
	Losses       int  `json:"losses"`
	Played       int  `json:"played"`
	ScoreFor     int  `json:"scoreFor"`
	ScoreAgainst int  `json:"scoreAgainst"`
}

func (s Standing) Diff() int {
	return s.ScoreFor - s.ScoreAgainst
}

type GroupStandings struct {
	Group     string     `json:"group"`
	Standings []Standing `json:"standings"`
}

// CalculateStandings ranks every group from its completed matches. Sides with no
// completed match yet still appear with zero records.
func CalculateStandings(matches []*Match) []GroupStandings {
	rows := make(map[string]map[string]*Standing)
	var groups []string

	row := func(group string, s *Side) *Standing {
		g, ok := rows[group]
		if !ok {
			g = make(map[string]*Standing)
			rows[group] = g
			groups = append(groups, group)
		}
		st, ok := g[s.SideID]
		if !ok {
			st = &Standing{Side: *s.Clone()}
			g[s.SideID] = st
		}
		return st
	}

	for _, m := range matches {
		if m.Stage != StageGroup || m.TeamA == nil || m.TeamB == nil {
			continue
		}
		a, b := row(m.Group, m.TeamA), row(m.Group, m.TeamB)
		if m.Status != MatchCompleted {
			continue
		}
		a.Played++
		b.Played++
		a.ScoreFor += m.TeamAScore
		a.ScoreAgainst += m.TeamBScore
		b.ScoreFor += m.TeamBScore
		b.ScoreAgainst += m.TeamAScore
		switch m.WinnerSideID {
		case m.TeamA.SideID:
			a.Wins++
			b.Losses++
		case m.TeamB.SideID:
			b.Wins++
			a.Losses++
		}
	}

	sort.Strings(groups)
	out := make([]GroupStandings, 0, len(groups))
	for _, g := range groups {
		list := make([]Standing, 0, len(rows[g]))
		for _, st := range rows[g] {
			list = append(list, *st)
		}
		sort.Slice(list, func(i, j int) bool {
			return rankBefore(list[i], list[j])
		})
		out = append(out, GroupStandings{Group: g, Standings: list})
	}
	return out
}

// rankBefore is the total ranking order: wins, score differential, rating, side id.
func rankBefore(a, b Standing) bool {
	if a.Wins != b.Wins {
		return a.Wins > b.Wins
	}
	if a.Diff() != b.Diff() {
		return a.Diff() > b.Diff()
	}
	if a.Side.AvgRating != b.Side.AvgRating {
		return a.Side.AvgRating > b.Side.AvgRating
	}
	return a.Side.SideID < b.Side.SideID
}

// CanFinishGroupStage is true once every group match is completed and no playoff
// match exists yet.
func CanFinishGroupStage(matches []*Match) bool {
	groupMatches := 0
	for _, m := range matches {
		switch m.Stage {
		case StagePlayoff:
			return false
		case StageGroup:
			if m.Status != MatchCompleted {
				return false
			}
			groupMatches++
		}
	}
	return groupMatches > 0
}

const qualifiersPerGroup = 2

// GeneratePlayoff seeds the top two of every group into a single elimination playoff.
func GeneratePlayoff(t *Tournament, matches []*Match, p Policy) ([]*Match, error) {
	if t.BracketType != GroupPlayoff {
		return nil, Errorf(KindInvalidState, "tournament %s has no group stage", t.ID)
	}
	if !CanFinishGroupStage(matches) {
		return nil, Errorf(KindInvalidState, "group stage is not finished or the playoff already exists")
	}
	var qualifiers []Side
	for _, g := range CalculateStandings(matches) {
		for i := 0; i < len(g.Standings) && i < qualifiersPerGroup; i++ {
			qualifiers = append(qualifiers, g.Standings[i].Side)
		}
	}
	return BuildPlayoff(t, qualifiers, p)
}
