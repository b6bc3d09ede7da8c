package bracket

import (
	"fmt"
	"time"
)

// Arena is the working set of one tournament: every match keyed by id, plus the
// tournament itself. Operations mutate it in memory and record what they touched so
// the caller can persist exactly those documents in the same transaction.
type Arena struct {
	Tournament *Tournament
	Matches    map[string]*Match

	now               time.Time
	policy            Policy
	touched           map[string]bool
	tournamentTouched bool
}

func NewArena(t *Tournament, matches []*Match, now time.Time, p Policy) *Arena {
	a := &Arena{
		Tournament: t,
		Matches:    make(map[string]*Match, len(matches)),
		now:        now,
		policy:     p,
		touched:    make(map[string]bool),
	}
	for _, m := range matches {
		a.Matches[m.ID] = m
	}
	return a
}

func (a *Arena) Match(id string) (*Match, error) {
	m, ok := a.Matches[id]
	if !ok {
		return nil, Errorf(KindNotFound, "match %s", id)
	}
	return m, nil
}

// Touched returns the matches changed so far, in bracket order.
func (a *Arena) Touched() []*Match {
	out := make([]*Match, 0, len(a.touched))
	for id := range a.touched {
		out = append(out, a.Matches[id])
	}
	SortMatches(out)
	return out
}

// TournamentTouched reports whether the tournament row changed (champion, status).
func (a *Arena) TournamentTouched() bool {
	return a.tournamentTouched
}

func (a *Arena) touch(m *Match) {
	a.touched[m.ID] = true
}

// Submit applies an organizer submission: reschedule and best-of changes first, then
// the result if there is one. It returns the committed result or nil.
func (a *Arena) Submit(id string, sub Submission) (*Result, error) {
	m, err := a.Match(id)
	if err != nil {
		return nil, err
	}
	m.Evaluate(a.now, a.policy)

	if sub.BestOf != nil && *sub.BestOf != m.BestOf {
		if err := a.changeBestOf(m, *sub.BestOf); err != nil {
			return nil, err
		}
	}
	if sub.ScheduledAt != nil && (m.ScheduledAt == nil || !sub.ScheduledAt.Equal(*m.ScheduledAt)) {
		at := sub.ScheduledAt.UTC()
		m.Reschedule(&at, a.policy)
		m.Evaluate(a.now, a.policy)
		a.touch(m)
	}

	res, err := Validate(m, sub)
	if err != nil || res == nil {
		return nil, err
	}

	if m.Status != MatchCompleted {
		if m.Status != MatchPending {
			return nil, Errorf(KindInvalidState, "match %s is %s", m.ID, m.Status)
		}
		if !res.Forfeit {
			if !m.Gate(a.now) {
				return nil, Errorf(KindNotReady, "ready check of match %s is %s", m.ID, m.ReadyCheck.Status)
			}
			if m.Veto.Required() && m.Veto.Status != VetoDone {
				return nil, Errorf(KindNotReady, "map veto of match %s is not finished", m.ID)
			}
		}
	}
	if err := a.Commit(id, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (a *Arena) changeBestOf(m *Match, bestOf int) error {
	if m.Closed() {
		return Errorf(KindInvalidState, "match %s is %s", m.ID, m.Status)
	}
	if !ValidBestOf(bestOf) {
		return Errorf(KindInvalidSeriesScore, "best of %d, must be 1, 3 or 5", bestOf)
	}
	m.BestOf = bestOf
	if m.Veto.Required() {
		v, err := NewVeto(m.Veto.Pool, bestOf, m.Veto.SideA, m.Veto.SideB)
		if err != nil {
			return err
		}
		if m.Gate(a.now) {
			start := a.now
			v.TurnStartedAt = &start
		}
		m.Veto = v
	}
	a.touch(m)
	return nil
}

// Commit marks the match completed with res and propagates its sides. Committing the
// result the match already holds only re-runs propagation, which is set-if-empty and
// therefore changes nothing. A different result needs a reset first.
func (a *Arena) Commit(id string, res *Result) error {
	m, err := a.Match(id)
	if err != nil {
		return err
	}
	switch m.Status {
	case MatchCompleted:
		if !res.sameAs(m) {
			return Errorf(KindInvalidState, "match %s already has a result, reset it first", m.ID)
		}
	case MatchPending:
		now := a.now
		m.WinnerSideID = res.WinnerSideID
		m.TeamAScore = res.TeamAScore
		m.TeamBScore = res.TeamBScore
		m.MapScores = res.MapScores
		m.Forfeit = res.Forfeit
		m.CompletedAt = &now
		m.Status = MatchCompleted
		a.touch(m)
	default:
		return Errorf(KindInvalidState, "match %s is %s", m.ID, m.Status)
	}
	return a.propagate(m)
}

func (a *Arena) propagate(m *Match) error {
	top := TopologyFor(a.Tournament, m.Stage)
	if top == nil {
		return nil
	}
	route, ok := top.Route(m.ID)
	if !ok {
		return fmt.Errorf("match %s has no route in a %d entrant %s bracket", m.ID, top.Entrants, top.Stage)
	}

	if route.Winner == nil {
		a.crown(m.Winner())
	} else if err := a.place(*route.Winner, m.Winner()); err != nil {
		return err
	}
	if route.Loser != nil {
		if err := a.place(*route.Loser, m.Loser()); err != nil {
			return err
		}
	}
	return nil
}

// place puts side into slot if the slot is empty. A slot already holding the same side
// is left alone; one holding another side means the bracket is inconsistent.
func (a *Arena) place(slot Slot, side *Side) error {
	if side == nil {
		return fmt.Errorf("no side to place into %s", slot.MatchID)
	}
	target, ok := a.Matches[slot.MatchID]
	if !ok {
		var err error
		if target, err = a.allocate(slot.MatchID); err != nil {
			return err
		}
	}

	if cur := target.Slot(slot.Pos); cur != nil {
		if cur.SideID == side.SideID {
			return nil
		}
		return Errorf(KindInvalidState, "slot %d of match %s already holds %s", slot.Pos, target.ID, cur.SideID)
	}
	if target.Closed() {
		return Errorf(KindInvalidState, "match %s is %s", target.ID, target.Status)
	}

	target.setSlot(slot.Pos, side.Clone())
	target.refreshStatus()
	target.prepare(a.Tournament.MapPool, a.policy)
	a.touch(target)
	return nil
}

func (a *Arena) allocate(id string) (*Match, error) {
	prefix, round, index, err := ParseMatchID(id)
	if err != nil {
		return nil, err
	}
	stage, group := stageFromPrefix(prefix)
	if stage == "" {
		return nil, fmt.Errorf("unknown stage prefix %q", prefix)
	}
	m := &Match{
		ID:           id,
		TournamentID: a.Tournament.ID,
		Stage:        stage,
		Group:        group,
		Round:        round,
		Index:        index,
		BestOf:       a.Tournament.BestOf,
		Status:       MatchWaiting,
	}
	a.Matches[id] = m
	a.touch(m)
	return m, nil
}

func (a *Arena) crown(winner *Side) {
	t := a.Tournament
	if winner == nil || (t.Champion != nil && t.Champion.SideID == winner.SideID) {
		return
	}
	now := a.now
	t.Champion = winner.Clone()
	t.EndsAt = &now
	t.Status = TournamentCompleted
	a.tournamentTouched = true
}

// Reset reverts a completed match to pending. Downstream matches that received its
// winner or loser lose that side again, and any of them that were completed are
// reset first, so the bracket never holds a result built on a retracted one.
func (a *Arena) Reset(id string) error {
	m, err := a.Match(id)
	if err != nil {
		return err
	}
	if m.Status != MatchCompleted {
		return Errorf(KindInvalidState, "match %s is %s, only completed matches can be reset", m.ID, m.Status)
	}
	if m.Stage == StageGroup && a.hasStage(StagePlayoff) {
		return Errorf(KindInvalidState, "the playoff is already seeded from the group results")
	}
	return a.unwind(m)
}

func (a *Arena) hasStage(stage Stage) bool {
	for _, m := range a.Matches {
		if m.Stage == stage {
			return true
		}
	}
	return false
}

func (a *Arena) unwind(m *Match) error {
	if top := TopologyFor(a.Tournament, m.Stage); top != nil {
		route, ok := top.Route(m.ID)
		if !ok {
			return fmt.Errorf("match %s has no route in a %d entrant %s bracket", m.ID, top.Entrants, top.Stage)
		}
		if route.Winner == nil {
			a.uncrown(m.Winner())
		} else if err := a.vacate(*route.Winner, m.Winner()); err != nil {
			return err
		}
		if route.Loser != nil {
			if err := a.vacate(*route.Loser, m.Loser()); err != nil {
				return err
			}
		}
	}

	m.clearResult()
	m.Status = MatchPending
	m.refreshStatus()
	a.touch(m)
	return nil
}

func (a *Arena) vacate(slot Slot, side *Side) error {
	target, ok := a.Matches[slot.MatchID]
	if !ok || side == nil {
		return nil
	}
	cur := target.Slot(slot.Pos)
	if cur == nil || cur.SideID != side.SideID {
		return nil
	}
	if target.Status == MatchCompleted {
		if err := a.unwind(target); err != nil {
			return err
		}
	}
	target.setSlot(slot.Pos, nil)
	target.Status = MatchWaiting
	target.Veto = Veto{}
	target.ReadyCheck = ReadyCheck{}
	a.touch(target)
	return nil
}

func (a *Arena) uncrown(winner *Side) {
	t := a.Tournament
	if t.Champion == nil || winner == nil || t.Champion.SideID != winner.SideID {
		return
	}
	t.Champion = nil
	t.EndsAt = nil
	t.Status = TournamentStarted
	a.tournamentTouched = true
}
