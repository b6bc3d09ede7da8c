package bracket

import "time"

type ReadyStatus string

const (
	// ReadyUngated is an unscheduled match: nothing to confirm, veto may start.
	ReadyUngated ReadyStatus = "ungated"
	ReadyOpen    ReadyStatus = "open"
	ReadyDone    ReadyStatus = "ready"
	// ReadyExpired is terminal for the current window; only a reschedule reopens it.
	ReadyExpired ReadyStatus = "expired"
)

type ReadyCheck struct {
	Status      ReadyStatus `json:"status"`
	TeamAReady  bool        `json:"teamAReady"`
	TeamBReady  bool        `json:"teamBReady"`
	DeadlineAt  *time.Time  `json:"deadlineAt,omitempty"`
	VetoOpensAt *time.Time  `json:"vetoOpensAt,omitempty"`
}

// refreshReady is startOrRefresh: it arms the check for the current schedule and
// re-arms it with cleared flags when the schedule moved.
func (m *Match) refreshReady(p Policy) {
	rc := &m.ReadyCheck
	if m.ScheduledAt == nil {
		*rc = ReadyCheck{Status: ReadyUngated}
		return
	}
	deadline := m.ScheduledAt.Add(p.ReadyGrace)
	if rc.DeadlineAt != nil && rc.DeadlineAt.Equal(deadline) {
		return
	}
	*rc = ReadyCheck{Status: ReadyOpen, DeadlineAt: &deadline}
}

func (m *Match) evaluateReady(now time.Time) {
	rc := &m.ReadyCheck
	if rc.Status != ReadyOpen || rc.DeadlineAt == nil {
		return
	}
	if !now.Before(*rc.DeadlineAt) && !(rc.TeamAReady && rc.TeamBReady) {
		rc.Status = ReadyExpired
	}
}

// Gate reports whether the match is past its ready check at now.
func (m *Match) Gate(now time.Time) bool {
	if m.Status != MatchPending {
		return false
	}
	switch m.ReadyCheck.Status {
	case ReadyUngated:
		return true
	case ReadyDone:
		return m.ReadyCheck.VetoOpensAt == nil || !now.Before(*m.ReadyCheck.VetoOpensAt)
	}
	return false
}

// ConfirmReady marks sideID ready. Confirming twice is a no-op. It reports whether
// this confirmation completed the check.
func (m *Match) ConfirmReady(sideID string, now time.Time, p Policy) (bool, error) {
	m.Evaluate(now, p)

	if m.Closed() {
		return false, Errorf(KindInvalidState, "match %s is %s", m.ID, m.Status)
	}
	if m.Status != MatchPending {
		return false, Errorf(KindInvalidState, "match %s is still waiting for its sides", m.ID)
	}
	if m.ScheduledAt == nil {
		return false, Errorf(KindInvalidState, "match %s is not scheduled", m.ID)
	}
	pos, ok := m.PositionOf(sideID)
	if !ok {
		return false, Errorf(KindInvalidSide, "side %s does not play match %s", sideID, m.ID)
	}

	rc := &m.ReadyCheck
	if rc.Status == ReadyExpired {
		return false, Errorf(KindReadyCheckExpired, "ready check of match %s closed at %s", m.ID, rc.DeadlineAt.Format(time.RFC3339))
	}
	if rc.Status == ReadyDone {
		return false, nil
	}

	if pos == SlotA {
		rc.TeamAReady = true
	} else {
		rc.TeamBReady = true
	}
	if !rc.TeamAReady || !rc.TeamBReady {
		return false, nil
	}

	opens := now.Add(p.VetoBuffer)
	rc.Status = ReadyDone
	rc.VetoOpensAt = &opens
	if m.Veto.Status == VetoPending {
		m.Veto.TurnStartedAt = &opens
	}
	return true, nil
}

// Evaluate applies every time based transition due at now: ready check expiry and,
// once the gate is open, veto turn timeouts. Each operation on a match calls it first.
func (m *Match) Evaluate(now time.Time, p Policy) {
	if m.Closed() {
		return
	}
	m.evaluateReady(now)
	if !m.Gate(now) || m.Veto.Status != VetoPending {
		return
	}
	if m.Veto.TurnStartedAt == nil {
		start := now
		if m.ReadyCheck.VetoOpensAt != nil {
			start = *m.ReadyCheck.VetoOpensAt
		}
		m.Veto.TurnStartedAt = &start
	}
	if p.TurnTimeout == TimeoutAutoBan && p.TurnDuration > 0 {
		m.Veto.expire(now, p.TurnDuration, m.ID)
	}
}

// Reschedule moves the match and re-arms its ready check. A veto that had not
// finished starts over, since it may only run after a fresh confirmation.
func (m *Match) Reschedule(at *time.Time, p Policy) {
	if at == nil && m.ScheduledAt == nil {
		return
	}
	if at != nil && m.ScheduledAt != nil && at.Equal(*m.ScheduledAt) {
		return
	}
	m.ScheduledAt = at
	if m.Closed() {
		return
	}
	if m.Veto.Status == VetoPending {
		m.Veto = m.Veto.restart()
	}
	m.ReadyCheck = ReadyCheck{}
	m.refreshReady(p)
}
