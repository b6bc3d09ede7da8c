package bracket

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchWaiting   MatchStatus = "waiting"
	MatchPending   MatchStatus = "pending"
	MatchCompleted MatchStatus = "completed"
	MatchCancelled MatchStatus = "cancelled"
)

type Stage string

const (
	StageSingle     Stage = "single"
	StageUpper      Stage = "upper"
	StageLower      Stage = "lower"
	StageGroup      Stage = "group"
	StagePlayoff    Stage = "playoff"
	StageGrandFinal Stage = "grand_final"
)

type MapScore struct {
	Map   string `json:"map,omitempty"`
	TeamA int    `json:"teamA"`
	TeamB int    `json:"teamB"`
}

type Match struct {
	ID           string      `json:"id"`
	TournamentID uuid.UUID   `json:"tournamentId"`
	Stage        Stage       `json:"stage"`
	Group        string      `json:"group,omitempty"`
	Round        int         `json:"round"`
	Index        int         `json:"index"`
	Status       MatchStatus `json:"status"`

	TeamA *Side `json:"teamA"`
	TeamB *Side `json:"teamB"`

	WinnerSideID string     `json:"winnerSideId,omitempty"`
	TeamAScore   int        `json:"teamAScore"`
	TeamBScore   int        `json:"teamBScore"`
	BestOf       int        `json:"bestOf"`
	MapScores    []MapScore `json:"mapScores,omitempty"`
	Forfeit      bool       `json:"forfeit,omitempty"`

	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ReadyCheck  ReadyCheck `json:"readyCheck"`
	Veto        Veto       `json:"veto"`

	Version int `json:"-"`
}

// Slot returns the side occupying pos.
func (m *Match) Slot(pos SlotPos) *Side {
	if pos == SlotA {
		return m.TeamA
	}
	return m.TeamB
}

func (m *Match) setSlot(pos SlotPos, s *Side) {
	if pos == SlotA {
		m.TeamA = s
	} else {
		m.TeamB = s
	}
}

// PositionOf reports which slot sideID occupies.
func (m *Match) PositionOf(sideID string) (SlotPos, bool) {
	switch {
	case m.TeamA != nil && m.TeamA.SideID == sideID:
		return SlotA, true
	case m.TeamB != nil && m.TeamB.SideID == sideID:
		return SlotB, true
	}
	return 0, false
}

func (m *Match) Winner() *Side {
	if m.WinnerSideID == "" {
		return nil
	}
	pos, ok := m.PositionOf(m.WinnerSideID)
	if !ok {
		return nil
	}
	return m.Slot(pos)
}

func (m *Match) Loser() *Side {
	if m.WinnerSideID == "" {
		return nil
	}
	pos, ok := m.PositionOf(m.WinnerSideID)
	if !ok {
		return nil
	}
	return m.Slot(pos.Other())
}

func (m *Match) IsWinner(sideID string) bool {
	return m.Status == MatchCompleted && m.WinnerSideID == sideID
}

func (m *Match) Closed() bool {
	return m.Status == MatchCompleted || m.Status == MatchCancelled
}

// refreshStatus keeps waiting/pending in line with the slots; closed matches keep their status.
func (m *Match) refreshStatus() {
	if m.Closed() {
		return
	}
	if m.TeamA != nil && m.TeamB != nil {
		m.Status = MatchPending
	} else {
		m.Status = MatchWaiting
	}
}

// prepare arms the veto and ready check for a match whose sides just became known.
func (m *Match) prepare(pool []string, p Policy) {
	if m.Status != MatchPending {
		return
	}
	v, err := NewVeto(pool, m.BestOf, m.TeamA.SideID, m.TeamB.SideID)
	if err != nil {
		v = Veto{Status: VetoDone}
	}
	m.Veto = v
	m.ReadyCheck = ReadyCheck{}
	m.refreshReady(p)
}

func (m *Match) clearResult() {
	m.WinnerSideID = ""
	m.TeamAScore = 0
	m.TeamBScore = 0
	m.MapScores = nil
	m.Forfeit = false
	m.CompletedAt = nil
}
