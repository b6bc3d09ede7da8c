package events

import (
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
)

const (
	TopicBracketGenerated    = "bracket.generated"
	TopicMatchReady          = "match.ready"
	TopicVetoCompleted       = "veto.completed"
	TopicMatchCompleted      = "match.completed"
	TopicMatchReset          = "match.reset"
	TopicTournamentCompleted = "tournament.completed"
)

// Topics lists every topic the engine publishes to.
var Topics = []string{
	TopicBracketGenerated,
	TopicMatchReady,
	TopicVetoCompleted,
	TopicMatchCompleted,
	TopicMatchReset,
	TopicTournamentCompleted,
}

type BracketGeneratedPayload struct {
	TournamentID string        `json:"tournament_id"`
	Stage        bracket.Stage `json:"stage,omitempty"`
	Matches      int           `json:"matches"`
	Entrants     int           `json:"entrants"`
}

type MatchReadyPayload struct {
	TournamentID string    `json:"tournament_id"`
	MatchID      string    `json:"match_id"`
	VetoOpensAt  time.Time `json:"veto_opens_at"`
}

type VetoCompletedPayload struct {
	TournamentID string   `json:"tournament_id"`
	MatchID      string   `json:"match_id"`
	Maps         []string `json:"maps"`
}

type MatchCompletedPayload struct {
	TournamentID string `json:"tournament_id"`
	MatchID      string `json:"match_id"`
	WinnerSideID string `json:"winner_side_id"`
	TeamAScore   int    `json:"team_a_score"`
	TeamBScore   int    `json:"team_b_score"`
	Forfeit      bool   `json:"forfeit,omitempty"`
}

type MatchResetPayload struct {
	TournamentID string   `json:"tournament_id"`
	MatchID      string   `json:"match_id"`
	Affected     []string `json:"affected"`
}

type TournamentCompletedPayload struct {
	TournamentID string       `json:"tournament_id"`
	Champion     bracket.Side `json:"champion"`
	EndsAt       time.Time    `json:"ends_at"`
}

// Event is a payload bound for a topic.
type Event struct {
	Topic   string
	Payload any
}
