package bracket

import (
	"fmt"
	"time"
)

// TimeoutPolicy decides what happens to a veto turn nobody acted on in time.
type TimeoutPolicy string

const (
	// TimeoutAutoBan makes the engine take a legal action for the acting side once
	// its turn budget runs out. The choice is derived from the match id, so replays agree.
	TimeoutAutoBan TimeoutPolicy = "auto_ban"
	// TimeoutNone keeps the turn open and accepts the acting side's late action.
	TimeoutNone TimeoutPolicy = "none"
)

func ParseTimeoutPolicy(s string) (TimeoutPolicy, error) {
	switch TimeoutPolicy(s) {
	case "":
		return TimeoutAutoBan, nil
	case TimeoutAutoBan, TimeoutNone:
		return TimeoutPolicy(s), nil
	}
	return "", fmt.Errorf("unknown turn timeout policy %q", s)
}

// Policy holds the time windows the lazy evaluation runs against.
type Policy struct {
	ReadyGrace   time.Duration
	VetoBuffer   time.Duration
	TurnDuration time.Duration
	TurnTimeout  TimeoutPolicy
}

const (
	DefaultReadyGrace   = 10 * time.Minute
	DefaultTurnDuration = 30 * time.Second
)

func DefaultPolicy() Policy {
	return Policy{
		ReadyGrace:   DefaultReadyGrace,
		TurnDuration: DefaultTurnDuration,
		TurnTimeout:  TimeoutAutoBan,
	}
}
