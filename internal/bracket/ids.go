package bracket

import (
	"fmt"
	"strconv"
	"strings"
)

type SlotPos int

const (
	SlotA SlotPos = 1
	SlotB SlotPos = 2
)

func (p SlotPos) Other() SlotPos {
	if p == SlotA {
		return SlotB
	}
	return SlotA
}

// Slot addresses one side of one match.
type Slot struct {
	MatchID string  `json:"matchId"`
	Pos     SlotPos `json:"pos"`
}

const (
	prefixUpper      = "upper"
	prefixLower      = "lower"
	prefixPlayoff    = "playoff"
	prefixGrandFinal = "grand_final"
	prefixGroup      = "group_"
)

// MatchID encodes {prefix}_r{round}_m{index}; the default single elimination stage has no prefix.
func MatchID(prefix string, round, index int) string {
	if prefix == "" {
		return fmt.Sprintf("r%d_m%d", round, index)
	}
	return fmt.Sprintf("%s_r%d_m%d", prefix, round, index)
}

// ParseMatchID is the inverse of MatchID.
func ParseMatchID(id string) (prefix string, round, index int, err error) {
	parts := strings.Split(id, "_")
	if len(parts) < 2 {
		return "", 0, 0, fmt.Errorf("malformed match id %q", id)
	}
	r, m := parts[len(parts)-2], parts[len(parts)-1]
	if !strings.HasPrefix(r, "r") || !strings.HasPrefix(m, "m") {
		return "", 0, 0, fmt.Errorf("malformed match id %q", id)
	}
	round, err = strconv.Atoi(r[1:])
	if err != nil || round < 1 {
		return "", 0, 0, fmt.Errorf("malformed round in match id %q", id)
	}
	index, err = strconv.Atoi(m[1:])
	if err != nil || index < 1 {
		return "", 0, 0, fmt.Errorf("malformed index in match id %q", id)
	}
	return strings.Join(parts[:len(parts)-2], "_"), round, index, nil
}

// NextInRound maps a match to the slot its winner takes in the following round:
// round+1, index ceil(index/2), odd indexes to side A and even ones to side B.
func NextInRound(round, index int) (int, int, SlotPos) {
	pos := SlotA
	if index%2 == 0 {
		pos = SlotB
	}
	return round + 1, (index + 1) / 2, pos
}

func StagePrefix(stage Stage, group string) string {
	switch stage {
	case StageUpper:
		return prefixUpper
	case StageLower:
		return prefixLower
	case StagePlayoff:
		return prefixPlayoff
	case StageGrandFinal:
		return prefixGrandFinal
	case StageGroup:
		return prefixGroup + group
	}
	return ""
}

func stageFromPrefix(prefix string) (Stage, string) {
	switch {
	case prefix == "":
		return StageSingle, ""
	case prefix == prefixUpper:
		return StageUpper, ""
	case prefix == prefixLower:
		return StageLower, ""
	case prefix == prefixPlayoff:
		return StagePlayoff, ""
	case prefix == prefixGrandFinal:
		return StageGrandFinal, ""
	case strings.HasPrefix(prefix, prefixGroup):
		return StageGroup, strings.TrimPrefix(prefix, prefixGroup)
	}
	return "", ""
}
