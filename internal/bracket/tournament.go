package bracket

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentDraft     TournamentStatus = "draft"
	TournamentStarted   TournamentStatus = "started"
	TournamentCompleted TournamentStatus = "completed"
)

type BracketType string

const (
	SingleElimination BracketType = "single_elimination"
	DoubleElimination BracketType = "double_elimination"
	GroupPlayoff      BracketType = "group_playoff"
)

func (b BracketType) Valid() bool {
	switch b {
	case SingleElimination, DoubleElimination, GroupPlayoff:
		return true
	}
	return false
}

type Tournament struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	OwnerID     uuid.UUID        `db:"owner_id" json:"ownerId"`
	Title       string           `db:"title" json:"title"`
	Slug        string           `db:"slug" json:"slug"`
	TeamFormat  string           `db:"team_format" json:"teamFormat"`
	BracketType BracketType      `db:"bracket_type" json:"bracketType"`
	MaxTeams    int              `db:"max_teams" json:"maxTeams"`
	MinRating   float64          `db:"min_rating" json:"minRating"`
	MinMatches  int              `db:"min_matches" json:"minMatches"`
	BestOf      int              `db:"best_of" json:"bestOf"`
	MapPool     StringList       `db:"map_pool" json:"mapPool"`
	Status      TournamentStatus `db:"status" json:"status"`

	// Entrant counts the elimination topologies were built for.
	Entrants        int `db:"entrants" json:"entrants"`
	PlayoffEntrants int `db:"playoff_entrants" json:"playoffEntrants"`

	StartsAt  time.Time  `db:"starts_at" json:"startsAt"`
	EndsAt    *time.Time `db:"ends_at" json:"endsAt,omitempty"`
	Champion  *Side      `db:"champion" json:"champion,omitempty"`
	Version   int        `db:"version" json:"-"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

// RosterSize is the number of active members (captain and players) a side needs
// for the tournament's team format, e.g. 5 for "5v5". Solo formats need one.
func (t *Tournament) RosterSize() int {
	return RosterSize(t.TeamFormat)
}

func (t *Tournament) Solo() bool {
	return t.RosterSize() == 1
}

func RosterSize(teamFormat string) int {
	f := strings.ToLower(strings.TrimSpace(teamFormat))
	if f == "" || f == "solo" {
		return 1
	}
	left, _, ok := strings.Cut(f, "v")
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(left)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// StringList is stored as a JSON array.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	return scanJSON(src, (*[]string)(l))
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		return json.Unmarshal([]byte(v), dst)
	case []byte:
		return json.Unmarshal(v, dst)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dst)
	}
}
