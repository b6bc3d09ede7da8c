package team

import (
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/google/uuid"
)

type Team struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Avatar        *string   `db:"avatar" json:"avatar,omitempty"`
	OwnerID       uuid.UUID `db:"owner_id" json:"ownerId"`
	MatchesPlayed int       `db:"matches_played" json:"matchesPlayed"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`

	// Only set when listed through a tournament's registrations.
	RegisteredAt *time.Time `db:"registered_at" json:"registeredAt,omitempty"`

	Members []Member `db:"-" json:"members"`
}

type Member struct {
	TeamID uuid.UUID    `db:"team_id" json:"-"`
	UserID string       `db:"user_id" json:"userId"`
	Name   string       `db:"name" json:"name"`
	Role   bracket.Role `db:"role" json:"role"`
	Rating float64      `db:"rating" json:"rating"`
}

func (m Member) Active() bool {
	return m.Role == bracket.RoleCaptain || m.Role == bracket.RolePlayer
}

// ActiveMembers counts the captain and players. Reserves sit outside the roster size.
func (t *Team) ActiveMembers() int {
	n := 0
	for _, m := range t.Members {
		if m.Active() {
			n++
		}
	}
	return n
}

// AverageRating is the mean rating of the active members, zero for an empty roster.
func (t *Team) AverageRating() float64 {
	var sum float64
	n := 0
	for _, m := range t.Members {
		if m.Active() {
			sum += m.Rating
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Captain returns the user id of the captain, falling back to the owner.
func (t *Team) Captain() string {
	for _, m := range t.Members {
		if m.Role == bracket.RoleCaptain {
			return m.UserID
		}
	}
	return t.OwnerID.String()
}

// Snapshot freezes the team into a side for embedding in matches.
func (t *Team) Snapshot() bracket.Side {
	s := bracket.Side{
		SideID:    t.ID.String(),
		Name:      t.Name,
		AvgRating: t.AverageRating(),
		Members:   make([]bracket.Member, 0, len(t.Members)),
	}
	if t.Avatar != nil {
		s.Avatar = *t.Avatar
	}
	for _, m := range t.Members {
		s.Members = append(s.Members, bracket.Member{UserID: m.UserID, Name: m.Name, Role: m.Role, Rating: m.Rating})
	}
	return s
}

// Eligible reports whether the team meets the tournament's requirements.
func Eligible(t *bracket.Tournament, tm *Team) bool {
	if tm.ActiveMembers() < t.RosterSize() {
		return false
	}
	if tm.AverageRating() < t.MinRating {
		return false
	}
	return tm.MatchesPlayed >= t.MinMatches
}

// Sides filters teams, given in registration order, down to the eligible ones and
// snapshots them. MaxTeams caps the result when set.
func Sides(t *bracket.Tournament, teams []Team) []bracket.Side {
	sides := make([]bracket.Side, 0, len(teams))
	seen := make(map[uuid.UUID]bool, len(teams))
	for i := range teams {
		tm := &teams[i]
		if seen[tm.ID] || !Eligible(t, tm) {
			continue
		}
		seen[tm.ID] = true
		sides = append(sides, tm.Snapshot())
		if t.MaxTeams > 0 && len(sides) == t.MaxTeams {
			break
		}
	}
	return sides
}
