package bracket

import (
	"database/sql/driver"
	"encoding/json"
)

type Role string

const (
	RoleCaptain Role = "captain"
	RolePlayer  Role = "player"
	RoleReserve Role = "reserve"
)

type Member struct {
	UserID string  `json:"userId"`
	Name   string  `json:"name"`
	Role   Role    `json:"role"`
	Rating float64 `json:"rating"`
}

// Side is a frozen snapshot of a team or solo player. Matches embed their own copy,
// so later roster edits never rewrite history.
type Side struct {
	SideID    string   `json:"sideId"`
	Name      string   `json:"name"`
	Members   []Member `json:"members"`
	AvgRating float64  `json:"avgRating"`
	Avatar    string   `json:"avatar,omitempty"`
}

// Clone returns a deep copy, nil-safe.
func (s *Side) Clone() *Side {
	if s == nil {
		return nil
	}
	c := *s
	c.Members = append([]Member(nil), s.Members...)
	return &c
}

// Captain returns the member holding the captain role, if any.
func (s *Side) Captain() (Member, bool) {
	for _, m := range s.Members {
		if m.Role == RoleCaptain {
			return m, true
		}
	}
	return Member{}, false
}

func (s Side) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *Side) Scan(src any) error {
	return scanJSON(src, s)
}

func sameSide(a, b *Side) bool {
	return a != nil && b != nil && a.SideID == b.SideID
}
