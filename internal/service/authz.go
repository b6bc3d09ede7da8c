package service

import (
	"context"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/middleware"
	users "github.com/AdamBeresnev/op-bracket/internal/user"
	"github.com/google/uuid"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// ActorFromContext builds the actor from what the auth middleware stored.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if u := middleware.GetAuthenticatedUser(ctx); u != nil {
		return ActorFromUser(u), true
	}
	id, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return Actor{}, false
	}
	return Actor{UserID: id}, true
}

func ActorFromUser(u *users.User) Actor {
	return Actor{UserID: u.ID, IsAdmin: u.IsAdmin}
}

// Authorizer answers the two questions the engine asks about an actor.
type Authorizer interface {
	IsAdmin(actor Actor) bool
	IsCaptainOf(actor Actor, side *bracket.Side) bool
}

// RosterAuthorizer trusts the admin flag on the user and the captain recorded in
// the side snapshot.
type RosterAuthorizer struct{}

func (RosterAuthorizer) IsAdmin(actor Actor) bool {
	return actor.IsAdmin
}

func (RosterAuthorizer) IsCaptainOf(actor Actor, side *bracket.Side) bool {
	if side == nil || actor.UserID == uuid.Nil {
		return false
	}
	c, ok := side.Captain()
	return ok && c.UserID == actor.UserID.String()
}

func canOrganize(authz Authorizer, actor Actor, t *bracket.Tournament) bool {
	return authz.IsAdmin(actor) || (actor.UserID != uuid.Nil && actor.UserID == t.OwnerID)
}

func requireOrganizer(authz Authorizer, actor Actor, t *bracket.Tournament) error {
	if !canOrganize(authz, actor, t) {
		return bracket.Errorf(bracket.KindForbidden, "only the organizer or an admin may do this")
	}
	return nil
}

// actingSide resolves which side of m the actor speaks for. Captains act for their
// own side; organizers and admins must name one.
func actingSide(authz Authorizer, actor Actor, t *bracket.Tournament, m *bracket.Match, sideID string) (string, error) {
	for _, s := range []*bracket.Side{m.TeamA, m.TeamB} {
		if s == nil || !authz.IsCaptainOf(actor, s) {
			continue
		}
		if sideID == "" || sideID == s.SideID {
			return s.SideID, nil
		}
	}
	if canOrganize(authz, actor, t) {
		if sideID == "" {
			return "", bracket.Errorf(bracket.KindInvalidSide, "name the side to act for")
		}
		return sideID, nil
	}
	return "", bracket.Errorf(bracket.KindForbidden, "only a captain of match %s may do this", m.ID)
}
