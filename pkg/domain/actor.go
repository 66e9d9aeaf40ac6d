package domain

import (
	"slices"

	dErrors "immo/pkg/domain-errors"
)

// Role is a claim carried by an already-authenticated actor.
type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleCommercial Role = "COMMERCIAL"
	RoleAdmin      Role = "ADMIN"
)

// StaffRoles may drive reservation transitions and verify documents.
var StaffRoles = []Role{RoleCommercial, RoleAdmin}

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleClient, RoleCommercial, RoleAdmin:
		return r, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
}

// Actor is the authenticated principal performing an operation.
// ClientID is set when the actor acts as (or for) a buyer account.
type Actor struct {
	UserID   UserID
	ClientID ClientID
	Roles    []Role
}

// ActorHasAnyRole reports whether the actor holds at least one of the roles.
func ActorHasAnyRole(actor Actor, roles ...Role) bool {
	for _, r := range roles {
		if slices.Contains(actor.Roles, r) {
			return true
		}
	}
	return false
}

func (a Actor) IsStaff() bool {
	return ActorHasAnyRole(a, StaffRoles...)
}

func (a Actor) IsAnonymous() bool {
	return a.UserID.IsNil()
}

// CanAccessClient reports whether the actor may see records owned by clientID.
// Staff see everything; a client only sees its own records.
func (a Actor) CanAccessClient(clientID ClientID) bool {
	if a.IsStaff() {
		return true
	}
	return ActorHasAnyRole(a, RoleClient) && !a.ClientID.IsNil() && a.ClientID == clientID
}
