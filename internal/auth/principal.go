package auth

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
	RoleRoot  Role = "ROOT"
)

func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(s)) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleRoot:
		return RoleRoot, nil
	}
	return "", errors.Errorf("unknown role %q", s)
}

// Principal is the authenticated caller, built once per request at the HTTP
// boundary and passed explicitly into every policy check.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// Action names every policy-checked operation across the services.
type Action string

const (
	ActionViewAnyOrder    Action = "order:view_any"
	ActionUpdateOrder     Action = "order:update"
	ActionCancelAnyOrder  Action = "order:cancel_any"
	ActionCreateAnyOrder  Action = "order:create_any"
	ActionViewAnyTracking Action = "tracking:view_any"
)

// policy is the closed (role x action) table. Anything not listed is denied;
// owner-scoped access is decided by the services on top of this.
var policy = map[Role]map[Action]bool{
	RoleAdmin: {
		ActionViewAnyOrder:    true,
		ActionUpdateOrder:     true,
		ActionCancelAnyOrder:  true,
		ActionCreateAnyOrder:  true,
		ActionViewAnyTracking: true,
	},
	RoleRoot: {
		ActionViewAnyOrder:    true,
		ActionUpdateOrder:     true,
		ActionCancelAnyOrder:  true,
		ActionCreateAnyOrder:  true,
		ActionViewAnyTracking: true,
	},
	RoleUser: {},
}

// Allowed evaluates the policy table for the principal.
func (p Principal) Allowed(action Action) bool {
	return policy[p.Role][action]
}
