package auth

import (
	"errors"

	"github.com/google/uuid"
)

// Role is the closed set of actor roles recognized by the engine.
type Role string

const (
	RoleUser   Role = "user"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// Actor identifies the authenticated user on whose behalf a request runs.
// Session issuance lives outside this service; the engine only consumes the
// resolved identity.
type Actor struct {
	UserID    uuid.UUID `json:"user_id"`
	Role      Role      `json:"role"`
	CompanyID uuid.UUID `json:"company_id"`
}

// ErrNoActor is returned when a request reaches a protected operation without
// an authenticated actor in context.
var ErrNoActor = errors.New("no authenticated actor")

// IsAdmin reports whether the actor holds the global admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanValidate reports whether the actor may validate submitted emission records.
func (a Actor) CanValidate() bool {
	return a.Role == RoleAdmin || a.Role == RoleEditor
}

// MemberOf reports whether the actor belongs to the given company. Admins are
// members of every company for authorization purposes.
func (a Actor) MemberOf(companyID uuid.UUID) bool {
	return a.IsAdmin() || a.CompanyID == companyID
}
