package models

import (
	"strings"
	"time"

	id "acceso/pkg/domain"
	dErrors "acceso/pkg/domain-errors"
)

// Role is a named permission profile referenced by user accounts.
//
// Invariants:
//   - Name is non-empty, at most 64 characters, unique across roles
//   - A role cannot be deleted while any account references it
type Role struct {
	ID          id.RoleID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Touch updates the modification timestamp.
func (r *Role) Touch(now time.Time) {
	r.UpdatedAt = now
}

// NewRole constructs a role, validating invariants. Names are stored
// uppercase so lookups are case-insensitive.
func NewRole(roleID id.RoleID, name, description string, now time.Time) (*Role, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "role name cannot be empty")
	}
	if len(name) > 64 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "role name must be 64 characters or less")
	}
	return &Role{
		ID:          roleID,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
