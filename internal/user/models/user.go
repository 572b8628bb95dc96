package models

import (
	"strings"
	"time"

	id "acceso/pkg/domain"
	dErrors "acceso/pkg/domain-errors"
)

// User is an account that can authenticate against the service.
//
// Invariants:
//   - Username is non-empty, at most 64 characters, unique across accounts
//   - PersonID references exactly one person record, unique across accounts
//   - RoleID always references an existing role
//   - PasswordHash holds a bcrypt-encoded hash, never plaintext
type User struct {
	ID           id.UserID   `json:"id"`
	Username     string      `json:"username"`
	PersonID     id.PersonID `json:"person_id"`
	RoleID       id.RoleID   `json:"role_id"`
	PasswordHash string      `json:"-"`
	Active       bool        `json:"active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (u *User) IsActive() bool {
	return u.Active
}

// Touch updates the modification timestamp.
func (u *User) Touch(now time.Time) {
	u.UpdatedAt = now
}

// NewUser constructs an active user, validating invariants.
func NewUser(userID id.UserID, username string, personID id.PersonID, roleID id.RoleID, passwordHash string, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username cannot be empty")
	}
	if len(username) > 64 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username must be 64 characters or less")
	}
	if personID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "person reference is required")
	}
	if roleID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "role reference is required")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash is required")
	}
	return &User{
		ID:           userID,
		Username:     username,
		PersonID:     personID,
		RoleID:       roleID,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
