// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "acceso/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing UserID where RoleID is expected.
type (
	UserID       uuid.UUID
	RoleID       uuid.UUID
	PersonID     uuid.UUID
	AuditEventID uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseRoleID(s string) (RoleID, error) {
	id, err := parseUUID(s, "role ID")
	return RoleID(id), err
}

func ParsePersonID(s string) (PersonID, error) {
	id, err := parseUUID(s, "person ID")
	return PersonID(id), err
}

func ParseAuditEventID(s string) (AuditEventID, error) {
	id, err := parseUUID(s, "audit event ID")
	return AuditEventID(id), err
}

// String methods - for logging and debugging.

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id RoleID) String() string       { return uuid.UUID(id).String() }
func (id PersonID) String() string     { return uuid.UUID(id).String() }
func (id AuditEventID) String() string { return uuid.UUID(id).String() }

// Text marshalling - IDs serialize as canonical UUID strings in JSON.

func (id UserID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id RoleID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id PersonID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id AuditEventID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RoleID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *PersonID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *AuditEventID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }

// IsNil checks - used for service-layer validation.

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id RoleID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id PersonID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AuditEventID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic.
// Note: Nil UUIDs are allowed here. Use IsNil() at the service layer for
// business validation, which allows store lookups to return proper
// "not found" errors for consistency.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
