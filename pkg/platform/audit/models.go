package audit

import (
	"time"

	id "acceso/pkg/domain"
)

// Event is the immutable record of an action taken against an account. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// Details is always a syntactically valid JSON document. Absence of details is
// represented by the JSON literal "null", never by an empty string. The
// Recorder owns this invariant; nothing else creates events.
type Event struct {
	ID        id.AuditEventID
	UserID    id.UserID
	Action    string
	Timestamp time.Time
	Details   string
}

// Action is a short symbolic tag identifying what happened.
type Action string

const (
	// User lifecycle
	ActionUserCreated Action = "user_created"
	ActionUserUpdated Action = "user_updated"
	ActionUserDeleted Action = "user_deleted"

	// Credential events
	ActionPasswordChanged Action = "password_changed"
	ActionPasswordReset   Action = "password_reset"
	ActionLoginSuccess    Action = "login_success"

	// Role lifecycle
	ActionRoleCreated Action = "role_created"
	ActionRoleUpdated Action = "role_updated"
	ActionRoleDeleted Action = "role_deleted"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing downstream.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// actionCategories maps each audit action to its category.
var actionCategories = map[Action]EventCategory{
	ActionUserCreated: CategoryCompliance,
	ActionUserDeleted: CategoryCompliance,

	ActionPasswordChanged: CategorySecurity,
	ActionPasswordReset:   CategorySecurity,
	ActionRoleDeleted:     CategorySecurity,

	ActionUserUpdated:  CategoryOperations,
	ActionLoginSuccess: CategoryOperations,
	ActionRoleCreated:  CategoryOperations,
	ActionRoleUpdated:  CategoryOperations,
}

// Category returns the EventCategory for this action.
// Unknown actions default to CategoryOperations.
func (a Action) Category() EventCategory {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}
