package audit

import (
	"context"
	"time"

	id "acceso/pkg/domain"
)

// Store is the persistence contract for audit events. Events are append-only;
// the only deletion path is the bulk retention purge.
type Store interface {
	Append(ctx context.Context, event Event) error
	FindByID(ctx context.Context, eventID id.AuditEventID) (Event, error)
	// ListByUser returns events for one user, newest first.
	ListByUser(ctx context.Context, userID id.UserID, limit, offset int) ([]Event, error)
	// ListByAction returns events carrying the given action tag, newest first.
	ListByAction(ctx context.Context, action string) ([]Event, error)
	// ListBetween returns events with from <= timestamp <= to, newest first.
	ListBetween(ctx context.Context, from, to time.Time) ([]Event, error)
	// ListAll returns all events, newest first.
	ListAll(ctx context.Context, limit, offset int) ([]Event, error)
	// PurgeBefore deletes every event with timestamp strictly before the
	// cutoff and returns the number removed.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
