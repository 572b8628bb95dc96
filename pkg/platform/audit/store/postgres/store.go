package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "acceso/pkg/domain"
	audit "acceso/pkg/platform/audit"
	"acceso/pkg/platform/sentinel"
)

// Store persists audit events in PostgreSQL.
//
// Unlike the user and role stores, this store never joins a transaction from
// the context: an audit write must not roll back or be rolled back by the
// caller's mutation. Every statement runs directly against the pool in its
// own implicit transaction.
type Store struct {
	db *sql.DB
}

// New constructs a PostgreSQL-backed audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts a single audit event. Details has already been normalized to
// valid JSON by the recorder, so it goes straight into the jsonb column.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (id, user_id, action, timestamp, details)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(event.ID),
		uuid.UUID(event.UserID),
		event.Action,
		event.Timestamp,
		event.Details,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// FindByID retrieves a single event.
func (s *Store) FindByID(ctx context.Context, eventID id.AuditEventID) (audit.Event, error) {
	query := selectColumns + ` WHERE id = $1`
	event, err := scanEvent(s.db.QueryRowContext(ctx, query, uuid.UUID(eventID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return audit.Event{}, sentinel.ErrNotFound
		}
		return audit.Event{}, fmt.Errorf("find audit event by id: %w", err)
	}
	return event, nil
}

// ListByUser returns events for a specific user, newest first.
func (s *Store) ListByUser(ctx context.Context, userID id.UserID, limit, offset int) ([]audit.Event, error) {
	query := selectColumns + `
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID), normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("query audit events by user: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListByAction returns events carrying the given action tag, newest first.
func (s *Store) ListByAction(ctx context.Context, action string) ([]audit.Event, error) {
	query := selectColumns + `
		WHERE action = $1
		ORDER BY timestamp DESC
	`
	rows, err := s.db.QueryContext(ctx, query, action)
	if err != nil {
		return nil, fmt.Errorf("query audit events by action: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListBetween returns events within the inclusive time range, newest first.
func (s *Store) ListBetween(ctx context.Context, from, to time.Time) ([]audit.Event, error) {
	query := selectColumns + `
		WHERE timestamp BETWEEN $1 AND $2
		ORDER BY timestamp DESC
	`
	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query audit events by range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListAll returns all audit events, newest first.
func (s *Store) ListAll(ctx context.Context, limit, offset int) ([]audit.Event, error) {
	query := selectColumns + `
		ORDER BY timestamp DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.db.QueryContext(ctx, query, normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// PurgeBefore bulk-deletes events older than the cutoff. No per-row
// transaction and no undo.
func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge audit events rows: %w", err)
	}
	return removed, nil
}

const selectColumns = `
	SELECT id, user_id, action, timestamp, details
	FROM audit_events`

// defaultListLimit caps unbounded list queries.
const defaultListLimit = 100

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (audit.Event, error) {
	var (
		event   audit.Event
		eventID uuid.UUID
		userID  uuid.UUID
	)
	err := row.Scan(&eventID, &userID, &event.Action, &event.Timestamp, &event.Details)
	if err != nil {
		return audit.Event{}, err
	}
	event.ID = id.AuditEventID(eventID)
	event.UserID = id.UserID(userID)
	return event, nil
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
