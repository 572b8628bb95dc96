package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	id "acceso/pkg/domain"
	audit "acceso/pkg/platform/audit"
	"acceso/pkg/platform/sentinel"
)

// InMemoryStore keeps audit events in memory for tests and the demo
// environment. Events are append-only; reads return copies sorted newest
// first.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, eventID id.AuditEventID) (audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if e.ID == eventID {
			return e, nil
		}
	}
	return audit.Event{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID, limit, offset int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paginate(s.filter(func(e audit.Event) bool { return e.UserID == userID }), limit, offset), nil
}

func (s *InMemoryStore) ListByAction(_ context.Context, action string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(e audit.Event) bool { return e.Action == action }), nil
}

func (s *InMemoryStore) ListBetween(_ context.Context, from, to time.Time) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(e audit.Event) bool {
		return !e.Timestamp.Before(from) && !e.Timestamp.After(to)
	}), nil
}

func (s *InMemoryStore) ListAll(_ context.Context, limit, offset int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paginate(s.filter(func(audit.Event) bool { return true }), limit, offset), nil
}

func (s *InMemoryStore) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	var removed int64
	for _, e := range s.events {
		if e.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return removed, nil
}

// filter returns matching events sorted newest first. Caller must hold the lock.
func (s *InMemoryStore) filter(match func(audit.Event) bool) []audit.Event {
	var out []audit.Event
	for _, e := range s.events {
		if match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func paginate(events []audit.Event, limit, offset int) []audit.Event {
	if offset >= len(events) {
		return nil
	}
	events = events[offset:]
	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}
	return events
}
