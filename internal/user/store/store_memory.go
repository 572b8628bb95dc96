package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"acceso/internal/user/models"
	id "acceso/pkg/domain"
	"acceso/pkg/platform/sentinel"
)

// InMemoryStore implements the user store with an in-process map. Used in
// tests and the demo environment; reads return copies so callers cannot
// mutate stored state.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

// NewInMemoryStore creates an empty in-memory user store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[id.UserID]*models.User)}
}

func (s *InMemoryStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.PersonID == user.PersonID {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.users {
		if existing.ID == user.ID {
			continue
		}
		if existing.Username == user.Username || existing.PersonID == user.PersonID {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyUser(user), nil
}

func (s *InMemoryStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			return copyUser(user), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByPersonID(_ context.Context, personID id.PersonID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.PersonID == personID {
			return copyUser(user), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ExistsByID(_ context.Context, userID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[userID]
	return ok, nil
}

func (s *InMemoryStore) List(_ context.Context, limit, offset int) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return paginate(s.collect(func(*models.User) bool { return true }), limit, offset), nil
}

func (s *InMemoryStore) ListByRole(_ context.Context, roleID id.RoleID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(u *models.User) bool { return u.RoleID == roleID }), nil
}

func (s *InMemoryStore) Search(_ context.Context, query string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query = strings.ToLower(query)
	return s.collect(func(u *models.User) bool {
		return strings.Contains(strings.ToLower(u.Username), query)
	}), nil
}

func (s *InMemoryStore) CountByRole(_ context.Context, roleID id.RoleID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, user := range s.users {
		if user.RoleID == roleID {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.users, userID)
	return nil
}

// collect returns copies of matching users sorted by username. Caller must
// hold the lock.
func (s *InMemoryStore) collect(match func(*models.User) bool) []*models.User {
	var out []*models.User
	for _, user := range s.users {
		if match(user) {
			out = append(out, copyUser(user))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

func paginate(users []*models.User, limit, offset int) []*models.User {
	if offset >= len(users) {
		return nil
	}
	users = users[offset:]
	if limit > 0 && limit < len(users) {
		users = users[:limit]
	}
	return users
}

func copyUser(user *models.User) *models.User {
	clone := *user
	return &clone
}
