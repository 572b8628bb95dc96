package store

import (
	"context"
	"sort"
	"sync"

	"acceso/internal/role/models"
	id "acceso/pkg/domain"
	"acceso/pkg/platform/sentinel"
)

// InMemoryStore keeps roles in an in-process map for tests and the demo
// environment.
type InMemoryStore struct {
	mu    sync.RWMutex
	roles map[id.RoleID]*models.Role
}

// NewInMemoryStore creates an empty in-memory role store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{roles: make(map[id.RoleID]*models.Role)}
}

func (s *InMemoryStore) Create(_ context.Context, role *models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[role.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	for _, existing := range s.roles {
		if existing.Name == role.Name {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.roles[role.ID] = copyRole(role)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, role *models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[role.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.roles {
		if existing.ID != role.ID && existing.Name == role.Name {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.roles[role.ID] = copyRole(role)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, roleID id.RoleID) (*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, ok := s.roles[roleID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyRole(role), nil
}

func (s *InMemoryStore) FindByName(_ context.Context, name string) (*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, role := range s.roles {
		if role.Name == name {
			return copyRole(role), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ExistsByID(_ context.Context, roleID id.RoleID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.roles[roleID]
	return ok, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Role, 0, len(s.roles))
	for _, role := range s.roles {
		out = append(out, copyRole(role))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, roleID id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roles[roleID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.roles, roleID)
	return nil
}

func copyRole(role *models.Role) *models.Role {
	clone := *role
	return &clone
}
