package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acceso/internal/user/models"
	id "acceso/pkg/domain"
	"acceso/pkg/platform/sentinel"
)

func seedUser(t *testing.T, s *InMemoryStore, username string, roleID id.RoleID) *models.User {
	t.Helper()
	user, err := models.NewUser(
		id.UserID(uuid.New()), username, id.PersonID(uuid.New()), roleID,
		"$2a$10$fakehashfakehashfakehash", time.Now(),
	)
	require.NoError(t, err)
	require.NoError(t, s.Create(context.Background(), user))
	return user
}

func TestInMemoryStore_CreateAndFind(t *testing.T) {
	s := NewInMemoryStore()
	roleID := id.RoleID(uuid.New())
	user := seedUser(t, s, "alice", roleID)

	byID, err := s.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, byID.Username)

	byUsername, err := s.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byUsername.ID)

	byPerson, err := s.FindByPersonID(context.Background(), user.PersonID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byPerson.ID)

	_, err = s.FindByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_CreateRejectsDuplicates(t *testing.T) {
	s := NewInMemoryStore()
	roleID := id.RoleID(uuid.New())
	existing := seedUser(t, s, "alice", roleID)

	sameUsername, err := models.NewUser(
		id.UserID(uuid.New()), "alice", id.PersonID(uuid.New()), roleID,
		"$2a$10$fakehashfakehashfakehash", time.Now(),
	)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Create(context.Background(), sameUsername), sentinel.ErrAlreadyUsed)

	samePerson, err := models.NewUser(
		id.UserID(uuid.New()), "bob", existing.PersonID, roleID,
		"$2a$10$fakehashfakehashfakehash", time.Now(),
	)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Create(context.Background(), samePerson), sentinel.ErrAlreadyUsed)
}

func TestInMemoryStore_UpdateChecksUniquenessAgainstOthers(t *testing.T) {
	s := NewInMemoryStore()
	roleID := id.RoleID(uuid.New())
	alice := seedUser(t, s, "alice", roleID)
	bob := seedUser(t, s, "bob", roleID)

	// Updating a user without changing identity fields is fine.
	alice.Active = false
	require.NoError(t, s.Update(context.Background(), alice))

	// Taking another user's username is not.
	bob.Username = "alice"
	assert.ErrorIs(t, s.Update(context.Background(), bob), sentinel.ErrAlreadyUsed)
}

func TestInMemoryStore_ReadsReturnCopies(t *testing.T) {
	s := NewInMemoryStore()
	user := seedUser(t, s, "alice", id.RoleID(uuid.New()))

	got, err := s.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	got.Username = "mutated"

	again, err := s.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", again.Username)
}

func TestInMemoryStore_ListSortedAndPaginated(t *testing.T) {
	s := NewInMemoryStore()
	roleID := id.RoleID(uuid.New())
	seedUser(t, s, "carol", roleID)
	seedUser(t, s, "alice", roleID)
	seedUser(t, s, "bob", id.RoleID(uuid.New()))

	all, err := s.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alice", all[0].Username)
	assert.Equal(t, "bob", all[1].Username)
	assert.Equal(t, "carol", all[2].Username)

	page, err := s.List(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "carol", page[0].Username)

	byRole, err := s.ListByRole(context.Background(), roleID)
	require.NoError(t, err)
	assert.Len(t, byRole, 2)

	count, err := s.CountByRole(context.Background(), roleID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestInMemoryStore_SearchIsCaseInsensitive(t *testing.T) {
	s := NewInMemoryStore()
	seedUser(t, s, "Alice.Smith", id.RoleID(uuid.New()))
	seedUser(t, s, "bob", id.RoleID(uuid.New()))

	found, err := s.Search(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Alice.Smith", found[0].Username)
}

func TestInMemoryStore_DeleteAndExists(t *testing.T) {
	s := NewInMemoryStore()
	user := seedUser(t, s, "alice", id.RoleID(uuid.New()))

	exists, err := s.ExistsByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(context.Background(), user.ID))
	assert.ErrorIs(t, s.Delete(context.Background(), user.ID), sentinel.ErrNotFound)

	exists, err = s.ExistsByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}
