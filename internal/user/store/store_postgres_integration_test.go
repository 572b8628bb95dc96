//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	rolemodels "acceso/internal/role/models"
	rolestore "acceso/internal/role/store"
	"acceso/internal/user/models"
	"acceso/internal/user/store"
	id "acceso/pkg/domain"
	"acceso/pkg/platform/sentinel"
	"acceso/pkg/platform/tx"
	"acceso/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	roles    *rolestore.PostgresStore
	roleID   id.RoleID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.roles = rolestore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateAll(ctx))

	role, err := rolemodels.NewRole(id.RoleID(uuid.New()), "TRABAJADOR", "", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.roles.Create(ctx, role))
	s.roleID = role.ID
}

func (s *PostgresStoreSuite) newUser(username string) *models.User {
	user, err := models.NewUser(id.UserID(uuid.New()), username, id.PersonID(uuid.New()), s.roleID, "$2a$10$fixturehash", time.Now().UTC())
	s.Require().NoError(err)
	return user
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	user := s.newUser("mgarcia")
	s.Require().NoError(s.store.Create(ctx, user))

	byID, err := s.store.FindByID(ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(user.Username, byID.Username)
	s.Equal(user.PersonID, byID.PersonID)
	s.True(byID.Active)

	byUsername, err := s.store.FindByUsername(ctx, "mgarcia")
	s.Require().NoError(err)
	s.Equal(user.ID, byUsername.ID)

	byPerson, err := s.store.FindByPersonID(ctx, user.PersonID)
	s.Require().NoError(err)
	s.Equal(user.ID, byPerson.ID)
}

func (s *PostgresStoreSuite) TestDuplicateUsername() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newUser("dup")))

	err := s.store.Create(ctx, s.newUser("dup"))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestDuplicatePersonID() {
	ctx := context.Background()
	first := s.newUser("first")
	s.Require().NoError(s.store.Create(ctx, first))

	second := s.newUser("second")
	second.PersonID = first.PersonID
	s.ErrorIs(s.store.Create(ctx, second), sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestUpdateMissingUser() {
	err := s.store.Update(context.Background(), s.newUser("ghost"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestSearchAndListByRole() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newUser("alice")))
	s.Require().NoError(s.store.Create(ctx, s.newUser("alicia")))
	s.Require().NoError(s.store.Create(ctx, s.newUser("bob")))

	matches, err := s.store.Search(ctx, "ALI")
	s.Require().NoError(err)
	s.Len(matches, 2, "search is case-insensitive substring")

	byRole, err := s.store.ListByRole(ctx, s.roleID)
	s.Require().NoError(err)
	s.Len(byRole, 3)

	count, err := s.store.CountByRole(ctx, s.roleID)
	s.Require().NoError(err)
	s.Equal(3, count)
}

func (s *PostgresStoreSuite) TestDeleteAndExists() {
	ctx := context.Background()
	user := s.newUser("temp")
	s.Require().NoError(s.store.Create(ctx, user))

	exists, err := s.store.ExistsByID(ctx, user.ID)
	s.Require().NoError(err)
	s.True(exists)

	s.Require().NoError(s.store.Delete(ctx, user.ID))

	exists, err = s.store.ExistsByID(ctx, user.ID)
	s.Require().NoError(err)
	s.False(exists)

	s.ErrorIs(s.store.Delete(ctx, user.ID), sentinel.ErrNotFound)
}

// TestJoinsContextTransaction verifies that a write issued under a context
// transaction is invisible after rollback.
func (s *PostgresStoreSuite) TestJoinsContextTransaction() {
	ctx := context.Background()

	sqlTx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)

	user := s.newUser("rollback")
	s.Require().NoError(s.store.Create(tx.WithTx(ctx, sqlTx), user))
	s.Require().NoError(sqlTx.Rollback())

	_, err = s.store.FindByID(ctx, user.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
