//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"acceso/internal/user/models"
	"acceso/internal/user/store"
	id "acceso/pkg/domain"
	"acceso/pkg/testutil/containers"
)

type ExistenceCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	inner *store.InMemoryStore
	cache *store.ExistenceCache
}

func TestExistenceCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ExistenceCacheSuite))
}

func (s *ExistenceCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
}

func (s *ExistenceCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.inner = store.NewInMemoryStore()
	s.cache = store.NewExistenceCache(s.inner, s.redis.Client)
}

func (s *ExistenceCacheSuite) createUser() *models.User {
	user, err := models.NewUser(id.UserID(uuid.New()), "u-"+uuid.NewString(), id.PersonID(uuid.New()), id.RoleID(uuid.New()), "hash", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.inner.Create(context.Background(), user))
	return user
}

func (s *ExistenceCacheSuite) TestPositiveResultIsCached() {
	ctx := context.Background()
	user := s.createUser()

	exists, err := s.cache.ExistsByID(ctx, user.ID)
	s.Require().NoError(err)
	s.True(exists)

	// The cached positive masks the underlying delete until invalidation.
	s.Require().NoError(s.inner.Delete(ctx, user.ID))

	exists, err = s.cache.ExistsByID(ctx, user.ID)
	s.Require().NoError(err)
	s.True(exists, "positive entry served from redis")

	s.cache.Invalidate(ctx, user.ID)

	exists, err = s.cache.ExistsByID(ctx, user.ID)
	s.Require().NoError(err)
	s.False(exists)
}

func (s *ExistenceCacheSuite) TestNegativeResultIsNotCached() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())

	exists, err := s.cache.ExistsByID(ctx, userID)
	s.Require().NoError(err)
	s.False(exists)

	// The user appearing later must be visible immediately: a cached negative
	// would silently drop audit events.
	user := s.createUser()
	exists, err = s.cache.ExistsByID(ctx, user.ID)
	s.Require().NoError(err)
	s.True(exists)
}
