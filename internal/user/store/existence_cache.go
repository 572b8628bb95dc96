package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	id "acceso/pkg/domain"
)

const (
	// Redis key prefix for cached user-existence checks
	existsKeyPrefix = "user:exists:"

	existsCacheTTL = 5 * time.Minute
)

// ExistenceChecker answers whether a user exists. Satisfied by the postgres
// and memory stores.
type ExistenceChecker interface {
	ExistsByID(ctx context.Context, userID id.UserID) (bool, error)
}

// ExistenceCache is a Redis read-through cache in front of a user-existence
// check. The audit recorder calls ExistsByID on every event, so the hot path
// is one Redis GET instead of a database round trip.
//
// Only positive results are cached: a user that does not exist yet may be
// created moments later, and a stale negative would silently drop its audit
// events. Deletions must invalidate via Invalidate.
type ExistenceCache struct {
	inner  ExistenceChecker
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// ExistenceCacheOption configures an ExistenceCache.
type ExistenceCacheOption func(*ExistenceCache)

// WithCacheLogger sets a logger for cache degradation reporting.
func WithCacheLogger(logger *slog.Logger) ExistenceCacheOption {
	return func(c *ExistenceCache) {
		c.logger = logger
	}
}

// WithCacheTTL overrides the default positive-entry TTL.
func WithCacheTTL(ttl time.Duration) ExistenceCacheOption {
	return func(c *ExistenceCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewExistenceCache wraps inner with a Redis cache. A nil client disables
// caching and passes every call through.
func NewExistenceCache(inner ExistenceChecker, client *redis.Client, opts ...ExistenceCacheOption) *ExistenceCache {
	c := &ExistenceCache{
		inner:  inner,
		client: client,
		ttl:    existsCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExistsByID consults the cache first and falls back to the inner store.
// Redis failures degrade to the inner store rather than failing the check.
func (c *ExistenceCache) ExistsByID(ctx context.Context, userID id.UserID) (bool, error) {
	if c.client == nil {
		return c.inner.ExistsByID(ctx, userID)
	}

	key := existsKeyPrefix + userID.String()
	_, err := c.client.Get(ctx, key).Result()
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, redis.Nil) && c.logger != nil {
		c.logger.WarnContext(ctx, "user existence cache read failed", "error", err)
	}

	exists, err := c.inner.ExistsByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if exists {
		if err := c.client.Set(ctx, key, "1", c.ttl).Err(); err != nil && c.logger != nil {
			c.logger.WarnContext(ctx, "user existence cache write failed", "error", err)
		}
	}
	return exists, nil
}

// Invalidate drops the cached entry for a user. Called after deletion.
func (c *ExistenceCache) Invalidate(ctx context.Context, userID id.UserID) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, existsKeyPrefix+userID.String()).Err(); err != nil && c.logger != nil {
		c.logger.WarnContext(ctx, "user existence cache invalidation failed", "error", err)
	}
}
