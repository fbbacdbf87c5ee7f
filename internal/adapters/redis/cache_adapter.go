package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
)

// CacheAdapter implements the domain.CacheStore interface using a direct
// Redis connection. It is the deployment alternative to the portal's HTTP
// cache service; both adapters share the invalidation convention of writing
// an empty value with domain.InvalidationTTL.
type CacheAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
}

// NewCacheAdapter creates a new instance of CacheAdapter.
func NewCacheAdapter(redisClient *redis.Client, logger domain.Logger) *CacheAdapter {
	if redisClient == nil {
		// Panicking here because this is a critical setup error.
		panic("redisClient cannot be nil in NewCacheAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewCacheAdapter")
	}
	return &CacheAdapter{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Get retrieves the raw cached payload for key. A missing key and an
// invalidated (empty) entry both report domain.ErrCacheMiss.
func (a *CacheAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := a.redisClient.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		a.logger.Debug(ctx, "Cache miss", "key", key)
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		a.logger.Error(ctx, "Failed to get entry from Redis cache", "key", key, "error", err.Error())
		return nil, fmt.Errorf("redis GET for key '%s' failed: %w", key, err)
	}
	if len(val) == 0 || val == "null" {
		// Invalidated entry still within its grace TTL.
		a.logger.Debug(ctx, "Cache entry invalidated, treating as miss", "key", key)
		return nil, domain.ErrCacheMiss
	}

	a.logger.Debug(ctx, "Cache hit", "key", key)
	return []byte(val), nil
}

// Set stores the payload under key with the given TTL.
func (a *CacheAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := a.redisClient.Set(ctx, key, string(value), ttl).Err(); err != nil {
		a.logger.Error(ctx, "Failed to set entry in Redis cache", "key", key, "ttl", ttl.String(), "error", err.Error())
		return fmt.Errorf("redis SET for key '%s' failed: %w", key, err)
	}

	a.logger.Debug(ctx, "Cached entry", "key", key, "ttl", ttl.String())
	return nil
}

// Invalidate overwrites key with an empty value and the invalidation TTL.
func (a *CacheAdapter) Invalidate(ctx context.Context, key string) error {
	return a.Set(ctx, key, nil, domain.InvalidationTTL)
}
