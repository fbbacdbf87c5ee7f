package domain

import (
	"context"
	"time"
)

// InvalidationTTL is the TTL used when a cache entry is explicitly
// invalidated after a mutation. It is strictly shorter than any legitimate
// write TTL, so a racing invalidation and write resolve safely under
// last-writer-wins.
const InvalidationTTL = 1 * time.Second

// CacheStore is the cache-aside port shared by all fetch and mutation paths.
// Implementations are interchangeable (portal cache service over HTTP, or
// Redis directly); callers treat every error from Get identically to
// ErrCacheMiss and fall through to the authoritative fetch path.
type CacheStore interface {
	// Get retrieves the raw cached payload for key, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the payload under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate overwrites key with an empty value and InvalidationTTL so the
	// next read bypasses the stale entry.
	Invalidate(ctx context.Context, key string) error
}
