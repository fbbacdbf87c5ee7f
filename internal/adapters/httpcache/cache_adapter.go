package httpcache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
)

// setRequest is the cache service's POST /set payload. Expire is in seconds.
type setRequest struct {
	Key    string          `json:"key"`
	Value  json.RawMessage `json:"value"`
	Expire int             `json:"expire"`
}

// CacheAdapter implements domain.CacheStore against the portal's cache
// service (GET /get/{key}, POST /set). A 404 from /get is a miss; so is an
// invalidated entry, which the service stores as JSON null.
type CacheAdapter struct {
	client domain.DownstreamClient
	logger domain.Logger
}

// NewCacheAdapter creates a cache-service-backed CacheStore.
func NewCacheAdapter(client domain.DownstreamClient, logger domain.Logger) *CacheAdapter {
	if client == nil {
		panic("client cannot be nil in NewCacheAdapter")
	}
	return &CacheAdapter{client: client, logger: logger}
}

// Get retrieves the cached payload for key; 404 and invalidated entries are
// reported as domain.ErrCacheMiss. Every other failure is returned as an
// error, which callers treat identically to a miss.
func (a *CacheAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := a.client.Get(ctx, domain.ServiceCache, "/get/"+url.PathEscape(key), nil)
	if err != nil {
		a.logger.Debug(ctx, "Cache service unreachable, treating as miss", "key", key, "error", err.Error())
		return nil, fmt.Errorf("cache service GET for key '%s' failed: %w", key, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		a.logger.Debug(ctx, "Cache miss", "key", key)
		return nil, domain.ErrCacheMiss
	}
	if resp.StatusCode != http.StatusOK {
		a.logger.Warn(ctx, "Cache service returned unexpected status", "key", key, "status", resp.StatusCode)
		return nil, fmt.Errorf("cache service GET for key '%s' returned status %d", key, resp.StatusCode)
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		// Invalidated entry still within its grace TTL.
		a.logger.Debug(ctx, "Cache entry invalidated, treating as miss", "key", key)
		return nil, domain.ErrCacheMiss
	}

	a.logger.Debug(ctx, "Cache hit", "key", key)
	return body, nil
}

// Set stores the payload under key with the given TTL. Values must be valid
// JSON; the cache service stores JSON documents, not opaque strings.
func (a *CacheAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expire := int(ttl / time.Second)
	if expire < 1 {
		expire = 1
	}
	payload := setRequest{Key: key, Value: json.RawMessage(value), Expire: expire}
	if len(value) == 0 {
		payload.Value = json.RawMessage("null")
	}

	resp, err := a.client.Post(ctx, domain.ServiceCache, "/set", payload)
	if err != nil {
		a.logger.Warn(ctx, "Cache service write failed", "key", key, "error", err.Error())
		return fmt.Errorf("cache service SET for key '%s' failed: %w", key, err)
	}
	if resp.StatusCode != http.StatusOK {
		a.logger.Warn(ctx, "Cache service write returned unexpected status", "key", key, "status", resp.StatusCode)
		return fmt.Errorf("cache service SET for key '%s' returned status %d", key, resp.StatusCode)
	}

	a.logger.Debug(ctx, "Cached entry", "key", key, "expire_seconds", expire)
	return nil
}

// Invalidate overwrites key with an empty value and the invalidation TTL.
func (a *CacheAdapter) Invalidate(ctx context.Context, key string) error {
	return a.Set(ctx, key, nil, domain.InvalidationTTL)
}
