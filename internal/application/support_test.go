package application

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
)

// nopLogger satisfies domain.Logger for tests.
type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Fatal(ctx context.Context, msg string, args ...any) {}
func (l nopLogger) With(args ...any) domain.Logger                   { return l }

// staticProvider serves a fixed config snapshot.
type staticProvider struct {
	cfg *config.Config
}

func (p *staticProvider) Get() *config.Config { return p.cfg }

func testConfigProvider() *staticProvider {
	return &staticProvider{cfg: &config.Config{
		Cache: config.CacheConfig{
			Backend:           "http",
			DefaultTTLSeconds: 300,
			BusyTTLSeconds:    10,
		},
		Downstream: config.DownstreamConfig{
			RequestTimeoutMs:    5000,
			ProbeTimeoutMs:      1000,
			EnrichmentTimeoutMs: 2000,
		},
		App: config.AppConfig{
			ServiceName:     "daisi-gateway-service",
			Version:         "test",
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
	}}
}

// fakeClient scripts downstream responses per "METHOD path" and records every
// call it receives.
type fakeClient struct {
	mu        sync.Mutex
	responses map[string]*domain.DownstreamResponse
	errors    map[string]error
	calls     []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		responses: make(map[string]*domain.DownstreamResponse),
		errors:    make(map[string]error),
	}
}

func (c *fakeClient) respond(method, path string, statusCode int, body string) {
	c.responses[method+" "+path] = &domain.DownstreamResponse{StatusCode: statusCode, Body: []byte(body)}
}

func (c *fakeClient) fail(method, path string, err error) {
	c.errors[method+" "+path] = err
}

func (c *fakeClient) callCount(method, path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, call := range c.calls {
		if call == method+" "+path {
			count++
		}
	}
	return count
}

func (c *fakeClient) do(method string, path string) (*domain.DownstreamResponse, error) {
	c.mu.Lock()
	c.calls = append(c.calls, method+" "+path)
	c.mu.Unlock()
	key := method + " " + path
	if err, ok := c.errors[key]; ok {
		return nil, err
	}
	if resp, ok := c.responses[key]; ok {
		return resp, nil
	}
	return nil, fmt.Errorf("%w: no scripted response for %s", domain.ErrServiceUnavailable, key)
}

func (c *fakeClient) Get(ctx context.Context, service domain.ServiceName, path string, query url.Values) (*domain.DownstreamResponse, error) {
	return c.do("GET", path)
}

func (c *fakeClient) Post(ctx context.Context, service domain.ServiceName, path string, body any) (*domain.DownstreamResponse, error) {
	return c.do("POST", path)
}

func (c *fakeClient) Patch(ctx context.Context, service domain.ServiceName, path string, body any) (*domain.DownstreamResponse, error) {
	return c.do("PATCH", path)
}

func (c *fakeClient) Delete(ctx context.Context, service domain.ServiceName, path string) (*domain.DownstreamResponse, error) {
	return c.do("DELETE", path)
}

// fakeProber reports the services marked down as unavailable.
type fakeProber struct {
	down map[domain.ServiceName]bool
}

func newFakeProber() *fakeProber {
	return &fakeProber{down: make(map[domain.ServiceName]bool)}
}

func (p *fakeProber) Probe(ctx context.Context, service domain.ServiceName) error {
	if p.down[service] {
		return fmt.Errorf("%w: %s", domain.ErrServiceUnavailable, service)
	}
	return nil
}

// fakeCache is an in-memory CacheStore that records the TTL of every write.
// Invalidate mirrors the production adapters: the key is overwritten with an
// empty value, which Get then reports as a miss.
type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
	}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	if !ok || len(value) == 0 {
		return nil, domain.ErrCacheMiss
	}
	return value, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, key string) error {
	return c.Set(ctx, key, nil, domain.InvalidationTTL)
}

func (c *fakeCache) ttlOf(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttls[key]
}

// fakeResolver resolves from a fixed profile map; when down it resolves
// nothing, as the production resolver does when every lookup fails.
type fakeResolver struct {
	profiles map[int64]*domain.Identity
	downFlag bool
}

func newFakeResolver(profiles map[int64]*domain.Identity) *fakeResolver {
	return &fakeResolver{profiles: profiles}
}

func (r *fakeResolver) Resolve(ctx context.Context, userID int64) (*domain.Identity, error) {
	if r.downFlag {
		return nil, domain.ErrServiceUnavailable
	}
	identity, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return identity, nil
}

func (r *fakeResolver) ResolveMany(ctx context.Context, userIDs []int64) map[int64]*domain.Identity {
	resolved := make(map[int64]*domain.Identity)
	if r.downFlag {
		return resolved
	}
	for _, id := range userIDs {
		if identity, ok := r.profiles[id]; ok {
			resolved[id] = identity
		}
	}
	return resolved
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []domain.ResourceEvent
}

func (p *fakePublisher) Publish(ctx context.Context, event domain.ResourceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) published() []domain.ResourceEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ResourceEvent(nil), p.events...)
}

type aggregatorFixture struct {
	aggregator *Aggregator
	client     *fakeClient
	prober     *fakeProber
	cache      *fakeCache
	resolver   *fakeResolver
	events     *fakePublisher
}

func newAggregatorFixture(profiles map[int64]*domain.Identity) *aggregatorFixture {
	client := newFakeClient()
	prober := newFakeProber()
	cache := newFakeCache()
	resolver := newFakeResolver(profiles)
	events := &fakePublisher{}
	aggregator := NewAggregator(nopLogger{}, testConfigProvider(), client, prober, cache, resolver, events)
	return &aggregatorFixture{
		aggregator: aggregator,
		client:     client,
		prober:     prober,
		cache:      cache,
		resolver:   resolver,
		events:     events,
	}
}
