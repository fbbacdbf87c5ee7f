package httpcache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/httpclient"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Fatal(ctx context.Context, msg string, args ...any) {}
func (l nopLogger) With(args ...any) domain.Logger                   { return l }

type staticProvider struct {
	cfg *config.Config
}

func (p *staticProvider) Get() *config.Config { return p.cfg }

// cacheService is an in-memory stand-in for the portal's cache service with
// its GET /get/{key} and POST /set surface.
func cacheService(t *testing.T) (*httptest.Server, map[string]setRequest) {
	t.Helper()
	entries := make(map[string]setRequest)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /get/{key}", func(w http.ResponseWriter, r *http.Request) {
		entry, ok := entries[r.PathValue("key")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"detail": "key not found"}`)
			return
		}
		w.Write(entry.Value)
	})
	mux.HandleFunc("POST /set", func(w http.ResponseWriter, r *http.Request) {
		var req setRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		entries[req.Key] = req
		fmt.Fprint(w, `{"status": "ok"}`)
	})
	return httptest.NewServer(mux), entries
}

func adapterFor(server *httptest.Server) *CacheAdapter {
	provider := &staticProvider{cfg: &config.Config{
		Downstream: config.DownstreamConfig{RequestTimeoutMs: 2000},
	}}
	registry := domain.NewServiceRegistry(domain.ServiceDescriptor{Name: domain.ServiceCache, BaseURL: server.URL})
	client := httpclient.NewClient(registry, provider, nopLogger{})
	return NewCacheAdapter(client, nopLogger{})
}

func TestCacheAdapter_SetThenGetRoundTrip(t *testing.T) {
	server, entries := cacheService(t)
	defer server.Close()
	adapter := adapterFor(server)

	require.NoError(t, adapter.Set(context.Background(), "post:1", []byte(`{"id": 1}`), 300*time.Second))

	assert.Equal(t, 300, entries["post:1"].Expire)

	value, err := adapter.Get(context.Background(), "post:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": 1}`, string(value))
}

func TestCacheAdapter_AbsentKeyIsMiss(t *testing.T) {
	server, _ := cacheService(t)
	defer server.Close()

	_, err := adapterFor(server).Get(context.Background(), "post:999")

	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestCacheAdapter_InvalidatedEntryIsMiss(t *testing.T) {
	server, entries := cacheService(t)
	defer server.Close()
	adapter := adapterFor(server)

	require.NoError(t, adapter.Set(context.Background(), "post:1", []byte(`{"id": 1}`), 300*time.Second))
	require.NoError(t, adapter.Invalidate(context.Background(), "post:1"))

	// Invalidation is an overwrite with null and a one-second expiry, not a
	// delete: the entry exists but reads as a miss.
	assert.Equal(t, json.RawMessage("null"), entries["post:1"].Value)
	assert.Equal(t, 1, entries["post:1"].Expire)

	_, err := adapter.Get(context.Background(), "post:1")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestCacheAdapter_SubSecondTTLRoundsUpToOneSecond(t *testing.T) {
	server, entries := cacheService(t)
	defer server.Close()

	require.NoError(t, adapterFor(server).Set(context.Background(), "k", []byte(`1`), 100*time.Millisecond))

	assert.Equal(t, 1, entries["k"].Expire)
}

func TestCacheAdapter_ServiceDownGetFails(t *testing.T) {
	server, _ := cacheService(t)
	adapter := adapterFor(server)
	server.Close()

	_, err := adapter.Get(context.Background(), "post:1")

	// Not ErrCacheMiss, but callers treat any Get error as a miss anyway.
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}
