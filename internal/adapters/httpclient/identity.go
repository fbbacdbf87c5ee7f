package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
)

// IdentityResolverAdapter implements domain.IdentityResolver against the
// profile service. ResolveMany is the enrichment fan-out entry point used by
// the aggregator: one goroutine per distinct user ID, each with its own
// deadline, failures absorbed so a slow or dead profile service never fails
// the composed response.
type IdentityResolverAdapter struct {
	client            domain.DownstreamClient
	logger            domain.Logger
	enrichmentTimeout time.Duration
}

// NewIdentityResolverAdapter creates a resolver with the configured
// per-lookup enrichment timeout.
func NewIdentityResolverAdapter(client domain.DownstreamClient, cfgProvider config.Provider, logger domain.Logger) *IdentityResolverAdapter {
	timeoutMs := cfgProvider.Get().Downstream.EnrichmentTimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = 2000
	}
	return &IdentityResolverAdapter{
		client:            client,
		logger:            logger,
		enrichmentTimeout: time.Duration(timeoutMs) * time.Millisecond,
	}
}

// Resolve fetches a single displayable identity from the profile service.
func (r *IdentityResolverAdapter) Resolve(ctx context.Context, userID int64) (*domain.Identity, error) {
	resp, err := r.client.Get(ctx, domain.ServiceProfile, fmt.Sprintf("/profile/%d", userID), nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewUpstreamError(domain.ServiceProfile, resp.StatusCode)
	}

	var identity domain.Identity
	if err := json.Unmarshal(resp.Body, &identity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile %d: %w", userID, err)
	}
	identity.ID = userID
	return &identity, nil
}

// ResolveMany resolves the given user IDs concurrently, one lookup per
// distinct ID. The returned map contains only successfully resolved profiles;
// callers substitute placeholders for absent IDs. Lookup failures and
// timeouts are logged and counted, never propagated.
func (r *IdentityResolverAdapter) ResolveMany(ctx context.Context, userIDs []int64) map[int64]*domain.Identity {
	distinct := make([]int64, 0, len(userIDs))
	seen := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}

	resolved := make(map[int64]*domain.Identity, len(distinct))
	if len(distinct) == 0 {
		return resolved
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, id := range distinct {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			lookupCtx, cancel := context.WithTimeout(ctx, r.enrichmentTimeout)
			defer cancel()

			identity, err := r.Resolve(lookupCtx, userID)
			if err != nil {
				metrics.IncrementEnrichmentFailure()
				r.logger.Debug(ctx, "Identity lookup degraded to placeholder",
					"user_id", userID, "error", err.Error())
				return
			}
			mu.Lock()
			resolved[userID] = identity
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	return resolved
}
