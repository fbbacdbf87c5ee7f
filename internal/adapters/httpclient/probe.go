package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
)

// Prober implements domain.HealthProber. It issues a short GET against the
// descriptor's liveness path before the caller attempts the real call, so a
// known-down dependency short-circuits instead of cascading timeouts.
// Results are not cached; every call probes again.
type Prober struct {
	registry     *domain.ServiceRegistry
	httpClient   *http.Client
	logger       domain.Logger
	probeTimeout time.Duration
}

// NewProber creates a Prober with the configured probe timeout.
func NewProber(registry *domain.ServiceRegistry, cfgProvider config.Provider, logger domain.Logger) *Prober {
	if registry == nil {
		panic("registry cannot be nil in NewProber")
	}
	timeoutMs := cfgProvider.Get().Downstream.ProbeTimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = 1000
	}
	return &Prober{
		registry:     registry,
		httpClient:   &http.Client{},
		logger:       logger,
		probeTimeout: time.Duration(timeoutMs) * time.Millisecond,
	}
}

// Probe checks the named service's liveness endpoint. Unknown services fail
// closed. Any transport error or non-200 response reports the service as
// unavailable.
func (p *Prober) Probe(ctx context.Context, service domain.ServiceName) error {
	descriptor, ok := p.registry.Lookup(service)
	if !ok {
		metrics.IncrementProbeFailure(string(service))
		p.logger.Warn(ctx, "Probe requested for unregistered service", "service", string(service))
		return fmt.Errorf("%w: unknown service %q", domain.ErrServiceUnavailable, service)
	}

	healthPath := descriptor.HealthPath
	if healthPath == "" {
		healthPath = "/health"
	}
	target := strings.TrimSuffix(descriptor.BaseURL, "/") + healthPath

	probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, target, nil)
	if err != nil {
		metrics.IncrementProbeFailure(string(service))
		return fmt.Errorf("%w: building probe request for %q: %v", domain.ErrServiceUnavailable, service, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		metrics.IncrementProbeFailure(string(service))
		p.logger.Warn(ctx, "Availability probe failed", "service", string(service), "error", err.Error())
		return fmt.Errorf("%w: probe for %q failed: %v", domain.ErrServiceUnavailable, service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.IncrementProbeFailure(string(service))
		p.logger.Warn(ctx, "Availability probe returned non-200", "service", string(service), "status", resp.StatusCode)
		return fmt.Errorf("%w: probe for %q returned status %d", domain.ErrServiceUnavailable, service, resp.StatusCode)
	}

	p.logger.Debug(ctx, "Availability probe succeeded", "service", string(service))
	return nil
}
