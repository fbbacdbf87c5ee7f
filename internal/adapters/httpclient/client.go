package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
)

// maxResponseBytes bounds how much of a downstream response body is read.
const maxResponseBytes = 4 << 20

// Client implements domain.DownstreamClient on top of net/http. It resolves
// targets through the injected service registry, owns the per-call timeout,
// and classifies transport failures as domain.ErrServiceUnavailable exactly
// once, so call sites never repeat ad hoc error handling.
type Client struct {
	registry       *domain.ServiceRegistry
	httpClient     *http.Client
	logger         domain.Logger
	requestTimeout time.Duration
}

// NewClient creates a downstream client using the registry and the configured
// request timeout.
func NewClient(registry *domain.ServiceRegistry, cfgProvider config.Provider, logger domain.Logger) *Client {
	if registry == nil {
		panic("registry cannot be nil in NewClient")
	}
	timeoutMs := cfgProvider.Get().Downstream.RequestTimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}
	return &Client{
		registry:       registry,
		httpClient:     &http.Client{},
		logger:         logger,
		requestTimeout: time.Duration(timeoutMs) * time.Millisecond,
	}
}

// Get issues a GET against the named service.
func (c *Client) Get(ctx context.Context, service domain.ServiceName, path string, query url.Values) (*domain.DownstreamResponse, error) {
	return c.do(ctx, http.MethodGet, service, path, query, nil)
}

// Post issues a POST with a JSON body against the named service.
func (c *Client) Post(ctx context.Context, service domain.ServiceName, path string, body any) (*domain.DownstreamResponse, error) {
	return c.do(ctx, http.MethodPost, service, path, nil, body)
}

// Patch issues a PATCH with a JSON body against the named service.
func (c *Client) Patch(ctx context.Context, service domain.ServiceName, path string, body any) (*domain.DownstreamResponse, error) {
	return c.do(ctx, http.MethodPatch, service, path, nil, body)
}

// Delete issues a DELETE against the named service.
func (c *Client) Delete(ctx context.Context, service domain.ServiceName, path string) (*domain.DownstreamResponse, error) {
	return c.do(ctx, http.MethodDelete, service, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method string, service domain.ServiceName, path string, query url.Values, body any) (*domain.DownstreamResponse, error) {
	descriptor, ok := c.registry.Lookup(service)
	if !ok {
		c.logger.Error(ctx, "Downstream call to unregistered service", "service", string(service), "path", path)
		return nil, fmt.Errorf("%w: unknown service %q", domain.ErrServiceUnavailable, service)
	}

	target := strings.TrimSuffix(descriptor.BaseURL, "/") + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body for %s %s: %w", method, target, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s %s: %w", method, target, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveDownstreamRequest(string(service), method, start)
	if err != nil {
		c.logger.Warn(ctx, "Downstream call failed at transport level",
			"service", string(service), "method", method, "path", path, "error", err.Error())
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrServiceUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.logger.Warn(ctx, "Failed to read downstream response body",
			"service", string(service), "method", method, "path", path, "error", err.Error())
		return nil, fmt.Errorf("%w: reading response from %s %s: %v", domain.ErrServiceUnavailable, method, path, err)
	}

	c.logger.Debug(ctx, "Downstream call completed",
		"service", string(service), "method", method, "path", path, "status", resp.StatusCode)

	return &domain.DownstreamResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}
