package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
)

// PublisherAdapter publishes resource-change events to NATS JetStream after
// successful mutations. Publishing is best-effort: the mutation's response is
// already committed by the time an event goes out, so publish failures are
// logged and dropped, never surfaced.
type PublisherAdapter struct {
	nc            *nats.Conn
	js            nats.JetStreamContext
	logger        domain.Logger
	subjectPrefix string
}

// NewPublisherAdapter connects to NATS and returns a publisher plus its
// cleanup function. When no NATS URL is configured the adapter is disabled:
// it is returned non-nil and every Publish becomes a no-op.
func NewPublisherAdapter(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*PublisherAdapter, func(), error) {
	appFullCfg := cfgProvider.Get()
	natsCfg := appFullCfg.NATS
	appName := appFullCfg.App.ServiceName

	if natsCfg.URL == "" {
		appLogger.Info(ctx, "NATS URL not configured, mutation events disabled")
		return &PublisherAdapter{logger: appLogger}, func() {}, nil
	}

	appLogger.Info(ctx, "Attempting to connect to NATS server", "url", natsCfg.URL)

	nc, err := nats.Connect(natsCfg.URL,
		nats.Name(fmt.Sprintf("%s-publisher", appName)),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.ClosedHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS connection closed")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			appLogger.Warn(ctx, "NATS disconnected", "error", err)
		}),
	)
	if err != nil {
		appLogger.Error(ctx, "Failed to connect to NATS", "url", natsCfg.URL, "error", err.Error())
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsCfg.URL, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		appLogger.Error(ctx, "Failed to get JetStream context", "error", err.Error())
		nc.Close()
		return nil, nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	subjectPrefix := natsCfg.Subject
	if subjectPrefix == "" {
		subjectPrefix = "gateway.events"
	}

	if err := ensureStream(ctx, js, natsCfg.StreamName, subjectPrefix, appLogger); err != nil {
		// Publishing is best-effort; a stream managed out-of-band still works.
		appLogger.Warn(ctx, "Failed to provision JetStream stream", "stream", natsCfg.StreamName, "error", err.Error())
	}

	adapter := &PublisherAdapter{
		nc:            nc,
		js:            js,
		logger:        appLogger,
		subjectPrefix: subjectPrefix,
	}

	cleanup := func() {
		adapter.Close()
	}

	return adapter, cleanup, nil
}

// streamManager is the slice of the JetStream management API the publisher
// needs for stream provisioning.
type streamManager interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// ensureStream creates the mutation-event stream when it does not exist yet.
// An empty stream name means the stream is managed externally and provisioning
// is skipped.
func ensureStream(ctx context.Context, js streamManager, streamName, subjectPrefix string, appLogger domain.Logger) error {
	if streamName == "" {
		return nil
	}

	if _, err := js.StreamInfo(streamName); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", streamName, err)
	}

	appLogger.Info(ctx, "Creating JetStream stream for mutation events", "stream", streamName, "subjects", subjectPrefix+".>")
	if _, err := js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{subjectPrefix + ".>"},
		Storage:  nats.FileStorage,
	}); err != nil {
		return fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}
	return nil
}

// Publish sends one resource event on "<prefix>.<resource>.<kind>". A disabled or
// disconnected publisher drops the event silently except for a debug log.
func (a *PublisherAdapter) Publish(ctx context.Context, event domain.ResourceEvent) error {
	if a.js == nil {
		a.logger.Debug(ctx, "Event publisher disabled, dropping event", "kind", event.Kind)
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal resource event %q: %w", event.Kind, err)
	}

	subject := fmt.Sprintf("%s.%s.%s", a.subjectPrefix, event.Resource, event.Kind)
	if _, err := a.js.Publish(subject, payload, nats.Context(ctx)); err != nil {
		a.logger.Warn(ctx, "Failed to publish resource event", "subject", subject, "error", err.Error())
		return fmt.Errorf("failed to publish event to %s: %w", subject, err)
	}

	a.logger.Debug(ctx, "Published resource event", "subject", subject, "resource_id", event.ResourceID)
	return nil
}

// Close drains and closes the NATS connection.
func (a *PublisherAdapter) Close() {
	if a.nc != nil && !a.nc.IsClosed() {
		a.logger.Info(context.Background(), "Draining NATS connection...")
		if err := a.nc.Drain(); err != nil {
			a.logger.Error(context.Background(), "Error draining NATS connection", "error", err.Error())
			a.nc.Close()
		}
	}
}
