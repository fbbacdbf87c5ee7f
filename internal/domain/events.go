package domain

import (
	"context"
	"time"
)

// ResourceEvent describes a successful mutation applied through the gateway.
// Events feed the notification pipeline; delivery is best-effort and never
// affects the mutation's response.
type ResourceEvent struct {
	Kind       string    `json:"kind"` // e.g. "created", "liked"
	Resource   string    `json:"resource"`
	ResourceID int64     `json:"resource_id"`
	ActorID    int64     `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher publishes resource-change events after successful mutations.
type EventPublisher interface {
	Publish(ctx context.Context, event ResourceEvent) error
}
