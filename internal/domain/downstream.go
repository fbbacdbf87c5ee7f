package domain

import (
	"context"
	"net/url"
)

// DownstreamResponse is the typed result of one downstream call. StatusCode
// is the upstream status verbatim; Body is the raw JSON payload. Error
// classification happens once, in the client, not at call sites.
type DownstreamResponse struct {
	StatusCode int
	Body       []byte
}

// DownstreamClient is the request/response wrapper around a single backing
// service call. It owns the per-call timeout and the transport-level error
// classification; callers see either a response with an upstream status or a
// classified error (ErrServiceUnavailable for transport failures).
type DownstreamClient interface {
	Get(ctx context.Context, service ServiceName, path string, query url.Values) (*DownstreamResponse, error)
	Post(ctx context.Context, service ServiceName, path string, body any) (*DownstreamResponse, error)
	Patch(ctx context.Context, service ServiceName, path string, body any) (*DownstreamResponse, error)
	Delete(ctx context.Context, service ServiceName, path string) (*DownstreamResponse, error)
}

// HealthProber performs the lightweight liveness check issued before a real
// call to a required dependency. A nil return means healthy; any failure
// (unknown service, transport error, non-200) is reported as
// ErrServiceUnavailable so callers can short-circuit.
type HealthProber interface {
	Probe(ctx context.Context, service ServiceName) error
}

// IdentityResolver resolves user IDs to displayable identities. ResolveMany
// fans out per distinct ID; the returned map holds resolved profiles only,
// and absent IDs are the caller's cue to substitute placeholders. ResolveMany
// never fails the request: a lookup error just leaves its ID out of the map.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID int64) (*Identity, error)
	ResolveMany(ctx context.Context, userIDs []int64) map[int64]*Identity
}
