package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
	"gitlab.com/timkado/api/daisi-gateway-service/pkg/contextkeys"
)

// errBadRequest marks client input the gateway rejects before any downstream
// call: malformed identifiers and unreadable bodies.
var errBadRequest = errors.New("bad request")

// pathID parses a numeric path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, name)
	}
	return id, nil
}

// optionalQueryID parses an optional numeric query parameter; absent means 0.
func optionalQueryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, name)
	}
	return id, nil
}

// readBody reads the request body as raw JSON to relay downstream.
func readBody(r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read request body", errBadRequest)
	}
	return body, nil
}

// principalFromContext returns the authenticated principal, or nil on public
// routes.
func principalFromContext(r *http.Request) *domain.Principal {
	principal, _ := r.Context().Value(contextkeys.PrincipalKey).(*domain.Principal)
	return principal
}

// writeJSON sends pre-serialized JSON bytes.
func writeJSON(w http.ResponseWriter, statusCode int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(payload)
}

// writeJSONObject marshals and sends a value as JSON.
func writeJSONObject(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(value)
}

// relay writes a downstream response back to the client verbatim: same
// status, same body. Empty-body relays (204s and the like) carry no
// Content-Type.
func relay(w http.ResponseWriter, resp *domain.DownstreamResponse) {
	if len(resp.Body) > 0 {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) > 0 {
		w.Write(resp.Body)
	}
}
