package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the gateway's error taxonomy. Only ErrInvalidToken,
// ErrNotAuthorized, ErrServiceUnavailable, ErrNotFound and UpstreamError ever
// terminate a request; enrichment and cache failures are absorbed before they
// reach a handler.
var (
	// ErrInvalidToken covers a rejected credential AND an unreachable auth
	// service. Both collapse into the same externally visible error so the
	// response does not leak infrastructure state.
	ErrInvalidToken = errors.New("credential is invalid or could not be verified")

	// ErrNotAuthorized means the credential resolved to a valid principal that
	// lacks the privilege required by the operation.
	ErrNotAuthorized = errors.New("principal lacks required privilege")

	// ErrServiceUnavailable means the availability probe failed for a required
	// dependency; the operation was aborted before any side effect.
	ErrServiceUnavailable = errors.New("required downstream service is unavailable")

	// ErrNotFound covers a missing primary resource and a page number beyond
	// the last available page of a collection.
	ErrNotFound = errors.New("resource not found")

	// ErrCacheMiss is returned by CacheStore.Get when the key is absent.
	// Cache errors of any other kind are treated identically by callers.
	ErrCacheMiss = errors.New("entry not found in cache")
)

// UpstreamError carries a non-success status from the service that owns the
// primary resource. The gateway surfaces the same status with a sanitized
// message; the raw upstream body is logged, never forwarded.
type UpstreamError struct {
	Service    ServiceName
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream service %q responded with status %d", e.Service, e.StatusCode)
}

// NewUpstreamError builds an UpstreamError, normalizing 404 to ErrNotFound so
// callers only have to check one sentinel for missing primary resources.
func NewUpstreamError(service ServiceName, statusCode int) error {
	if statusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return &UpstreamError{Service: service, StatusCode: statusCode}
}

// ErrorCode represents a specific error condition in HTTP responses.
type ErrorCode string

const (
	CodeInvalidToken       ErrorCode = "InvalidToken"       // HTTP 401
	CodeNotAuthorized      ErrorCode = "NotAuthorized"      // HTTP 403
	CodeNotFound           ErrorCode = "NotFound"           // HTTP 404
	CodeServiceUnavailable ErrorCode = "ServiceUnavailable" // HTTP 503
	CodeUpstreamError      ErrorCode = "UpstreamError"      // status preserved from upstream
	CodeBadRequest         ErrorCode = "BadRequest"         // HTTP 400
	CodeInternal           ErrorCode = "InternalServerError" // HTTP 500
)

// ErrorResponse is the standard error format returned to clients as JSON.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// NewErrorResponse creates a new ErrorResponse struct.
func NewErrorResponse(code ErrorCode, message string, details string) ErrorResponse {
	return ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WriteJSON sends an ErrorResponse as JSON with the given HTTP status code.
func (er ErrorResponse) WriteJSON(w http.ResponseWriter, httpStatusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	json.NewEncoder(w).Encode(er) // Best effort, error from Encode is not typically handled here.
}
