package application

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
)

// checkTokenResponse is the auth service's /auth/check_token payload. Valid
// is a pointer because older deployments omit the field and signal validity
// purely through the status code and a non-zero user_id.
type checkTokenResponse struct {
	Valid   *bool `json:"valid,omitempty"`
	UserID  int64 `json:"user_id"`
	IsAdmin bool  `json:"is_admin"`
}

// AuthService is the auth delegate: it forwards bearer credentials to the
// auth service's check endpoint and returns a verified principal. Results are
// deliberately not cached; every call re-verifies, so a revoked credential
// is rejected on the very next request.
type AuthService struct {
	logger domain.Logger
	client domain.DownstreamClient
}

// NewAuthService creates a new AuthService.
func NewAuthService(logger domain.Logger, client domain.DownstreamClient) *AuthService {
	if logger == nil {
		panic("logger is nil in NewAuthService")
	}
	if client == nil {
		panic("client is nil in NewAuthService")
	}
	return &AuthService{
		logger: logger,
		client: client,
	}
}

// Verify delegates the credential to the auth service. A rejected credential
// and an unreachable auth service both map to domain.ErrInvalidToken, so the
// response never reveals whether the infrastructure or the token failed.
func (s *AuthService) Verify(ctx context.Context, credential string) (*domain.Principal, error) {
	if credential == "" {
		return nil, domain.ErrInvalidToken
	}

	resp, err := s.client.Get(ctx, domain.ServiceAuth, "/auth/check_token", url.Values{"token": {credential}})
	if err != nil {
		s.logger.Warn(ctx, "Auth service unreachable during credential verification", "error", err.Error())
		return nil, domain.ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Debug(ctx, "Auth service rejected credential", "status", resp.StatusCode)
		return nil, domain.ErrInvalidToken
	}

	var payload checkTokenResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		s.logger.Warn(ctx, "Failed to unmarshal auth service response", "error", err.Error())
		return nil, domain.ErrInvalidToken
	}
	if payload.Valid != nil && !*payload.Valid {
		return nil, domain.ErrInvalidToken
	}
	if payload.UserID == 0 {
		return nil, domain.ErrInvalidToken
	}

	return &domain.Principal{UserID: payload.UserID, IsAdmin: payload.IsAdmin}, nil
}

// VerifyAdmin verifies the credential and additionally requires the admin
// flag. A valid non-admin principal yields domain.ErrNotAuthorized.
func (s *AuthService) VerifyAdmin(ctx context.Context, credential string) (*domain.Principal, error) {
	principal, err := s.Verify(ctx, credential)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin {
		s.logger.Debug(ctx, "Admin check failed for valid principal", "user_id", principal.UserID)
		return nil, domain.ErrNotAuthorized
	}
	return principal, nil
}
