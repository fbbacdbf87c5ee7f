package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
	"gitlab.com/timkado/api/daisi-gateway-service/pkg/contextkeys"
)

// TokenVerifier validates a bearer token against the auth service.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Principal, error)
	VerifyAdmin(ctx context.Context, token string) (*domain.Principal, error)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. A missing or malformed header yields the empty string, which the
// verifier rejects.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func principalContext(ctx context.Context, token string, principal *domain.Principal) context.Context {
	ctx = context.WithValue(ctx, contextkeys.BearerTokenKey, token)
	ctx = context.WithValue(ctx, contextkeys.PrincipalKey, principal)
	ctx = context.WithValue(ctx, contextkeys.UserIDKey, principal.UserID)
	ctx = context.WithValue(ctx, contextkeys.IsAdminKey, principal.IsAdmin)
	return ctx
}

// BearerAuthMiddleware guards a route with token verification. A missing,
// malformed, rejected, or unverifiable token is a 401; the gateway never
// guesses at identity when the auth service cannot vouch for it.
func BearerAuthMiddleware(verifier TokenVerifier, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			principal, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Debug(r.Context(), "Rejected request with invalid token", "path", r.URL.Path)
				errResp := domain.NewErrorResponse(domain.CodeInvalidToken, "Invalid or expired token", "")
				errResp.WriteJSON(w, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(principalContext(r.Context(), token, principal)))
		})
	}
}

// AdminAuthMiddleware guards a route with token verification plus an admin
// check. A valid token without the admin role is a 403, distinct from the
// 401 an invalid token produces.
func AdminAuthMiddleware(verifier TokenVerifier, logger domain.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			principal, err := verifier.VerifyAdmin(r.Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrNotAuthorized) {
					logger.Warn(r.Context(), "Rejected non-admin request to admin route", "path", r.URL.Path)
					errResp := domain.NewErrorResponse(domain.CodeNotAuthorized, "Admin privileges required", "")
					errResp.WriteJSON(w, http.StatusForbidden)
					return
				}
				logger.Debug(r.Context(), "Rejected request with invalid token", "path", r.URL.Path)
				errResp := domain.NewErrorResponse(domain.CodeInvalidToken, "Invalid or expired token", "")
				errResp.WriteJSON(w, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(principalContext(r.Context(), token, principal)))
		})
	}
}
