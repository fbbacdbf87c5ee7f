package contextkeys

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for storing and retrieving a request ID.
	RequestIDKey contextKey = "request_id"

	// UserIDKey is the context key for storing and retrieving the verified user ID.
	UserIDKey contextKey = "user_id"

	// IsAdminKey is the context key for storing and retrieving the admin flag of the verified principal.
	IsAdminKey contextKey = "is_admin"

	// PrincipalKey is the context key for storing the entire verified Principal struct.
	PrincipalKey contextKey = "principal"

	// BearerTokenKey is the context key for the raw bearer credential, kept for
	// handlers that re-delegate verification (e.g. admin-only routes).
	BearerTokenKey contextKey = "bearer_token"
)

// String makes contextKey satisfy fmt.Stringer to help with debugging/logging of keys themselves.
func (c contextKey) String() string {
	return string(c)
}
