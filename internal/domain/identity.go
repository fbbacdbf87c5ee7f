package domain

import "time"

// Principal is the outcome of delegating a bearer credential to the auth
// service. It lives for the duration of one inbound request and is never
// persisted or cached.
type Principal struct {
	UserID  int64 `json:"user_id"`
	IsAdmin bool  `json:"is_admin"`
}

// PlaceholderUsername is the sentinel display name substituted when a profile
// lookup fails or times out, so composition can still succeed.
const PlaceholderUsername = "unknown"

// Identity is the displayable identity embedded into composed resources.
// It is either a resolved profile from the profile service or a placeholder
// carrying only the original user ID and the sentinel display name.
type Identity struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	FullName     string     `json:"full_name,omitempty"`
	Avatar       string     `json:"avatar,omitempty"`
	RegisteredAt *time.Time `json:"registration_date,omitempty"`
	PostsCount   int        `json:"posts_count"`
	Role         string     `json:"role,omitempty"`

	// Placeholder is true when the profile lookup failed and this identity is
	// a stand-in rather than resolved data.
	Placeholder bool `json:"placeholder,omitempty"`
}

// NewPlaceholderIdentity builds the stand-in identity for a user whose profile
// could not be resolved. The original ID is preserved.
func NewPlaceholderIdentity(userID int64) *Identity {
	return &Identity{
		ID:          userID,
		Username:    PlaceholderUsername,
		Placeholder: true,
	}
}
