package domain

import "time"

// Comment is a sub-resource embedded in posts and galleries. AuthorID is the
// authoritative reference; Author is the enrichment slot filled by the
// composer with a resolved profile or a placeholder.
type Comment struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	Author *Identity `json:"author,omitempty"`
}

// Like is a reaction sub-resource. Author is the enrichment slot.
type Like struct {
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Author *Identity `json:"author,omitempty"`
}

// Post is the primary entity of the post-shaped aggregate: the post itself
// plus its comments and likes as returned by the owning service, with
// enrichment slots for every embedded identity. A post that quotes another
// post carries the quoted excerpt and the quoted author reference inline;
// QuotedAuthor is an enrichment slot like any other.
type Post struct {
	ID             int64     `json:"id"`
	TopicID        int64     `json:"topic_id,omitempty"`
	AuthorID       int64     `json:"author_id"`
	Title          string    `json:"title,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	LikesCount     int       `json:"likes_count"`
	DislikesCount  int       `json:"dislikes_count"`
	IsEdited       bool      `json:"is_edited,omitempty"`
	QuotedPostID   int64     `json:"quoted_post_id,omitempty"`
	QuotedAuthorID int64     `json:"quoted_author_id,omitempty"`
	QuotedContent  string    `json:"quoted_content,omitempty"`

	Author       *Identity `json:"author,omitempty"`
	QuotedAuthor *Identity `json:"quoted_author,omitempty"`
	Comments     []Comment `json:"comments"`
	Likes        []Like    `json:"likes"`
}

// Topic is a forum topic. The last-post author is its only enrichment slot.
type Topic struct {
	ID               int64     `json:"id"`
	CategoryID       int64     `json:"category_id"`
	AuthorID         int64     `json:"author_id"`
	Title            string    `json:"title"`
	PostsCount       int       `json:"posts_count"`
	IsClosed         bool      `json:"is_closed"`
	CreatedAt        time.Time `json:"created_at"`
	LastPostAuthorID int64     `json:"last_post_author_id,omitempty"`
	LastPostDate     *time.Time `json:"last_post_date,omitempty"`

	Author         *Identity `json:"author,omitempty"`
	LastPostAuthor *Identity `json:"last_post_author,omitempty"`
}

// Gallery is an image gallery with embedded comments.
type Gallery struct {
	ID          int64     `json:"id"`
	AuthorID    int64     `json:"author_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CoverURL    string    `json:"cover_url,omitempty"`
	ImagesCount int       `json:"images_count"`
	CreatedAt   time.Time `json:"created_at"`

	Author   *Identity `json:"author,omitempty"`
	Comments []Comment `json:"comments"`
}

// Paginated is the wire shape of every paginated collection, both as consumed
// from the listing services and as returned by the gateway.
type Paginated[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Pages    int `json:"pages"`
}
