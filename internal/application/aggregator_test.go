package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
	"gitlab.com/timkado/api/daisi-gateway-service/pkg/cachekeys"
)

const postWithCommentsBody = `{
	"id": 42,
	"author_id": 7,
	"content": "hello",
	"created_at": "2024-01-15T10:00:00Z",
	"updated_at": "2024-01-15T10:00:00Z",
	"comments": [
		{"id": 100, "author_id": 7, "content": "first", "created_at": "2024-01-15T11:00:00Z"},
		{"id": 101, "author_id": 9, "content": "second", "created_at": "2024-01-15T12:00:00Z"}
	],
	"likes": []
}`

const quotedPostBody = `{
	"id": 44,
	"author_id": 7,
	"content": "replying",
	"created_at": "2024-01-15T10:00:00Z",
	"updated_at": "2024-01-15T10:00:00Z",
	"quoted_post_id": 41,
	"quoted_author_id": 9,
	"quoted_content": "original remark",
	"comments": [],
	"likes": []
}`

const barePostBody = `{
	"id": 43,
	"author_id": 7,
	"content": "quiet",
	"created_at": "2024-01-15T10:00:00Z",
	"updated_at": "2024-01-15T10:00:00Z",
	"comments": [],
	"likes": []
}`

func TestGetPost_SecondReadServedFromCache(t *testing.T) {
	fx := newAggregatorFixture(map[int64]*domain.Identity{
		7: identityFor(7, "alice"),
		9: identityFor(9, "bob"),
	})
	fx.client.respond("GET", "/posts/42", 200, postWithCommentsBody)

	first, err := fx.aggregator.GetPost(context.Background(), 42)
	require.NoError(t, err)
	second, err := fx.aggregator.GetPost(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, first, second, "cached read must be byte-identical")
	assert.Equal(t, 1, fx.client.callCount("GET", "/posts/42"), "second read must not hit the posts service")
}

func TestGetPost_UnresolvedAuthorsBecomePlaceholders(t *testing.T) {
	// Only comment author 9 resolves; the post author and the first comment
	// author fall back to placeholders while the request still succeeds.
	fx := newAggregatorFixture(map[int64]*domain.Identity{
		9: identityFor(9, "bob"),
	})
	fx.client.respond("GET", "/posts/42", 200, postWithCommentsBody)

	payload, err := fx.aggregator.GetPost(context.Background(), 42)
	require.NoError(t, err)

	var post domain.Post
	require.NoError(t, json.Unmarshal(payload, &post))
	require.NotNil(t, post.Author)
	assert.True(t, post.Author.Placeholder)
	assert.Equal(t, domain.PlaceholderUsername, post.Author.Username)
	assert.Equal(t, int64(7), post.Author.ID)
	assert.True(t, post.Comments[0].Author.Placeholder)
	assert.Equal(t, "bob", post.Comments[1].Author.Username)
}

func TestGetPost_QuotedAuthorIsEnriched(t *testing.T) {
	fx := newAggregatorFixture(map[int64]*domain.Identity{
		7: identityFor(7, "alice"),
		9: identityFor(9, "bob"),
	})
	fx.client.respond("GET", "/posts/44", 200, quotedPostBody)

	payload, err := fx.aggregator.GetPost(context.Background(), 44)
	require.NoError(t, err)

	var post domain.Post
	require.NoError(t, json.Unmarshal(payload, &post))
	require.NotNil(t, post.QuotedAuthor)
	assert.Equal(t, "bob", post.QuotedAuthor.Username)
	assert.Equal(t, "original remark", post.QuotedContent)
	assert.Equal(t, int64(41), post.QuotedPostID)
}

func TestGetPost_UnresolvedQuotedAuthorBecomesPlaceholder(t *testing.T) {
	fx := newAggregatorFixture(map[int64]*domain.Identity{
		7: identityFor(7, "alice"),
	})
	fx.client.respond("GET", "/posts/44", 200, quotedPostBody)

	payload, err := fx.aggregator.GetPost(context.Background(), 44)
	require.NoError(t, err)

	var post domain.Post
	require.NoError(t, json.Unmarshal(payload, &post))
	require.NotNil(t, post.QuotedAuthor)
	assert.True(t, post.QuotedAuthor.Placeholder)
	assert.Equal(t, int64(9), post.QuotedAuthor.ID)
}

func TestGetPost_ProfileServiceDownStillSucceeds(t *testing.T) {
	fx := newAggregatorFixture(nil)
	fx.resolver.downFlag = true
	fx.client.respond("GET", "/posts/42", 200, postWithCommentsBody)

	payload, err := fx.aggregator.GetPost(context.Background(), 42)
	require.NoError(t, err)

	var post domain.Post
	require.NoError(t, json.Unmarshal(payload, &post))
	assert.True(t, post.Author.Placeholder)
	for _, comment := range post.Comments {
		assert.True(t, comment.Author.Placeholder)
	}
}

func TestGetPost_ProbeFailureShortCircuits(t *testing.T) {
	fx := newAggregatorFixture(nil)
	fx.prober.down[domain.ServicePosts] = true
	fx.client.respond("GET", "/posts/42", 200, postWithCommentsBody)

	_, err := fx.aggregator.GetPost(context.Background(), 42)

	require.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Equal(t, 0, fx.client.callCount("GET", "/posts/42"), "probe failure must prevent the primary fetch")
}

func TestGetPost_MissingPostIsNotFound(t *testing.T) {
	fx := newAggregatorFixture(nil)
	fx.client.respond("GET", "/posts/42", 404, `{"detail": "not found"}`)

	_, err := fx.aggregator.GetPost(context.Background(), 42)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetPost_UpstreamStatusPreserved(t *testing.T) {
	fx := newAggregatorFixture(nil)
	fx.client.respond("GET", "/posts/42", 502, `{"detail": "bad gateway"}`)

	_, err := fx.aggregator.GetPost(context.Background(), 42)

	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, 502, upstream.StatusCode)
	assert.Equal(t, domain.ServicePosts, upstream.Service)
}

func TestGetPost_TTLDependsOnComments(t *testing.T) {
	fx := newAggregatorFixture(nil)
	fx.client.respond("GET", "/posts/42", 200, postWithCommentsBody)
	fx.client.respond("GET", "/posts/43", 200, barePostBody)

	_, err := fx.aggregator.GetPost(context.Background(), 42)
	require.NoError(t, err)
	_, err = fx.aggregator.GetPost(context.Background(), 43)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, fx.cache.ttlOf(cachekeys.PostKey(42)), "post with comments gets the short TTL")
	assert.Equal(t, 300*time.Second, fx.cache.ttlOf(cachekeys.PostKey(43)), "post without comments gets the default TTL")
}

func TestListPosts_PageBeyondRangeIsNotFound(t *testing.T) {
	fx := newAggregatorFixture(nil)
	fx.client.respond("GET", "/posts", 200, `{"items": [], "total": 40, "page": 9, "page_size": 20, "pages": 2}`)

	_, err := fx.aggregator.ListPosts(context.Background(), 0, 9, 20)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListPosts_FirstPageOfEmptyCollectionIsValid(t *testing.T) {
	fx := newAggregatorFixture(nil)
	fx.client.respond("GET", "/posts", 200, `{"items": [], "total": 0, "page": 1, "page_size": 20, "pages": 0}`)

	payload, err := fx.aggregator.ListPosts(context.Background(), 0, 1, 20)

	require.NoError(t, err)
	var listing domain.Paginated[domain.Post]
	require.NoError(t, json.Unmarshal(payload, &listing))
	assert.Empty(t, listing.Items)
	assert.Equal(t, 0, listing.Total)
}

func TestListPosts_ComposesEveryItem(t *testing.T) {
	fx := newAggregatorFixture(map[int64]*domain.Identity{7: identityFor(7, "alice")})
	fx.client.respond("GET", "/posts", 200, `{
		"items": [
			{"id": 1, "author_id": 7, "content": "a", "created_at": "2024-01-15T10:00:00Z", "updated_at": "2024-01-15T10:00:00Z", "comments": [], "likes": []},
			{"id": 2, "author_id": 8, "content": "b", "created_at": "2024-01-15T10:00:00Z", "updated_at": "2024-01-15T10:00:00Z", "comments": [], "likes": []}
		],
		"total": 2, "page": 1, "page_size": 20, "pages": 1
	}`)

	payload, err := fx.aggregator.ListPosts(context.Background(), 0, 1, 20)
	require.NoError(t, err)

	var listing domain.Paginated[domain.Post]
	require.NoError(t, json.Unmarshal(payload, &listing))
	require.Len(t, listing.Items, 2)
	assert.Equal(t, "alice", listing.Items[0].Author.Username)
	assert.True(t, listing.Items[1].Author.Placeholder)
}

func TestGetTopic_ComposesAuthorAndLastPostAuthor(t *testing.T) {
	fx := newAggregatorFixture(map[int64]*domain.Identity{
		3: identityFor(3, "starter"),
		4: identityFor(4, "replier"),
	})
	fx.client.respond("GET", "/topics/5", 200, `{
		"id": 5, "category_id": 1, "author_id": 3, "title": "t",
		"posts_count": 8, "is_closed": false, "created_at": "2024-01-15T10:00:00Z",
		"last_post_author_id": 4
	}`)

	payload, err := fx.aggregator.GetTopic(context.Background(), 5)
	require.NoError(t, err)

	var topic domain.Topic
	require.NoError(t, json.Unmarshal(payload, &topic))
	assert.Equal(t, "starter", topic.Author.Username)
	assert.Equal(t, "replier", topic.LastPostAuthor.Username)
}

func TestGetGallery_CommentsShortenTTL(t *testing.T) {
	fx := newAggregatorFixture(nil)
	fx.client.respond("GET", "/galleries/6", 200, `{
		"id": 6, "author_id": 2, "title": "g", "images_count": 3,
		"created_at": "2024-01-15T10:00:00Z",
		"comments": [{"id": 1, "author_id": 3, "content": "nice", "created_at": "2024-01-15T11:00:00Z"}]
	}`)

	_, err := fx.aggregator.GetGallery(context.Background(), 6)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, fx.cache.ttlOf(cachekeys.GalleryKey(6)))
}

func TestGetProfile_MissingProfileIsNotFound(t *testing.T) {
	fx := newAggregatorFixture(map[int64]*domain.Identity{7: identityFor(7, "alice")})

	_, err := fx.aggregator.GetProfile(context.Background(), 99)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetProfile_CachesResolvedProfile(t *testing.T) {
	fx := newAggregatorFixture(map[int64]*domain.Identity{7: identityFor(7, "alice")})

	first, err := fx.aggregator.GetProfile(context.Background(), 7)
	require.NoError(t, err)
	second, err := fx.aggregator.GetProfile(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestUpdatePost_InvalidatesCacheBeforeReturning(t *testing.T) {
	fx := newAggregatorFixture(map[int64]*domain.Identity{
		7: identityFor(7, "alice"),
		9: identityFor(9, "bob"),
	})
	fx.client.respond("GET", "/posts/42", 200, postWithCommentsBody)
	fx.client.respond("PATCH", "/posts/42", 200, `{"id": 42}`)

	_, err := fx.aggregator.GetPost(context.Background(), 42)
	require.NoError(t, err)

	resp, err := fx.aggregator.UpdatePost(context.Background(), &domain.Principal{UserID: 7}, 42, json.RawMessage(`{"content": "edited"}`))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	// The stale composed payload must be gone: the next read refetches.
	_, err = fx.aggregator.GetPost(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 2, fx.client.callCount("GET", "/posts/42"))
}

func TestUpdatePost_FailureStatusSkipsInvalidation(t *testing.T) {
	fx := newAggregatorFixture(map[int64]*domain.Identity{7: identityFor(7, "alice"), 9: identityFor(9, "bob")})
	fx.client.respond("GET", "/posts/42", 200, postWithCommentsBody)
	fx.client.respond("PATCH", "/posts/42", 403, `{"detail": "not your post"}`)

	_, err := fx.aggregator.GetPost(context.Background(), 42)
	require.NoError(t, err)

	resp, err := fx.aggregator.UpdatePost(context.Background(), &domain.Principal{UserID: 8}, 42, json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode, "downstream status is relayed verbatim")

	_, err = fx.aggregator.GetPost(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.client.callCount("GET", "/posts/42"), "rejected mutation must not drop the cache entry")
	assert.Empty(t, fx.events.published())
}

func TestDeletePost_PublishesEvent(t *testing.T) {
	fx := newAggregatorFixture(nil)
	fx.client.respond("DELETE", "/posts/42", 204, "")

	resp, err := fx.aggregator.DeletePost(context.Background(), &domain.Principal{UserID: 7}, 42)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	events := fx.events.published()
	require.Len(t, events, 1)
	assert.Equal(t, "deleted", events[0].Kind)
	assert.Equal(t, "post", events[0].Resource)
	assert.Equal(t, int64(42), events[0].ResourceID)
	assert.Equal(t, int64(7), events[0].ActorID)
}

func TestLikePost_ProbeFailureAbortsBeforeForwarding(t *testing.T) {
	fx := newAggregatorFixture(nil)
	fx.prober.down[domain.ServicePosts] = true

	_, err := fx.aggregator.LikePost(context.Background(), &domain.Principal{UserID: 7}, 42)

	require.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Equal(t, 0, fx.client.callCount("POST", "/posts/42/like"))
}

func TestDeleteTopic_InvalidatesTopicKey(t *testing.T) {
	fx := newAggregatorFixture(map[int64]*domain.Identity{3: identityFor(3, "starter")})
	fx.client.respond("GET", "/topics/5", 200, `{
		"id": 5, "category_id": 1, "author_id": 3, "title": "t",
		"posts_count": 0, "is_closed": false, "created_at": "2024-01-15T10:00:00Z"
	}`)
	fx.client.respond("DELETE", "/topics/5", 204, "")

	_, err := fx.aggregator.GetTopic(context.Background(), 5)
	require.NoError(t, err)

	_, err = fx.aggregator.DeleteTopic(context.Background(), &domain.Principal{UserID: 1, IsAdmin: true}, 5)
	require.NoError(t, err)

	_, err = fx.cache.Get(context.Background(), cachekeys.TopicKey(5))
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	assert.Equal(t, domain.InvalidationTTL, fx.cache.ttlOf(cachekeys.TopicKey(5)))
}

func TestCreateGalleryComment_InvalidatesGallery(t *testing.T) {
	fx := newAggregatorFixture(nil)
	fx.client.respond("GET", "/galleries/6", 200, `{
		"id": 6, "author_id": 2, "title": "g", "images_count": 0,
		"created_at": "2024-01-15T10:00:00Z", "comments": []
	}`)
	fx.client.respond("POST", "/galleries/6/comments", 201, `{"id": 900}`)

	_, err := fx.aggregator.GetGallery(context.Background(), 6)
	require.NoError(t, err)

	resp, err := fx.aggregator.CreateGalleryComment(context.Background(), &domain.Principal{UserID: 3}, 6, json.RawMessage(`{"content": "nice"}`))
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	_, err = fx.cache.Get(context.Background(), cachekeys.GalleryKey(6))
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestForwardAuth_RelaysStatusAndBody(t *testing.T) {
	fx := newAggregatorFixture(nil)
	fx.client.respond("POST", "/auth/login", 401, `{"detail": "bad credentials"}`)

	resp, err := fx.aggregator.ForwardAuth(context.Background(), "/auth/login", json.RawMessage(`{"username": "x"}`))

	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
	assert.JSONEq(t, `{"detail": "bad credentials"}`, string(resp.Body))
}

func TestForwardAuth_AuthServiceDown(t *testing.T) {
	fx := newAggregatorFixture(nil)
	fx.prober.down[domain.ServiceAuth] = true

	_, err := fx.aggregator.ForwardAuth(context.Background(), "/auth/login", nil)

	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
}
