package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
	"gitlab.com/timkado/api/daisi-gateway-service/pkg/cachekeys"
)

// Mutations forward through the gateway untouched: the owning service is
// probed, the body is relayed, and the downstream status and body come back
// verbatim. On success the resource's cache entry is invalidated before the
// response is returned, and an event is published best-effort.

// CreatePost forwards a post creation to the posts service.
func (a *Aggregator) CreatePost(ctx context.Context, actor *domain.Principal, payload json.RawMessage) (*domain.DownstreamResponse, error) {
	if err := a.prober.Probe(ctx, domain.ServicePosts); err != nil {
		return nil, err
	}
	resp, err := a.client.Post(ctx, domain.ServicePosts, "/posts", payload)
	if err != nil {
		return nil, err
	}
	if isSuccess(resp.StatusCode) {
		var created domain.Post
		if err := json.Unmarshal(resp.Body, &created); err == nil && created.ID != 0 {
			a.invalidate(ctx, cachekeys.PostKey(created.ID))
			a.publishEvent(ctx, "created", "post", created.ID, actor)
		}
	}
	return resp, nil
}

// UpdatePost forwards a post edit and invalidates the post's cache entry so
// the next read reflects the change.
func (a *Aggregator) UpdatePost(ctx context.Context, actor *domain.Principal, postID int64, payload json.RawMessage) (*domain.DownstreamResponse, error) {
	if err := a.prober.Probe(ctx, domain.ServicePosts); err != nil {
		return nil, err
	}
	resp, err := a.client.Patch(ctx, domain.ServicePosts, fmt.Sprintf("/posts/%d", postID), payload)
	if err != nil {
		return nil, err
	}
	if isSuccess(resp.StatusCode) {
		a.invalidate(ctx, cachekeys.PostKey(postID))
		a.publishEvent(ctx, "updated", "post", postID, actor)
	}
	return resp, nil
}

// DeletePost forwards a post deletion.
func (a *Aggregator) DeletePost(ctx context.Context, actor *domain.Principal, postID int64) (*domain.DownstreamResponse, error) {
	if err := a.prober.Probe(ctx, domain.ServicePosts); err != nil {
		return nil, err
	}
	resp, err := a.client.Delete(ctx, domain.ServicePosts, fmt.Sprintf("/posts/%d", postID))
	if err != nil {
		return nil, err
	}
	if isSuccess(resp.StatusCode) {
		a.invalidate(ctx, cachekeys.PostKey(postID))
		a.publishEvent(ctx, "deleted", "post", postID, actor)
	}
	return resp, nil
}

// CreatePostComment forwards a comment on a post and invalidates the post so
// the comment shows up on the next read.
func (a *Aggregator) CreatePostComment(ctx context.Context, actor *domain.Principal, postID int64, payload json.RawMessage) (*domain.DownstreamResponse, error) {
	if err := a.prober.Probe(ctx, domain.ServicePosts); err != nil {
		return nil, err
	}
	resp, err := a.client.Post(ctx, domain.ServicePosts, fmt.Sprintf("/posts/%d/comments", postID), payload)
	if err != nil {
		return nil, err
	}
	if isSuccess(resp.StatusCode) {
		a.invalidate(ctx, cachekeys.PostKey(postID))
		a.publishEvent(ctx, "commented", "post", postID, actor)
	}
	return resp, nil
}

// LikePost forwards a like reaction.
func (a *Aggregator) LikePost(ctx context.Context, actor *domain.Principal, postID int64) (*domain.DownstreamResponse, error) {
	return a.react(ctx, actor, postID, "like", "liked")
}

// DislikePost forwards a dislike reaction.
func (a *Aggregator) DislikePost(ctx context.Context, actor *domain.Principal, postID int64) (*domain.DownstreamResponse, error) {
	return a.react(ctx, actor, postID, "dislike", "disliked")
}

// RemoveReaction forwards removal of the caller's reaction on a post.
func (a *Aggregator) RemoveReaction(ctx context.Context, actor *domain.Principal, postID int64) (*domain.DownstreamResponse, error) {
	if err := a.prober.Probe(ctx, domain.ServicePosts); err != nil {
		return nil, err
	}
	resp, err := a.client.Delete(ctx, domain.ServicePosts, fmt.Sprintf("/posts/%d/reaction", postID))
	if err != nil {
		return nil, err
	}
	if isSuccess(resp.StatusCode) {
		a.invalidate(ctx, cachekeys.PostKey(postID))
		a.publishEvent(ctx, "reaction_removed", "post", postID, actor)
	}
	return resp, nil
}

func (a *Aggregator) react(ctx context.Context, actor *domain.Principal, postID int64, reaction, eventKind string) (*domain.DownstreamResponse, error) {
	if err := a.prober.Probe(ctx, domain.ServicePosts); err != nil {
		return nil, err
	}
	resp, err := a.client.Post(ctx, domain.ServicePosts, fmt.Sprintf("/posts/%d/%s", postID, reaction), nil)
	if err != nil {
		return nil, err
	}
	if isSuccess(resp.StatusCode) {
		a.invalidate(ctx, cachekeys.PostKey(postID))
		a.publishEvent(ctx, eventKind, "post", postID, actor)
	}
	return resp, nil
}

// DeleteTopic forwards a topic deletion. Authorization is the caller's
// concern; this path only relays and invalidates.
func (a *Aggregator) DeleteTopic(ctx context.Context, actor *domain.Principal, topicID int64) (*domain.DownstreamResponse, error) {
	if err := a.prober.Probe(ctx, domain.ServiceForum); err != nil {
		return nil, err
	}
	resp, err := a.client.Delete(ctx, domain.ServiceForum, fmt.Sprintf("/topics/%d", topicID))
	if err != nil {
		return nil, err
	}
	if isSuccess(resp.StatusCode) {
		a.invalidate(ctx, cachekeys.TopicKey(topicID))
		a.publishEvent(ctx, "deleted", "topic", topicID, actor)
	}
	return resp, nil
}

// CreateGalleryComment forwards a comment on a gallery and invalidates the
// gallery's cache entry.
func (a *Aggregator) CreateGalleryComment(ctx context.Context, actor *domain.Principal, galleryID int64, payload json.RawMessage) (*domain.DownstreamResponse, error) {
	if err := a.prober.Probe(ctx, domain.ServiceGallery); err != nil {
		return nil, err
	}
	resp, err := a.client.Post(ctx, domain.ServiceGallery, fmt.Sprintf("/galleries/%d/comments", galleryID), payload)
	if err != nil {
		return nil, err
	}
	if isSuccess(resp.StatusCode) {
		a.invalidate(ctx, cachekeys.GalleryKey(galleryID))
		a.publishEvent(ctx, "commented", "gallery", galleryID, actor)
	}
	return resp, nil
}

// invalidate drops a cache entry synchronously so the mutation's caller is
// guaranteed a fresh read. A cache failure is logged, not propagated; the
// mutation itself already succeeded downstream.
func (a *Aggregator) invalidate(ctx context.Context, key string) {
	if err := a.cache.Invalidate(ctx, key); err != nil {
		a.logger.Warn(ctx, "Cache invalidation failed", "key", key, "error", err.Error())
	}
}

// publishEvent emits a resource event best-effort.
func (a *Aggregator) publishEvent(ctx context.Context, kind, resource string, resourceID int64, actor *domain.Principal) {
	if a.events == nil {
		return
	}
	event := domain.ResourceEvent{
		Kind:       kind,
		Resource:   resource,
		ResourceID: resourceID,
		OccurredAt: time.Now().UTC(),
	}
	if actor != nil {
		event.ActorID = actor.UserID
	}
	if err := a.events.Publish(ctx, event); err != nil {
		a.logger.Warn(ctx, "Failed to publish resource event",
			"kind", kind, "resource", resource, "resource_id", resourceID, "error", err.Error())
	}
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
