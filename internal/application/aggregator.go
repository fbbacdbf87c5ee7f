package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
	"gitlab.com/timkado/api/daisi-gateway-service/pkg/cachekeys"
)

// Aggregator orchestrates the gateway's fetch paths: cache-aside lookup,
// availability probe, authoritative primary fetch, concurrent identity
// enrichment, composition, and write-back with a content-aware TTL.
//
// Failure semantics are asymmetric on purpose: only the primary-entity fetch
// is fatal to an operation. Every enrichment lookup degrades to a placeholder
// and every cache failure is treated as a miss.
type Aggregator struct {
	logger      domain.Logger
	cfgProvider config.Provider
	client      domain.DownstreamClient
	prober      domain.HealthProber
	cache       domain.CacheStore
	resolver    domain.IdentityResolver
	events      domain.EventPublisher
}

// NewAggregator creates a new Aggregator.
func NewAggregator(
	logger domain.Logger,
	cfgProvider config.Provider,
	client domain.DownstreamClient,
	prober domain.HealthProber,
	cache domain.CacheStore,
	resolver domain.IdentityResolver,
	events domain.EventPublisher,
) *Aggregator {
	if logger == nil {
		panic("logger is nil in NewAggregator")
	}
	if cfgProvider == nil {
		panic("config provider is nil in NewAggregator")
	}
	if client == nil || prober == nil || cache == nil || resolver == nil {
		panic("downstream dependencies are nil in NewAggregator")
	}
	return &Aggregator{
		logger:      logger,
		cfgProvider: cfgProvider,
		client:      client,
		prober:      prober,
		cache:       cache,
		resolver:    resolver,
		events:      events,
	}
}

// GetPost returns the composed post payload: the post itself plus its
// comments and likes, every identity slot filled with a resolved profile or
// a placeholder.
func (a *Aggregator) GetPost(ctx context.Context, postID int64) ([]byte, error) {
	key := cachekeys.PostKey(postID)
	if payload, ok := a.cacheGet(ctx, key, "post"); ok {
		return payload, nil
	}

	body, err := a.fetchPrimary(ctx, domain.ServicePosts, fmt.Sprintf("/posts/%d", postID), nil)
	if err != nil {
		return nil, err
	}

	var post domain.Post
	if err := json.Unmarshal(body, &post); err != nil {
		return nil, fmt.Errorf("failed to unmarshal post %d: %w", postID, err)
	}

	resolved := a.resolver.ResolveMany(ctx, CollectPostIdentityIDs(post))
	composed := ComposePost(post, resolved)

	payload, err := json.Marshal(composed)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal composed post %d: %w", postID, err)
	}

	a.cacheSet(ctx, key, payload, a.postTTL(composed))
	return payload, nil
}

// ListPosts returns one composed page of posts. Pagination parameters are
// part of the cache key; a page beyond the last available page is a NotFound,
// not an empty page.
func (a *Aggregator) ListPosts(ctx context.Context, topicID int64, page, pageSize int) ([]byte, error) {
	params := url.Values{}
	if topicID != 0 {
		params.Set("topic_id", strconv.FormatInt(topicID, 10))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))

	key := cachekeys.ListKey("posts", params)
	if payload, ok := a.cacheGet(ctx, key, "posts_list"); ok {
		return payload, nil
	}

	body, err := a.fetchPrimary(ctx, domain.ServicePosts, "/posts", params)
	if err != nil {
		return nil, err
	}

	var listing domain.Paginated[domain.Post]
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal post listing: %w", err)
	}
	if beyondLastPage(page, listing.Pages) {
		return nil, domain.ErrNotFound
	}

	ids := make([]int64, 0, len(listing.Items))
	for _, post := range listing.Items {
		ids = append(ids, CollectPostIdentityIDs(post)...)
	}
	resolved := a.resolver.ResolveMany(ctx, ids)

	busy := false
	items := make([]domain.Post, len(listing.Items))
	for i, post := range listing.Items {
		items[i] = ComposePost(post, resolved)
		if len(items[i].Comments) > 0 {
			busy = true
		}
	}
	listing.Items = items

	payload, err := json.Marshal(listing)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal composed post listing: %w", err)
	}

	ttl := a.defaultTTL()
	if busy {
		ttl = a.busyTTL()
	}
	a.cacheSet(ctx, key, payload, ttl)
	return payload, nil
}

// GetTopic returns the composed topic payload.
func (a *Aggregator) GetTopic(ctx context.Context, topicID int64) ([]byte, error) {
	key := cachekeys.TopicKey(topicID)
	if payload, ok := a.cacheGet(ctx, key, "topic"); ok {
		return payload, nil
	}

	body, err := a.fetchPrimary(ctx, domain.ServiceForum, fmt.Sprintf("/topics/%d", topicID), nil)
	if err != nil {
		return nil, err
	}

	var topic domain.Topic
	if err := json.Unmarshal(body, &topic); err != nil {
		return nil, fmt.Errorf("failed to unmarshal topic %d: %w", topicID, err)
	}

	resolved := a.resolver.ResolveMany(ctx, CollectTopicIdentityIDs(topic))
	composed := ComposeTopic(topic, resolved)

	payload, err := json.Marshal(composed)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal composed topic %d: %w", topicID, err)
	}

	a.cacheSet(ctx, key, payload, a.defaultTTL())
	return payload, nil
}

// ListTopics returns one composed page of topics, optionally filtered by
// category.
func (a *Aggregator) ListTopics(ctx context.Context, categoryID int64, page, pageSize int) ([]byte, error) {
	params := url.Values{}
	if categoryID != 0 {
		params.Set("category_id", strconv.FormatInt(categoryID, 10))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))

	key := cachekeys.ListKey("topics", params)
	if payload, ok := a.cacheGet(ctx, key, "topics_list"); ok {
		return payload, nil
	}

	body, err := a.fetchPrimary(ctx, domain.ServiceForum, "/topics", params)
	if err != nil {
		return nil, err
	}

	var listing domain.Paginated[domain.Topic]
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal topic listing: %w", err)
	}
	if beyondLastPage(page, listing.Pages) {
		return nil, domain.ErrNotFound
	}

	ids := make([]int64, 0, len(listing.Items)*2)
	for _, topic := range listing.Items {
		ids = append(ids, CollectTopicIdentityIDs(topic)...)
	}
	resolved := a.resolver.ResolveMany(ctx, ids)

	items := make([]domain.Topic, len(listing.Items))
	for i, topic := range listing.Items {
		items[i] = ComposeTopic(topic, resolved)
	}
	listing.Items = items

	payload, err := json.Marshal(listing)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal composed topic listing: %w", err)
	}

	a.cacheSet(ctx, key, payload, a.defaultTTL())
	return payload, nil
}

// GetGallery returns the composed gallery payload with its comments.
func (a *Aggregator) GetGallery(ctx context.Context, galleryID int64) ([]byte, error) {
	key := cachekeys.GalleryKey(galleryID)
	if payload, ok := a.cacheGet(ctx, key, "gallery"); ok {
		return payload, nil
	}

	body, err := a.fetchPrimary(ctx, domain.ServiceGallery, fmt.Sprintf("/galleries/%d", galleryID), nil)
	if err != nil {
		return nil, err
	}

	var gallery domain.Gallery
	if err := json.Unmarshal(body, &gallery); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gallery %d: %w", galleryID, err)
	}

	resolved := a.resolver.ResolveMany(ctx, CollectGalleryIdentityIDs(gallery))
	composed := ComposeGallery(gallery, resolved)

	payload, err := json.Marshal(composed)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal composed gallery %d: %w", galleryID, err)
	}

	// Galleries are post-shaped: a non-empty comment collection churns fast.
	ttl := a.defaultTTL()
	if len(composed.Comments) > 0 {
		ttl = a.busyTTL()
	}
	a.cacheSet(ctx, key, payload, ttl)
	return payload, nil
}

// ListGalleries returns one composed page of galleries.
func (a *Aggregator) ListGalleries(ctx context.Context, page, pageSize int) ([]byte, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))

	key := cachekeys.ListKey("galleries", params)
	if payload, ok := a.cacheGet(ctx, key, "galleries_list"); ok {
		return payload, nil
	}

	body, err := a.fetchPrimary(ctx, domain.ServiceGallery, "/galleries", params)
	if err != nil {
		return nil, err
	}

	var listing domain.Paginated[domain.Gallery]
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gallery listing: %w", err)
	}
	if beyondLastPage(page, listing.Pages) {
		return nil, domain.ErrNotFound
	}

	ids := make([]int64, 0, len(listing.Items))
	for _, gallery := range listing.Items {
		ids = append(ids, CollectGalleryIdentityIDs(gallery)...)
	}
	resolved := a.resolver.ResolveMany(ctx, ids)

	items := make([]domain.Gallery, len(listing.Items))
	for i, gallery := range listing.Items {
		items[i] = ComposeGallery(gallery, resolved)
	}
	listing.Items = items

	payload, err := json.Marshal(listing)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal composed gallery listing: %w", err)
	}

	a.cacheSet(ctx, key, payload, a.defaultTTL())
	return payload, nil
}

// GetProfile returns a displayable identity. Unlike enrichment lookups this
// is primary data: a missing profile is a NotFound, not a placeholder.
func (a *Aggregator) GetProfile(ctx context.Context, userID int64) ([]byte, error) {
	key := cachekeys.ProfileKey(userID)
	if payload, ok := a.cacheGet(ctx, key, "profile"); ok {
		return payload, nil
	}

	if err := a.prober.Probe(ctx, domain.ServiceProfile); err != nil {
		return nil, err
	}
	identity, err := a.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile %d: %w", userID, err)
	}

	a.cacheSet(ctx, key, payload, a.defaultTTL())
	return payload, nil
}

// ForwardAuth forwards a registration or login payload to the auth service
// after probing it. The response is passed through verbatim.
func (a *Aggregator) ForwardAuth(ctx context.Context, path string, payload json.RawMessage) (*domain.DownstreamResponse, error) {
	if err := a.prober.Probe(ctx, domain.ServiceAuth); err != nil {
		return nil, err
	}
	return a.client.Post(ctx, domain.ServiceAuth, path, payload)
}

// fetchPrimary probes the owning service and issues the authoritative fetch.
// Probe failures short-circuit before the real call; non-200 statuses are
// classified once, here.
func (a *Aggregator) fetchPrimary(ctx context.Context, service domain.ServiceName, path string, query url.Values) ([]byte, error) {
	if err := a.prober.Probe(ctx, service); err != nil {
		return nil, err
	}
	resp, err := a.client.Get(ctx, service, path, query)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, domain.NewUpstreamError(service, resp.StatusCode)
	}
	return resp.Body, nil
}

// cacheGet performs the read side of cache-aside. Any error is a miss.
func (a *Aggregator) cacheGet(ctx context.Context, key, resource string) ([]byte, bool) {
	payload, err := a.cache.Get(ctx, key)
	if err == nil && len(payload) > 0 {
		metrics.IncrementCacheHit(resource)
		a.logger.Debug(ctx, "Serving composed resource from cache", "key", key, "resource", resource)
		return payload, true
	}
	metrics.IncrementCacheMiss(resource)
	return nil, false
}

// cacheSet performs the write-back side of cache-aside, best-effort.
func (a *Aggregator) cacheSet(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if err := a.cache.Set(ctx, key, payload, ttl); err != nil {
		a.logger.Warn(ctx, "Cache write-back failed", "key", key, "error", err.Error())
	}
}

// postTTL applies the content-aware TTL policy: a post whose composed payload
// carries comments churns faster than one without, so it is cached for the
// short TTL.
func (a *Aggregator) postTTL(post domain.Post) time.Duration {
	if len(post.Comments) > 0 {
		return a.busyTTL()
	}
	return a.defaultTTL()
}

func (a *Aggregator) defaultTTL() time.Duration {
	seconds := a.cfgProvider.Get().Cache.DefaultTTLSeconds
	if seconds <= 0 {
		seconds = 300
	}
	return time.Duration(seconds) * time.Second
}

func (a *Aggregator) busyTTL() time.Duration {
	seconds := a.cfgProvider.Get().Cache.BusyTTLSeconds
	if seconds <= 0 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}

// beyondLastPage reports whether the requested page lies past the collection.
// Page 1 of an empty collection is a valid empty page; page 2 of it is not.
func beyondLastPage(page, pages int) bool {
	return page > 1 && page > pages
}
