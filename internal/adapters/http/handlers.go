package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/config"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/application"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
)

const maxRequestBodyBytes = 1 << 20

// Handlers bundles the gateway's HTTP endpoints around the aggregator.
type Handlers struct {
	logger      domain.Logger
	cfgProvider config.Provider
	aggregator  *application.Aggregator
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(logger domain.Logger, cfgProvider config.Provider, aggregator *application.Aggregator) *Handlers {
	if logger == nil {
		panic("logger is nil in NewHandlers")
	}
	if cfgProvider == nil {
		panic("config provider is nil in NewHandlers")
	}
	if aggregator == nil {
		panic("aggregator is nil in NewHandlers")
	}
	return &Handlers{logger: logger, cfgProvider: cfgProvider, aggregator: aggregator}
}

// HealthCheck reports process liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfgProvider.Get()
	writeJSONObject(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": cfg.App.ServiceName,
		"version": cfg.App.Version,
	})
}

// ReadinessCheck reports whether the gateway is ready to serve. Downstream
// health is probed lazily per operation, so readiness only covers the
// gateway process itself.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	writeJSONObject(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Register forwards a registration payload to the auth service verbatim.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	h.forwardAuth(w, r, "/auth/register")
}

// Login forwards a login payload to the auth service verbatim.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	h.forwardAuth(w, r, "/auth/login")
}

func (h *Handlers) forwardAuth(w http.ResponseWriter, r *http.Request, path string) {
	body, err := readBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := h.aggregator.ForwardAuth(r.Context(), path, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	relay(w, resp)
}

// GetProfile serves a single resolved profile.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	payload, err := h.aggregator.GetProfile(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// ListPosts serves one composed page of posts.
func (h *Handlers) ListPosts(w http.ResponseWriter, r *http.Request) {
	topicID, err := optionalQueryID(r, "topic_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, pageSize := h.pagination(r)
	payload, err := h.aggregator.ListPosts(r.Context(), topicID, page, pageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// GetPost serves a single composed post.
func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	payload, err := h.aggregator.GetPost(r.Context(), postID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// CreatePost forwards a post creation.
func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := h.aggregator.CreatePost(r.Context(), principalFromContext(r), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	relay(w, resp)
}

// UpdatePost forwards a post edit.
func (h *Handlers) UpdatePost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := h.aggregator.UpdatePost(r.Context(), principalFromContext(r), postID, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	relay(w, resp)
}

// DeletePost forwards a post deletion.
func (h *Handlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := h.aggregator.DeletePost(r.Context(), principalFromContext(r), postID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	relay(w, resp)
}

// CreatePostComment forwards a comment on a post.
func (h *Handlers) CreatePostComment(w http.ResponseWriter, r *http.Request) {
	postID, err := pathID(r, "postID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := h.aggregator.CreatePostComment(r.Context(), principalFromContext(r), postID, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	relay(w, resp)
}

// LikePost forwards a like reaction.
func (h *Handlers) LikePost(w http.ResponseWriter, r *http.Request) {
	h.reaction(w, r, h.aggregator.LikePost)
}

// DislikePost forwards a dislike reaction.
func (h *Handlers) DislikePost(w http.ResponseWriter, r *http.Request) {
	h.reaction(w, r, h.aggregator.DislikePost)
}

// RemoveReaction forwards removal of the caller's reaction.
func (h *Handlers) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	h.reaction(w, r, h.aggregator.RemoveReaction)
}

func (h *Handlers) reaction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor *domain.Principal, postID int64) (*domain.DownstreamResponse, error)) {
	postID, err := pathID(r, "postID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := fn(r.Context(), principalFromContext(r), postID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	relay(w, resp)
}

// ListTopics serves one composed page of topics.
func (h *Handlers) ListTopics(w http.ResponseWriter, r *http.Request) {
	categoryID, err := optionalQueryID(r, "category_id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, pageSize := h.pagination(r)
	payload, err := h.aggregator.ListTopics(r.Context(), categoryID, page, pageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// GetTopic serves a single composed topic.
func (h *Handlers) GetTopic(w http.ResponseWriter, r *http.Request) {
	topicID, err := pathID(r, "topicID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	payload, err := h.aggregator.GetTopic(r.Context(), topicID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// DeleteTopic forwards a topic deletion. The admin check happens in the
// route middleware.
func (h *Handlers) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	topicID, err := pathID(r, "topicID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := h.aggregator.DeleteTopic(r.Context(), principalFromContext(r), topicID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	relay(w, resp)
}

// ListGalleries serves one composed page of galleries.
func (h *Handlers) ListGalleries(w http.ResponseWriter, r *http.Request) {
	page, pageSize := h.pagination(r)
	payload, err := h.aggregator.ListGalleries(r.Context(), page, pageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// GetGallery serves a single composed gallery.
func (h *Handlers) GetGallery(w http.ResponseWriter, r *http.Request) {
	galleryID, err := pathID(r, "galleryID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	payload, err := h.aggregator.GetGallery(r.Context(), galleryID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// CreateGalleryComment forwards a comment on a gallery.
func (h *Handlers) CreateGalleryComment(w http.ResponseWriter, r *http.Request) {
	galleryID, err := pathID(r, "galleryID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := h.aggregator.CreateGalleryComment(r.Context(), principalFromContext(r), galleryID, body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	relay(w, resp)
}

// pagination reads page and page_size from the query string, applying the
// configured default and clamping to the configured maximum. Malformed or
// non-positive values fall back to defaults rather than failing the request.
func (h *Handlers) pagination(r *http.Request) (page, pageSize int) {
	cfg := h.cfgProvider.Get()
	page = 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	pageSize = cfg.App.DefaultPageSize
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			pageSize = parsed
		}
	}
	if pageSize > cfg.App.MaxPageSize {
		pageSize = cfg.App.MaxPageSize
	}
	return page, pageSize
}

// writeError maps a classified error to the gateway's error taxonomy.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var upstream *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrInvalidToken):
		domain.NewErrorResponse(domain.CodeInvalidToken, "Invalid or expired token", "").WriteJSON(w, http.StatusUnauthorized)
	case errors.Is(err, domain.ErrNotAuthorized):
		domain.NewErrorResponse(domain.CodeNotAuthorized, "Operation requires a privilege the caller lacks", "").WriteJSON(w, http.StatusForbidden)
	case errors.Is(err, domain.ErrNotFound):
		domain.NewErrorResponse(domain.CodeNotFound, "Resource not found", "").WriteJSON(w, http.StatusNotFound)
	case errors.Is(err, domain.ErrServiceUnavailable):
		domain.NewErrorResponse(domain.CodeServiceUnavailable, "A required downstream service is unavailable", "").WriteJSON(w, http.StatusServiceUnavailable)
	case errors.Is(err, errBadRequest):
		domain.NewErrorResponse(domain.CodeBadRequest, err.Error(), "").WriteJSON(w, http.StatusBadRequest)
	case errors.As(err, &upstream):
		h.logger.Warn(r.Context(), "Upstream service returned an error status",
			"service", string(upstream.Service), "status", upstream.StatusCode)
		domain.NewErrorResponse(domain.CodeUpstreamError, "Upstream service returned an error", "").WriteJSON(w, upstream.StatusCode)
	default:
		h.logger.Error(r.Context(), "Unhandled error serving request", "path", r.URL.Path, "error", err.Error())
		domain.NewErrorResponse(domain.CodeInternal, "Internal server error", "").WriteJSON(w, http.StatusInternalServerError)
	}
}
