package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/timkado/api/daisi-gateway-service/internal/adapters/middleware"
	"gitlab.com/timkado/api/daisi-gateway-service/internal/domain"
)

// NewRouter builds the gateway's route tree. Read paths are public; mutation
// paths require a bearer token; topic deletion additionally requires the
// admin role.
func NewRouter(handlers *Handlers, verifier middleware.TokenVerifier, logger domain.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestIDMiddleware)

	requireAuth := middleware.BearerAuthMiddleware(verifier, logger)
	requireAdmin := middleware.AdminAuthMiddleware(verifier, logger)

	r.Get("/health", handlers.HealthCheck)
	r.Get("/ready", handlers.ReadinessCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/auth/register", handlers.Register)
	r.Post("/auth/login", handlers.Login)

	r.Get("/profile/{userID}", handlers.GetProfile)

	r.Get("/posts", handlers.ListPosts)
	r.Get("/post/{postID}", handlers.GetPost)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/posts", handlers.CreatePost)
		r.Patch("/post/{postID}", handlers.UpdatePost)
		r.Delete("/post/{postID}", handlers.DeletePost)
		r.Post("/post/{postID}/comments", handlers.CreatePostComment)
		r.Post("/post/{postID}/like", handlers.LikePost)
		r.Post("/post/{postID}/dislike", handlers.DislikePost)
		r.Delete("/post/{postID}/reactions", handlers.RemoveReaction)
	})

	r.Get("/topics", handlers.ListTopics)
	r.Get("/topic/{topicID}", handlers.GetTopic)
	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Delete("/topic/{topicID}", handlers.DeleteTopic)
	})

	r.Get("/galleries", handlers.ListGalleries)
	r.Get("/gallery/{galleryID}", handlers.GetGallery)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/gallery/{galleryID}/comments", handlers.CreateGalleryComment)
	})

	return r
}
