package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Resource store.
	r.Post("/resources", h.Upload)
	r.Get("/resources", h.List)
	r.Get("/resources/{id}", h.GetMetadata)
	r.Get("/resources/{id}/content", h.GetContent)
	r.Delete("/resources/{id}", h.Delete)

	// Mutation pipeline.
	r.Post("/resources/{id}/operations", h.ApplyOperations)

	// Text recognition.
	r.Post("/resources/{id}/text", h.ExtractPageText)
	r.Post("/resources/{id}/text/all", h.ExtractAllText)
	r.Post("/text", h.ExtractImageText)

	// Format conversion.
	r.Post("/resources/{id}/convert", h.Convert)

	// Search over recognized text.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
