package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/vocalless/vocalless/internal/api/middleware"
	"github.com/vocalless/vocalless/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc
	SubmitHandler http.HandlerFunc
	StatusHandler http.HandlerFunc
	CancelHandler http.HandlerFunc
	ListHandler   http.HandlerFunc
	UploadHandler http.HandlerFunc
	FilesHandler  http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Artifact downloads
	r.Get("/output/*", orNotImplemented(deps.FilesHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/jobs", orNotImplemented(deps.SubmitHandler))
		r.Get("/api/v1/jobs", orNotImplemented(deps.ListHandler))
		r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.StatusHandler))
		r.Post("/api/v1/jobs/{jobID}/cancel", orNotImplemented(deps.CancelHandler))

		r.Post("/api/v1/uploads", orNotImplemented(deps.UploadHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
