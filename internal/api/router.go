// Package api wires the HTTP surface: middleware stack, routes, handlers.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/resumatch/resumatch/internal/api/middleware"
	"github.com/resumatch/resumatch/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	UploadDocument http.HandlerFunc
	ListDocuments  http.HandlerFunc
	GetDocument    http.HandlerFunc
	RetryDocument  http.HandlerFunc

	ListResumes http.HandlerFunc
	GetResume   http.HandlerFunc

	ListPostings http.HandlerFunc

	CreateCompatibility  http.HandlerFunc
	ScanCompatibilities  http.HandlerFunc
	ListCompatibilities  http.HandlerFunc
	GetCompatibility     http.HandlerFunc
	RequeueCompatibility http.HandlerFunc

	CreateKey http.HandlerFunc
}

// NewRouter builds the Chi router with the middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/documents", orNotImplemented(deps.UploadDocument))
		r.Get("/api/v1/documents", orNotImplemented(deps.ListDocuments))
		r.Get("/api/v1/documents/{documentID}", orNotImplemented(deps.GetDocument))
		r.Post("/api/v1/documents/{documentID}/retry", orNotImplemented(deps.RetryDocument))

		r.Get("/api/v1/resumes", orNotImplemented(deps.ListResumes))
		r.Get("/api/v1/resumes/{resumeID}", orNotImplemented(deps.GetResume))

		r.Get("/api/v1/postings", orNotImplemented(deps.ListPostings))

		r.Post("/api/v1/compatibilities", orNotImplemented(deps.CreateCompatibility))
		r.Post("/api/v1/compatibilities/scan", orNotImplemented(deps.ScanCompatibilities))
		r.Get("/api/v1/compatibilities", orNotImplemented(deps.ListCompatibilities))
		r.Get("/api/v1/compatibilities/{compatibilityID}", orNotImplemented(deps.GetCompatibility))
		r.Post("/api/v1/compatibilities/{compatibilityID}/requeue", orNotImplemented(deps.RequeueCompatibility))

		r.Post("/api/v1/keys", orNotImplemented(deps.CreateKey))
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
