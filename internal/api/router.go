package api

import (
	"net/http"

	mw "github.com/agendly/clientlink/internal/api/middleware"
	"github.com/agendly/clientlink/internal/api/response"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler          http.HandlerFunc
	ActivationTokenHandler http.HandlerFunc
	ActivationQRHandler    http.HandlerFunc
	ActivateHandler        http.HandlerFunc
	VerifyTokenHandler     http.HandlerFunc
	SimpleLoginHandler     http.HandlerFunc
	RevokeHandler          http.HandlerFunc
	ReinstateHandler       http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Public token verification surface. Rate limited by client IP; the
	// tokens themselves are the credential.
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimit.Limit)

		r.Get("/activate", orNotImplemented(deps.ActivateHandler))
		r.Post("/api/client-access/verify-token", orNotImplemented(deps.VerifyTokenHandler))
		r.Get("/api/client/simple-login", orNotImplemented(deps.SimpleLoginHandler))
	})

	// Staff/admin routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/clients/{clientID}/activation-token", orNotImplemented(deps.ActivationTokenHandler))
		r.Get("/api/clients/{clientID}/qr", orNotImplemented(deps.ActivationQRHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireAdmin)

			r.Post("/api/v1/admin/revocations", orNotImplemented(deps.RevokeHandler))
			r.Delete("/api/v1/admin/revocations/{code}", orNotImplemented(deps.ReinstateHandler))
		})
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
