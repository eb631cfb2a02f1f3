package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type RouterOptions struct {
	// AuthMiddleware authenticates every endpoint except health, signup and login.
	AuthMiddleware func(http.Handler) http.Handler
	// Logger enables per-request logging; nil disables it.
	Logger logrus.FieldLogger
	// AuthRateLimit throttles signup and login per client IP; the zero value disables it.
	AuthRateLimit RateLimit
}

// NewRouter constructs the API HTTP router without authentication. Handlers that need a
// caller answer 401.
func NewRouter(api *Server) http.Handler {
	return NewRouterWithOptions(api, RouterOptions{})
}

func NewRouterWithOptions(api *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.Logger != nil {
		r.Use(requestLogger(opts.Logger))
	}
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "no such endpoint", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	// Health endpoint is unauthenticated (used for infra checks).
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if opts.AuthRateLimit.enabled() {
			r.Use(newClientRateLimiter(opts.AuthRateLimit).middleware)
		}
		r.Post("/auth/signup", api.SignUp)
		r.Post("/auth/login", api.Login)
	})

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}
		r.Get("/auth/me", api.GetMe)
		r.Get("/routes", api.ListRoutes)

		r.Post("/subscriptions", api.RequestSubscription)
		r.Get("/subscriptions/me", api.GetMySubscription)
		r.Delete("/subscriptions/me", api.CancelMySubscription)
		r.Get("/subscriptions/requests", api.ListPendingSubscriptions)
		r.Post("/subscriptions/{subscriptionId}/approve", api.ApproveSubscription)
		r.Post("/subscriptions/{subscriptionId}/decline", api.DeclineSubscription)

		r.Get("/trips/availability", api.TripAvailability)
	})
	return r
}
