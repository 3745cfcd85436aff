package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marshaltudu14/fieldforce-auth/internal/boundary"
	"github.com/marshaltudu14/fieldforce-auth/internal/event"
	"github.com/marshaltudu14/fieldforce-auth/internal/service"
	"github.com/marshaltudu14/fieldforce-auth/pkg/health"
	"github.com/marshaltudu14/fieldforce-auth/pkg/middleware"
	"github.com/marshaltudu14/fieldforce-auth/pkg/token"
)

// RouterDeps bundles everything the router wires together.
type RouterDeps struct {
	AuthService   *service.AuthService
	TokenService  *token.Service
	Classifier    *boundary.Classifier
	LoginLimiter  *boundary.LoginRateLimiter
	Auditor       *event.Auditor
	HealthHandler *health.Handler
	Logger        *slog.Logger
	CORS          middleware.CORSConfig
}

// NewRouter creates a chi router with all auth service routes registered.
// Health and metrics endpoints sit outside the boundary guard; everything
// under /auth passes classification first.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(deps.CORS))
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogging(deps.Logger))
	r.Use(middleware.PrometheusMetrics("auth"))

	// Health check endpoints
	r.Get("/health/live", deps.HealthHandler.LivenessHandler())
	r.Get("/health/ready", deps.HealthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(deps.AuthService, deps.Logger)

	r.Route("/auth", func(r chi.Router) {
		r.Use(deps.Classifier.Middleware(deps.Logger, deps.Auditor))
		r.Use(ContentTypeJSON)

		r.With(deps.LoginLimiter.Middleware(deps.Logger)).Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)

		r.With(boundary.EmploymentGate(deps.TokenService, deps.Logger)).
			Get("/user", authHandler.GetUser)
	})

	return r
}
