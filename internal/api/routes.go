package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/timkrebs/imageweb/internal/metrics"
)

// NewRouter creates a new HTTP router with all routes configured.
// httpMetrics may be nil.
func NewRouter(handlers *Handlers, httpMetrics *metrics.HTTPMetrics, timeout time.Duration, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(StructuredLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	if httpMetrics != nil {
		r.Use(MetricsMiddleware(httpMetrics))
	}

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Images: /images/<source path>?<commands>
	r.Group(func(r chi.Router) {
		if timeout > 0 {
			r.Use(middleware.Timeout(timeout))
		}
		r.Get("/images/*", handlers.GetImage)
		r.Head("/images/*", handlers.GetImage)
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.Health)
		r.Get("/commands", handlers.ListCommands)
		r.Get("/variants/{key}", handlers.GetVariant)
	})

	return r
}
