/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions. This
  is the wiring layer connecting URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for log correlation
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. zap logger: Structured request logging
  4. CORS:       Cross-origin requests for the dashboard frontend

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/plansaude/sinistro-engine/observability"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger *zap.Logger, registry *prometheus.Registry) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/reports/sinistralidade", func(r chi.Router) {
			r.Get("/", h.GetReport)
			r.Get("/months", h.GetMonths)
			r.Get("/by/{dimension}", h.GetDimension)
		})

		r.Get("/filters", h.GetFilters)
		r.Post("/cache/invalidate", h.InvalidateCache)
	})

	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return r
}
