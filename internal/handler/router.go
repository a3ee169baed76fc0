package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/suar-net/suar-studio/internal/service"
)

// SetupRouter creates the main Chi router for the application.
func SetupRouter(s *service.Service, db Pinger, gatherer prometheus.Gatherer, allowedOrigins []string, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-Id"},
		ExposedHeaders:   []string{"Link", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browser
	}))

	healthHandler := NewHealthHandler(db, logger)
	requestHandler := NewRequestHandler(s.Requests(), s.HTTPProxy(), logger)
	checkpointHandler := NewCheckpointHandler(s.Versioning(), logger)
	httpProxyHandler := NewHTTPProxyHandler(s.HTTPProxy(), logger)

	r.Get("/health", healthHandler.Check)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/requests", func(r chi.Router) {
			r.Post("/", requestHandler.Create)
			r.Get("/", requestHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", requestHandler.Get)
				r.Patch("/", requestHandler.Update)
				r.Delete("/", requestHandler.Delete)
				r.Post("/send", requestHandler.Send)
				r.Get("/auth/token", requestHandler.InspectToken)

				r.Post("/checkpoints", checkpointHandler.Create)
				r.Get("/checkpoints", checkpointHandler.List)
			})
		})

		r.Route("/checkpoints/{id}", func(r chi.Router) {
			r.Get("/", checkpointHandler.Get)
			r.Delete("/", checkpointHandler.Delete)
			r.Post("/rollback", checkpointHandler.Rollback)
		})

		r.Mount("/proxy", httpProxyHandler)
	})

	return r
}
