package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// routes configures the router. The webhook endpoint and the read-side
// endpoints are all public; the upstream scraper does not authenticate.
func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleIndex)
	r.Get("/webhook/health", s.handleHealth)

	r.Post("/webhook", s.handleWebhook)
	r.Get("/webhook/logs", s.handleLogs)

	r.Get("/export", s.handleExport)
	r.Get("/stats", s.handleStats)
	r.Post("/clear", s.handleClear)

	if s.metrics != nil {
		r.Method("GET", "/metrics", s.metrics.Handler())
	}

	return r
}
