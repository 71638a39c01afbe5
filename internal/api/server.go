package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/contact-webhook/internal/archive"
	"github.com/ignite/contact-webhook/internal/config"
	"github.com/ignite/contact-webhook/internal/metrics"
	"github.com/ignite/contact-webhook/internal/service/contact"
	"github.com/ignite/contact-webhook/internal/statscache"
)

// Server represents the webhook API server.
type Server struct {
	cfg      config.WebhookConfig
	contacts *contact.Service
	metrics  *metrics.Metrics
	cache    *statscache.Cache   // nil when Redis is disabled
	archiver *archive.S3Archiver // nil when archiving is disabled
	handler  http.Handler
	server   *http.Server
	started  time.Time
}

// NewServer creates a new API server. cache and archiver are optional;
// pass nil to disable the stats cache and export archiving.
func NewServer(cfg config.WebhookConfig, svc *contact.Service, m *metrics.Metrics, cache *statscache.Cache, archiver *archive.S3Archiver) *Server {
	s := &Server{
		cfg:      cfg,
		contacts: svc,
		metrics:  m,
		cache:    cache,
		archiver: archiver,
		started:  time.Now(),
	}
	s.handler = s.routes()
	return s
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.handler
}
