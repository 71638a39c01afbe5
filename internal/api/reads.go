package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ignite/contact-webhook/internal/pkg/httputil"
	"github.com/ignite/contact-webhook/internal/pkg/logger"
	"github.com/ignite/contact-webhook/internal/service/contact"
)

// handleIndex serves the service summary page as JSON.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	total, recent, err := s.contacts.Counts(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"service":           "contact-webhook",
		"status":            "running",
		"database":          "connected",
		"uptime_seconds":    int(time.Since(s.started).Seconds()),
		"total_contacts":    total,
		"webhooks_last_24h": recent,
		"endpoints": []string{
			"POST /webhook",
			"GET /webhook/health",
			"GET /webhook/logs",
			"GET /export",
			"GET /stats",
			"POST /clear",
		},
	})
}

// handleHealth reports liveness plus database connectivity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.contacts.Ping(r.Context()); err != nil {
		logger.Error("health check failed", "error", err.Error())
		httputil.JSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	httputil.OK(w, map[string]any{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleExport serves the full contact table as a downloadable JSON file.
// When archiving is configured the same snapshot is also written to S3.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.contacts.Export(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	now := time.Now().UTC()
	payload := map[string]any{
		"export_date":    now.Format(time.RFC3339),
		"total_contacts": len(contacts),
		"contacts":       contacts,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	if s.archiver != nil {
		if key, err := s.archiver.StoreSnapshot(r.Context(), data, now); err != nil {
			// The download still succeeds; archiving is best effort.
			logger.Warn("export archive failed", "error", err.Error())
		} else {
			logger.Info("export archived", "key", key)
		}
	}

	filename := fmt.Sprintf("linkedin_contacts_%s.json", now.Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleStats serves the aggregate dashboard view, cached when Redis is on.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		if stats, ok := s.cache.Get(r.Context()); ok {
			httputil.OK(w, stats)
			return
		}
	}

	stats, err := s.contacts.Stats(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if s.cache != nil {
		s.cache.Set(r.Context(), stats)
	}
	httputil.OK(w, stats)
}

// handleLogs serves the recent delivery log feed.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.DefaultLogsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	logs, err := s.contacts.RecentLogs(r.Context(), limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"count": len(logs),
		"logs":  logs,
	})
}

type clearRequest struct {
	Confirm string `json:"confirm"`
}

// handleClear wipes the contact table. Requires the confirmation phrase in
// the request body; delivery logs are kept as an audit trail.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	deleted, err := s.contacts.Clear(r.Context(), req.Confirm)
	if err != nil {
		if errors.Is(err, contact.ErrConfirmationRequired) {
			httputil.BadRequest(w, fmt.Sprintf("confirmation required: send {\"confirm\": %q}", contact.ClearConfirmation))
			return
		}
		httputil.InternalError(w, err)
		return
	}

	if s.cache != nil {
		s.cache.Invalidate(r.Context())
	}
	httputil.OK(w, map[string]any{
		"status":  "cleared",
		"deleted": deleted,
	})
}
