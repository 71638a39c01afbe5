package api

import (
	"io"
	"net/http"
	"time"

	"github.com/ignite/contact-webhook/internal/ingest"
	"github.com/ignite/contact-webhook/internal/pkg/httputil"
	"github.com/ignite/contact-webhook/internal/pkg/logger"
	"github.com/ignite/contact-webhook/internal/service/contact"
)

// webhookResponse is the envelope returned for every accepted delivery.
type webhookResponse struct {
	Status      string `json:"status"`
	Action      string `json:"action"`
	ContactID   int64  `json:"contact_id,omitempty"`
	Email       string `json:"email,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
	MatchedBy   string `json:"matched_by"`
	LogID       int64  `json:"log_id"`
	ReceiptID   string `json:"receipt_id"`
}

// handleWebhook accepts one enrichment delivery. Skipped deliveries (no
// usable identifier) are still a 200: the sender did nothing wrong, the
// payload just carried nothing to key on.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		httputil.Error(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	rec, err := ingest.NormalizeBytes(body)
	if err != nil {
		if s.metrics != nil {
			s.metrics.Malformed()
		}
		httputil.BadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	res, err := s.contacts.Reconcile(r.Context(), rec)
	if err != nil {
		if s.metrics != nil {
			s.metrics.Fault()
		}
		logger.Error("webhook reconcile failed",
			"error", err.Error(),
			"match_key", rec.MatchKey(),
			"payload_bytes", len(body))
		httputil.InternalError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.Delivery(string(res.Action), time.Since(start))
	}

	if res.Action == contact.ActionSkipped {
		httputil.OK(w, map[string]any{
			"status":     "skipped",
			"message":    "no usable identifier in payload",
			"log_id":     res.LogID,
			"receipt_id": res.ReceiptID,
		})
		return
	}

	if s.cache != nil {
		s.cache.Invalidate(r.Context())
	}

	httputil.OK(w, webhookResponse{
		Status:      "success",
		Action:      string(res.Action),
		ContactID:   res.ContactID,
		Email:       rec.Email,
		LinkedInURL: rec.LinkedInURL,
		MatchedBy:   string(res.MatchedBy),
		LogID:       res.LogID,
		ReceiptID:   res.ReceiptID,
	})
}
