package contact

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignite/contact-webhook/internal/domain"
	"github.com/ignite/contact-webhook/internal/ingest"
	"github.com/ignite/contact-webhook/internal/pkg/logger"
)

// Action labels the outcome of one reconciliation.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
)

// MatchKey identifies which unique key matched (or would have matched) the
// incoming record.
type MatchKey string

const (
	MatchEmail       MatchKey = "email"
	MatchLinkedInURL MatchKey = "linkedin_url"
	MatchNone        MatchKey = "none"
)

// Result describes what one delivery did to the store.
type Result struct {
	Action    Action   `json:"action"`
	ContactID int64    `json:"contact_id,omitempty"`
	MatchedBy MatchKey `json:"matched_by"`
	LogID     int64    `json:"log_id"`
	ReceiptID string   `json:"receipt_id"`
}

// Service implements the reconciliation business logic. It is safe for
// concurrent use; each Reconcile call runs in its own transaction.
type Service struct {
	repo  Repository
	reads ReadRepository
}

// NewService creates a contact service backed by the given repositories.
func NewService(repo Repository, reads ReadRepository) *Service {
	return &Service{repo: repo, reads: reads}
}

// Reconcile runs the full delivery state transition: audit log creation,
// key matching, contact insert/update, and log finalization, atomically.
// A record without any identifier is recorded as skipped; that is a valid
// outcome, not an error.
func (s *Service) Reconcile(ctx context.Context, rec ingest.Record) (*Result, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reconcile: %w", err)
	}
	defer tx.Rollback()

	receiptID := uuid.New().String()
	logID, err := tx.CreateLog(ctx, &domain.WebhookLog{
		ReceiptID:    receiptID,
		EventType:    domain.EventTypeLinkedInData,
		ContactEmail: rec.Email,
		ContactName:  rec.Name,
		LinkedInURL:  rec.LinkedInURL,
		WebhookData:  rec.Raw,
	})
	if err != nil {
		return nil, fmt.Errorf("create delivery log: %w", err)
	}

	if !rec.HasIdentifier() {
		// Leave processed=false so the skip is visible in the log feed.
		if err := tx.FinalizeLog(ctx, logID, nil, false, "skipped: no usable identifier"); err != nil {
			return nil, fmt.Errorf("finalize skipped log: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit skipped delivery: %w", err)
		}
		logger.Info("webhook skipped", "log_id", logID, "reason", "no identifier")
		return &Result{Action: ActionSkipped, MatchedBy: MatchNone, LogID: logID, ReceiptID: receiptID}, nil
	}

	var (
		contactID int64
		action    Action
		matched   MatchKey
	)
	if rec.Email != "" {
		contactID, action, matched, err = s.reconcileByEmail(ctx, tx, rec)
	} else {
		contactID, action, matched, err = s.reconcileByURL(ctx, tx, rec)
	}
	if err != nil {
		return nil, err
	}

	note := fmt.Sprintf("%s id=%d matched by %s", action, contactID, matched)
	if err := tx.FinalizeLog(ctx, logID, &contactID, true, note); err != nil {
		return nil, fmt.Errorf("finalize delivery log: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delivery: %w", err)
	}

	logger.Info("webhook reconciled",
		"action", string(action),
		"contact_id", contactID,
		"matched_by", string(matched),
		"email", rec.Email,
		"log_id", logID)

	return &Result{
		Action:    action,
		ContactID: contactID,
		MatchedBy: matched,
		LogID:     logID,
		ReceiptID: receiptID,
	}, nil
}

// reconcileByEmail handles records that carry an email. Match order is
// email, then profile URL: a row first seen via a URL-only delivery is
// found by its URL and enriched with the email rather than duplicated.
func (s *Service) reconcileByEmail(ctx context.Context, tx Tx, rec ingest.Record) (int64, Action, MatchKey, error) {
	id, ok, err := tx.FindIDByEmail(ctx, rec.Email)
	if err != nil {
		return 0, "", "", fmt.Errorf("match by email: %w", err)
	}
	if ok {
		if err := tx.UpdateContact(ctx, id, rec); err != nil {
			return 0, "", "", fmt.Errorf("update contact %d: %w", id, err)
		}
		return id, ActionUpdated, MatchEmail, nil
	}

	if rec.LinkedInURL != "" {
		id, ok, err = tx.FindIDByLinkedInURL(ctx, rec.LinkedInURL)
		if err != nil {
			return 0, "", "", fmt.Errorf("match by linkedin url: %w", err)
		}
		if ok {
			// The email overwrite here is deliberate: latest payload wins,
			// even if the stored email differs.
			if err := tx.UpdateContact(ctx, id, rec); err != nil {
				return 0, "", "", fmt.Errorf("update contact %d: %w", id, err)
			}
			return id, ActionUpdated, MatchLinkedInURL, nil
		}
	}

	// No match at transaction start. The ON CONFLICT upsert is the
	// serialization point against a concurrent delivery on the same email:
	// the loser lands as an update, not a duplicate row.
	id, inserted, err := tx.UpsertByEmail(ctx, rec)
	if err != nil {
		return 0, "", "", fmt.Errorf("upsert by email: %w", err)
	}
	action := ActionCreated
	if !inserted {
		action = ActionUpdated
	}
	return id, action, MatchEmail, nil
}

// reconcileByURL handles records whose only identifier is the profile URL.
// A single conflict-resolving upsert does the matching; the stored email
// survives because the incoming record has none.
func (s *Service) reconcileByURL(ctx context.Context, tx Tx, rec ingest.Record) (int64, Action, MatchKey, error) {
	id, inserted, err := tx.UpsertByLinkedInURL(ctx, rec)
	if err != nil {
		return 0, "", "", fmt.Errorf("upsert by linkedin url: %w", err)
	}
	action := ActionCreated
	if !inserted {
		action = ActionUpdated
	}
	return id, action, MatchLinkedInURL, nil
}

// Export returns every stored contact, newest first.
func (s *Service) Export(ctx context.Context) ([]domain.Contact, error) {
	return s.reads.ExportContacts(ctx)
}

// Stats computes the aggregate view for the dashboard.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.reads.Stats(ctx)
}

// RecentLogs returns the latest delivery log entries. Limit defaults to 50
// and is capped at 1000.
func (s *Service) RecentLogs(ctx context.Context, limit int) ([]domain.WebhookLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	return s.reads.RecentLogs(ctx, limit)
}

// Counts returns the totals shown on the index page.
func (s *Service) Counts(ctx context.Context) (int, int, error) {
	return s.reads.Counts(ctx)
}

// Ping probes database connectivity for the health endpoints.
func (s *Service) Ping(ctx context.Context) error {
	return s.reads.Ping(ctx)
}

// Clear wipes the contact table. The caller must echo the confirmation
// phrase; anything else returns ErrConfirmationRequired.
func (s *Service) Clear(ctx context.Context, confirm string) (int64, error) {
	if confirm != ClearConfirmation {
		return 0, ErrConfirmationRequired
	}
	n, err := s.reads.ClearContacts(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear contacts: %w", err)
	}
	logger.Warn("contact table cleared", "deleted", n)
	return n, nil
}
