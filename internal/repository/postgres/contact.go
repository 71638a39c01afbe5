// Package postgres implements the contact service repositories against
// PostgreSQL via database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/contact-webhook/internal/domain"
	"github.com/ignite/contact-webhook/internal/ingest"
	"github.com/ignite/contact-webhook/internal/service/contact"
)

// ContactRepo implements contact.Repository and contact.ReadRepository.
type ContactRepo struct{ db *sql.DB }

// NewContactRepo creates a Postgres-backed contact repository.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

// Begin opens a reconciliation transaction for one delivery.
func (r *ContactRepo) Begin(ctx context.Context) (contact.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &reconcileTx{tx: tx}, nil
}

// reconcileTx wraps one *sql.Tx. Empty strings are stored as NULL in the
// unique columns (email, linkedin_url) so that uniqueness applies only
// when a value is present.
type reconcileTx struct{ tx *sql.Tx }

func (t *reconcileTx) CreateLog(ctx context.Context, log *domain.WebhookLog) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO webhook_logs
			(receipt_id, event_type, contact_email, contact_name, linkedin_url, webhook_data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING log_id
	`, log.ReceiptID, log.EventType, log.ContactEmail, log.ContactName,
		log.LinkedInURL, nullBytes(log.WebhookData)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert webhook log: %w", err)
	}
	return id, nil
}

func (t *reconcileTx) FindIDByEmail(ctx context.Context, email string) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT id FROM linkedin_contacts WHERE email = $1`, email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find by email: %w", err)
	}
	return id, true, nil
}

func (t *reconcileTx) FindIDByLinkedInURL(ctx context.Context, url string) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT id FROM linkedin_contacts WHERE linkedin_url = $1`, url).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find by linkedin url: %w", err)
	}
	return id, true, nil
}

func (t *reconcileTx) UpdateContact(ctx context.Context, id int64, rec ingest.Record) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE linkedin_contacts SET
			name = $1, title = $2, company = $3, location = $4,
			email = NULLIF($5, ''), linkedin_url = NULLIF($6, ''),
			website = $7, website_text = $8, profile_data = $9,
			raw_json = $10, updated_at = NOW()
		WHERE id = $11
	`, rec.Name, rec.Title, rec.Company, rec.Location, rec.Email, rec.LinkedInURL,
		rec.Website, rec.WebsiteText, rec.ProfileData, nullBytes(rec.Raw), id)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("update contact: id %d vanished mid-transaction", id)
	}
	return nil
}

func (t *reconcileTx) UpsertByEmail(ctx context.Context, rec ingest.Record) (int64, bool, error) {
	var id int64
	var inserted bool
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO linkedin_contacts
			(name, title, company, location, email, linkedin_url,
			 website, website_text, profile_data, raw_json)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			location = EXCLUDED.location,
			linkedin_url = EXCLUDED.linkedin_url,
			website = EXCLUDED.website,
			website_text = EXCLUDED.website_text,
			profile_data = EXCLUDED.profile_data,
			raw_json = EXCLUDED.raw_json,
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS inserted
	`, rec.Name, rec.Title, rec.Company, rec.Location, rec.Email, rec.LinkedInURL,
		rec.Website, rec.WebsiteText, rec.ProfileData, nullBytes(rec.Raw)).Scan(&id, &inserted)
	if err != nil {
		// The conflict target is the email index, so a concurrent
		// delivery inserting the same linkedin_url between our lookup
		// and this insert still surfaces as a unique violation.
		if constraint, ok := uniqueViolation(err); ok {
			return 0, false, fmt.Errorf("upsert by email: concurrent delivery holds %s: %w", constraint, err)
		}
		return 0, false, fmt.Errorf("upsert by email: %w", err)
	}
	return id, inserted, nil
}

// uniqueViolation reports whether err is a Postgres unique constraint
// violation and names the constraint.
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return pqErr.Constraint, true
	}
	return "", false
}

func (t *reconcileTx) UpsertByLinkedInURL(ctx context.Context, rec ingest.Record) (int64, bool, error) {
	var id int64
	var inserted bool
	// EXCLUDED.email is NULL when the payload had no email, so COALESCE
	// keeps whatever email the existing row already captured.
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO linkedin_contacts
			(name, title, company, location, email, linkedin_url,
			 website, website_text, profile_data, raw_json)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10)
		ON CONFLICT (linkedin_url) DO UPDATE SET
			name = EXCLUDED.name,
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			location = EXCLUDED.location,
			email = COALESCE(EXCLUDED.email, linkedin_contacts.email),
			website = EXCLUDED.website,
			website_text = EXCLUDED.website_text,
			profile_data = EXCLUDED.profile_data,
			raw_json = EXCLUDED.raw_json,
			updated_at = NOW()
		RETURNING id, (xmax = 0) AS inserted
	`, rec.Name, rec.Title, rec.Company, rec.Location, rec.Email, rec.LinkedInURL,
		rec.Website, rec.WebsiteText, rec.ProfileData, nullBytes(rec.Raw)).Scan(&id, &inserted)
	if err != nil {
		return 0, false, fmt.Errorf("upsert by linkedin url: %w", err)
	}
	return id, inserted, nil
}

func (t *reconcileTx) FinalizeLog(ctx context.Context, logID int64, contactID *int64, processed bool, note string) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE webhook_logs
		SET processed = $2, contact_id = $3, processing_notes = $4
		WHERE log_id = $1
	`, logID, processed, contactID, note)
	if err != nil {
		return fmt.Errorf("finalize webhook log: %w", err)
	}
	return nil
}

func (t *reconcileTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *reconcileTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// nullBytes maps an empty payload to NULL for JSONB columns.
func nullBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}
