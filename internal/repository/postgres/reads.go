package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/contact-webhook/internal/domain"
	"github.com/ignite/contact-webhook/internal/service/contact"
)

// ExportContacts returns every stored contact, newest first.
func (r *ContactRepo) ExportContacts(ctx context.Context) ([]domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, title, company, location,
		       COALESCE(email, ''), COALESCE(linkedin_url, ''),
		       website, website_text, profile_data,
		       created_at, updated_at
		FROM linkedin_contacts
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("export contacts: %w", err)
	}
	defer rows.Close()

	var out []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Title, &c.Company, &c.Location,
			&c.Email, &c.LinkedInURL, &c.Website, &c.WebsiteText, &c.ProfileData,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Stats computes the aggregates for GET /stats: table-wide counts, the
// top-10 companies, and the last 7 days of webhook activity.
func (r *ContactRepo) Stats(ctx context.Context) (*contact.Stats, error) {
	s := &contact.Stats{}

	var first, last sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT company),
		       COUNT(DISTINCT location),
		       MIN(created_at),
		       MAX(created_at)
		FROM linkedin_contacts
	`).Scan(&s.Overall.TotalContacts, &s.Overall.UniqueCompanies,
		&s.Overall.UniqueLocations, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("overall stats: %w", err)
	}
	if first.Valid {
		s.Overall.FirstContact = &first.Time
	}
	if last.Valid {
		s.Overall.LastContact = &last.Time
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT company, COUNT(*) AS count
		FROM linkedin_contacts
		WHERE company IS NOT NULL AND company != ''
		GROUP BY company
		ORDER BY count DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("top companies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cc contact.CompanyCount
		if err := rows.Scan(&cc.Company, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan company count: %w", err)
		}
		s.TopCompanies = append(s.TopCompanies, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	actRows, err := r.db.QueryContext(ctx, `
		SELECT DATE(received_at) AS date, COUNT(*) AS webhook_count
		FROM webhook_logs
		WHERE received_at > CURRENT_TIMESTAMP - INTERVAL '7 days'
		GROUP BY DATE(received_at)
		ORDER BY date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	defer actRows.Close()
	for actRows.Next() {
		var day time.Time
		var count int
		if err := actRows.Scan(&day, &count); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		s.RecentActivity = append(s.RecentActivity, contact.DailyActivity{
			Date:  day.Format("2006-01-02"),
			Count: count,
		})
	}
	return s, actRows.Err()
}

// RecentLogs returns the latest delivery log entries. The raw payload
// column is left out of the feed; it is available per-row if ever needed.
func (r *ContactRepo) RecentLogs(ctx context.Context, limit int) ([]domain.WebhookLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT log_id, receipt_id, event_type,
		       COALESCE(contact_email, ''), COALESCE(contact_name, ''),
		       COALESCE(linkedin_url, ''),
		       received_at, processed, contact_id, COALESCE(processing_notes, '')
		FROM webhook_logs
		ORDER BY received_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent logs: %w", err)
	}
	defer rows.Close()

	var out []domain.WebhookLog
	for rows.Next() {
		var l domain.WebhookLog
		var contactID sql.NullInt64
		if err := rows.Scan(
			&l.LogID, &l.ReceiptID, &l.EventType,
			&l.ContactEmail, &l.ContactName, &l.LinkedInURL,
			&l.ReceivedAt, &l.Processed, &contactID, &l.ProcessingNotes,
		); err != nil {
			return nil, fmt.Errorf("scan webhook log: %w", err)
		}
		if contactID.Valid {
			l.ContactID = &contactID.Int64
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Counts returns the totals shown on the index page.
func (r *ContactRepo) Counts(ctx context.Context) (int, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM linkedin_contacts`).Scan(&total); err != nil {
		return 0, 0, fmt.Errorf("count contacts: %w", err)
	}

	var recent int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM webhook_logs
		WHERE received_at > CURRENT_TIMESTAMP - INTERVAL '24 hours'
	`).Scan(&recent); err != nil {
		return 0, 0, fmt.Errorf("count recent webhooks: %w", err)
	}
	return total, recent, nil
}

// ClearContacts deletes every contact row and reports how many went.
// Delivery logs are kept; they are the audit trail.
func (r *ContactRepo) ClearContacts(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM linkedin_contacts`)
	if err != nil {
		return 0, fmt.Errorf("clear contacts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Ping probes connectivity for the health endpoints.
func (r *ContactRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
