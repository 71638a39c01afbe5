package contact

import (
	"context"
	"time"

	"github.com/ignite/contact-webhook/internal/domain"
	"github.com/ignite/contact-webhook/internal/ingest"
)

// Repository defines the transactional data access contract for
// reconciliation. Begin returns a Tx scoped to one delivery; every write
// for that delivery happens inside it.
type Repository interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one reconciliation transaction. Commit or Rollback must be called
// exactly once; Rollback after Commit is a no-op.
type Tx interface {
	// CreateLog inserts the delivery audit row (processed=false) and
	// returns its log_id.
	CreateLog(ctx context.Context, log *domain.WebhookLog) (int64, error)

	// FindIDByEmail returns the id of the contact with this email, if any.
	FindIDByEmail(ctx context.Context, email string) (int64, bool, error)

	// FindIDByLinkedInURL returns the id of the contact with this profile
	// URL, if any.
	FindIDByLinkedInURL(ctx context.Context, url string) (int64, bool, error)

	// UpdateContact overwrites every mutable field of the row (including
	// email) from the record and refreshes updated_at.
	UpdateContact(ctx context.Context, id int64, rec ingest.Record) error

	// UpsertByEmail inserts the record, resolving an email-key conflict by
	// updating the existing row. Returns the row id and whether a new row
	// was inserted.
	UpsertByEmail(ctx context.Context, rec ingest.Record) (int64, bool, error)

	// UpsertByLinkedInURL inserts the record, resolving a profile-URL-key
	// conflict by updating the existing row. The stored email is preserved
	// unless the record supplies a non-empty one.
	UpsertByLinkedInURL(ctx context.Context, rec ingest.Record) (int64, bool, error)

	// FinalizeLog sets the outcome of the delivery audit row. contactID is
	// nil for skipped deliveries, which also stay processed=false.
	FinalizeLog(ctx context.Context, logID int64, contactID *int64, processed bool, note string) error

	Commit() error
	Rollback() error
}

// ReadRepository serves the read-side projections (export, stats, logs).
type ReadRepository interface {
	ExportContacts(ctx context.Context) ([]domain.Contact, error)
	Stats(ctx context.Context) (*Stats, error)
	RecentLogs(ctx context.Context, limit int) ([]domain.WebhookLog, error)
	Counts(ctx context.Context) (total int, webhooksLast24h int, err error)
	ClearContacts(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Stats holds the aggregate view served by GET /stats.
type Stats struct {
	Overall        OverallStats    `json:"overall"`
	TopCompanies   []CompanyCount  `json:"top_companies"`
	RecentActivity []DailyActivity `json:"recent_activity"`
}

// OverallStats summarizes the whole contact table.
type OverallStats struct {
	TotalContacts   int        `json:"total_contacts"`
	UniqueCompanies int        `json:"unique_companies"`
	UniqueLocations int        `json:"unique_locations"`
	FirstContact    *time.Time `json:"first_contact,omitempty"`
	LastContact     *time.Time `json:"last_contact,omitempty"`
}

// CompanyCount is one row of the top-companies grouping.
type CompanyCount struct {
	Company string `json:"company"`
	Count   int    `json:"count"`
}

// DailyActivity is one day's webhook delivery count.
type DailyActivity struct {
	Date  string `json:"date"`
	Count int    `json:"webhook_count"`
}
