package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/contact-webhook/internal/domain"
	"github.com/ignite/contact-webhook/internal/ingest"
)

func newMock(t *testing.T) (*ContactRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewContactRepo(db), mock
}

func testRecord() ingest.Record {
	return ingest.Record{
		Name:        "Ada Lovelace",
		Title:       "Engineer",
		Company:     "Analytical Engines Ltd",
		Email:       "ada@example.com",
		LinkedInURL: "https://linkedin.com/in/ada",
		Raw:         json.RawMessage(`{"name":"Ada Lovelace"}`),
	}
}

func TestReconcileTx_FullEmailUpsertFlow(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()
	rec := testRecord()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO webhook_logs`).
		WithArgs("receipt-1", domain.EventTypeLinkedInData, rec.Email, rec.Name,
			rec.LinkedInURL, []byte(rec.Raw)).
		WillReturnRows(sqlmock.NewRows([]string{"log_id"}).AddRow(41))
	mock.ExpectQuery(`SELECT id FROM linkedin_contacts WHERE email`).
		WithArgs(rec.Email).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`ON CONFLICT \(email\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow(7, true))
	mock.ExpectExec(`UPDATE webhook_logs`).
		WithArgs(int64(41), true, int64Ptr(7), "created id=7").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)

	logID, err := tx.CreateLog(ctx, &domain.WebhookLog{
		ReceiptID:    "receipt-1",
		EventType:    domain.EventTypeLinkedInData,
		ContactEmail: rec.Email,
		ContactName:  rec.Name,
		LinkedInURL:  rec.LinkedInURL,
		WebhookData:  rec.Raw,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(41), logID)

	_, found, err := tx.FindIDByEmail(ctx, rec.Email)
	require.NoError(t, err)
	assert.False(t, found)

	id, inserted, err := tx.UpsertByEmail(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.True(t, inserted)

	require.NoError(t, tx.FinalizeLog(ctx, logID, int64Ptr(7), true, "created id=7"))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileTx_UpsertByLinkedInURLPreservesEmail(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()
	rec := testRecord()
	rec.Email = ""

	mock.ExpectBegin()
	// The statement must coalesce the incoming NULL email with the stored one.
	mock.ExpectQuery(`ON CONFLICT \(linkedin_url\) DO UPDATE[\s\S]*COALESCE\(EXCLUDED\.email, linkedin_contacts\.email\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "inserted"}).AddRow(3, false))
	mock.ExpectRollback()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)

	id, inserted, err := tx.UpsertByLinkedInURL(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.False(t, inserted)

	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileTx_UpsertByEmailConcurrentURLConflict(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`ON CONFLICT \(email\) DO UPDATE`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "linkedin_contacts_linkedin_url_key"})
	mock.ExpectRollback()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)

	_, _, err = tx.UpsertByEmail(ctx, testRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrent delivery holds linkedin_contacts_linkedin_url_key")

	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileTx_FindByEmailFound(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM linkedin_contacts WHERE email`).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectRollback()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)

	id, found, err := tx.FindIDByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(12), id)

	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileTx_UpdateContactVanishedRow(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE linkedin_contacts SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := repo.Begin(ctx)
	require.NoError(t, err)

	err = tx.UpdateContact(ctx, 99, testRecord())
	assert.Error(t, err)

	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileTx_RollbackAfterCommitIsNoop(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	tx, err := repo.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportContacts(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`FROM linkedin_contacts[\s\S]*ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "title", "company", "location",
			"email", "linkedin_url", "website", "website_text", "profile_data",
			"created_at", "updated_at",
		}).
			AddRow(2, "Bob", "", "", "", "", "https://linkedin.com/in/bob", "", "", "", now, now).
			AddRow(1, "Ada", "Engineer", "AE Ltd", "London", "ada@example.com", "", "", "", "", now, now))

	out, err := repo.ExportContacts(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Bob", out[0].Name)
	assert.Empty(t, out[0].Email, "NULL email reads back as empty string")
	assert.Equal(t, "ada@example.com", out[1].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	repo, mock := newMock(t)
	first := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`COUNT\(DISTINCT company\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "companies", "locations", "min", "max"}).
			AddRow(10, 4, 3, first, last))
	mock.ExpectQuery(`GROUP BY company`).
		WillReturnRows(sqlmock.NewRows([]string{"company", "count"}).
			AddRow("AE Ltd", 6).AddRow("Acme", 4))
	mock.ExpectQuery(`GROUP BY DATE\(received_at\)`).
		WillReturnRows(sqlmock.NewRows([]string{"date", "webhook_count"}).
			AddRow(last, 5))

	s, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, s.Overall.TotalContacts)
	assert.Equal(t, 4, s.Overall.UniqueCompanies)
	require.NotNil(t, s.Overall.FirstContact)
	require.Len(t, s.TopCompanies, 2)
	assert.Equal(t, "AE Ltd", s.TopCompanies[0].Company)
	require.Len(t, s.RecentActivity, 1)
	assert.Equal(t, "2026-08-28", s.RecentActivity[0].Date)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats_EmptyTable(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`COUNT\(DISTINCT company\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "companies", "locations", "min", "max"}).
			AddRow(0, 0, 0, nil, nil))
	mock.ExpectQuery(`GROUP BY company`).
		WillReturnRows(sqlmock.NewRows([]string{"company", "count"}))
	mock.ExpectQuery(`GROUP BY DATE\(received_at\)`).
		WillReturnRows(sqlmock.NewRows([]string{"date", "webhook_count"}))

	s, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s.Overall.TotalContacts)
	assert.Nil(t, s.Overall.FirstContact)
	assert.Nil(t, s.Overall.LastContact)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentLogs(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`FROM webhook_logs[\s\S]*LIMIT \$1`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{
			"log_id", "receipt_id", "event_type", "contact_email", "contact_name",
			"linkedin_url", "received_at", "processed", "contact_id", "processing_notes",
		}).
			AddRow(9, "r-9", "linkedin_data", "ada@example.com", "Ada", "", now, true, 7, "updated id=7 matched by email").
			AddRow(8, "r-8", "linkedin_data", "", "", "", now, false, nil, "skipped: no usable identifier"))

	logs, err := repo.RecentLogs(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.NotNil(t, logs[0].ContactID)
	assert.Equal(t, int64(7), *logs[0].ContactID)
	assert.False(t, logs[1].Processed)
	assert.Nil(t, logs[1].ContactID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearContacts(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`DELETE FROM linkedin_contacts`).
		WillReturnResult(sqlmock.NewResult(0, 13))

	n, err := repo.ClearContacts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCounts(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM linkedin_contacts`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM webhook_logs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	total, recent, err := repo.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, total)
	assert.Equal(t, 5, recent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func int64Ptr(v int64) *int64 { return &v }
