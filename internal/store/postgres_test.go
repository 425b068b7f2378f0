package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestix/compliance-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetScan_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, org_id, control_id, status, model, prompt_version, created_at, updated_at FROM scans WHERE id = \$1`).
		WithArgs("missing-scan").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetScan(context.Background(), "missing-scan")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetScan(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, org_id, control_id, status, model, prompt_version, created_at, updated_at FROM scans WHERE id = \$1`).
		WithArgs("scan-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "org_id", "control_id", "status", "model", "prompt_version", "created_at", "updated_at"}).
			AddRow("scan-1", "org-1", "ctrl-1", "queued", "", "", now, now))

	sc, err := s.GetScan(context.Background(), "scan-1")
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusQueued, sc.Status)
	assert.Equal(t, "ctrl-1", sc.ControlID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_StartScanRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE scans SET status = \$1, model = \$2, prompt_version = \$3, updated_at = \$4 WHERE id = \$5`).
		WithArgs("processing", "claude-sonnet-4-5-20250929", "v1.0", pgxmock.AnyArg(), "scan-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.StartScanRun(context.Background(), "scan-1", "claude-sonnet-4-5-20250929", "v1.0")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateScanStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE scans SET status = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs("failed", pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateScanStatus(context.Background(), "ghost", model.ScanStatusFailed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDocument_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, org_id, filename, mime_type, storage_key, extraction_status, created_at FROM documents WHERE id = \$1`).
		WithArgs("missing-doc").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetDocument(context.Background(), "missing-doc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SavePages_CommitsAtomically(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"document_pages"},
		[]string{"id", "document_id", "page_num", "text", "created_at"}).
		WillReturnResult(2)
	mock.ExpectExec(`UPDATE documents SET extraction_status = \$1 WHERE id = \$2`).
		WithArgs("extracted", "doc-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	pages := []model.DocumentPage{
		{PageNum: 1, Text: "page one"},
		{PageNum: 2, Text: "page two"},
	}
	err := s.SavePages(context.Background(), "doc-1", pages)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SavePages_RollsBackOnStatusFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"document_pages"},
		[]string{"id", "document_id", "page_num", "text", "created_at"}).
		WillReturnResult(1)
	mock.ExpectExec(`UPDATE documents SET extraction_status = \$1 WHERE id = \$2`).
		WithArgs("extracted", "doc-1").
		WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	err := s.SavePages(context.Background(), "doc-1", []model.DocumentPage{{PageNum: 1, Text: "p"}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveScanOutput(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO scan_results`).
		WithArgs(pgxmock.AnyArg(), "scan-1", "req-1", "pass", "0.9", `"meets the requirement"`, `["doc p1"]`, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO gaps`).
		WithArgs(pgxmock.AnyArg(), "scan-1", "req-2", "no MFA policy", `["enable MFA"]`, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	results := []model.ScanResult{{
		RequirementID: "req-1",
		Outcome:       "pass",
		Confidence:    "0.9",
		RationaleJSON: `"meets the requirement"`,
		CitationsJSON: `["doc p1"]`,
	}}
	gaps := []model.Gap{{
		RequirementID:          "req-2",
		Summary:                "no MFA policy",
		RecommendedActionsJSON: `["enable MFA"]`,
	}}

	err := s.SaveScanOutput(context.Background(), "scan-1", results, gaps)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveScanOutput_RollsBackOnInsertFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO scan_results`).
		WithArgs(pgxmock.AnyArg(), "scan-1", "req-1", "pass", "0.9", `""`, `[]`, pgxmock.AnyArg()).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	results := []model.ScanResult{{
		RequirementID: "req-1",
		Outcome:       "pass",
		Confidence:    "0.9",
		RationaleJSON: `""`,
		CitationsJSON: `[]`,
	}}

	err := s.SaveScanOutput(context.Background(), "scan-1", results, nil)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListEvidenceLinks(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT el.id, el.org_id, el.document_id, el.control_id, el.created_at, d.filename`).
		WithArgs("org-1", "ctrl-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "org_id", "document_id", "control_id", "created_at", "filename"}).
			AddRow("link-1", "org-1", "doc-1", "ctrl-1", now, "policy.pdf").
			AddRow("link-2", "org-1", "doc-2", "ctrl-1", now, "audit.pdf"))

	links, err := s.ListEvidenceLinks(context.Background(), "org-1", "ctrl-1")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "policy.pdf", links[0].DocumentName)
	assert.Equal(t, "doc-2", links[1].DocumentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListEvidenceLinks_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT el.id, el.org_id, el.document_id, el.control_id, el.created_at, d.filename`).
		WithArgs("org-1", "ctrl-none").
		WillReturnRows(pgxmock.NewRows([]string{"id", "org_id", "document_id", "control_id", "created_at", "filename"}))

	links, err := s.ListEvidenceLinks(context.Background(), "org-1", "ctrl-none")
	require.NoError(t, err)
	assert.Empty(t, links)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteScansBefore(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM scan_results WHERE scan_id IN`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectExec(`DELETE FROM gaps WHERE scan_id IN`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM scans WHERE created_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	n, err := s.DeleteScansBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
