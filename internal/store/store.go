// Package store persists documents, scans, and scoring output.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/attestix/compliance-cli/internal/model"
)

// ErrNotFound is returned when a referenced entity does not exist. Check
// with errors.Is; callers classify it as non-retryable.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for the scan pipeline.
type Store interface {
	// Documents
	CreateDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	SetDocumentExtractionStatus(ctx context.Context, id string, status model.ExtractionStatus) error
	// SavePages appends the page rows and marks the document extracted in a
	// single transaction; a failed attempt leaves no partial page set.
	SavePages(ctx context.Context, documentID string, pages []model.DocumentPage) error
	ListDocumentPages(ctx context.Context, documentID string) ([]model.DocumentPage, error)

	// Controls
	GetControl(ctx context.Context, id string) (*model.Control, error)
	ListRequirements(ctx context.Context, controlID string) ([]model.Requirement, error)
	ListEvidenceLinks(ctx context.Context, orgID, controlID string) ([]model.EvidenceLink, error)

	// Scans
	CreateScan(ctx context.Context, scan *model.Scan) error
	GetScan(ctx context.Context, id string) (*model.Scan, error)
	// StartScanRun marks the scan processing and stamps run metadata in one
	// commit, independent of any later result transaction.
	StartScanRun(ctx context.Context, id, modelID, promptVersion string) error
	UpdateScanStatus(ctx context.Context, id string, status model.ScanStatus) error
	// SaveScanOutput writes all result and gap rows in a single transaction.
	SaveScanOutput(ctx context.Context, scanID string, results []model.ScanResult, gaps []model.Gap) error
	ListScanResults(ctx context.Context, scanID string) ([]model.ScanResult, error)
	ListGaps(ctx context.Context, scanID string) ([]model.Gap, error)

	// Cleanup
	DeleteScansBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
