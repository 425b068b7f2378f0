package dispatch

import (
	"context"
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/attestix/compliance-cli/internal/model"
	"github.com/attestix/compliance-cli/internal/resilience"
	"github.com/attestix/compliance-cli/internal/store"
)

// Activity names, stable across deploys.
const (
	ActivityExtractDocument = "extract_document_activity"
	ActivityProcessScan     = "process_scan_activity"
	ActivityCleanupScans    = "cleanup_scans_activity"
)

// DocumentExtractor runs text extraction for one document.
type DocumentExtractor interface {
	Run(ctx context.Context, documentID string) (*model.ExtractionSummary, error)
}

// ScanProcessor runs one scan end to end.
type ScanProcessor interface {
	Run(ctx context.Context, scanID string) (*model.ScanSummary, error)
}

// Activities bundles the worker-side task implementations.
type Activities struct {
	extractor DocumentExtractor
	processor ScanProcessor
	store     store.Store
	opts      Options
	retention time.Duration
}

// NewActivities wires activities from their collaborators. A zero retention
// disables cleanup deletion; the sweep then only reports.
func NewActivities(extractor DocumentExtractor, processor ScanProcessor, st store.Store, opts Options, retentionDays int) *Activities {
	return &Activities{
		extractor: extractor,
		processor: processor,
		store:     st,
		opts:      opts,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// ExtractDocument is the extraction activity body.
func (a *Activities) ExtractDocument(ctx context.Context, documentID string) (*model.ExtractionSummary, error) {
	stop := a.softLimitWarning("extract_document", documentID)
	defer stop()

	summary, err := a.extractor.Run(ctx, documentID)
	if err != nil {
		return nil, classify(err, "extract_document")
	}
	return summary, nil
}

// ProcessScan is the scoring activity body.
func (a *Activities) ProcessScan(ctx context.Context, scanID string) (*model.ScanSummary, error) {
	stop := a.softLimitWarning("process_scan", scanID)
	defer stop()

	summary, err := a.processor.Run(ctx, scanID)
	if err != nil {
		return nil, classify(err, "process_scan")
	}
	return summary, nil
}

// CleanupScans deletes terminal scans older than the retention window and
// returns the number removed. With retention disabled it only logs.
func (a *Activities) CleanupScans(ctx context.Context) (int, error) {
	if a.retention <= 0 {
		zap.L().Info("scan cleanup skipped, retention disabled")
		return 0, nil
	}

	cutoff := time.Now().UTC().Add(-a.retention)
	deleted, err := a.store.DeleteScansBefore(ctx, cutoff)
	if err != nil {
		return 0, classify(err, "cleanup_scans")
	}

	zap.L().Info("scan cleanup completed",
		zap.Time("cutoff", cutoff),
		zap.Int("scans_deleted", deleted),
	)
	return deleted, nil
}

// softLimitWarning logs once if the task outlives the soft time limit. The
// task keeps running; only the hard limit aborts it.
func (a *Activities) softLimitWarning(task, id string) func() {
	if a.opts.SoftTimeLimit <= 0 {
		return func() {}
	}

	timer := time.AfterFunc(a.opts.SoftTimeLimit, func() {
		zap.L().Warn("task exceeded soft time limit",
			zap.String("task", task),
			zap.String("id", id),
			zap.Duration("soft_limit", a.opts.SoftTimeLimit),
		)
	})
	return func() { timer.Stop() }
}

// classify translates a task error into its dispatch outcome. Missing
// entities and errors marked fatal terminate immediately; everything else is
// left retryable for the broker's bounded redelivery.
func classify(err error, task string) error {
	if errors.Is(err, store.ErrNotFound) {
		return temporal.NewNonRetryableApplicationError(err.Error(), "not_found", err)
	}
	if resilience.IsFatal(err) {
		return temporal.NewNonRetryableApplicationError(err.Error(), "fatal", err)
	}

	zap.L().Warn("task failed, eligible for redelivery",
		zap.String("task", task),
		zap.Error(err),
	)
	return err
}
