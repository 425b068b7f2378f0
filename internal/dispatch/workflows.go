package dispatch

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/attestix/compliance-cli/internal/model"
)

// Workflows holds workflow definitions parameterized by dispatch options.
// Each workflow is a thin shell around one activity; retry and time limits
// live in the activity options so every execution counts against the same
// attempt limit.
type Workflows struct {
	opts Options
}

// NewWorkflows builds workflow definitions from options.
func NewWorkflows(opts Options) *Workflows {
	return &Workflows{opts: opts}
}

func (w *Workflows) activityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: w.opts.HardTimeLimit,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    w.opts.RetryDelay,
			BackoffCoefficient: 1.0,
			MaximumInterval:    w.opts.RetryDelay,
			MaximumAttempts:    w.opts.MaxAttempts(),
		},
	}
}

// ExtractDocument runs the extraction activity for one document.
func (w *Workflows) ExtractDocument(ctx workflow.Context, documentID string) (*model.ExtractionSummary, error) {
	ctx = workflow.WithActivityOptions(ctx, w.activityOptions())

	var summary model.ExtractionSummary
	if err := workflow.ExecuteActivity(ctx, ActivityExtractDocument, documentID).Get(ctx, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ProcessScan runs the scoring activity for one scan.
func (w *Workflows) ProcessScan(ctx workflow.Context, scanID string) (*model.ScanSummary, error) {
	ctx = workflow.WithActivityOptions(ctx, w.activityOptions())

	var summary model.ScanSummary
	if err := workflow.ExecuteActivity(ctx, ActivityProcessScan, scanID).Get(ctx, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// CleanupScans runs the periodic retention sweep. Cron-scheduled runs get a
// single attempt; a missed sweep is picked up by the next tick.
func (w *Workflows) CleanupScans(ctx workflow.Context) (int, error) {
	opts := w.activityOptions()
	opts.RetryPolicy.MaximumAttempts = 1
	opts.StartToCloseTimeout = 5 * time.Minute
	ctx = workflow.WithActivityOptions(ctx, opts)

	var deleted int
	if err := workflow.ExecuteActivity(ctx, ActivityCleanupScans).Get(ctx, &deleted); err != nil {
		return 0, err
	}
	return deleted, nil
}
