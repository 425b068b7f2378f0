package dispatch

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/attestix/compliance-cli/internal/config"
)

// Enqueuer submits work to the dispatch layer. Implemented by Dispatcher;
// mocked in intake tests.
type Enqueuer interface {
	EnqueueExtraction(ctx context.Context, documentID string) error
	EnqueueScan(ctx context.Context, scanID string) error
	ScheduleCleanup(ctx context.Context) error
}

// Dispatcher enqueues workflows on a Temporal client.
type Dispatcher struct {
	client client.Client
	opts   Options
}

// Dial connects to the broker and returns a Dispatcher over the connection.
func Dial(cfg config.TemporalConfig, opts Options) (*Dispatcher, client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "dispatch: dial broker")
	}
	return NewDispatcher(c, opts), c, nil
}

// NewDispatcher wraps an existing client.
func NewDispatcher(c client.Client, opts Options) *Dispatcher {
	return &Dispatcher{client: c, opts: opts}
}

// EnqueueExtraction submits a text extraction task for the document. The
// workflow ID is derived from the document so a duplicate submit while one
// is in flight dedupes instead of double-extracting.
func (d *Dispatcher) EnqueueExtraction(ctx context.Context, documentID string) error {
	run, err := d.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        fmt.Sprintf("extract-%s", documentID),
		TaskQueue: QueueExtraction,
	}, WorkflowExtractDocument, documentID)
	if err != nil {
		return eris.Wrapf(err, "dispatch: enqueue extraction for document %s", documentID)
	}

	zap.L().Info("extraction enqueued",
		zap.String("document_id", documentID),
		zap.String("run_id", run.GetRunID()),
	)
	return nil
}

// EnqueueScan submits a scan-processing task.
func (d *Dispatcher) EnqueueScan(ctx context.Context, scanID string) error {
	run, err := d.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        fmt.Sprintf("scan-%s", scanID),
		TaskQueue: QueueAITasks,
	}, WorkflowProcessScan, scanID)
	if err != nil {
		return eris.Wrapf(err, "dispatch: enqueue scan %s", scanID)
	}

	zap.L().Info("scan enqueued",
		zap.String("scan_id", scanID),
		zap.String("run_id", run.GetRunID()),
	)
	return nil
}

// ScheduleCleanup registers the nightly retention sweep. The fixed workflow
// ID makes the call idempotent across worker restarts.
func (d *Dispatcher) ScheduleCleanup(ctx context.Context) error {
	_, err := d.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           "cleanup-old-scans",
		TaskQueue:    QueueDefault,
		CronSchedule: d.opts.CleanupCron,
	}, WorkflowCleanupScans)
	if err != nil {
		return eris.Wrap(err, "dispatch: schedule cleanup")
	}

	zap.L().Info("cleanup scheduled", zap.String("cron", d.opts.CleanupCron))
	return nil
}
