package dispatch

import (
	"context"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunWorkers starts one worker per task queue and blocks until ctx is
// canceled or a worker fails. Extraction runs wide; scoring is serialized to
// one in-flight model call per worker to respect provider rate limits.
func RunWorkers(ctx context.Context, c client.Client, acts *Activities, opts Options) error {
	wf := NewWorkflows(opts)

	extraction := worker.New(c, QueueExtraction, worker.Options{
		MaxConcurrentActivityExecutionSize: opts.ExtractionConcurrency,
	})
	extraction.RegisterWorkflowWithOptions(wf.ExtractDocument, workflow.RegisterOptions{Name: WorkflowExtractDocument})
	extraction.RegisterActivityWithOptions(acts.ExtractDocument, activityRegisterOptions(ActivityExtractDocument))

	aiTasks := worker.New(c, QueueAITasks, worker.Options{
		MaxConcurrentActivityExecutionSize: opts.ScanConcurrency,
	})
	aiTasks.RegisterWorkflowWithOptions(wf.ProcessScan, workflow.RegisterOptions{Name: WorkflowProcessScan})
	aiTasks.RegisterActivityWithOptions(acts.ProcessScan, activityRegisterOptions(ActivityProcessScan))

	def := worker.New(c, QueueDefault, worker.Options{})
	def.RegisterWorkflowWithOptions(wf.CleanupScans, workflow.RegisterOptions{Name: WorkflowCleanupScans})
	def.RegisterActivityWithOptions(acts.CleanupScans, activityRegisterOptions(ActivityCleanupScans))

	zap.L().Info("workers starting",
		zap.Int("extraction_concurrency", opts.ExtractionConcurrency),
		zap.Int("scan_concurrency", opts.ScanConcurrency),
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, w := range []worker.Worker{extraction, aiTasks, def} {
		g.Go(func() error {
			return w.Run(interruptFromContext(ctx))
		})
	}
	return g.Wait()
}

func activityRegisterOptions(name string) activity.RegisterOptions {
	return activity.RegisterOptions{Name: name}
}

// interruptFromContext adapts context cancellation to the worker's
// interrupt channel.
func interruptFromContext(ctx context.Context) <-chan interface{} {
	ch := make(chan interface{})
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}
