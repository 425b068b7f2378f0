// Package dispatch routes extraction, scan, and cleanup work through
// Temporal task queues with bounded retries and per-task time limits.
package dispatch

import (
	"time"

	"github.com/attestix/compliance-cli/internal/config"
)

// Task queue names. Extraction and scoring are isolated so a backlog of
// model calls never starves text extraction, and vice versa.
const (
	QueueExtraction = "extraction"
	QueueAITasks    = "ai-tasks"
	QueueDefault    = "default"
)

// Workflow names, stable across deploys. Enqueued runs reference these by
// name so renaming a Go function never strands in-flight work.
const (
	WorkflowExtractDocument = "extract_document_text"
	WorkflowProcessScan     = "process_scan"
	WorkflowCleanupScans    = "cleanup_old_scans"
)

// Options carries the dispatch tuning derived from configuration. Every
// consumer receives it explicitly; there is no package-level instance.
type Options struct {
	// RetryAttempts is the number of redeliveries after the first failure.
	RetryAttempts int

	// RetryDelay is the fixed interval between redeliveries.
	RetryDelay time.Duration

	// SoftTimeLimit is advisory: a task exceeding it logs a warning but
	// keeps running.
	SoftTimeLimit time.Duration

	// HardTimeLimit bounds a single task execution; the broker aborts and
	// redelivers past it.
	HardTimeLimit time.Duration

	// ExtractionConcurrency bounds parallel extraction tasks per worker.
	ExtractionConcurrency int

	// ScanConcurrency bounds parallel scan tasks per worker.
	ScanConcurrency int

	// CleanupCron is the cron expression for the periodic cleanup run.
	CleanupCron string
}

// OptionsFromConfig maps dispatch configuration to Options.
func OptionsFromConfig(cfg config.DispatchConfig) Options {
	return Options{
		RetryAttempts:         cfg.RetryAttempts,
		RetryDelay:            time.Duration(cfg.RetryDelaySecs) * time.Second,
		SoftTimeLimit:         time.Duration(cfg.SoftTimeLimitSecs) * time.Second,
		HardTimeLimit:         time.Duration(cfg.HardTimeLimitSecs) * time.Second,
		ExtractionConcurrency: cfg.ExtractionConcurrency,
		ScanConcurrency:       cfg.ScanConcurrency,
		CleanupCron:           cfg.CleanupCron,
	}
}

// MaxAttempts is the total execution count: the first try plus retries.
func (o Options) MaxAttempts() int32 {
	return int32(o.RetryAttempts) + 1
}
