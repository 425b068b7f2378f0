package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/attestix/compliance-cli/internal/dispatch"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run task queue workers",
	Long:  "Consumes the extraction, ai-tasks, and default queues, and registers the nightly scan cleanup schedule.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		acts, err := e.activities()
		if err != nil {
			return err
		}

		if err := e.Dispatcher.ScheduleCleanup(ctx); err != nil {
			// A worker that can process tasks is worth keeping even when the
			// cron registration fails; the next restart retries it.
			zap.L().Warn("could not schedule cleanup", zap.Error(err))
		}

		return dispatch.RunWorkers(ctx, e.Temporal, acts, e.Options)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
