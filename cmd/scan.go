package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/attestix/compliance-cli/internal/model"
)

var (
	scanOrgID     string
	scanControlID string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Manage compliance scans",
}

var scanEnqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Create a scan and queue it for processing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		scan := &model.Scan{
			ID:        uuid.New().String(),
			OrgID:     scanOrgID,
			ControlID: scanControlID,
			Status:    model.ScanStatusQueued,
		}

		if err := e.Store.CreateScan(ctx, scan); err != nil {
			return eris.Wrap(err, "create scan")
		}
		if err := e.Dispatcher.EnqueueScan(ctx, scan.ID); err != nil {
			return eris.Wrap(err, "enqueue scan")
		}

		zap.L().Info("scan queued",
			zap.String("scan_id", scan.ID),
			zap.String("control_id", scan.ControlID),
		)
		return nil
	},
}

var scanStatusCmd = &cobra.Command{
	Use:   "status <scan-id>",
	Short: "Show a scan with its results and gaps",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		scan, err := e.Store.GetScan(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "load scan %s", args[0])
		}

		out := map[string]any{"scan": scan}
		if scan.Status.Terminal() {
			results, err := e.Store.ListScanResults(ctx, scan.ID)
			if err != nil {
				return eris.Wrap(err, "load results")
			}
			gaps, err := e.Store.ListGaps(ctx, scan.ID)
			if err != nil {
				return eris.Wrap(err, "load gaps")
			}
			out["results"] = results
			out["gaps"] = gaps
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	scanEnqueueCmd.Flags().StringVar(&scanOrgID, "org", "", "organization ID")
	scanEnqueueCmd.Flags().StringVar(&scanControlID, "control", "", "control ID")
	scanEnqueueCmd.MarkFlagRequired("org")
	scanEnqueueCmd.MarkFlagRequired("control")

	scanCmd.AddCommand(scanEnqueueCmd)
	scanCmd.AddCommand(scanStatusCmd)
	rootCmd.AddCommand(scanCmd)
}
