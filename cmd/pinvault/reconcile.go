package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/pinvault/config"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Remove blobs that have no metadata record",
	Long: `Compare the object store with the metadata records.

Blobs with no record are left behind when an upload's metadata write fails.
They are deleted unless --dry-run is given. Records whose blob is missing are
reported but never touched.

The report is printed to stdout as JSON.`,
	RunE: runReconcile,
}

var reconcileDryRun bool

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "report without deleting anything")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	db, err := openDatabase(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	service, objects, err := openFileService(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer objects.close()

	slog.Info("starting reconcile", "dry_run", reconcileDryRun)

	report, err := service.Reconcile(ctx, reconcileDryRun)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	slog.Info("reconcile complete",
		"orphaned_blobs", len(report.OrphanedBlobs),
		"deleted_blobs", report.DeletedBlobs,
		"dangling_records", len(report.DanglingRecords))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
