package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/pinvault"
	"github.com/sagarc03/pinvault/config"
)

var removeCmd = &cobra.Command{
	Use:   "remove [flags] <id1> [id2] ...",
	Short: "Delete files from the vault",
	Long: `Delete files by id. The blob is removed first, then the metadata record.

Examples:
  # Remove a single file
  pinvault remove 3f6c9a0e-3b1e-4c55-9d43-7f2d1c0b8e21

  # Keep going when an id does not exist
  pinvault remove --ignore-missing id1 id2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

var (
	removeIgnoreMissing bool
	removeQuiet         bool
)

func init() {
	removeCmd.Flags().BoolVar(&removeIgnoreMissing, "ignore-missing", false, "skip ids that do not exist instead of failing")
	removeCmd.Flags().BoolVarP(&removeQuiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
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

	removed, skipped := 0, 0
	for _, id := range args {
		deleteErr := service.Delete(ctx, id)
		if errors.Is(deleteErr, pinvault.ErrNotFound) && removeIgnoreMissing {
			skipped++
			if !removeQuiet {
				slog.Info("skipped (not found)", "id", id)
			}
			continue
		}
		if deleteErr != nil {
			return fmt.Errorf("remove %s: %w", id, deleteErr)
		}

		removed++
		if !removeQuiet {
			slog.Info("removed", "id", id)
		}
	}

	slog.Info("remove complete", "removed", removed, "skipped", skipped)
	return nil
}
