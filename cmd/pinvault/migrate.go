package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/pinvault/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the metadata tables",
	Long: `Create the files and credentials tables (collections for MongoDB) if
they are missing, then validate the schema. Use this when
database.auto_migrate is disabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.FromContext(cmd.Context())
		if err != nil {
			return err
		}

		db, err := openDatabase(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		slog.Info("database migration complete",
			"files", cfg.Database.Tables.Files,
			"credentials", cfg.Database.Tables.Credentials)
		return nil
	},
}

var migratePINCmd = &cobra.Command{
	Use:   "migrate-pin",
	Short: "Hash a PIN stored in plain text",
	Long: `Older deployments stored the PIN as plain text. Plain PINs keep
working, but they are never upgraded on login. This command rewrites a plain
PIN as a bcrypt hash of the same value. It does nothing when the PIN is
already hashed or no PIN has been set yet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		auth, err := newAuthService(cfg, db)
		if err != nil {
			return err
		}

		migrated, err := auth.MigrateLegacy(ctx)
		if err != nil {
			return err
		}

		if migrated {
			slog.Info("plain text PIN replaced with a bcrypt hash")
		} else {
			slog.Info("nothing to migrate")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migratePINCmd)
}
