package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/pinvault/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "pinvault",
	Short:   "PIN-gated personal file vault",
	Long: `PinVault keeps one person's files behind a four digit PIN.
Metadata lives in SQLite, PostgreSQL or MongoDB; file bytes live on the
local filesystem or in an S3 bucket.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Env, cfg.Log.Level)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path, repeatable; later files override earlier ones (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres, mongodb (default: sqlite, env: PINVAULT_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (default: pinvault.db, env: PINVAULT_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("storage-type", "", "object store: filesystem, s3 (default: filesystem, env: PINVAULT_STORAGE_TYPE)")
	rootCmd.PersistentFlags().String("storage-path", "", "storage directory for the filesystem backend (default: ./data, env: PINVAULT_STORAGE_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: PINVAULT_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
