package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sagarc03/pinvault/config"
	vaulthttp "github.com/sagarc03/pinvault/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the PinVault HTTP server.

The server exposes the JSON API under /api, signed blob downloads under
/blobs when the filesystem backend is in use, and the client UI from
--static-dir when one is configured.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5000, "HTTP server port (env: PINVAULT_SERVER_PORT)")
	serveCmd.Flags().String("public-url", "", "externally reachable base URL used in signed blob URLs")
	serveCmd.Flags().String("static-dir", "", "directory holding the client UI")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	db, err := openDatabase(ctx, cfg, cfg.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	files, objects, err := openFileService(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer objects.close()

	auth, err := newAuthService(cfg, db)
	if err != nil {
		return err
	}

	handlerConfig := vaulthttp.HandlerConfig{
		CORS:      cfg.CORS,
		StaticDir: cfg.Server.StaticDir,
		Logger:    slog.Default(),
	}
	if objects.blobs != nil {
		handlerConfig.Blobs = objects.blobs
		handlerConfig.BlobVerifier = objects.verifier
	}

	handler := vaulthttp.NewHandler(&handlerConfig, auth, files)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "public_url", cfg.Server.BaseURL(), "storage", cfg.Storage.Type)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
