package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sagarc03/pinvault"
	"github.com/sagarc03/pinvault/config"
	"github.com/sagarc03/pinvault/database"
	"github.com/sagarc03/pinvault/filesystem"
	"github.com/sagarc03/pinvault/keybackend"
	"github.com/sagarc03/pinvault/s3store"
)

// openDatabase connects the metadata backend and checks its schema.
// Tables are created first when migrate is set.
func openDatabase(ctx context.Context, cfg *config.Config, migrate bool) (database.Database, error) {
	db, err := database.Open(ctx, cfg.Database, migrate)
	if err != nil {
		return nil, err
	}
	slog.Info("connected to database", "type", cfg.Database.Type)
	return db, nil
}

// objectStore is the configured blob backend. For the filesystem backend
// blobs and verifier are set so the HTTP server can serve signed URLs.
type objectStore struct {
	store    pinvault.ObjectStore
	blobs    *filesystem.Store
	verifier *pinvault.SignatureVerifier
	close    func()
}

func openObjectStore(ctx context.Context, cfg *config.Config) (*objectStore, error) {
	switch cfg.Storage.Type {
	case "s3":
		store, err := s3store.New(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, fmt.Errorf("open s3 store: %w", err)
		}
		slog.Info("using s3 object store", "bucket", cfg.Storage.S3.Bucket, "endpoint", cfg.Storage.S3.Endpoint)
		return &objectStore{store: store, close: func() {}}, nil

	case "filesystem":
		keys, err := keybackend.NewSecretStore(cfg.Signing.Keys)
		if err != nil {
			return nil, fmt.Errorf("load signing keys: %w", err)
		}
		if keys.Ephemeral() {
			slog.Warn("no signing keys configured, generated a temporary key; issued urls stop working on restart")
		}

		primary, err := keys.Primary()
		if err != nil {
			return nil, fmt.Errorf("load signing keys: %w", err)
		}

		if err := os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}

		root, err := os.OpenRoot(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open storage root: %w", err)
		}

		signer := pinvault.NewSigner(cfg.Signing.Region, cfg.Signing.Service, primary.AccessKey, primary.SecretKey)
		store, err := filesystem.NewStore(root, cfg.Server.BaseURL(), signer)
		if err != nil {
			_ = root.Close()
			return nil, err
		}
		slog.Info("using filesystem object store", "path", cfg.Storage.Path)

		return &objectStore{
			store:    store,
			blobs:    store,
			verifier: pinvault.NewSignatureVerifier(cfg.Signing.Region, cfg.Signing.Service, keys),
			close:    func() { _ = root.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}

// openFileService wires a FileService over the configured backends. Callers
// release the object store with its close func.
func openFileService(ctx context.Context, cfg *config.Config, db database.Database) (*pinvault.FileService, *objectStore, error) {
	objects, err := openObjectStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	service, err := pinvault.NewFileService(db.Files(), objects.store, pinvault.ServiceConfig{
		MaxUploadSize: cfg.Service.MaxUploadSize,
		URLExpiry:     cfg.Service.URLExpiry,
	})
	if err != nil {
		objects.close()
		return nil, nil, fmt.Errorf("create file service: %w", err)
	}

	return service, objects, nil
}

func newAuthService(cfg *config.Config, db database.Database) (*pinvault.AuthService, error) {
	auth, err := pinvault.NewAuthService(db.Credentials(), pinvault.AuthConfig{
		DefaultPIN: cfg.Auth.DefaultPIN,
		HashCost:   cfg.Auth.HashCost,
	})
	if err != nil {
		return nil, fmt.Errorf("create auth service: %w", err)
	}
	return auth, nil
}
