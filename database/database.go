package database

import (
	"context"
	"fmt"

	"github.com/sagarc03/pinvault"
	"github.com/sagarc03/pinvault/database/mongodb"
	"github.com/sagarc03/pinvault/database/postgres"
	"github.com/sagarc03/pinvault/database/sqlite"
)

// Supported backend types.
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeMongoDB  = "mongodb"
)

// Database is a connected metadata backend.
type Database interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Validate(ctx context.Context) error
	Files() pinvault.FileRepo
	Credentials() pinvault.CredentialRepo
	Close() error
}

// Config holds the configuration for connecting to a metadata backend.
type Config struct {
	// Type is one of "sqlite", "postgres" or "mongodb".
	Type string `mapstructure:"type" validate:"required,oneof=sqlite postgres mongodb"`
	// DSN is the data source name or connection URI.
	DSN string `mapstructure:"dsn" validate:"required"`
	// Name selects the MongoDB database. Ignored by SQL backends.
	Name string `mapstructure:"name"`
	// AutoMigrate creates missing tables on startup.
	AutoMigrate bool `mapstructure:"auto_migrate"`
	// Tables names the files and credentials tables (collections for MongoDB).
	Tables pinvault.Tables `mapstructure:"tables"`
}

// Connect validates the table names and opens the configured backend.
// Callers run Migrate or Validate themselves.
func Connect(ctx context.Context, cfg Config) (Database, error) {
	if err := cfg.Tables.Validate(); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	switch cfg.Type {
	case TypeSQLite:
		return sqlite.Connect(ctx, cfg.DSN, cfg.Tables)
	case TypePostgres:
		return postgres.Connect(ctx, cfg.DSN, cfg.Tables)
	case TypeMongoDB:
		return mongodb.Connect(ctx, cfg.DSN, cfg.Name, cfg.Tables)
	default:
		return nil, fmt.Errorf("unsupported database type: %q", cfg.Type)
	}
}

// Open connects, pings, migrates when migrate is set, and validates the
// schema. On error nothing is left open.
func Open(ctx context.Context, cfg Config, migrate bool) (Database, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := prepare(ctx, db, migrate); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", cfg.Type, err)
	}

	return db, nil
}

func prepare(ctx context.Context, db Database, migrate bool) error {
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	if migrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}

	return db.Validate(ctx)
}
