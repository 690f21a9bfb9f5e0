// Package sqlite implements the vault's metadata repos on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/pinvault"

	_ "modernc.org/sqlite" // SQLite driver
)

// Database provides SQLite database operations.
type Database struct {
	db     *sql.DB
	tables pinvault.Tables
}

// Connect opens the SQLite database at dsn.
// Tables should be validated before calling Connect.
func Connect(_ context.Context, dsn string, tables pinvault.Tables) (*Database, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}

	// One connection keeps :memory: databases whole and serializes writers.
	db.SetMaxOpenConns(1)

	return &Database{
		db:     db,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate creates the files and credentials tables if they are missing.
func (d *Database) Migrate(ctx context.Context) error {
	return Migrate(ctx, d.db, d.tables)
}

// Validate checks that the database schema matches expected structure.
func (d *Database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db, d.tables)
}

// Files returns the file metadata repo.
func (d *Database) Files() pinvault.FileRepo {
	return &fileRepo{db: d.db, tableName: quoteIdentifier(d.tables.Files)}
}

// Credentials returns the singleton credential repo.
func (d *Database) Credentials() pinvault.CredentialRepo {
	return &credentialRepo{db: d.db, tableName: quoteIdentifier(d.tables.Credentials)}
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}
