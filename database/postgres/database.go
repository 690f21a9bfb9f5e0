// Package postgres implements the vault's metadata repos on PostgreSQL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/pinvault"
)

// Database provides PostgreSQL database operations.
type Database struct {
	pool   *pgxpool.Pool
	tables pinvault.Tables
}

// Connect establishes a connection pool to PostgreSQL.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, dsn string, tables pinvault.Tables) (*Database, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Database{
		pool:   pool,
		tables: tables,
	}, nil
}

// Ping verifies the database connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Migrate creates the files and credentials tables if they are missing.
func (d *Database) Migrate(ctx context.Context) error {
	return Migrate(ctx, d.pool, d.tables)
}

// Validate checks that the database schema matches expected structure.
func (d *Database) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.pool, d.tables)
}

// Files returns the file metadata repo.
func (d *Database) Files() pinvault.FileRepo {
	return &fileRepo{pool: d.pool, tableName: pgx.Identifier{d.tables.Files}.Sanitize()}
}

// Credentials returns the singleton credential repo.
func (d *Database) Credentials() pinvault.CredentialRepo {
	return &credentialRepo{pool: d.pool, tableName: pgx.Identifier{d.tables.Credentials}.Sanitize()}
}

// Close closes the database connection pool.
func (d *Database) Close() error {
	d.pool.Close()
	return nil
}
