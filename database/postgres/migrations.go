package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/pinvault"
)

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, pool *pgxpool.Pool) error
	Down      func(ctx context.Context, pool *pgxpool.Pool) error
}

func getTableMigrations(tables pinvault.Tables) []TableMigration {
	return []TableMigration{
		{
			TableName: tables.Files,
			Up:        createFilesTable(tables.Files),
			Down:      dropTable(tables.Files),
		},
		{
			TableName: tables.Credentials,
			Up:        createCredentialsTable(tables.Credentials),
			Down:      dropTable(tables.Credentials),
		},
	}
}

func Migrate(ctx context.Context, pool *pgxpool.Pool, tables pinvault.Tables) error {
	for _, migration := range getTableMigrations(tables) {
		if err := migration.Up(ctx, pool); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func DropTables(ctx context.Context, pool *pgxpool.Pool, tables pinvault.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if err := migration.Down(ctx, pool); err != nil {
			return fmt.Errorf("migrate down %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func createFilesTable(tableName string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		quotedTable := pgx.Identifier{tableName}.Sanitize()
		indexUploadedAt := pgx.Identifier{fmt.Sprintf("idx_%s_uploaded_at", tableName)}.Sanitize()

		sql := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				display_name TEXT NOT NULL,
				storage_key TEXT NOT NULL UNIQUE,
				size_bytes BIGINT NOT NULL CHECK (size_bytes >= 0),
				mime_type TEXT NOT NULL,
				uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS %s
			ON %s (uploaded_at DESC, id);
		`,
			quotedTable,
			indexUploadedAt, quotedTable,
		)

		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("create files table: %w", err)
		}
		return nil
	}
}

func createCredentialsTable(tableName string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		sql := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id SMALLINT PRIMARY KEY CHECK (id = 1),
				kind TEXT NOT NULL,
				secret TEXT NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`, pgx.Identifier{tableName}.Sanitize())

		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("create credentials table: %w", err)
		}
		return nil
	}
}

func dropTable(tableName string) func(context.Context, *pgxpool.Pool) error {
	return func(ctx context.Context, pool *pgxpool.Pool) error {
		_, err := pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", pgx.Identifier{tableName}.Sanitize()))
		return err
	}
}
