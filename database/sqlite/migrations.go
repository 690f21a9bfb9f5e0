package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sagarc03/pinvault"
)

// quoteIdentifier safely quotes a SQLite identifier
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

type TableMigration struct {
	TableName string
	Up        func(ctx context.Context, db *sql.DB) error
	Down      func(ctx context.Context, db *sql.DB) error
}

// getTableMigrations returns all table migrations for the app
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

func Migrate(ctx context.Context, db *sql.DB, tables pinvault.Tables) error {
	for _, migration := range getTableMigrations(tables) {
		if err := migration.Up(ctx, db); err != nil {
			return fmt.Errorf("migrate up %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func DropTables(ctx context.Context, db *sql.DB, tables pinvault.Tables) error {
	migrations := getTableMigrations(tables)

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if err := migration.Down(ctx, db); err != nil {
			return fmt.Errorf("migrate down %s: %w", migration.TableName, err)
		}
	}

	return nil
}

func createFilesTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		quotedTable := quoteIdentifier(tableName)
		indexUploadedAt := quoteIdentifier(fmt.Sprintf("idx_%s_uploaded_at", tableName))

		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT NOT NULL PRIMARY KEY,
				display_name TEXT NOT NULL,
				storage_key TEXT NOT NULL UNIQUE,
				size_bytes INTEGER NOT NULL CHECK (size_bytes >= 0),
				mime_type TEXT NOT NULL,
				uploaded_at TEXT NOT NULL
			)
		`, quotedTable)

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		indexSQL := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s ON %s (uploaded_at DESC, id)
		`, indexUploadedAt, quotedTable)

		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index uploaded_at: %w", err)
		}

		return nil
	}
}

func createCredentialsTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		createTableSQL := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id INTEGER NOT NULL PRIMARY KEY CHECK (id = 1),
				kind TEXT NOT NULL,
				secret TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)
		`, quoteIdentifier(tableName))

		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", err)
		}

		return nil
	}
}

func dropTable(tableName string) func(context.Context, *sql.DB) error {
	return func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdentifier(tableName)))
		return err
	}
}
