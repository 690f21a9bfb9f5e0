package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/pinvault"
	"github.com/sagarc03/pinvault/database"
)

var testTables = pinvault.Tables{Files: "files", Credentials: "credentials"}

func sqliteConfig() database.Config {
	return database.Config{
		Type:   database.TypeSQLite,
		DSN:    ":memory:",
		Tables: testTables,
	}
}

func TestConnect_SQLite(t *testing.T) {
	ctx := context.Background()

	db, err := database.Connect(ctx, sqliteConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.NoError(t, db.Ping(ctx))
	assert.Error(t, db.Validate(ctx), "tables do not exist before migrate")
}

func TestConnect_InvalidType(t *testing.T) {
	for _, typ := range []string{"", "invalid", "mysql"} {
		t.Run(typ, func(t *testing.T) {
			cfg := sqliteConfig()
			cfg.Type = typ

			_, err := database.Connect(context.Background(), cfg)
			assert.ErrorContains(t, err, "unsupported database type")
		})
	}
}

func TestConnect_InvalidTables(t *testing.T) {
	tests := []struct {
		name   string
		tables pinvault.Tables
	}{
		{name: "empty", tables: pinvault.Tables{}},
		{name: "bad name", tables: pinvault.Tables{Files: "Files; DROP", Credentials: "credentials"}},
		{name: "same name", tables: pinvault.Tables{Files: "vault", Credentials: "vault"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := sqliteConfig()
			cfg.Tables = tt.tables

			_, err := database.Connect(context.Background(), cfg)
			assert.Error(t, err)
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("migrates and validates", func(t *testing.T) {
		db, err := database.Open(ctx, sqliteConfig(), true)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		records, err := db.Files().List(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)

		_, err = db.Credentials().Get(ctx)
		assert.ErrorIs(t, err, pinvault.ErrNotFound)
	})

	t.Run("without migrate fails on an empty database", func(t *testing.T) {
		_, err := database.Open(ctx, sqliteConfig(), false)
		assert.ErrorContains(t, err, "does not exist")
	})
}
