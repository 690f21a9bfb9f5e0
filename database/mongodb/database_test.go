package mongodb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/pinvault/database/mongodb"
)

func TestConnect(t *testing.T) {
	db, _ := setupTestDB(t, false)

	assert.NoError(t, db.Ping(context.Background()))
}

func TestConnect_InvalidURI(t *testing.T) {
	_, err := mongodb.Connect(context.Background(), "postgres://nope", "", testTables)
	assert.Error(t, err)
}

func TestDatabase_Migrate(t *testing.T) {
	ctx := context.Background()
	db, _ := setupTestDB(t, true)

	assert.NoError(t, db.Migrate(ctx), "second migrate should succeed")
	assert.NoError(t, db.Validate(ctx))
}

func TestDatabase_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("collections missing", func(t *testing.T) {
		db, _ := setupTestDB(t, false)

		assert.ErrorContains(t, db.Validate(ctx), "does not exist")
	})

	t.Run("unique index missing", func(t *testing.T) {
		db, dbName := setupTestDB(t, true)
		coll := rawCollection(t, dbName, testTables.Files)

		_, err := coll.Indexes().DropAll(ctx)
		require.NoError(t, err)

		assert.ErrorContains(t, db.Validate(ctx), "missing unique index on storage_key")
	})
}
