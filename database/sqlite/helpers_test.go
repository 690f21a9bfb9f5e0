package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sagarc03/pinvault"
	"github.com/sagarc03/pinvault/database/sqlite"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

func randomTables(t *testing.T) pinvault.Tables {
	t.Helper()
	suffix := getRandomString(t)
	return pinvault.Tables{
		Files:       "files_" + suffix,
		Credentials: "credentials_" + suffix,
	}
}

// setupTestDB returns a migrated in-memory database.
func setupTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Connect(ctx, ":memory:", randomTables(t))
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx), "failed to migrate")

	return db
}
