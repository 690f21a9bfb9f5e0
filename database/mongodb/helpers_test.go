package mongodb_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	mongocontainer "github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/sagarc03/pinvault"
	"github.com/sagarc03/pinvault/database/mongodb"
)

var (
	testURI     string
	testURIOnce sync.Once
	testURIErr  error
)

// getSharedTestURI starts one MongoDB container for the package. Tests
// isolate themselves with random database names.
func getSharedTestURI(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("mongodb tests need docker")
	}

	testURIOnce.Do(func() {
		ctx := context.Background()

		container, err := mongocontainer.Run(ctx, "mongo:7")
		if err != nil {
			testURIErr = fmt.Errorf("start mongodb container: %w", err)
			return
		}

		testURI, testURIErr = container.ConnectionString(ctx)
		if testURIErr != nil {
			_ = testcontainers.TerminateContainer(container)
		}
	})

	require.NoError(t, testURIErr)
	return testURI
}

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

var testTables = pinvault.Tables{Files: "files", Credentials: "credentials"}

// setupTestDB connects to a fresh database, migrated unless migrate is false.
func setupTestDB(t *testing.T, migrate bool) (*mongodb.Database, string) {
	t.Helper()

	uri := getSharedTestURI(t)
	ctx := context.Background()
	dbName := getRandomString(t)

	db, err := mongodb.Connect(ctx, uri, dbName, testTables)
	require.NoError(t, err, "failed to connect")

	if migrate {
		require.NoError(t, db.Migrate(ctx), "failed to migrate")
	}

	t.Cleanup(func() {
		_ = db.DropTables(ctx)
		_ = db.Close()
	})

	return db, dbName
}
