package postgres_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/sagarc03/pinvault"
	"github.com/sagarc03/pinvault/database/postgres"
)

var (
	testPool     *pgxpool.Pool
	testPoolOnce sync.Once
	testPoolErr  error
)

// getSharedTestDatabase returns a pool on one container shared by every test
// in the package. Each test isolates itself with random table names.
func getSharedTestDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres tests need docker")
	}

	testPoolOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			testPoolErr = fmt.Errorf("start postgres container: %w", err)
			return
		}

		connectionStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = testcontainers.TerminateContainer(pgContainer)
			testPoolErr = fmt.Errorf("connection string: %w", err)
			return
		}

		testPool, testPoolErr = pgxpool.New(ctx, connectionStr)
	})

	require.NoError(t, testPoolErr)
	return testPool
}

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

func getDSN(pool *pgxpool.Pool) string {
	return pool.Config().ConnString()
}

// setupTestDB connects to the shared container with fresh tables, migrated
// unless migrate is false. Tables are dropped when the test ends.
func setupTestDB(t *testing.T, migrate bool) (*postgres.Database, pinvault.Tables) {
	t.Helper()

	pool := getSharedTestDatabase(t)
	ctx := context.Background()
	tables := randomTables(t)

	db, err := postgres.Connect(ctx, getDSN(pool), tables)
	require.NoError(t, err, "failed to connect")

	if migrate {
		require.NoError(t, db.Migrate(ctx), "failed to migrate")
	}

	t.Cleanup(func() {
		_ = postgres.DropTables(ctx, pool, tables)
		_ = db.Close()
	})

	return db, tables
}
