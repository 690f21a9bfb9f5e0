package postgres_test

import (
	"testing"

	"github.com/sagarc03/pinvault"
	"github.com/sagarc03/pinvault/database/internal/repotest"
)

func TestFileRepo(t *testing.T) {
	repotest.RunFileRepo(t, func(t *testing.T) pinvault.FileRepo {
		db, _ := setupTestDB(t, true)
		return db.Files()
	})
}

func TestCredentialRepo(t *testing.T) {
	repotest.RunCredentialRepo(t, func(t *testing.T) pinvault.CredentialRepo {
		db, _ := setupTestDB(t, true)
		return db.Credentials()
	})
}
