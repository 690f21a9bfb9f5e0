// Package database provides a unified interface for connecting to metadata backends.
//
// # Supported Backends
//
//   - SQLite: the default, a single file next to the vault
//   - PostgreSQL: pgx connection pool
//   - MongoDB: for deployments that already keep their files collection there
//
// # Usage
//
//	cfg := database.Config{
//	    Type:   "sqlite",
//	    DSN:    "pinvault.db",
//	    Tables: pinvault.Tables{Files: "files", Credentials: "credentials"},
//	}
//
//	db, err := database.Open(ctx, cfg, true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	files := db.Files()
//
// Open pings the backend, runs migrations when asked, and validates the
// schema before returning.
package database
