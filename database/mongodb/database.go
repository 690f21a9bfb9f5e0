// Package mongodb implements the vault's metadata repos on MongoDB.
//
// Files are stored one document per record keyed by the record's UUID string.
// File documents from older deployments (ObjectId keys, filename and s3Key
// fields) are not migrated; List logs and skips them.
// The credential lives in a collection holding a single document; documents
// written by older deployments carry only a password field and are classified
// with pinvault.LegacyCredential on read.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sagarc03/pinvault"
)

// DefaultDatabaseName is used when the connection string names no database.
const DefaultDatabaseName = "pinvault"

// codeNamespaceExists is returned by create on an existing collection.
const codeNamespaceExists = 48

// Database provides MongoDB database operations.
type Database struct {
	client *mongo.Client
	db     *mongo.Database
	tables pinvault.Tables
}

// Connect opens a client for uri and selects dbName. When dbName is empty the
// database named in uri is used, falling back to DefaultDatabaseName.
// Tables should be validated before calling Connect.
func Connect(ctx context.Context, uri, dbName string, tables pinvault.Tables) (*Database, error) {
	opts := options.Client().ApplyURI(uri)
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if dbName == "" {
		dbName = databaseFromURI(uri)
	}

	return &Database{
		client: client,
		db:     client.Database(dbName),
		tables: tables,
	}, nil
}

// Ping verifies the server is reachable.
func (d *Database) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}

// Migrate creates both collections and the files indexes if missing.
func (d *Database) Migrate(ctx context.Context) error {
	for _, name := range []string{d.tables.Files, d.tables.Credentials} {
		if err := d.createCollection(ctx, name); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
	}

	_, err := d.db.Collection(d.tables.Files).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "storage_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "uploaded_at", Value: -1}, {Key: "_id", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("migrate %s: create indexes: %w", d.tables.Files, err)
	}

	return nil
}

func (d *Database) createCollection(ctx context.Context, name string) error {
	err := d.db.CreateCollection(ctx, name)
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceExists {
		return nil
	}
	return err
}

// Validate checks that both collections exist and the storage key is unique.
func (d *Database) Validate(ctx context.Context) error {
	names, err := d.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("validate: list collections: %w", err)
	}

	existing := make(map[string]bool, len(names))
	for _, name := range names {
		existing[name] = true
	}

	for _, name := range []string{d.tables.Files, d.tables.Credentials} {
		if !existing[name] {
			return fmt.Errorf("validate: collection %s does not exist", name)
		}
	}

	unique, err := hasUniqueIndex(ctx, d.db.Collection(d.tables.Files), "storage_key")
	if err != nil {
		return fmt.Errorf("validate %s: %w", d.tables.Files, err)
	}
	if !unique {
		return fmt.Errorf("validate %s: missing unique index on storage_key", d.tables.Files)
	}

	return nil
}

func hasUniqueIndex(ctx context.Context, coll *mongo.Collection, field string) (bool, error) {
	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		return false, fmt.Errorf("list indexes: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var indexes []struct {
		Key    bson.D `bson:"key"`
		Unique bool   `bson:"unique"`
	}
	if err := cursor.All(ctx, &indexes); err != nil {
		return false, fmt.Errorf("decode indexes: %w", err)
	}

	for _, idx := range indexes {
		if idx.Unique && len(idx.Key) == 1 && idx.Key[0].Key == field {
			return true, nil
		}
	}
	return false, nil
}

// DropTables removes both collections.
func (d *Database) DropTables(ctx context.Context) error {
	for _, name := range []string{d.tables.Credentials, d.tables.Files} {
		if err := d.db.Collection(name).Drop(ctx); err != nil {
			return fmt.Errorf("drop %s: %w", name, err)
		}
	}
	return nil
}

// Files returns the file metadata repo.
func (d *Database) Files() pinvault.FileRepo {
	return &fileRepo{coll: d.db.Collection(d.tables.Files)}
}

// Credentials returns the singleton credential repo.
func (d *Database) Credentials() pinvault.CredentialRepo {
	return &credentialRepo{coll: d.db.Collection(d.tables.Credentials)}
}

// Close disconnects the client.
func (d *Database) Close() error {
	return d.client.Disconnect(context.Background())
}
