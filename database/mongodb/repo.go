package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sagarc03/pinvault"
)

// BSON dates keep milliseconds.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

type fileDoc struct {
	ID          string    `bson:"_id"`
	DisplayName string    `bson:"display_name"`
	StorageKey  string    `bson:"storage_key"`
	SizeBytes   int64     `bson:"size_bytes"`
	MimeType    string    `bson:"mime_type"`
	UploadedAt  time.Time `bson:"uploaded_at"`
}

func toFileDoc(rec pinvault.FileRecord) fileDoc {
	return fileDoc{
		ID:          rec.ID.String(),
		DisplayName: rec.DisplayName,
		StorageKey:  rec.StorageKey,
		SizeBytes:   rec.SizeBytes,
		MimeType:    rec.MimeType,
		UploadedAt:  rec.UploadedAt,
	}
}

func (d fileDoc) record() (pinvault.FileRecord, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return pinvault.FileRecord{}, fmt.Errorf("parse uuid: %w", err)
	}
	return pinvault.FileRecord{
		ID:          id,
		DisplayName: d.DisplayName,
		StorageKey:  d.StorageKey,
		SizeBytes:   d.SizeBytes,
		MimeType:    d.MimeType,
		UploadedAt:  d.UploadedAt.UTC(),
	}, nil
}

type fileRepo struct {
	coll *mongo.Collection
}

func (r *fileRepo) Create(ctx context.Context, rec pinvault.FileRecord) (pinvault.FileRecord, error) {
	rec.UploadedAt = normalizeTime(rec.UploadedAt)

	if _, err := r.coll.InsertOne(ctx, toFileDoc(rec)); err != nil {
		return pinvault.FileRecord{}, fmt.Errorf("create: %w", err)
	}

	return rec, nil
}

func (r *fileRepo) Get(ctx context.Context, id uuid.UUID) (pinvault.FileRecord, error) {
	var doc fileDoc
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return pinvault.FileRecord{}, pinvault.ErrNotFound
		}
		return pinvault.FileRecord{}, fmt.Errorf("get: %w", err)
	}

	rec, err := doc.record()
	if err != nil {
		return pinvault.FileRecord{}, fmt.Errorf("get: %w", err)
	}
	return rec, nil
}

func (r *fileRepo) List(ctx context.Context) ([]pinvault.FileRecord, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "uploaded_at", Value: -1},
		{Key: "_id", Value: 1},
	})

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	// Documents in another shape, such as ObjectId-keyed files from older
	// deployments, are logged and skipped.
	records := []pinvault.FileRecord{}
	for cursor.Next(ctx) {
		var doc fileDoc
		if err := cursor.Decode(&doc); err != nil {
			slog.WarnContext(ctx, "skipping undecodable file document",
				"collection", r.coll.Name(), "id", cursor.Current.Lookup("_id").String(), "error", err)
			continue
		}
		rec, err := doc.record()
		if err != nil {
			slog.WarnContext(ctx, "skipping file document with a non-uuid id",
				"collection", r.coll.Name(), "id", doc.ID, "error", err)
			continue
		}
		records = append(records, rec)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list: cursor: %w", err)
	}

	return records, nil
}

func (r *fileRepo) Rename(ctx context.Context, id uuid.UUID, displayName string) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id.String()}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "display_name", Value: displayName}}}},
	)
	if err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("rename: %w", pinvault.ErrNotFound)
	}
	return nil
}

func (r *fileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("delete: %w", pinvault.ErrNotFound)
	}
	return nil
}

// credentialDoc covers both the current layout and the legacy one, which
// stored the PIN in password with a camel-case timestamp.
type credentialDoc struct {
	Kind            string    `bson:"kind,omitempty"`
	Secret          string    `bson:"secret,omitempty"`
	UpdatedAt       time.Time `bson:"updated_at,omitempty"`
	Password        string    `bson:"password,omitempty"`
	LegacyUpdatedAt time.Time `bson:"updatedAt,omitempty"`
}

type credentialRepo struct {
	coll *mongo.Collection
}

func (r *credentialRepo) Get(ctx context.Context) (pinvault.Credential, error) {
	var doc credentialDoc
	err := r.coll.FindOne(ctx, bson.D{}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return pinvault.Credential{}, pinvault.ErrNotFound
		}
		return pinvault.Credential{}, fmt.Errorf("get credential: %w", err)
	}

	if doc.Kind == "" {
		secret, updatedAt := doc.Secret, doc.UpdatedAt
		if secret == "" {
			secret, updatedAt = doc.Password, doc.LegacyUpdatedAt
		}
		if secret == "" {
			return pinvault.Credential{}, fmt.Errorf("get credential: %w", pinvault.ErrNotFound)
		}
		return pinvault.LegacyCredential(secret, updatedAt.UTC()), nil
	}

	kind, err := pinvault.ParseCredentialKind(doc.Kind)
	if err != nil {
		return pinvault.Credential{}, fmt.Errorf("get credential: %w", err)
	}

	return pinvault.Credential{Kind: kind, Secret: doc.Secret, UpdatedAt: doc.UpdatedAt.UTC()}, nil
}

// Put replaces the collection's only document, dropping any legacy fields.
func (r *credentialRepo) Put(ctx context.Context, cred pinvault.Credential) error {
	if !cred.Kind.IsValid() {
		return fmt.Errorf("put credential: invalid kind %q", cred.Kind)
	}

	doc := credentialDoc{
		Kind:      string(cred.Kind),
		Secret:    cred.Secret,
		UpdatedAt: normalizeTime(cred.UpdatedAt),
	}

	_, err := r.coll.ReplaceOne(ctx, bson.D{}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put credential: %w", err)
	}

	return nil
}
