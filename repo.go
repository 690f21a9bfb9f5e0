package pinvault

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// FileRepo defines the interface for file metadata persistence.
//
// All methods accept a context for cancellation and timeout control.
// Implementations should respect context cancellation and return appropriate errors.
type FileRepo interface {
	// Create inserts a new record. The caller assigns ID, StorageKey and
	// UploadedAt; implementations persist them unchanged.
	//
	// Returns:
	//   - FileRecord: The stored record, timestamps normalized to the backend's precision
	//   - error: Any database error, including a duplicate storage key
	Create(ctx context.Context, rec FileRecord) (FileRecord, error)

	// Get retrieves a record by id.
	//
	// Returns:
	//   - FileRecord: The record if found
	//   - error: ErrNotFound if id doesn't exist, or other database errors
	Get(ctx context.Context, id uuid.UUID) (FileRecord, error)

	// List returns every record ordered by UploadedAt descending, ties broken
	// by id. It returns an empty slice (not nil) when there are no records.
	List(ctx context.Context) ([]FileRecord, error)

	// Rename replaces DisplayName only. Every other column is left untouched.
	//
	// Returns:
	//   - error: ErrNotFound if id doesn't exist, or other database errors
	Rename(ctx context.Context, id uuid.UUID, displayName string) error

	// Delete removes a record permanently.
	//
	// Returns:
	//   - error: ErrNotFound if id doesn't exist, or other database errors
	Delete(ctx context.Context, id uuid.UUID) error
}

// CredentialRepo persists the singleton credential record.
type CredentialRepo interface {
	// Get returns the credential, or ErrNotFound when none has been created yet.
	Get(ctx context.Context) (Credential, error)

	// Put creates the credential or replaces the existing one. There is never
	// more than one record.
	Put(ctx context.Context, cred Credential) error
}

// ObjectStore defines the interface for blob storage operations.
// Implementations can use local filesystem, S3, or any other storage backend.
//
// All methods accept a context for cancellation and timeout control.
type ObjectStore interface {
	// Put stores content under key. contentType is recorded where the backend
	// supports it.
	//
	// Returns:
	//   - SaveResult: the number of bytes written
	//   - error: Any storage or I/O error. Errors from reading content are
	//     returned wrapped so callers can test them with errors.Is.
	//
	// Implementations should leave nothing behind under key when Put fails.
	Put(ctx context.Context, key, contentType string, content io.Reader) (SaveResult, error)

	// Delete removes the blob stored under key.
	//
	// Returns:
	//   - error: ErrNotFound if no blob exists, or other storage errors
	Delete(ctx context.Context, key string) error

	// SignedURL returns a URL granting read access to key until opts.Expires
	// elapses. No existence check is made.
	SignedURL(ctx context.Context, key string, opts SignOptions) (string, error)

	// List returns every key beginning with prefix. It returns an empty slice
	// (not nil) when nothing matches.
	//
	// Warning: This walks the whole prefix and is intended for reconciliation,
	// not for request handling.
	List(ctx context.Context, prefix string) ([]string, error)
}
