package pinvault

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// FileRecord describes one stored file. StorageKey never leaves the server.
type FileRecord struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"filename"`
	StorageKey  string    `json:"-"`
	SizeBytes   int64     `json:"size"`
	MimeType    string    `json:"mimeType"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// NewFile carries the client-supplied attributes of an upload.
type NewFile struct {
	DisplayName string
	MimeType    string
	Size        int64
}

// SignedFile is the result of a preview or download URL request.
type SignedFile struct {
	URL         string
	DisplayName string
	MimeType    string
}

// SaveResult reports how many bytes a Put stored.
type SaveResult struct {
	BytesWritten int64
}

// SignOptions controls signed URL issuance.
// An empty ContentDisposition lets the browser render the object inline.
// ContentType is the media type the object must be served with.
type SignOptions struct {
	Expires            time.Duration
	ContentDisposition string
	ContentType        string
}

type CredentialKind string

const (
	CredentialPlain  CredentialKind = "plain"
	CredentialHashed CredentialKind = "hashed"
)

func (k CredentialKind) IsValid() bool {
	switch k {
	case CredentialPlain, CredentialHashed:
		return true
	default:
		return false
	}
}

func ParseCredentialKind(s string) (CredentialKind, error) {
	kind := CredentialKind(s)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid credential kind: %s (valid kinds: plain, hashed)", s)
	}
	return kind, nil
}

// Credential is the singleton secret gating the vault. Kind tells how Secret
// must be compared; it is fixed when the record is written.
type Credential struct {
	Kind      CredentialKind
	Secret    string
	UpdatedAt time.Time
}

// LegacyCredential classifies a secret persisted without a kind tag, as
// written by deployments that predate hashing. Four digits are a plain PIN,
// anything else is a bcrypt hash.
func LegacyCredential(secret string, updatedAt time.Time) Credential {
	kind := CredentialHashed
	if IsValidPIN(secret) {
		kind = CredentialPlain
	}
	return Credential{Kind: kind, Secret: secret, UpdatedAt: updatedAt}
}

// ReconcileReport summarizes a sweep comparing object store keys to metadata.
type ReconcileReport struct {
	OrphanedBlobs   []string    `json:"orphaned_blobs"`
	DeletedBlobs    int         `json:"deleted_blobs"`
	DanglingRecords []uuid.UUID `json:"dangling_records"`
	ScannedBlobs    int         `json:"scanned_blobs"`
	ScannedRecords  int         `json:"scanned_records"`
}

// Tables holds configurable table (or collection) names for metadata storage.
type Tables struct {
	Files       string `mapstructure:"files"`
	Credentials string `mapstructure:"credentials"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Files == "" {
		return errors.New("validate tables: files table name cannot be empty")
	}

	if t.Credentials == "" {
		return errors.New("validate tables: credentials table name cannot be empty")
	}

	for _, name := range []string{t.Files, t.Credentials} {
		if !IsValidTableName(name) {
			return fmt.Errorf("validate tables: invalid table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", name)
		}
	}

	if t.Files == t.Credentials {
		return errors.New("validate tables: files and credentials tables must differ")
	}

	return nil
}
