package pinvault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMaxUploadSize is the upload ceiling when none is configured.
	DefaultMaxUploadSize int64 = 100 << 20
	// DefaultURLExpiry is how long issued preview and download URLs stay valid.
	DefaultURLExpiry = time.Hour
	// DefaultMimeType is recorded when the client sends none.
	DefaultMimeType = "application/octet-stream"
)

type FileService struct {
	repo          FileRepo
	store         ObjectStore
	maxUploadSize int64
	urlExpiry     time.Duration
	now           func() time.Time
}

// ServiceConfig holds configuration options for FileService.
type ServiceConfig struct {
	MaxUploadSize int64         // Upload ceiling in bytes (default: 100 MiB)
	URLExpiry     time.Duration // Lifetime of signed URLs (default: 1h)
}

func NewFileService(repo FileRepo, store ObjectStore, cfg ServiceConfig) (*FileService, error) {
	if repo == nil || store == nil {
		return nil, errors.New("new file service: repo and store are required")
	}

	maxUploadSize := cfg.MaxUploadSize
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}

	urlExpiry := cfg.URLExpiry
	if urlExpiry <= 0 {
		urlExpiry = DefaultURLExpiry
	}

	return &FileService{
		repo:          repo,
		store:         store,
		maxUploadSize: maxUploadSize,
		urlExpiry:     urlExpiry,
		now:           time.Now,
	}, nil
}

// MaxUploadSize returns the configured upload ceiling in bytes.
func (s *FileService) MaxUploadSize() int64 {
	return s.maxUploadSize
}

// Upload writes content to the object store under a fresh key and then
// records its metadata.
//
// The object write always precedes the metadata write. If the metadata write
// fails the blob is left in place and is reported by a later Reconcile.
//
// Error types returned:
//   - ErrMissingFile: no display name was supplied
//   - ErrPayloadTooLarge: the declared size, or the bytes actually read, exceed the ceiling
//   - ErrStorage: the object or metadata write failed
//   - context.Canceled or context.DeadlineExceeded: Context was cancelled
func (s *FileService) Upload(ctx context.Context, f NewFile, content io.Reader) (FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, fmt.Errorf("upload file: %w", err)
	}

	if content == nil || f.DisplayName == "" {
		return FileRecord{}, fmt.Errorf("upload file: %w: no file uploaded", ErrMissingFile)
	}

	if f.Size > s.maxUploadSize {
		return FileRecord{}, fmt.Errorf("upload file %q: %w", f.DisplayName, ErrPayloadTooLarge)
	}

	mimeType := f.MimeType
	if mimeType == "" {
		mimeType = DefaultMimeType
	}

	key := NewStorageKey(f.DisplayName)

	saved, putErr := s.store.Put(ctx, key, mimeType, &limitedReader{r: content, remaining: s.maxUploadSize})
	if putErr != nil {
		if errors.Is(putErr, ErrPayloadTooLarge) || errors.Is(putErr, context.Canceled) || errors.Is(putErr, context.DeadlineExceeded) {
			return FileRecord{}, fmt.Errorf("upload file %q: %w", f.DisplayName, putErr)
		}
		return FileRecord{}, fmt.Errorf("upload file %q: %w: %w", f.DisplayName, ErrStorage, putErr)
	}

	rec := FileRecord{
		ID:          uuid.New(),
		DisplayName: f.DisplayName,
		StorageKey:  key,
		SizeBytes:   saved.BytesWritten,
		MimeType:    mimeType,
		UploadedAt:  s.now().UTC(),
	}

	created, createErr := s.repo.Create(ctx, rec)
	if createErr != nil {
		slog.WarnContext(ctx, "metadata write failed, blob left orphaned",
			"key", key, "error", createErr)
		return FileRecord{}, fmt.Errorf("upload file %q: %w: %w", f.DisplayName, ErrStorage, createErr)
	}

	return created, nil
}

// List returns every file record, newest first.
func (s *FileService) List(ctx context.Context) ([]FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w: %w", ErrStorage, err)
	}

	if records == nil {
		records = []FileRecord{}
	}

	return records, nil
}

// Rename replaces the display name of a file. The name is trimmed and must not
// be blank; a blank name is rejected before the record is looked up.
func (s *FileService) Rename(ctx context.Context, id, newName string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rename file: %w", err)
	}

	name := strings.TrimSpace(newName)
	if name == "" {
		return fmt.Errorf("rename file: %w: filename cannot be empty", ErrInvalidArgument)
	}

	fileID, err := parseID(id)
	if err != nil {
		return fmt.Errorf("rename file: %w", err)
	}

	if err := s.repo.Rename(ctx, fileID, name); err != nil {
		return fmt.Errorf("rename file %s: %w", id, repoErr(err))
	}

	return nil
}

// PreviewURL issues a signed URL that lets the browser render the file inline.
func (s *FileService) PreviewURL(ctx context.Context, id string) (SignedFile, error) {
	rec, url, err := s.sign(ctx, id, false)
	if err != nil {
		return SignedFile{}, fmt.Errorf("preview file: %w", err)
	}

	return SignedFile{URL: url, DisplayName: rec.DisplayName, MimeType: rec.MimeType}, nil
}

// DownloadURL issues a signed URL whose response is served as an attachment
// named after the file's display name.
func (s *FileService) DownloadURL(ctx context.Context, id string) (SignedFile, error) {
	rec, url, err := s.sign(ctx, id, true)
	if err != nil {
		return SignedFile{}, fmt.Errorf("download file: %w", err)
	}

	return SignedFile{URL: url, DisplayName: rec.DisplayName}, nil
}

func (s *FileService) sign(ctx context.Context, id string, attachment bool) (FileRecord, string, error) {
	if err := ctx.Err(); err != nil {
		return FileRecord{}, "", err
	}

	fileID, err := parseID(id)
	if err != nil {
		return FileRecord{}, "", err
	}

	rec, err := s.repo.Get(ctx, fileID)
	if err != nil {
		return FileRecord{}, "", repoErr(err)
	}

	opts := SignOptions{Expires: s.urlExpiry, ContentType: rec.MimeType}
	if attachment {
		opts.ContentDisposition = AttachmentDisposition(rec.DisplayName)
	}

	url, err := s.store.SignedURL(ctx, rec.StorageKey, opts)
	if err != nil {
		return FileRecord{}, "", fmt.Errorf("%w: %w", ErrStorage, err)
	}

	return rec, url, nil
}

// Delete removes the blob and then the metadata record.
//
// A blob that is already gone is tolerated so a retry after a partial failure
// can finish the job. If the metadata delete fails after the blob was removed
// the record is left dangling and is reported by Reconcile.
func (s *FileService) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	fileID, err := parseID(id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	rec, err := s.repo.Get(ctx, fileID)
	if err != nil {
		return fmt.Errorf("delete file %s: %w", id, repoErr(err))
	}

	deleteErr := s.store.Delete(ctx, rec.StorageKey)
	// Ignore ErrNotFound - blob may have been deleted already
	if deleteErr != nil && !errors.Is(deleteErr, ErrNotFound) {
		return fmt.Errorf("delete file %s: %w: %w", id, ErrStorage, deleteErr)
	}

	if err := s.repo.Delete(ctx, fileID); err != nil {
		return fmt.Errorf("delete file %s: %w", id, repoErr(err))
	}

	return nil
}

// Reconcile compares blobs under StorageKeyPrefix with the metadata records.
//
// Blobs without a record are orphans left by failed uploads; they are deleted
// unless dryRun is set. Records whose blob is missing are reported but never
// touched, since the display name is all the user has left of them.
//
// Note: This operation is not atomic. An upload racing with the sweep can have
// its blob reported as an orphan, so run it while the vault is idle.
func (s *FileService) Reconcile(ctx context.Context, dryRun bool) (ReconcileReport, error) {
	if err := ctx.Err(); err != nil {
		return ReconcileReport{}, fmt.Errorf("reconcile: %w", err)
	}

	keys, listErr := s.store.List(ctx, StorageKeyPrefix)
	if listErr != nil {
		return ReconcileReport{}, fmt.Errorf("reconcile: %w: %w", ErrStorage, listErr)
	}

	records, repoListErr := s.repo.List(ctx)
	if repoListErr != nil {
		return ReconcileReport{}, fmt.Errorf("reconcile: %w: %w", ErrStorage, repoListErr)
	}

	report := ReconcileReport{
		OrphanedBlobs:   []string{},
		DanglingRecords: []uuid.UUID{},
		ScannedBlobs:    len(keys),
		ScannedRecords:  len(records),
	}

	known := make(map[string]struct{}, len(records))
	for _, rec := range records {
		known[rec.StorageKey] = struct{}{}
	}

	present := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		present[key] = struct{}{}
		if _, ok := known[key]; !ok {
			report.OrphanedBlobs = append(report.OrphanedBlobs, key)
		}
	}
	sort.Strings(report.OrphanedBlobs)

	for _, rec := range records {
		if _, ok := present[rec.StorageKey]; !ok {
			report.DanglingRecords = append(report.DanglingRecords, rec.ID)
		}
	}

	if dryRun {
		return report, nil
	}

	for _, key := range report.OrphanedBlobs {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("reconcile: %w", err)
		}

		deleteErr := s.store.Delete(ctx, key)
		if deleteErr != nil && !errors.Is(deleteErr, ErrNotFound) {
			return report, fmt.Errorf("reconcile '%s': %w: %w", key, ErrStorage, deleteErr)
		}
		report.DeletedBlobs++
	}

	return report, nil
}

// parseID maps a client-supplied id to a uuid. An id that cannot name any
// record is reported as not found.
func parseID(id string) (uuid.UUID, error) {
	if id == "" {
		return uuid.Nil, fmt.Errorf("%w: file id is required", ErrMissingField)
	}

	fileID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: file %s", ErrNotFound, id)
	}

	return fileID, nil
}

func repoErr(err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

// limitedReader fails with ErrPayloadTooLarge once more than remaining bytes
// have been requested from r.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrPayloadTooLarge
	}

	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}

	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n - int(-l.remaining), ErrPayloadTooLarge
	}

	return n, err
}
