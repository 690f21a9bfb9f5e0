// Package filesystem provides a local directory backend for the vault's blobs.
// It writes atomically through temp files and issues presigned URLs that the
// vault's own HTTP server verifies and serves.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sagarc03/pinvault"
)

// BlobRoute is the path under which signed blob URLs are served.
const BlobRoute = "/blobs/"

// URLSigner presigns a URL for the given method.
type URLSigner interface {
	Presign(method string, u *url.URL, expires time.Duration) (string, error)
}

// Store provides file system storage operations.
type Store struct {
	root    *os.Root
	baseURL *url.URL
	signer  URLSigner
}

// NewStore creates a Store over root. baseURL is the externally reachable
// address of the vault (for example http://localhost:5000); signed URLs point
// at baseURL + BlobRoute + key.
func NewStore(root *os.Root, baseURL string, signer URLSigner) (*Store, error) {
	if root == nil || signer == nil {
		return nil, errors.New("new filesystem store: root and signer are required")
	}

	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("new filesystem store: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("new filesystem store: base url %q must be absolute", baseURL)
	}

	return &Store{root: root, baseURL: u, signer: signer}, nil
}

// Get opens a blob for reading. Returns pinvault.ErrNotFound if it does not exist.
func (s *Store) Get(ctx context.Context, key string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !pinvault.IsValidPath(key) {
		return nil, pinvault.ErrNotFound
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, pinvault.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		_ = f.Close()
		return nil, pinvault.ErrNotFound
	}

	return f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Put atomically writes content to key using a temp file and rename.
// Intermediate directories are created as needed. contentType is not
// recorded; it is derived from the key's extension when the blob is served.
func (s *Store) Put(ctx context.Context, key, _ string, content io.Reader) (pinvault.SaveResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return pinvault.SaveResult{}, ctxErr
	}

	if !pinvault.IsValidPath(key) {
		return pinvault.SaveResult{}, fmt.Errorf("put %q: %w: invalid key", key, pinvault.ErrInvalidArgument)
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return pinvault.SaveResult{}, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	written, err := io.Copy(t, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return pinvault.SaveResult{}, fmt.Errorf("could not copy file contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return pinvault.SaveResult{}, fmt.Errorf("could not sync written file: %w", err)
	}

	if destDir := path.Dir(key); destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return pinvault.SaveResult{}, fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, key); renameErr != nil {
		return pinvault.SaveResult{}, fmt.Errorf("failed to rename file: %w", renameErr)
	}

	success = true

	return pinvault.SaveResult{BytesWritten: written}, nil
}

// Delete removes a blob. Returns pinvault.ErrNotFound if it does not exist.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if !pinvault.IsValidPath(key) {
		return pinvault.ErrNotFound
	}

	err := s.root.Remove(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return pinvault.ErrNotFound
		}
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

// SignedURL presigns a GET for key on the vault's blob route. The content
// disposition and type travel in the response-content-* parameters, as S3
// does it, and are covered by the signature.
func (s *Store) SignedURL(ctx context.Context, key string, opts pinvault.SignOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if !pinvault.IsValidPath(key) {
		return "", fmt.Errorf("sign %q: %w: invalid key", key, pinvault.ErrInvalidArgument)
	}

	u := *s.baseURL
	u.Path = s.baseURL.Path + BlobRoute + key
	q := url.Values{}
	if opts.ContentDisposition != "" {
		q.Set(pinvault.ResponseContentDispositionParam, opts.ContentDisposition)
	}
	if opts.ContentType != "" {
		q.Set(pinvault.ResponseContentTypeParam, opts.ContentType)
	}
	u.RawQuery = q.Encode()

	signed, err := s.signer.Presign(http.MethodGet, &u, opts.Expires)
	if err != nil {
		return "", fmt.Errorf("sign %q: %w", key, err)
	}

	return signed, nil
}

// List returns every key under prefix, walking the matching directory
// recursively. Temp files from in-flight writes are never included.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := strings.TrimSuffix(prefix, "/")
	if dir == "" {
		dir = "."
	}

	keys := []string{}

	err := fs.WalkDir(s.root.FS(), dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == dir && errors.Is(walkErr, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return walkErr
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() || strings.HasPrefix(d.Name(), tmpFilePrefix) {
			return nil
		}

		if strings.HasPrefix(p, prefix) {
			keys = append(keys, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return keys, nil
}

// ContentType guesses a blob's media type from its key. Blob responses only
// fall back to it when the signed URL names no type.
func ContentType(key string) string {
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		return pinvault.DefaultMimeType
	}
	return contentType
}

const tmpFilePrefix = ".t"

func tmpFileName() string {
	return tmpFilePrefix + uuid.New().String()
}
