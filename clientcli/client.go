package clientcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 5 * time.Minute

// Client talks to a PinVault server's JSON API.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	cfg = cfg.WithDefaults()

	c := &Client{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Verify checks pin against the server. A wrong PIN yields ErrInvalidPIN.
func (c *Client) Verify(ctx context.Context, pin string) error {
	if pin == "" {
		return ErrPINRequired
	}
	_, err := c.doJSON(ctx, http.MethodPost, "/api/auth/verify", map[string]string{"password": pin})
	return err
}

// ChangePIN replaces current with next.
func (c *Client) ChangePIN(ctx context.Context, current, next string) error {
	if current == "" || next == "" {
		return ErrPINRequired
	}
	if !IsValidPIN(next) {
		return ErrPINFormat
	}
	_, err := c.doJSON(ctx, http.MethodPost, "/api/auth/change-password", map[string]string{
		"currentPassword": current,
		"newPassword":     next,
	})
	return err
}

// List returns every file in the vault, newest first.
func (c *Client) List(ctx context.Context) (*ListResult, error) {
	env, err := c.doJSON(ctx, http.MethodGet, "/api/files", nil)
	if err != nil {
		return nil, err
	}

	files := env.Files
	if files == nil {
		files = []File{}
	}
	return &ListResult{Files: files}, nil
}

// Upload uploads a file, or every file under a directory when Recursive is
// set. Per-file failures of a recursive upload are reported in the results.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("upload: %w", ErrEmptyPath)
	}

	info, err := os.Stat(opts.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("stat local path: %w", err)
	}

	if !info.IsDir() {
		file, uploadErr := c.uploadSingle(ctx, opts.LocalPath, opts.Name, opts.ContentType)
		if uploadErr != nil {
			return nil, uploadErr
		}
		return []UploadResult{{LocalPath: opts.LocalPath, File: file}}, nil
	}

	if !opts.Recursive {
		return nil, fmt.Errorf("upload: %s is a directory (use -r to upload recursively)", opts.LocalPath)
	}

	var results []UploadResult
	walkErr := filepath.WalkDir(opts.LocalPath, func(path string, d fs.DirEntry, fileErr error) error {
		if fileErr != nil {
			return fileErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.Type().IsRegular() {
			return nil
		}

		file, uploadErr := c.uploadSingle(ctx, path, "", "")
		results = append(results, UploadResult{LocalPath: path, File: file, Err: uploadErr})
		return nil
	})
	if walkErr != nil {
		return results, fmt.Errorf("walk directory: %w", walkErr)
	}

	return results, nil
}

// uploadSingle streams one file as multipart/form-data field "file".
func (c *Client) uploadSingle(ctx context.Context, localPath, name, contentType string) (File, error) {
	file, err := os.Open(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return File{}, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if name == "" {
		name = filepath.Base(localPath)
	}
	if contentType == "" {
		contentType = detectContentType(localPath)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
			"name":     "file",
			"filename": name,
		}))
		header.Set("Content-Type", contentType)

		part, partErr := mw.CreatePart(header)
		if partErr != nil {
			_ = pw.CloseWithError(partErr)
			return
		}
		if _, copyErr := io.Copy(part, file); copyErr != nil {
			_ = pw.CloseWithError(copyErr)
			return
		}
		_ = pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/files/upload", pr)
	if err != nil {
		_ = pr.Close()
		return File{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	env, err := c.do(req)
	if err != nil {
		return File{}, err
	}
	if env.File == nil {
		return File{}, errors.New("parse response: missing file")
	}

	return *env.File, nil
}

// URL asks the server for a signed preview or download URL.
func (c *Client) URL(ctx context.Context, id string, kind URLKind) (*URLResult, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	if kind != URLPreview && kind != URLDownload {
		return nil, fmt.Errorf("unknown url kind: %q", kind)
	}

	env, err := c.doJSON(ctx, http.MethodGet, "/api/files/"+string(kind)+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	return &URLResult{ID: id, URL: env.URL, Filename: env.Filename, MimeType: env.MimeType}, nil
}

// Download fetches a file's bytes through its signed download URL.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, io.ReadCloser, error) {
	signed, err := c.URL(ctx, opts.ID, URLDownload)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signed.URL, http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, nil, parseServerError(resp.StatusCode, body)
	}

	result := &DownloadResult{
		ID:          opts.ID,
		Filename:    signed.Filename,
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}

	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}

	localPath := opts.LocalPath
	if localPath == "" {
		// The display name is user-controlled, so only its base is used.
		localPath = filepath.Base(filepath.Clean("/" + signed.Filename))
		if localPath == "/" || localPath == "." {
			localPath = opts.ID
		}
	}
	result.LocalPath = localPath

	if dir := filepath.Dir(localPath); dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			_ = resp.Body.Close()
			return nil, nil, fmt.Errorf("create directory: %w", mkdirErr)
		}
	}

	file, createErr := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if createErr != nil {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("create file: %w", createErr)
	}

	written, copyErr := io.Copy(file, resp.Body)
	_ = resp.Body.Close()
	if copyErr != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", copyErr)
	}

	if closeErr := file.Close(); closeErr != nil {
		return nil, nil, fmt.Errorf("close file: %w", closeErr)
	}

	result.Size = written
	return result, nil, nil
}

// Rename changes a file's display name.
func (c *Client) Rename(ctx context.Context, id, newName string) error {
	if id == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(newName) == "" {
		return ErrEmptyName
	}
	_, err := c.doJSON(ctx, http.MethodPut, "/api/files/"+url.PathEscape(id), map[string]string{"newName": newName})
	return err
}

// Delete deletes one or more files.
// Continues on error, collecting results for all ids.
func (c *Client) Delete(ctx context.Context, opts DeleteOptions) ([]DeleteResult, error) {
	if len(opts.IDs) == 0 {
		return nil, ErrNoIDs
	}

	results := make([]DeleteResult, 0, len(opts.IDs))
	for _, id := range opts.IDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		_, err := c.doJSON(ctx, http.MethodDelete, "/api/files/"+url.PathEscape(id), nil)
		results = append(results, DeleteResult{ID: id, Deleted: err == nil, Err: err})
	}

	return results, nil
}

// HasDeleteErrors returns true if any delete operation failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// doJSON sends body (if any) as JSON and decodes the response envelope.
func (c *Client) doJSON(ctx context.Context, method, path string, body any) (*envelope, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseServerError(resp.StatusCode, body)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if !env.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	return &env, nil
}

// IsValidPIN reports whether pin is exactly four ASCII digits.
func IsValidPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// detectContentType returns MIME type based on file extension.
func detectContentType(path string) string {
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}

// parseServerError extracts the message from a {success:false,message} body,
// falling back to the raw body for responses that are not JSON.
func parseServerError(statusCode int, body []byte) error {
	apiErr := &APIError{StatusCode: statusCode}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		apiErr.Message = env.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	return apiErr
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "server error: " + strconv.Itoa(e.StatusCode)
	}
	return "server error: " + strconv.Itoa(e.StatusCode) + " - " + e.Message
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrBadRequest is returned for malformed input (400), such as a PIN that is not 4 digits.
	ErrBadRequest = &APIError{StatusCode: http.StatusBadRequest}

	// ErrInvalidPIN is returned when the PIN does not match (401).
	ErrInvalidPIN = &APIError{StatusCode: http.StatusUnauthorized}

	// ErrForbidden is returned when a signed URL is rejected (403).
	ErrForbidden = &APIError{StatusCode: http.StatusForbidden}

	// ErrNotFound is returned when the requested file does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrTooLarge is returned when an upload exceeds the server's limit (413).
	ErrTooLarge = &APIError{StatusCode: http.StatusRequestEntityTooLarge}
)
