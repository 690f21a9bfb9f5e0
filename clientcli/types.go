package clientcli

import (
	"time"

	"github.com/google/uuid"
)

// File is a file record as the server reports it.
type File struct {
	ID         uuid.UUID `json:"id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mimeType"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// UploadOptions configures an upload operation.
type UploadOptions struct {
	LocalPath   string
	Name        string // display name, defaults to the file's base name
	ContentType string // optional, auto-detect if empty
	Recursive   bool
}

// UploadResult represents the result of uploading a single file.
type UploadResult struct {
	LocalPath string `json:"local_path"`
	File      File   `json:"file"`
	Err       error  `json:"-"` // nil on success
}

// URLKind selects between an inline preview URL and an attachment download URL.
type URLKind string

const (
	URLPreview  URLKind = "preview"
	URLDownload URLKind = "download"
)

// URLResult is a signed URL issued by the server.
type URLResult struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType,omitempty"`
}

// DownloadOptions configures a download operation.
type DownloadOptions struct {
	ID        string
	LocalPath string // empty = server filename, "-" = stdout
}

// DownloadResult represents the result of downloading a file.
type DownloadResult struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	LocalPath   string `json:"local_path"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size_bytes"`
}

// DeleteOptions configures a delete operation.
type DeleteOptions struct {
	IDs []string
}

// DeleteResult represents the result of deleting a single file.
type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
	Err     error  `json:"-"` // nil on success
}

// ListResult holds every file in the vault, newest first.
type ListResult struct {
	Files []File `json:"files"`
}

// TotalSize calculates the total size of all files in bytes.
func (r *ListResult) TotalSize() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.Size
	}
	return total
}

// envelope is the body of every API response.
type envelope struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	File     *File  `json:"file,omitempty"`
	Files    []File `json:"files,omitempty"`
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}
