package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/pinvault"
)

// Response is the envelope every API reply shares.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// FileResponse is returned by upload.
type FileResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	File    pinvault.FileRecord `json:"file"`
}

// ListResponse is returned by the file listing.
type ListResponse struct {
	Success bool                  `json:"success"`
	Files   []pinvault.FileRecord `json:"files"`
}

// URLResponse is returned by preview and download. MimeType is set for
// previews only.
type URLResponse struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType,omitempty"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, message string) {
	if err := WriteJSON(w, code, Response{Success: false, Message: message}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// WriteOK writes {"success":true} with an optional message.
func WriteOK(w http.ResponseWriter, message string) {
	_ = WriteJSON(w, http.StatusOK, Response{Success: true, Message: message})
}

type errorMapping struct {
	target  error
	code    int
	message string
}

var errorMappings = []errorMapping{
	{pinvault.ErrInvalidFormat, http.StatusBadRequest, "Password must be exactly 4 digits"},
	{pinvault.ErrMissingField, http.StatusBadRequest, "Missing required field"},
	{pinvault.ErrMissingFile, http.StatusBadRequest, "No file uploaded"},
	{pinvault.ErrInvalidArgument, http.StatusBadRequest, "Invalid request"},
	{pinvault.ErrInvalidCredential, http.StatusUnauthorized, "Invalid password"},
	{pinvault.ErrUnauthorized, http.StatusForbidden, "Invalid or expired signature"},
	{pinvault.ErrNotFound, http.StatusNotFound, "File not found"},
	{pinvault.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "File too large"},
}

// StatusFor returns the HTTP status and client message for err.
func StatusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.code, m.message
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	code, message := StatusFor(err)

	if code >= http.StatusInternalServerError {
		slog.Error("request error", "error", err)
	} else {
		slog.Warn("request rejected", "status", code, "error", err)
	}

	WriteError(w, code, message)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
