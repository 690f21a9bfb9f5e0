package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sagarc03/pinvault"
)

const (
	maxJSONBody        = 1 << 20
	maxMultipartMemory = 32 << 20

	// Room for multipart boundaries and part headers around the file itself.
	multipartOverhead = 1 << 20
)

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(v)
}

// writeServiceError is HandleError with per-endpoint wording for some errors.
func writeServiceError(w http.ResponseWriter, err error, messages map[error]string) {
	for target, message := range messages {
		if errors.Is(err, target) {
			code, _ := StatusFor(err)
			WriteError(w, code, message)
			return
		}
	}
	HandleError(w, err)
}

type verifyRequest struct {
	Password string `json:"password"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.auth.Verify(r.Context(), req.Password); err != nil {
		HandleError(w, err)
		return
	}

	WriteOK(w, "Authentication successful")
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.auth.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeServiceError(w, err, map[error]string{
			pinvault.ErrMissingField:      "Both passwords required",
			pinvault.ErrInvalidFormat:     "New password must be 4 digits",
			pinvault.ErrInvalidCredential: "Current password is incorrect",
		})
		return
	}

	WriteOK(w, "Password changed successfully")
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.files.MaxUploadSize()+multipartOverhead)

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			HandleError(w, pinvault.ErrPayloadTooLarge)
		case errors.Is(err, http.ErrNotMultipart), errors.Is(err, http.ErrMissingBoundary):
			HandleError(w, pinvault.ErrMissingFile)
		default:
			WriteError(w, http.StatusBadRequest, "Invalid multipart body")
		}
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		HandleError(w, pinvault.ErrMissingFile)
		return
	}
	defer func() { _ = file.Close() }()

	rec, err := h.files.Upload(r.Context(), pinvault.NewFile{
		DisplayName: header.Filename,
		MimeType:    header.Header.Get("Content-Type"),
		Size:        header.Size,
	}, file)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, FileResponse{
		Success: true,
		Message: "File uploaded successfully",
		File:    rec,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.files.List(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, ListResponse{Success: true, Files: records})
}

// fileID reads the id from the path, falling back to the id query parameter.
func fileID(r *http.Request) string {
	if id := chi.URLParam(r, "id"); id != "" {
		return id
	}
	return r.URL.Query().Get("id")
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := fileID(r)
	if id == "" {
		WriteError(w, http.StatusBadRequest, "File ID required")
		return
	}

	signed, err := h.files.DownloadURL(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, URLResponse{
		Success:  true,
		URL:      signed.URL,
		Filename: signed.DisplayName,
	})
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	id := fileID(r)
	if id == "" {
		WriteError(w, http.StatusBadRequest, "File ID required")
		return
	}

	signed, err := h.files.PreviewURL(r.Context(), id)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, URLResponse{
		Success:  true,
		URL:      signed.URL,
		Filename: signed.DisplayName,
		MimeType: signed.MimeType,
	})
}

type renameRequest struct {
	NewName string `json:"newName"`
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.files.Rename(r.Context(), chi.URLParam(r, "id"), req.NewName); err != nil {
		writeServiceError(w, err, map[error]string{
			pinvault.ErrInvalidArgument: "New name is required",
		})
		return
	}

	WriteOK(w, "File renamed successfully")
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.files.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		HandleError(w, err)
		return
	}

	WriteOK(w, "File deleted successfully")
}
