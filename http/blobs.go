package http

import (
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sagarc03/pinvault"
	"github.com/sagarc03/pinvault/filesystem"
)

// handleBlob serves a blob behind a verified presigned URL. The signed
// response-content-type and response-content-disposition parameters become
// the Content-Type and Content-Disposition headers.
func (h *Handler) handleBlob(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")

	content, err := h.config.Blobs.Get(r.Context(), key)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	query := r.URL.Query()
	contentType := query.Get(pinvault.ResponseContentTypeParam)
	if contentType == "" {
		contentType = filesystem.ContentType(key)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, no-store")
	if disposition := query.Get(pinvault.ResponseContentDispositionParam); disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}

	http.ServeContent(w, r, path.Base(key), time.Time{}, content)
}
