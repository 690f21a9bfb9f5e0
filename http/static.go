package http

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

const indexFile = "index.html"

// staticHandler serves the client UI from StaticDir. Paths that name no file
// get index.html so client-side routes survive a reload.
func (h *Handler) staticHandler() http.Handler {
	fsys := os.DirFS(h.config.StaticDir)
	fileServer := http.FileServerFS(fsys)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = "."
		}

		info, err := fs.Stat(fsys, name)
		if err != nil || (info.IsDir() && !hasIndex(fsys, name)) {
			if _, err := fs.Stat(fsys, indexFile); err != nil {
				writeNotFoundPage(w, r, false)
				return
			}
			http.ServeFileFS(w, r, fsys, indexFile)
			return
		}

		fileServer.ServeHTTP(w, r)
	})
}

func hasIndex(fsys fs.FS, dir string) bool {
	_, err := fs.Stat(fsys, path.Join(dir, indexFile))
	return err == nil
}
