package http

import (
	"html/template"
	"net/http"
)

var notFoundPage = template.Must(template.New("404").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>Not found · PinVault</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 4em">
<h1>404</h1>
<p>Nothing lives at <code>{{.Path}}</code>.</p>
{{if .NoUI}}<p>This server has no client UI. Start it with <code>--static-dir</code> to serve one.</p>{{end}}
<hr><small>pinvault</small>
</body>
</html>`))

// writeNotFoundPage answers non-API misses with a small HTML page. noUI adds
// a hint that the static directory is unset.
func writeNotFoundPage(w http.ResponseWriter, r *http.Request, noUI bool) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_ = notFoundPage.Execute(w, struct {
		Path string
		NoUI bool
	}{Path: r.URL.Path, NoUI: noUI})
}
