package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sagarc03/pinvault"
	"github.com/sagarc03/pinvault/filesystem"
)

// AuthService verifies and changes the vault PIN.
type AuthService interface {
	Verify(ctx context.Context, pin string) error
	ChangePassword(ctx context.Context, current, newPIN string) error
}

// FileService manages file records and their blobs.
type FileService interface {
	Upload(ctx context.Context, f pinvault.NewFile, content io.Reader) (pinvault.FileRecord, error)
	List(ctx context.Context) ([]pinvault.FileRecord, error)
	Rename(ctx context.Context, id, newName string) error
	PreviewURL(ctx context.Context, id string) (pinvault.SignedFile, error)
	DownloadURL(ctx context.Context, id string) (pinvault.SignedFile, error)
	Delete(ctx context.Context, id string) error
	MaxUploadSize() int64
}

// BlobSource opens blobs for the signed blob route.
type BlobSource interface {
	Get(ctx context.Context, key string) (io.ReadSeekCloser, error)
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// DefaultCORSConfig allows any origin to call the API.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}
}

type HandlerConfig struct {
	CORS CORSConfig
	// Blobs and BlobVerifier enable GET /blobs/*. Both are needed.
	Blobs        BlobSource
	BlobVerifier RequestVerifier
	// StaticDir holds the client UI. Empty disables it.
	StaticDir string
	Logger    *slog.Logger
}

// Handler serves the vault's JSON API, signed blobs and client UI.
type Handler struct {
	config HandlerConfig
	auth   AuthService
	files  FileService
}

// NewHandler creates a new Handler with the given configuration and services.
func NewHandler(config *HandlerConfig, auth AuthService, files FileService) *Handler {
	cfg := *config
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Handler{
		config: cfg,
		auth:   auth,
		files:  files,
	}
}

// Router returns the vault's http.Handler. CORS runs outermost so its headers
// are present on every response, including 404 and 405.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(CORSHeaders(h.config.CORS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.config.CORS.AllowedOrigins,
		AllowedMethods:   h.config.CORS.AllowedMethods,
		AllowedHeaders:   h.config.CORS.AllowedHeaders,
		ExposedHeaders:   h.config.CORS.ExposedHeaders,
		AllowCredentials: h.config.CORS.AllowCredentials,
		MaxAge:           h.config.CORS.MaxAge,
	}))
	r.Use(OptionsMiddleware)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.config.Logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			WriteError(w, http.StatusNotFound, "Not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		})

		r.Post("/auth/verify", h.handleVerify)
		r.Post("/auth/change-password", h.handleChangePassword)

		r.Route("/files", func(r chi.Router) {
			r.Get("/", h.handleList)
			r.Post("/upload", h.handleUpload)
			r.Get("/download", h.handleDownload)
			r.Get("/download/{id}", h.handleDownload)
			r.Get("/preview", h.handlePreview)
			r.Get("/preview/{id}", h.handlePreview)
			r.Put("/{id}", h.handleRename)
			r.Put("/{id}/rename", h.handleRename)
			r.Delete("/{id}", h.handleDelete)
		})
	})

	if h.config.Blobs != nil && h.config.BlobVerifier != nil {
		r.With(SignedURLMiddleware(h.config.BlobVerifier)).Get(filesystem.BlobRoute+"*", h.handleBlob)
	}

	if h.config.StaticDir != "" {
		r.Get("/*", h.staticHandler().ServeHTTP)
	}

	noUI := h.config.StaticDir == ""
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeNotFoundPage(w, r, noUI)
	})

	return r
}
