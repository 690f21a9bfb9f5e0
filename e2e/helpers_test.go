package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	mongocontainer "github.com/testcontainers/testcontainers-go/modules/mongodb"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	binaries      = map[string]*builtBinary{}
	binariesMu    sync.Mutex
	sharedTempDir string

	pgOnce sync.Once
	pgDSN  string
	pgErr  error

	mongoOnce sync.Once
	mongoURI  string
	mongoErr  error
)

type builtBinary struct {
	once sync.Once
	path string
	err  error
}

// TestMain sets up and tears down shared test resources.
func TestMain(m *testing.M) {
	var err error
	sharedTempDir, err = os.MkdirTemp("", "pinvault-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = os.RemoveAll(sharedTempDir)

	os.Exit(code)
}

// ServerConfig holds configuration for starting the pinvault server.
type ServerConfig struct {
	Port          int
	DBType        string // sqlite, postgres, mongodb
	DBDSN         string
	StoragePath   string
	DefaultPIN    string
	MaxUploadSize int64
}

// buildBinary compiles ./cmd/<name> once per test run and returns its path.
func buildBinary(t *testing.T, name string) string {
	t.Helper()

	binariesMu.Lock()
	b, ok := binaries[name]
	if !ok {
		b = &builtBinary{}
		binaries[name] = b
	}
	binariesMu.Unlock()

	b.once.Do(func() {
		b.path = filepath.Join(sharedTempDir, name)

		cmd := exec.Command("go", "build", "-o", b.path, "./cmd/"+name)
		cmd.Dir = getProjectRoot(t)
		output, err := cmd.CombinedOutput()
		if err != nil {
			b.err = fmt.Errorf("build %s: %w\nOutput: %s", name, err, output)
		}
	})

	if b.err != nil {
		t.Fatalf("failed to build binary: %v", b.err)
	}

	return b.path
}

// getProjectRoot returns the directory holding go.mod.
func getProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "get working directory")

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// createConfigFile writes a config file for the server and returns its path.
func createConfigFile(t *testing.T, cfg ServerConfig) string {
	t.Helper()

	var sb strings.Builder
	fmt.Fprintf(&sb, `server:
  port: %d
  public_url: "http://localhost:%d"

database:
  type: %s
  dsn: "%s"
  auto_migrate: false

storage:
  type: filesystem
  path: "%s"

signing:
  keys:
    inline:
      - access_key: PVE2E
        secret_key: e2e-signing-secret
`,
		cfg.Port,
		cfg.Port,
		cfg.DBType,
		cfg.DBDSN,
		cfg.StoragePath,
	)

	if cfg.DefaultPIN != "" {
		fmt.Fprintf(&sb, "\nauth:\n  default_pin: \"%s\"\n", cfg.DefaultPIN)
	}
	if cfg.MaxUploadSize > 0 {
		fmt.Fprintf(&sb, "\nservice:\n  max_upload_size: %d\n", cfg.MaxUploadSize)
	}

	sb.WriteString("\nlog:\n  level: error\n")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(sb.String()), 0o600), "write config file")

	return configPath
}

// runServerCommand runs a one-shot pinvault subcommand against cfg.
func runServerCommand(t *testing.T, configPath string, args ...string) []byte {
	t.Helper()

	binary := buildBinary(t, "pinvault")
	cmd := exec.Command(binary, append(args, "--config", configPath)...)
	cmd.Env = cleanEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	require.NoError(t, cmd.Run(), "pinvault %v: %s%s", args, stdout.String(), stderr.String())

	return stdout.Bytes()
}

// startServer migrates the database, starts the pinvault binary and waits
// until it answers. The server is stopped with SIGTERM when the test ends.
func startServer(t *testing.T, cfg ServerConfig) (string, string) {
	t.Helper()

	if cfg.Port == 0 {
		cfg.Port = getOpenPort(t)
	}
	if cfg.StoragePath == "" {
		cfg.StoragePath = t.TempDir()
	}

	configPath := createConfigFile(t, cfg)
	runServerCommand(t, configPath, "migrate")

	cmd := exec.Command(buildBinary(t, "pinvault"), "serve", "--config", configPath)
	cmd.Env = cleanEnv()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	require.NoError(t, cmd.Start(), "start server")

	t.Cleanup(func() {
		if cmd.Process != nil {
			_ = cmd.Process.Signal(syscall.SIGTERM)
			_ = cmd.Wait()
		}
	})

	baseURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
	waitForServer(t, baseURL, 15*time.Second)

	return baseURL, configPath
}

// cleanEnv drops variables that would reconfigure the binaries.
func cleanEnv() []string {
	legacy := map[string]bool{
		"MONGODB_URI": true, "AWS_BUCKET_NAME": true, "AWS_REGION": true,
		"AWS_ACCESS_KEY_ID": true, "AWS_SECRET_ACCESS_KEY": true,
		"DEFAULT_PASSWORD": true, "PORT": true,
	}

	var env []string
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "PINVAULT_") || legacy[key] {
			continue
		}
		env = append(env, kv)
	}
	return env
}

// waitForServer polls the server until it responds or times out.
func waitForServer(t *testing.T, baseURL string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 1 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/api/files")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatalf("server failed to start within %v", timeout)
}

// getOpenPort finds an available TCP port.
func getOpenPort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err, "find open port")

	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close(), "close port")

	return port
}

// apiResponse is the union of the API's JSON bodies.
type apiResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	File     struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
		MimeType string `json:"mimeType"`
	} `json:"file"`
	Files []struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
	} `json:"files"`
}

func doJSON(t *testing.T, method, url string, body any) (int, apiResponse) {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return decode(t, req)
}

func upload(t *testing.T, baseURL, filename, contentType string, content []byte) (int, apiResponse) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)}
	header["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/files/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return decode(t, req)
}

func decode(t *testing.T, req *http.Request) (int, apiResponse) {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out), "decode %s %s", req.Method, req.URL)
	return resp.StatusCode, out
}

// getSharedPostgresDSN starts one postgres container for the e2e run.
func getSharedPostgresDSN(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres e2e tests need docker")
	}

	pgOnce.Do(func() {
		ctx := context.Background()

		container, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("pinvault"),
			pgcontainer.WithUsername("pinvault"),
			pgcontainer.WithPassword("pinvault"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			pgErr = fmt.Errorf("start postgres container: %w", err)
			return
		}

		pgDSN, pgErr = container.ConnectionString(ctx, "sslmode=disable")
		if pgErr != nil {
			_ = testcontainers.TerminateContainer(container)
		}
	})

	require.NoError(t, pgErr)
	return pgDSN
}

// getSharedMongoURI starts one mongodb container for the e2e run. Each
// caller gets its own database name.
func getSharedMongoURI(t *testing.T, dbName string) string {
	t.Helper()

	if testing.Short() {
		t.Skip("mongodb e2e tests need docker")
	}

	mongoOnce.Do(func() {
		ctx := context.Background()

		container, err := mongocontainer.Run(ctx, "mongo:7")
		if err != nil {
			mongoErr = fmt.Errorf("start mongodb container: %w", err)
			return
		}

		mongoURI, mongoErr = container.ConnectionString(ctx)
		if mongoErr != nil {
			_ = testcontainers.TerminateContainer(container)
		}
	})

	require.NoError(t, mongoErr)
	return strings.TrimSuffix(mongoURI, "/") + "/" + dbName
}
