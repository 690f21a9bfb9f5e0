package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/pinvault"
	"github.com/sagarc03/pinvault/database"
	vaulthttp "github.com/sagarc03/pinvault/http"
	"github.com/sagarc03/pinvault/keybackend"
	"github.com/sagarc03/pinvault/s3store"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for pinvault.
type Config struct {
	Env      string               `mapstructure:"env"`
	Server   ServerConfig         `mapstructure:"server"`
	Service  ServiceConfig        `mapstructure:"service"`
	Auth     AuthConfig           `mapstructure:"auth"`
	Database database.Config      `mapstructure:"database"`
	Storage  StorageConfig        `mapstructure:"storage"`
	Signing  SigningConfig        `mapstructure:"signing"`
	CORS     vaulthttp.CORSConfig `mapstructure:"cors"`
	Log      LogConfig            `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
	// PublicURL is where clients reach the server. Filesystem signed URLs
	// point here. Empty means http://localhost:<port>.
	PublicURL       string        `mapstructure:"public_url" validate:"omitempty,url"`
	StaticDir       string        `mapstructure:"static_dir"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

// BaseURL returns PublicURL or the localhost default.
func (s ServerConfig) BaseURL() string {
	if s.PublicURL != "" {
		return strings.TrimSuffix(s.PublicURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", s.Port)
}

// ServiceConfig holds file service limits.
type ServiceConfig struct {
	MaxUploadSize int64         `mapstructure:"max_upload_size" validate:"min=0"`
	URLExpiry     time.Duration `mapstructure:"url_expiry" validate:"min=0,max=168h"`
}

// AuthConfig holds PIN settings.
type AuthConfig struct {
	DefaultPIN string `mapstructure:"default_pin" validate:"required,len=4,numeric"`
	HashCost   int    `mapstructure:"hash_cost" validate:"min=0,max=31"`
}

// StorageConfig selects and configures the object store.
type StorageConfig struct {
	Type string         `mapstructure:"type" validate:"required,oneof=filesystem s3"`
	Path string         `mapstructure:"path"`
	S3   s3store.Config `mapstructure:"s3"`
}

// SigningConfig holds the SigV4 scope and keys the filesystem backend signs
// blob URLs with.
type SigningConfig struct {
	Region  string                `mapstructure:"region" validate:"required"`
	Service string                `mapstructure:"service" validate:"required"`
	Keys    keybackend.KeysConfig `mapstructure:"keys"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":      "database.type",
	"db-dsn":       "database.dsn",
	"storage-type": "storage.type",
	"storage-path": "storage.path",
	"port":         "server.port",
	"public-url":   "server.public_url",
	"static-dir":   "server.static_dir",
	"log-level":    "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 5*time.Minute)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.idle_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("service.max_upload_size", pinvault.DefaultMaxUploadSize)
	v.SetDefault("service.url_expiry", pinvault.DefaultURLExpiry)

	v.SetDefault("auth.default_pin", pinvault.DefaultPIN)
	v.SetDefault("auth.hash_cost", 0)

	v.SetDefault("database.type", database.TypeSQLite)
	v.SetDefault("database.dsn", "pinvault.db")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.tables.files", "vault_files")
	v.SetDefault("database.tables.credentials", "vault_credentials")

	v.SetDefault("storage.type", "filesystem")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.s3.region", "us-east-1")

	v.SetDefault("signing.region", "us-east-1")
	v.SetDefault("signing.service", "s3")

	v.SetDefault("log.level", "info")

	cors := vaulthttp.DefaultCORSConfig()
	v.SetDefault("cors.allowed_origins", cors.AllowedOrigins)
	v.SetDefault("cors.allowed_methods", cors.AllowedMethods)
	v.SetDefault("cors.allowed_headers", cors.AllowedHeaders)
}

// legacyEnv lists environment variables of older deployments. They apply at
// default precedence: anything in a config file, a PINVAULT_ variable or a
// flag wins over them.
var legacyEnv = []struct {
	env  string
	keys map[string]func(string) any
}{
	{"MONGODB_URI", map[string]func(string) any{
		"database.type": constant(database.TypeMongoDB),
		"database.dsn":  identity,
	}},
	{"AWS_BUCKET_NAME", map[string]func(string) any{
		"storage.type":      constant("s3"),
		"storage.s3.bucket": identity,
	}},
	{"AWS_REGION", map[string]func(string) any{"storage.s3.region": identity}},
	{"AWS_ACCESS_KEY_ID", map[string]func(string) any{"storage.s3.access_key_id": identity}},
	{"AWS_SECRET_ACCESS_KEY", map[string]func(string) any{"storage.s3.secret_access_key": identity}},
	{"DEFAULT_PASSWORD", map[string]func(string) any{"auth.default_pin": identity}},
	{"PORT", map[string]func(string) any{"server.port": identity}},
}

func identity(s string) any { return s }

func constant(value string) func(string) any {
	return func(string) any { return value }
}

func applyLegacyEnv(v *viper.Viper) {
	for _, legacy := range legacyEnv {
		value, ok := os.LookupEnv(legacy.env)
		if !ok || value == "" {
			continue
		}
		for key, convert := range legacy.keys {
			v.SetDefault(key, convert(value))
		}
	}
}

// loadDotEnv loads .env and .env.local from each directory. Variables that
// are already set are left alone.
func loadDotEnv(dirs ...string) {
	for _, dir := range dirs {
		for _, name := range []string{".env", ".env.local"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := godotenv.Load(path); err != nil {
				slog.Warn("error loading env file", "file", path, "err", err)
			}
		}
	}
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest):
// flags > env > config files > legacy env > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. .env files, then defaults
	envDirs := []string{"."}
	if len(configFiles) > 0 {
		envDirs = append(envDirs, filepath.Dir(configFiles[0]))
	}
	loadDotEnv(envDirs...)

	setDefaults(v)
	applyLegacyEnv(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("PINVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the rules that span fields.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if err := c.Database.Tables.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	switch c.Storage.Type {
	case "filesystem":
		if c.Storage.Path == "" {
			return errors.New("validate config: storage.path is required for the filesystem backend")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return errors.New("validate config: storage.s3.bucket is required for the s3 backend")
		}
	}

	return nil
}
