package safeher

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration. Durations are written in YAML as
// Go duration strings ("24h", "15m").
type Config struct {
	JWT      JWTConfig      `yaml:"jwt"`
	Password PasswordConfig `yaml:"password"`
	Security SecurityConfig `yaml:"security"`
	Account  AccountConfig  `yaml:"account"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	HTTP     HTTPConfig     `yaml:"http"`
	Audit    AuditConfig    `yaml:"audit"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures access tokens. Secret is used with hs256. PrivateKey
// and PublicKey hold base64 encoded Ed25519 keys for ed25519.
type JWTConfig struct {
	AccessTTL     time.Duration `yaml:"access_ttl"`
	SigningMethod string        `yaml:"signing_method"` // "hs256" (default) or "ed25519"
	Secret        string        `yaml:"secret"`
	PrivateKey    string        `yaml:"private_key"`
	PublicKey     string        `yaml:"public_key"`
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	Leeway        time.Duration `yaml:"leeway"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the Argon2id cost parameters.
type PasswordConfig struct {
	Memory         uint32 `yaml:"memory_kb"`
	Time           uint32 `yaml:"time"`
	Parallelism    uint8  `yaml:"parallelism"`
	SaltLength     uint32 `yaml:"salt_length"`
	KeyLength      uint32 `yaml:"key_length"`
	MinLength      int    `yaml:"min_length"`
	UpgradeOnLogin bool   `yaml:"upgrade_on_login"`
}

/*
====================================
SECURITY CONFIG
====================================
*/

// ValidationMode selects how much of a token is checked per request.
type ValidationMode string

const (
	// ModeInherit uses the configured mode. Only meaningful per route.
	ModeInherit ValidationMode = ""
	// ModeJWTOnly checks signature and expiry only.
	ModeJWTOnly ValidationMode = "jwt_only"
	// ModeStrict also requires the session to exist in Redis.
	ModeStrict ValidationMode = "strict"
)

// RouteMode is the per-route override accepted by [Engine.Validate].
type RouteMode = ValidationMode

// SecurityConfig configures token validation and login throttling.
type SecurityConfig struct {
	ValidationMode        ValidationMode `yaml:"validation_mode"`
	RedisPrefix           string         `yaml:"redis_prefix"`
	EnableIPThrottle      bool           `yaml:"enable_ip_throttle"`
	MaxLoginAttempts      int            `yaml:"max_login_attempts"`
	LoginCooldownDuration time.Duration  `yaml:"login_cooldown"`
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig configures self-service registration.
type AccountConfig struct {
	AllowRegistration          bool          `yaml:"allow_registration"`
	DefaultRole                string        `yaml:"default_role"`
	AccountCreationMaxAttempts int           `yaml:"creation_max_attempts"`
	AccountCreationCooldown    time.Duration `yaml:"creation_cooldown"`
}

/*
====================================
UPLOADS AND STORAGE
====================================
*/

// UploadsConfig limits evidence uploads.
type UploadsConfig struct {
	MaxFileSize       int64         `yaml:"max_file_size"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
	MaxPerWindow      int           `yaml:"max_per_window"`
	Window            time.Duration `yaml:"window"`
}

// StorageConfig selects where uploaded objects are kept.
type StorageConfig struct {
	Backend string      `yaml:"backend"` // "local" (default) or "minio"
	Dir     string      `yaml:"dir"`
	Minio   MinioConfig `yaml:"minio"`
}

// MinioConfig locates the bucket for the minio backend.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`
}

/*
====================================
BACKENDS
====================================
*/

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig locates the Redis server. Embedded starts an in-process server
// instead, for development.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Embedded bool   `yaml:"embedded"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

/*
====================================
OBSERVABILITY
====================================
*/

// AuditConfig configures the async audit dispatcher. LogEvents mirrors every
// event to the service logger.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
	LogEvents  bool `yaml:"log_events"`
}

// MetricsConfig configures in-process counters. Prometheus exposes them at
// /metrics.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
	Prometheus              bool `yaml:"prometheus"`
}

// LoggingConfig selects the zap preset and level.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     24 * time.Hour,
			SigningMethod: "hs256",
		},
		Password: PasswordConfig{
			Memory:         19456,
			Time:           2,
			Parallelism:    1,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      8,
			UpgradeOnLogin: true,
		},
		Security: SecurityConfig{
			ValidationMode:        ModeStrict,
			RedisPrefix:           "sh",
			EnableIPThrottle:      true,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
		},
		Account: AccountConfig{
			AllowRegistration:          true,
			DefaultRole:                "user",
			AccountCreationMaxAttempts: 10,
			AccountCreationCooldown:    time.Hour,
		},
		Uploads: UploadsConfig{
			MaxFileSize:       10 << 20,
			AllowedExtensions: []string{"png", "jpg", "jpeg", "gif", "pdf", "doc", "docx", "mp4", "mov", "avi"},
			MaxPerWindow:      30,
			Window:            time.Hour,
		},
		Storage: StorageConfig{
			Backend: "local",
			Dir:     "uploads",
		},
		Database: DatabaseConfig{
			URL: "sqlite:///safeher.db",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		HTTP: HTTPConfig{
			Addr: ":5000",
			CORSOrigins: []string{
				"http://localhost:5173",
				"http://localhost:3000",
				"http://localhost:8080",
				"http://127.0.0.1:8080",
			},
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Uploads.AllowedExtensions = append([]string(nil), cfg.Uploads.AllowedExtensions...)
	out.HTTP.CORSOrigins = append([]string(nil), cfg.HTTP.CORSOrigins...)
	return out
}

/*
====================================
LOADING
====================================
*/

// LoadConfig reads a YAML file over the defaults and applies environment
// overrides. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) error {
	if v, ok := lookup("SAFEHER_DB"); ok && v != "" {
		c.Database.URL = v
	}
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.Database.URL = v
	}
	if v, ok := lookup("JWT_SECRET_KEY"); ok && v != "" {
		c.JWT.Secret = v
	}
	if v, ok := lookup("UPLOAD_FOLDER"); ok && v != "" {
		c.Storage.Dir = v
	}
	if v, ok := lookup("MAX_FILE_SIZE"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_FILE_SIZE: %w", err)
		}
		c.Uploads.MaxFileSize = n
	}
	if v, ok := lookup("REDIS_ADDR"); ok && v != "" {
		c.Redis.Addr = v
	}
	if v, ok := lookup("SAFEHER_ADDR"); ok && v != "" {
		c.HTTP.Addr = v
	}
	if v, ok := lookup("SAFEHER_CORS_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.HTTP.CORSOrigins = origins
	}
	return nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if c.JWT.Secret == "" {
			return errors.New("hs256 requires Secret")
		}
		if len(c.JWT.Secret) < 16 {
			return errors.New("JWT Secret must be at least 16 bytes")
		}
	case "ed25519":
		if c.JWT.PrivateKey == "" || c.JWT.PublicKey == "" {
			return errors.New("ed25519 requires PrivateKey and PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}

	// Security
	switch c.Security.ValidationMode {
	case ModeStrict, ModeJWTOnly:
	default:
		return errors.New("ValidationMode must be 'strict' or 'jwt_only'")
	}
	if c.Security.RedisPrefix == "" {
		return errors.New("Security RedisPrefix must not be empty")
	}
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("MaxLoginAttempts must be > 0")
	}
	if c.Security.LoginCooldownDuration <= 0 {
		return errors.New("LoginCooldownDuration must be > 0")
	}

	// Account
	if c.Account.DefaultRole == "" {
		return errors.New("Account DefaultRole is required")
	}
	if c.Account.AccountCreationMaxAttempts < 0 {
		return errors.New("Account AccountCreationMaxAttempts must be >= 0")
	}
	if c.Account.AccountCreationMaxAttempts > 0 && c.Account.AccountCreationCooldown <= 0 {
		return errors.New("Account AccountCreationCooldown must be > 0")
	}

	// Uploads
	if c.Uploads.MaxFileSize <= 0 {
		return errors.New("Uploads MaxFileSize must be > 0")
	}
	if len(c.Uploads.AllowedExtensions) == 0 {
		return errors.New("Uploads AllowedExtensions must not be empty")
	}
	for _, ext := range c.Uploads.AllowedExtensions {
		if ext == "" || strings.ContainsAny(ext, "./\\") {
			return fmt.Errorf("Uploads extension %q is invalid", ext)
		}
	}
	if c.Uploads.MaxPerWindow < 0 {
		return errors.New("Uploads MaxPerWindow must be >= 0")
	}
	if c.Uploads.MaxPerWindow > 0 && c.Uploads.Window <= 0 {
		return errors.New("Uploads Window must be > 0")
	}

	// Storage
	switch c.Storage.Backend {
	case "local":
		if c.Storage.Dir == "" {
			return errors.New("Storage Dir is required for the local backend")
		}
	case "minio":
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.Bucket == "" {
			return errors.New("Storage Minio Endpoint and Bucket are required")
		}
	default:
		return errors.New("Storage Backend must be 'local' or 'minio'")
	}

	// Backends
	if c.Database.URL == "" {
		return errors.New("Database URL is required")
	}
	if !c.Redis.Embedded && c.Redis.Addr == "" {
		return errors.New("Redis Addr is required")
	}
	if c.HTTP.Addr == "" {
		return errors.New("HTTP Addr is required")
	}
	if c.HTTP.ShutdownTimeout < 0 {
		return errors.New("HTTP ShutdownTimeout must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.Prometheus && !c.Metrics.Enabled {
		return errors.New("Metrics Prometheus requires Metrics Enabled")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.New("Logging Level must be debug, info, warn, or error")
	}

	return nil
}
