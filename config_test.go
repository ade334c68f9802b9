package safeher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigValidateEnums(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with secret valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "missing secret invalid",
			mutate: func(c *Config) {
				c.JWT.Secret = ""
			},
			wantValid: false,
		},
		{
			name: "short secret invalid",
			mutate: func(c *Config) {
				c.JWT.Secret = "tooshort"
			},
			wantValid: false,
		},
		{
			name: "ed25519 without keys invalid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "ed25519"
			},
			wantValid: false,
		},
		{
			name: "jwt signing invalid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "jwt leeway invalid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "validation mode jwt_only valid",
			mutate: func(c *Config) {
				c.Security.ValidationMode = ModeJWTOnly
			},
			wantValid: true,
		},
		{
			name: "validation mode inherit invalid",
			mutate: func(c *Config) {
				c.Security.ValidationMode = ModeInherit
			},
			wantValid: false,
		},
		{
			name: "argon2 memory too low invalid",
			mutate: func(c *Config) {
				c.Password.Memory = 1024
			},
			wantValid: false,
		},
		{
			name: "upload extension with dot invalid",
			mutate: func(c *Config) {
				c.Uploads.AllowedExtensions = []string{".png"}
			},
			wantValid: false,
		},
		{
			name: "upload window required when limited",
			mutate: func(c *Config) {
				c.Uploads.MaxPerWindow = 5
				c.Uploads.Window = 0
			},
			wantValid: false,
		},
		{
			name: "minio without bucket invalid",
			mutate: func(c *Config) {
				c.Storage.Backend = "minio"
				c.Storage.Minio.Endpoint = "localhost:9000"
			},
			wantValid: false,
		},
		{
			name: "unknown storage backend invalid",
			mutate: func(c *Config) {
				c.Storage.Backend = "gcs"
			},
			wantValid: false,
		},
		{
			name: "embedded redis needs no addr",
			mutate: func(c *Config) {
				c.Redis.Addr = ""
				c.Redis.Embedded = true
			},
			wantValid: true,
		},
		{
			name: "prometheus without metrics invalid",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.Prometheus = true
			},
			wantValid: false,
		},
		{
			name: "logging level invalid",
			mutate: func(c *Config) {
				c.Logging.Level = "verbose"
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.JWT.Secret = testSecret
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config")
			}
		})
	}
}

func TestCloneConfigCopiesSlices(t *testing.T) {
	cfg := DefaultConfig()
	clone := cloneConfig(cfg)
	clone.Uploads.AllowedExtensions[0] = "exe"
	clone.HTTP.CORSOrigins[0] = "https://evil.example"

	if cfg.Uploads.AllowedExtensions[0] != "png" || cfg.HTTP.CORSOrigins[0] != "http://localhost:5173" {
		t.Fatal("clone shares slices with the original")
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":5000" || cfg.JWT.AccessTTL != 24*time.Hour {
		t.Fatalf("expected defaults, got %+v", cfg.HTTP)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safeher.yaml")
	data := []byte(`
jwt:
  access_ttl: 2h
  secret: yaml-secret-0123456789
security:
  validation_mode: jwt_only
  login_cooldown: 5m
uploads:
  allowed_extensions: [pdf, png]
storage:
  backend: minio
  minio:
    endpoint: localhost:9000
    bucket: evidence
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JWT.AccessTTL != 2*time.Hour || cfg.Security.LoginCooldownDuration != 5*time.Minute {
		t.Fatalf("durations not parsed: %v %v", cfg.JWT.AccessTTL, cfg.Security.LoginCooldownDuration)
	}
	if cfg.Security.ValidationMode != ModeJWTOnly || cfg.Storage.Minio.Bucket != "evidence" {
		t.Fatalf("unexpected config %+v", cfg.Security)
	}
	if len(cfg.Uploads.AllowedExtensions) != 2 {
		t.Fatalf("expected 2 extensions, got %v", cfg.Uploads.AllowedExtensions)
	}
	if cfg.Password.Memory != 19456 {
		t.Fatal("unset sections must keep defaults")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"SAFEHER_DB":           "sqlite:///ignored.db",
		"DATABASE_URL":         "sqlite:///data/safeher.db",
		"JWT_SECRET_KEY":       "env-secret-0123456789",
		"UPLOAD_FOLDER":        "/var/uploads",
		"MAX_FILE_SIZE":        "2048",
		"REDIS_ADDR":           "redis:6379",
		"SAFEHER_ADDR":         ":8080",
		"SAFEHER_CORS_ORIGINS": "https://a.example, ,https://b.example",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	if err := cfg.applyEnvOverrides(lookup); err != nil {
		t.Fatalf("overrides: %v", err)
	}
	if cfg.Database.URL != "sqlite:///data/safeher.db" {
		t.Fatalf("DATABASE_URL must win, got %s", cfg.Database.URL)
	}
	if cfg.JWT.Secret != "env-secret-0123456789" || cfg.Storage.Dir != "/var/uploads" || cfg.Uploads.MaxFileSize != 2048 {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.Redis.Addr != "redis:6379" || cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected backend overrides %+v %+v", cfg.Redis, cfg.HTTP)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 || cfg.HTTP.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.HTTP.CORSOrigins)
	}

	env = map[string]string{"MAX_FILE_SIZE": "ten"}
	if err := cfg.applyEnvOverrides(lookup); err == nil {
		t.Fatal("expected bad MAX_FILE_SIZE to fail")
	}
}
