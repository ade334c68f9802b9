package safeher

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/safeher/attachment"
	"github.com/MrEthical07/safeher/internal/audit"
	"github.com/MrEthical07/safeher/internal/limiters"
	"github.com/MrEthical07/safeher/internal/rate"
	"github.com/MrEthical07/safeher/jwt"
	"github.com/MrEthical07/safeher/password"
	"github.com/MrEthical07/safeher/permission"
	"github.com/MrEthical07/safeher/session"
	"github.com/MrEthical07/safeher/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder can be used for one Build only.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  *store.Store
	logger *zap.Logger

	auditSink   AuditSink
	attachments attachment.Store
	now         func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithStore(s *store.Store) *Builder {
	b.store = s
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithAttachmentStore overrides the object store chosen by Config.Storage.
func (b *Builder) WithAttachmentStore(s attachment.Store) *Builder {
	b.attachments = s
	return b
}

// WithClock replaces time.Now for tokens, sessions and timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.store == nil {
		return nil, errors.New("store required")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	// -------- ROLES --------
	roleManager, err := permission.NewDefault()
	if err != nil {
		return nil, err
	}
	if !roleManager.HasRole(cfg.Account.DefaultRole) {
		return nil, errors.New("Account DefaultRole does not exist in role manager")
	}

	// -------- TOKENS AND PASSWORDS --------
	jwtCfg := jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	}
	switch jwtCfg.SigningMethod {
	case jwt.MethodHS256:
		jwtCfg.PrivateKey = []byte(cfg.JWT.Secret)
	case jwt.MethodEd25519:
		if jwtCfg.PrivateKey, err = base64.StdEncoding.DecodeString(cfg.JWT.PrivateKey); err != nil {
			return nil, fmt.Errorf("JWT PrivateKey: %w", err)
		}
		if jwtCfg.PublicKey, err = base64.StdEncoding.DecodeString(cfg.JWT.PublicKey); err != nil {
			return nil, fmt.Errorf("JWT PublicKey: %w", err)
		}
	}
	jm, err := jwt.NewManager(jwtCfg)
	if err != nil {
		return nil, err
	}
	jm.WithClock(now)

	ph, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MinPasswordBytes: cfg.Password.MinLength,
	})
	if err != nil {
		return nil, err
	}

	// -------- ATTACHMENTS --------
	objects := b.attachments
	if objects == nil {
		objects, err = OpenAttachmentStore(context.Background(), cfg.Storage)
		if err != nil {
			return nil, err
		}
	}
	uploader := attachment.NewUploader(objects, attachment.Policy{
		MaxBytes:          cfg.Uploads.MaxFileSize,
		AllowedExtensions: cfg.Uploads.AllowedExtensions,
	}).WithClock(now)

	// -------- AUDIT --------
	sink := b.auditSink
	if cfg.Audit.LogEvents {
		sink = audit.MultiSink{sink, audit.NewZapSink(logger)}
	}

	prefix := cfg.Security.RedisPrefix
	engine := &Engine{
		config:       cloneConfig(cfg),
		logger:       logger.Named("safeher"),
		store:        b.store,
		roleManager:  roleManager,
		sessionStore: session.NewStore(b.redis, prefix).WithClock(now),
		rateLimiter: rate.New(b.redis, rate.Config{
			KeyPrefix:             prefix,
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		}),
		registrationLimiter: limiters.NewRegistrationLimiter(b.redis, prefix, limiters.WindowConfig{
			MaxAttempts: cfg.Account.AccountCreationMaxAttempts,
			Window:      cfg.Account.AccountCreationCooldown,
		}),
		uploadLimiter: limiters.NewUploadLimiter(b.redis, prefix, limiters.WindowConfig{
			MaxAttempts: cfg.Uploads.MaxPerWindow,
			Window:      cfg.Uploads.Window,
		}),
		uploader: uploader,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
			Critical:   criticalAuditEvents,
		}, sink),
		metrics:      NewMetrics(cfg.Metrics),
		passwordHash: ph,
		jwtManager:   jm,
		now:          now,
	}

	b.built = true

	return engine, nil
}

// OpenAttachmentStore returns the object store selected by cfg.
func OpenAttachmentStore(ctx context.Context, cfg StorageConfig) (attachment.Store, error) {
	switch cfg.Backend {
	case "", "local":
		return attachment.NewLocalStore(cfg.Dir)
	case "minio":
		return attachment.NewMinioStore(ctx, attachment.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			Region:    cfg.Minio.Region,
			Prefix:    cfg.Minio.Prefix,
			UseSSL:    cfg.Minio.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
