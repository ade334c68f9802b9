package safeher

import (
	"context"
	"sync"
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
	"go.uber.org/zap"
)

// Engine is the SafeHer service. It owns authentication, the report
// lifecycle, moderation, administration and uploads.
//
// An Engine is built once by [Builder.Build] and is safe for concurrent use.
type Engine struct {
	config              Config
	logger              *zap.Logger
	store               *store.Store
	roleManager         *permission.RoleManager
	sessionStore        *session.Store
	rateLimiter         *rate.Limiter
	registrationLimiter *limiters.RegistrationLimiter
	uploadLimiter       *limiters.UploadLimiter
	uploader            *attachment.Uploader
	audit               *audit.Dispatcher
	metrics             *Metrics
	passwordHash        *password.Argon2
	jwtManager          *jwt.Manager
	now                 func() time.Time

	// decoyHash is verified against when the login email is unknown.
	decoyOnce sync.Once
	decoyHash string
}

// Close flushes and stops the audit dispatcher. It does not close the store
// or the Redis client, which belong to the caller.
func (e *Engine) Close() {
	_ = e.Shutdown(context.Background())
}

// Shutdown is Close bounded by ctx. Audit events still buffered when ctx
// ends are dropped, counted, and logged by type.
func (e *Engine) Shutdown(ctx context.Context) error {
	if e == nil || e.audit == nil {
		return nil
	}
	err := e.audit.Shutdown(ctx)
	if dropped := e.audit.DroppedByType(); len(dropped) > 0 {
		e.logger.Warn("audit events dropped", zap.Any("by_type", dropped))
	}
	return err
}

// AuditDroppedByType returns audit drop counts keyed by event type.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil || e.audit == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByType()
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of every counter.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Metrics returns the live metrics registry, used by exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// ObserveHTTP records one served request.
func (e *Engine) ObserveHTTP(status int, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(MetricHTTPRequests)
	if status >= 500 {
		e.metrics.Inc(MetricHTTPServerErrors)
	}
	e.metrics.Observe(MetricHTTPLatency, d)
}

// Config returns a copy of the configuration the Engine was built with.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Logger returns the Engine's logger.
func (e *Engine) Logger() *zap.Logger {
	if e == nil || e.logger == nil {
		return zap.NewNop()
	}
	return e.logger
}

// UploadPolicy returns the active upload restrictions.
func (e *Engine) UploadPolicy() attachment.Policy {
	return e.uploader.Policy()
}

// HasPermission reports whether the caller's role mask grants perm.
func (e *Engine) HasPermission(auth *AuthResult, perm string) bool {
	if e == nil || auth == nil {
		return false
	}
	return e.roleManager.MaskCan(auth.Mask, perm)
}

// Health pings SQLite and Redis.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	var h HealthStatus
	if e == nil {
		return h
	}
	if err := e.store.Ping(ctx); err == nil {
		h.DatabaseOK = true
	} else {
		e.logger.Warn("database ping failed", zap.Error(err))
	}
	if d, err := e.sessionStore.Ping(ctx); err == nil {
		h.RedisOK = true
		h.RedisLatency = d.Microseconds()
	} else {
		e.logger.Warn("redis ping failed", zap.Error(err))
	}
	return h
}

func (e *Engine) require(auth *AuthResult, perm string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if auth == nil {
		return ErrUnauthorized
	}
	if !e.HasPermission(auth, perm) {
		return ErrPermissionDenied
	}
	return nil
}
