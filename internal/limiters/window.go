package limiters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited is returned once a window's budget is spent.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("limiter redis unavailable")
)

// WindowConfig is one fixed-window budget. A zero MaxAttempts disables it.
type WindowConfig struct {
	MaxAttempts int
	Window      time.Duration
}

func (c WindowConfig) enabled() bool {
	return c.MaxAttempts > 0 && c.Window > 0
}

func hit(ctx context.Context, rdb redis.UniversalClient, key string, cfg WindowConfig) error {
	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 {
		if err := rdb.Expire(ctx, key, cfg.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count > int64(cfg.MaxAttempts) {
		return ErrRateLimited
	}

	return nil
}

// RegistrationLimiter throttles account creation.
type RegistrationLimiter struct {
	redis  redis.UniversalClient
	prefix string
	config WindowConfig
}

// NewRegistrationLimiter returns a limiter keyed under prefix.
func NewRegistrationLimiter(rdb redis.UniversalClient, prefix string, cfg WindowConfig) *RegistrationLimiter {
	return &RegistrationLimiter{redis: rdb, prefix: prefix, config: cfg}
}

// Enforce counts one sign-up attempt for email and ip.
func (l *RegistrationLimiter) Enforce(ctx context.Context, email, ip string) error {
	if l == nil || !l.config.enabled() {
		return nil
	}
	if err := hit(ctx, l.redis, l.prefix+":reg:e:"+email, l.config); err != nil {
		return err
	}
	if ip != "" {
		if err := hit(ctx, l.redis, l.prefix+":reg:ip:"+ip, l.config); err != nil {
			return err
		}
	}
	return nil
}

// UploadLimiter throttles attachment uploads per user.
type UploadLimiter struct {
	redis  redis.UniversalClient
	prefix string
	config WindowConfig
}

// NewUploadLimiter returns a limiter keyed under prefix.
func NewUploadLimiter(rdb redis.UniversalClient, prefix string, cfg WindowConfig) *UploadLimiter {
	return &UploadLimiter{redis: rdb, prefix: prefix, config: cfg}
}

// Enforce counts one upload for userID.
func (l *UploadLimiter) Enforce(ctx context.Context, userID int64) error {
	if l == nil || !l.config.enabled() {
		return nil
	}
	return hit(ctx, l.redis, l.prefix+":upl:"+strconv.FormatInt(userID, 10), l.config)
}
