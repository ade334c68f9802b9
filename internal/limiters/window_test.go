package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return rdb, mr
}

func TestRegistrationLimiter(t *testing.T) {
	rdb, mr := newTestRedis(t)
	l := NewRegistrationLimiter(rdb, "sh", WindowConfig{MaxAttempts: 2, Window: time.Hour})
	ctx := context.Background()

	if err := l.Enforce(ctx, "a@example.com", "192.0.2.1"); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	if err := l.Enforce(ctx, "b@example.com", "192.0.2.1"); err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if err := l.Enforce(ctx, "c@example.com", "192.0.2.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP budget to be spent, got %v", err)
	}
	if err := l.Enforce(ctx, "c@example.com", "192.0.2.2"); err != nil {
		t.Fatalf("other IP should pass: %v", err)
	}

	mr.FastForward(time.Hour)
	if err := l.Enforce(ctx, "d@example.com", "192.0.2.1"); err != nil {
		t.Fatalf("expected window to expire: %v", err)
	}
}

func TestUploadLimiter(t *testing.T) {
	rdb, _ := newTestRedis(t)
	l := NewUploadLimiter(rdb, "sh", WindowConfig{MaxAttempts: 1, Window: time.Minute})
	ctx := context.Background()

	if err := l.Enforce(ctx, 7); err != nil {
		t.Fatalf("first upload: %v", err)
	}
	if err := l.Enforce(ctx, 7); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected second upload to be limited, got %v", err)
	}
	if err := l.Enforce(ctx, 8); err != nil {
		t.Fatalf("other user should pass: %v", err)
	}
}

func TestDisabledAndNilLimiters(t *testing.T) {
	rdb, mr := newTestRedis(t)
	ctx := context.Background()

	off := NewUploadLimiter(rdb, "sh", WindowConfig{})
	for i := 0; i < 5; i++ {
		if err := off.Enforce(ctx, 1); err != nil {
			t.Fatalf("disabled limiter limited: %v", err)
		}
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("disabled limiter wrote keys: %v", mr.Keys())
	}

	var nilReg *RegistrationLimiter
	if err := nilReg.Enforce(ctx, "a", "b"); err != nil {
		t.Fatalf("nil limiter: %v", err)
	}
}
