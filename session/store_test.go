package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSessionStoreTest(t *testing.T) (*Store, *miniredis.Miniredis) {
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
	return NewStore(rdb, "sh"), mr
}

func testSession(id string, uid int64) *Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &Session{
		ID:        id,
		UserID:    uid,
		Role:      "user",
		IP:        "203.0.113.9",
		UserAgent: "test-agent",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestSaveAndGet(t *testing.T) {
	store, mr := newSessionStoreTest(t)
	ctx := context.Background()
	sess := testSession("sid-1", 7)

	if err := store.Save(ctx, sess, time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}
	got, err := store.Get(ctx, "sid-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.UserID != 7 || got.Role != "user" || got.IP != sess.IP || got.UserAgent != sess.UserAgent {
		t.Fatalf("session mismatch: got %+v want %+v", got, sess)
	}
	if !got.CreatedAt.Equal(sess.CreatedAt) || !got.ExpiresAt.Equal(sess.ExpiresAt) {
		t.Fatalf("timestamps mismatch: got %+v want %+v", got, sess)
	}
	if ttl := mr.TTL("sh:s:sid-1"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", ttl)
	}
}

func TestGetMissingAndExpired(t *testing.T) {
	store, mr := newSessionStoreTest(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Save(ctx, testSession("sid-1", 7), time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := store.Get(ctx, "sid-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after ttl, got %v", err)
	}

	if err := store.Save(ctx, testSession("sid-2", 7), time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}
	store.WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) })
	if _, err := store.Get(ctx, "sid-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound past ExpiresAt, got %v", err)
	}
	if mr.Exists("sh:s:sid-2") {
		t.Fatal("expected expired session to be deleted")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, mr := newSessionStoreTest(t)
	ctx := context.Background()

	if err := store.Save(ctx, testSession("sid-1", 7), time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := store.Delete(ctx, 7, "sid-1"); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
	}
	if mr.Exists("sh:s:sid-1") {
		t.Fatal("expected session key removed")
	}
	if ok, _ := mr.SIsMember("sh:u:7", "sid-1"); ok {
		t.Fatal("expected session removed from user index")
	}
}

func TestDeleteAllForUser(t *testing.T) {
	store, _ := newSessionStoreTest(t)
	ctx := context.Background()

	for _, s := range []*Session{testSession("a", 7), testSession("b", 7), testSession("c", 8)} {
		if err := store.Save(ctx, s, time.Hour); err != nil {
			t.Fatalf("save %s: %v", s.ID, err)
		}
	}

	ids, err := store.ActiveSessionIDs(ctx, 7)
	if err != nil {
		t.Fatalf("active ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 active sessions, got %v", ids)
	}

	if err := store.DeleteAllForUser(ctx, 7); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected %s revoked, got %v", id, err)
		}
	}
	if _, err := store.Get(ctx, "c"); err != nil {
		t.Fatalf("expected other user's session intact: %v", err)
	}
	if err := store.DeleteAllForUser(ctx, 99); err != nil {
		t.Fatalf("delete all for user without sessions: %v", err)
	}
}

func TestRedisFailureIsWrapped(t *testing.T) {
	store, mr := newSessionStoreTest(t)
	mr.Close()

	err := store.Save(context.Background(), testSession("sid-1", 7), time.Hour)
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Get(context.Background(), "sid-1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
