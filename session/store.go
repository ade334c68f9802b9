package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis transport failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

const deleteSessionScript = `
local existed = redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store persists sessions in Redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore returns a Store using keys under prefix.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "sh"
	}
	return &Store{redis: client, prefix: prefix, now: time.Now}
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) userKey(userID int64) string {
	return s.prefix + ":u:" + strconv.FormatInt(userID, 10)
}

// Save writes sess with the given ttl and adds it to the user's index.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if sess.ID == "" || sess.UserID <= 0 {
		return errors.New("session requires id and user id")
	}
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}

	sessionKey := s.key(sess.ID)
	userKey := s.userKey(sess.UserID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey, map[string]any{
			"uid":     sess.UserID,
			"role":    sess.Role,
			"ip":      sess.IP,
			"ua":      sess.UserAgent,
			"created": sess.CreatedAt.Unix(),
			"expires": sess.ExpiresAt.Unix(),
		})
		pipe.Expire(ctx, sessionKey, ttl)
		pipe.SAdd(ctx, userKey, sess.ID)
		// The index lives as long as the newest session.
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get loads a session. Missing and expired sessions return ErrNotFound.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	uid, err := strconv.ParseInt(fields["uid"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("session %s: invalid uid: %w", sessionID, err)
	}
	created, _ := strconv.ParseInt(fields["created"], 10, 64)
	expires, _ := strconv.ParseInt(fields["expires"], 10, 64)

	sess := &Session{
		ID:        sessionID,
		UserID:    uid,
		Role:      fields["role"],
		IP:        fields["ip"],
		UserAgent: fields["ua"],
		CreatedAt: time.Unix(created, 0).UTC(),
		ExpiresAt: time.Unix(expires, 0).UTC(),
	}
	if expires > 0 && !s.now().Before(sess.ExpiresAt) {
		_ = s.Delete(ctx, sess.UserID, sessionID)
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete removes one session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, userID int64, sessionID string) error {
	err := deleteSessionLua.Run(ctx, s.redis, []string{s.key(sessionID), s.userKey(userID)}, sessionID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteAllForUser removes every session of userID and its index.
func (s *Store) DeleteAllForUser(ctx context.Context, userID int64) error {
	userKey := s.userKey(userID)

	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, len(sessionIDs)+1)
	for _, id := range sessionIDs {
		keys = append(keys, s.key(id))
	}
	keys = append(keys, userKey)

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ActiveSessionIDs lists the indexed session ids of userID that still exist.
func (s *Store) ActiveSessionIDs(ctx context.Context, userID int64) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Exists(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	active := ids[:0]
	for i, cmd := range cmds {
		if cmd.Val() == 1 {
			active = append(active, ids[i])
		}
	}
	return active, nil
}

// Ping measures a Redis round trip.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

// WithClock replaces the clock used to check ExpiresAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}
