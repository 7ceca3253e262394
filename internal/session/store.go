// internal/session/store.go
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CookieName is the session cookie the gate reads and the login handler sets.
const CookieName = "librarium_session"

// Store maps opaque session IDs to authenticated user IDs.
type Store interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Resolve(ctx context.Context, sessionID string) (uuid.UUID, bool, error)
	Destroy(ctx context.Context, sessionID string) error
}

// RedisStore keeps sessions in Redis with a TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	sid := uuid.NewString()
	if err := s.rdb.Set(ctx, "session:"+sid, userID.String(), s.ttl).Err(); err != nil {
		return "", err
	}
	return sid, nil
}

// Resolve returns the user ID for a session. The second return value is
// false when the session is unknown or expired.
func (s *RedisStore) Resolve(ctx context.Context, sessionID string) (uuid.UUID, bool, error) {
	val, err := s.rdb.Get(ctx, "session:"+sessionID).Result()
	if err == redis.Nil {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

func (s *RedisStore) Destroy(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, "session:"+sessionID).Err()
}
