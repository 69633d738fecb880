package session

import (
	"context"
	"fmt"
	"time"

	"ucontents-console/internal/auth"

	"github.com/redis/go-redis/v9"
)

// RedisTokenStore persists session tokens in Redis with a TTL matching
// the cookie lifetime, so an abandoned browser session expires on its
// own.
type RedisTokenStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisTokenStore(rdb *redis.Client, ttl time.Duration) *RedisTokenStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisTokenStore{rdb: rdb, ttl: ttl}
}

func key(sessionID string) string {
	return "uconsole:session:" + sessionID
}

func (s *RedisTokenStore) Load(ctx context.Context, sessionID string) (PersistedToken, error) {
	vals, err := s.rdb.HGetAll(ctx, key(sessionID)).Result()
	if err != nil {
		return PersistedToken{}, fmt.Errorf("session: load token: %w", err)
	}
	if len(vals) == 0 || vals["token"] == "" {
		return PersistedToken{}, ErrNoToken
	}
	return PersistedToken{
		Token:  vals["token"],
		Method: auth.AuthMethod(vals["auth_method"]),
	}, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, sessionID string, t PersistedToken) error {
	k := key(sessionID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, k, "token", t.Token, "auth_method", string(t.Method))
	pipe.Expire(ctx, k, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session: save token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("session: clear token: %w", err)
	}
	return nil
}
