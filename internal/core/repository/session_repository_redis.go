package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessionRepository implements domain.SessionRepository on Redis.
// The key is the signed session token itself (plus an optional prefix) and the
// value is the user id.
type RedisSessionRepository struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewSessionRepository creates a new RedisSessionRepository. A zero ttl stores
// sessions without expiry; they then live until sign-out.
func NewSessionRepository(client redis.Cmdable, prefix string, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisSessionRepository) key(token string) string {
	return r.prefix + token
}

// Create stores token -> userID.
func (r *RedisSessionRepository) Create(ctx context.Context, token, userID string) error {
	return r.client.Set(ctx, r.key(token), userID, r.ttl).Err()
}

// GetUserID returns the user id stored for token.
// Returns ("", nil) when the token does not match any session.
func (r *RedisSessionRepository) GetUserID(ctx context.Context, token string) (string, error) {
	userID, err := r.client.Get(ctx, r.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return userID, nil
}

// Delete removes the session and returns how many keys were removed.
func (r *RedisSessionRepository) Delete(ctx context.Context, token string) (int64, error) {
	return r.client.Del(ctx, r.key(token)).Result()
}

// Ping checks the store is reachable.
func (r *RedisSessionRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
