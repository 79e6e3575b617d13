package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:"

// redisCommander is the part of *redis.Client the store needs.
type redisCommander interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisRevocationStore shares revocations across replicas. Each JTI is
// stored under "revoked:<jti>" with a TTL equal to the token's remaining
// lifetime, so Redis does the expiry.
type RedisRevocationStore struct {
	client redisCommander
	now    func() time.Time
}

func NewRedisRevocationStore(client redisCommander) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, now: time.Now}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revokedKeyPrefix+jti, userID, ttl).Err(); err != nil {
		return fmt.Errorf("store revocation: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("lookup revocation: %w", err)
	}
	return n > 0, nil
}
