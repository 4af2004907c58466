package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces session records in a shared Redis.
const redisKeyPrefix = "adminapi:session:"

// RedisStore is a Redis implementation of Store. It lets horizontally
// replicated instances share sessions without sticky routing.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: redisKeyPrefix}
}

// Set stores the admin binding with expiry.
func (s *RedisStore) Set(ctx context.Context, sessionID string, adminID uint64, ttl time.Duration) error {
	key := s.prefix + sessionID
	if err := s.client.Set(ctx, key, strconv.FormatUint(adminID, 10), ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Get returns the admin bound to the session, if the record exists.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (uint64, bool, error) {
	key := s.prefix + sessionID
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis get session: %w", err)
	}
	adminID, errParse := strconv.ParseUint(val, 10, 64)
	if errParse != nil {
		return 0, false, nil
	}
	return adminID, true, nil
}

// Delete removes the session record.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.prefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}
