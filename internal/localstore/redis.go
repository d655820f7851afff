package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisStore is the redis-backed Store. Keys are written without TTL: the
// local store is durable state, not a cache.
type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a redis-backed local store. A namespace prefix
// separates engine keys from anything else on the same instance.
func NewRedisStore(client *redis.Client, prefix string) Store {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *redisStore) storeKey(key string) string {
	return fmt.Sprintf("%s%s", s.prefix, key)
}

// Get retrieves and unmarshals a value
func (s *redisStore) Get(ctx context.Context, key string, dest interface{}) error {
	if s.client == nil {
		return ErrNotAvailable
	}

	data, err := s.client.Get(ctx, s.storeKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrNotFound
		}
		return fmt.Errorf("localstore get error: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("localstore unmarshal error: %w", err)
	}

	return nil
}

// Set marshals and stores a value without expiry
func (s *redisStore) Set(ctx context.Context, key string, value interface{}) error {
	if s.client == nil {
		return ErrNotAvailable
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("localstore marshal error: %w", err)
	}

	return s.client.Set(ctx, s.storeKey(key), data, 0).Err()
}

// Delete removes keys, using a pipeline when there are several
func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if s.client == nil {
		return ErrNotAvailable
	}
	if len(keys) == 0 {
		return nil
	}

	storeKeys := make([]string, len(keys))
	for i, key := range keys {
		storeKeys[i] = s.storeKey(key)
	}

	if len(storeKeys) > 1 {
		pipe := s.client.Pipeline()
		pipe.Del(ctx, storeKeys...)
		_, err := pipe.Exec(ctx)
		return err
	}

	return s.client.Del(ctx, storeKeys...).Err()
}

// Ping verifies store connectivity
func (s *redisStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return ErrNotAvailable
	}
	if _, err := s.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("localstore ping failed: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
