package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces cache entries in a shared Redis database.
const DefaultRedisPrefix = "dashboard:cache:"

// RedisStore keeps entries in Redis so several replicas share one cache.
// Each entry is a single JSON value written with one SET, which keeps payload
// and timestamp together.
type RedisStore struct {
	redis     *redis.Client
	prefix    string
	retention time.Duration
}

// NewRedisStore creates a Redis backed store.
// retention bounds how long Redis keeps an entry; 0 keeps entries forever.
func NewRedisStore(redisClient *redis.Client, retention time.Duration) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis:     redisClient,
		prefix:    DefaultRedisPrefix,
		retention: retention,
	}
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + key
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, key string) (*Entry, error) {
	data, err := s.redis.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if entry.Key != key {
		return nil, fmt.Errorf("%w: stored key %q", ErrInvalidEntry, entry.Key)
	}

	return &entry, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return errors.New("cache entry cannot be nil")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, s.redisKey(entry.Key), data, s.retention).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Len implements Store. It scans the prefix, so it is meant for diagnostics.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n := 0
	iter := s.redis.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return n, nil
}

// Kind implements Store.
func (s *RedisStore) Kind() string { return "redis" }

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}
