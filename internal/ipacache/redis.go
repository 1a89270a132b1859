package ipacache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long Redis entries live when no TTL is configured.
// Transcriptions never go stale, the TTL only bounds memory on the server.
const DefaultTTL = 30 * 24 * time.Hour

// Ensure Redis implements Store at compile time.
var _ Store = (*Redis)(nil)

// Redis is a Store backed by a Redis server, for deployments where multiple
// instances share one phonetic cache.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the Redis server described by url
// (e.g. "redis://localhost:6379/0"). ttl bounds the lifetime of each entry;
// zero or negative selects DefaultTTL.
func NewRedis(url string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ipacache: parse redis url: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: redis.NewClient(opt), ttl: ttl}, nil
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, language, text string) (string, bool, error) {
	ipa, err := r.client.Get(ctx, redisKey(language, text)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ipacache: redis get: %w", err)
	}
	return ipa, true, nil
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, language, text, ipa string) error {
	if err := r.client.Set(ctx, redisKey(language, text), ipa, r.ttl).Err(); err != nil {
		return fmt.Errorf("ipacache: redis set: %w", err)
	}
	return nil
}

// Ping verifies the server is reachable. Used by readiness checks.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ipacache: redis ping: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func redisKey(language, text string) string {
	return fmt.Sprintf("ipa:%s:%s", language, text)
}
