package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/checkvibe/gatekeeper/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const incrScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`

// RedisStore shares counters across instances; increment and expiry run in one script call.
type RedisStore struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		return nil
	}
	return &RedisStore{
		client: client,
		script: redis.NewScript(incrScript),
	}
}

// NewRedisClient builds the client for the configured rate limit backend.
func NewRedisClient(cfg config.RateLimitConfig) (*redis.Client, error) {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	}), nil
}

func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if s == nil || s.client == nil {
		return 0, errors.New("rate limit store not configured")
	}
	if key == "" {
		return 0, errors.New("rate limit key is empty")
	}
	if ttl <= 0 {
		return 0, errors.New("rate limit ttl must be positive")
	}
	return s.script.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Int64()
}

func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
