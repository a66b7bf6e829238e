package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/checkvibe/gatekeeper/internal/clock"
	"github.com/checkvibe/gatekeeper/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewStore),
	fx.Provide(NewPolicy),
	fx.Provide(NewLimiter),
)

// NewStore selects the counter backend from configuration.
func NewStore(lc fx.Lifecycle, cfg config.Config, clk clock.Clock, log *zap.Logger) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.RateLimit.Backend))
	switch backend {
	case "", config.RateLimitBackendMemory:
		log.Info("rate limit store initialized", zap.String("backend", config.RateLimitBackendMemory))
		return NewMemoryStore(clk), nil
	case config.RateLimitBackendRedis:
		client, err := NewRedisClient(cfg.RateLimit)
		if err != nil {
			return nil, err
		}
		store := NewRedisStore(client)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
			OnStop: func(context.Context) error {
				return store.Close()
			},
		})
		log.Info("rate limit store initialized",
			zap.String("backend", config.RateLimitBackendRedis),
			zap.String("addr", cfg.RateLimit.RedisAddr),
		)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend %q", backend)
	}
}
