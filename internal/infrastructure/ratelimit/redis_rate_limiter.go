// File: internal/infrastructure/ratelimit/redis_rate_limiter.go
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/gameplatform/session-service/internal/config"
	"github.com/gameplatform/session-service/internal/domain/service"
)

type redisRateLimiter struct {
	client *redis.Client
	cfg    config.RateLimitConfig
	logger *zap.Logger
}

// NewRedisRateLimiter creates a new Redis-backed RateLimiter. Specific rules
// (limit, window) are chosen by callers per endpoint.
func NewRedisRateLimiter(client *redis.Client, cfg config.RateLimitConfig, logger *zap.Logger) service.RateLimiter {
	return &redisRateLimiter{
		client: client,
		cfg:    cfg,
		logger: logger.Named("rate_limiter"),
	}
}

// Allow implements the RateLimiter interface with Redis INCR and EXPIRE. The
// limiter fails open: when Redis is unreachable the action is allowed and the
// failure logged, so a degraded limiter never takes token refresh down.
func (r *redisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.cfg.Enabled || limit <= 0 {
		return true, nil
	}

	var incrResult *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incrResult = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		r.logger.Error("Rate limit pipeline failed, failing open", zap.String("key", key), zap.Error(err))
		return true, nil
	}

	count := incrResult.Val()
	if count > int64(limit) {
		r.logger.Warn("Rate limit exceeded", zap.String("key", key), zap.Int64("count", count), zap.Int("limit", limit))
		return false, nil
	}
	return true, nil
}

// Check returns the current count for a key.
func (r *redisRateLimiter) Check(ctx context.Context, key string) (int, error) {
	if !r.cfg.Enabled {
		return 0, nil
	}
	count, err := r.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis GET failed: %w", err)
	}
	return count, nil
}

// Reset explicitly deletes a rate limiting key.
func (r *redisRateLimiter) Reset(ctx context.Context, key string) error {
	if !r.cfg.Enabled {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	return nil
}

var _ service.RateLimiter = (*redisRateLimiter)(nil)
