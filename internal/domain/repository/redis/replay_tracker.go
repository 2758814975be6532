// File: internal/domain/repository/redis/replay_tracker.go
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gameplatform/session-service/internal/domain/repository"
)

// ReplayTrackerRedis implements repository.ReplayTracker on a rolling Redis
// counter per session.
type ReplayTrackerRedis struct {
	client *redis.Client
	logger *zap.Logger
	window time.Duration
}

// NewReplayTrackerRedis creates a new ReplayTrackerRedis.
func NewReplayTrackerRedis(client *redis.Client, logger *zap.Logger, window time.Duration) *ReplayTrackerRedis {
	if window <= 0 {
		window = time.Hour
	}
	return &ReplayTrackerRedis{
		client: client,
		logger: logger.Named("replay_tracker"),
		window: window,
	}
}

func replayKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("replay:session:%s", sessionID.String())
}

// RecordReuse increments the session's reuse counter. The window starts at
// the first incident.
func (t *ReplayTrackerRedis) RecordReuse(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	key := replayKey(sessionID)
	count, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		t.logger.Error("Failed to increment replay counter", zap.Error(err), zap.String("session_id", sessionID.String()))
		return 0, err
	}
	if count == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			t.logger.Error("Failed to set replay counter TTL", zap.Error(err), zap.String("session_id", sessionID.String()))
		}
	}
	return count, nil
}

// ReuseCount reads the current counter. A missing key means zero incidents.
func (t *ReplayTrackerRedis) ReuseCount(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	count, err := t.client.Get(ctx, replayKey(sessionID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		t.logger.Error("Failed to read replay counter", zap.Error(err), zap.String("session_id", sessionID.String()))
		return 0, err
	}
	return count, nil
}

var _ repository.ReplayTracker = (*ReplayTrackerRedis)(nil)
