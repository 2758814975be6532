// File: internal/service/cleanup_service.go
package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gameplatform/session-service/internal/config"
	"github.com/gameplatform/session-service/internal/domain/models"
	"github.com/gameplatform/session-service/internal/domain/repository"
	eventModels "github.com/gameplatform/session-service/internal/events/models"
	"github.com/gameplatform/session-service/internal/utils/metrics"
)

// CleanupService expires timed-out tokens and hard-deletes terminal rows
// past retention. It runs on a jittered timer and on demand through Sweep.
type CleanupService struct {
	tokenRepo repository.RefreshTokenRepository
	audit     AuditSink
	events    EventPublisher
	cfg       config.CleanupConfig
	logger    *zap.Logger
}

// NewCleanupService creates a new CleanupService. events may be nil.
func NewCleanupService(
	tokenRepo repository.RefreshTokenRepository,
	audit AuditSink,
	events EventPublisher,
	cfg config.CleanupConfig,
	logger *zap.Logger,
) *CleanupService {
	return &CleanupService{
		tokenRepo: tokenRepo,
		audit:     audit,
		events:    events,
		cfg:       cfg,
		logger:    logger.Named("cleanup_service"),
	}
}

// Sweep runs one cleanup pass: ACTIVE rows past expiry become EXPIRED, then
// terminal rows older than the retention window are deleted. ACTIVE rows are
// never deleted, whatever their age. actorID is nil for scheduled runs.
// Returns the number of deleted rows.
func (s *CleanupService) Sweep(ctx context.Context, now time.Time, actorID *uuid.UUID) (int64, error) {
	expired, err := s.tokenRepo.ExpireTimedOut(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire timed-out tokens: %w", err)
	}
	if expired > 0 {
		metrics.TokensExpiredTotal.Add(float64(expired))
	}

	cutoff := now.Add(-s.cfg.Retention)
	deleted, err := s.tokenRepo.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete terminal tokens: %w", err)
	}
	if deleted > 0 {
		metrics.ExpiredSweptTotal.Add(float64(deleted))
	}

	if active, countErr := s.tokenRepo.CountActive(ctx); countErr == nil {
		metrics.ActiveSessions.Set(float64(active))
	}

	s.audit.Record(models.AuditEvent{
		ActorID: actorID,
		Action:  models.AuditActionTokensCleaned,
		Status:  models.AuditLogStatusSuccess,
		Details: map[string]interface{}{
			"expired_count": expired,
			"deleted_count": deleted,
			"cutoff":        cutoff.Format(time.RFC3339),
		},
	})

	if s.events != nil && (expired > 0 || deleted > 0) {
		payload := eventModels.TokensCleanedPayload{
			ExpiredCount: expired,
			DeletedCount: deleted,
			SweptAt:      now,
		}
		if err := s.events.Publish(ctx, eventModels.TokensCleanedV1, "", payload); err != nil {
			s.logger.Error("Failed to publish cleanup event", zap.Error(err))
		}
	}

	s.logger.Info("Cleanup sweep finished",
		zap.Int64("expired_count", expired),
		zap.Int64("deleted_count", deleted),
		zap.Time("cutoff", cutoff))
	return deleted, nil
}

// Run sweeps on a jittered interval until the context is cancelled. Meant to
// be started as a goroutine from main.
func (s *CleanupService) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("Scheduled cleanup disabled")
		return
	}

	timer := time.NewTimer(s.jitteredInterval())
	defer timer.Stop()

	s.logger.Info("Scheduled cleanup started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("retention", s.cfg.Retention))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduled cleanup stopped")
			return
		case <-timer.C:
			if _, err := s.Sweep(ctx, time.Now().UTC(), nil); err != nil {
				s.logger.Error("Scheduled cleanup sweep failed", zap.Error(err))
			}
			timer.Reset(s.jitteredInterval())
		}
	}
}

// jitteredInterval spreads replicas' sweeps across 0.9x to 1.1x of the
// configured interval so they do not contend on the same delete.
func (s *CleanupService) jitteredInterval() time.Duration {
	base := s.cfg.Interval
	if base <= 0 {
		base = time.Hour
	}
	return time.Duration(float64(base) * (0.9 + 0.2*rand.Float64()))
}
