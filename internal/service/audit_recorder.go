// File: internal/service/audit_recorder.go
package service

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/gameplatform/session-service/internal/domain/models"
	"github.com/gameplatform/session-service/internal/domain/repository"
	"github.com/gameplatform/session-service/internal/utils/metrics"
)

const auditWriteTimeout = 5 * time.Second

// AuditSink accepts audit events for recording. Record never blocks the
// caller; delivery is best effort and asynchronous.
type AuditSink interface {
	Record(event models.AuditEvent)
}

// AuditRecorder is a buffered asynchronous AuditSink backed by the audit log
// repository. When the queue is full events are dropped and counted rather
// than stalling the request path.
type AuditRecorder struct {
	repo   repository.AuditLogRepository
	logger *zap.Logger
	queue  chan models.AuditEvent
	done   chan struct{}

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewAuditRecorder starts the recorder's worker goroutine.
func NewAuditRecorder(repo repository.AuditLogRepository, queueSize int, logger *zap.Logger) *AuditRecorder {
	if queueSize <= 0 {
		queueSize = 256
	}
	r := &AuditRecorder{
		repo:   repo,
		logger: logger.Named("audit_recorder"),
		queue:  make(chan models.AuditEvent, queueSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues an audit event without blocking.
func (r *AuditRecorder) Record(event models.AuditEvent) {
	if r.closed.Load() {
		metrics.AuditEventsDroppedTotal.Inc()
		return
	}
	select {
	case r.queue <- event:
	default:
		metrics.AuditEventsDroppedTotal.Inc()
		r.logger.Warn("Audit queue full, event dropped", zap.String("action", event.Action))
	}
}

// Close stops intake and drains everything already queued before returning.
func (r *AuditRecorder) Close() {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.queue)
	})
	<-r.done
}

func (r *AuditRecorder) run() {
	defer close(r.done)
	for event := range r.queue {
		r.persist(event)
	}
}

func (r *AuditRecorder) persist(event models.AuditEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	entry := &models.AuditLog{
		ActorID: event.ActorID,
		Action:  event.Action,
		Status:  event.Status,
	}
	entry.IPAddress, entry.UserAgent = event.Client.Pointers()
	if event.TargetType != "" {
		targetType := event.TargetType
		entry.TargetType = &targetType
	}
	if event.TargetID != "" {
		targetID := event.TargetID
		entry.TargetID = &targetID
	}
	if len(event.Details) > 0 {
		details, err := json.Marshal(event.Details)
		if err != nil {
			r.logger.Error("Failed to marshal audit details",
				zap.Error(err),
				zap.String("action", event.Action),
			)
		} else {
			entry.Details = details
		}
	}

	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.Error("Failed to persist audit event",
			zap.Error(err),
			zap.String("action", event.Action),
			zap.String("target_id", event.TargetID),
		)
	}
}

var _ AuditSink = (*AuditRecorder)(nil)
