// File: internal/service/revocation_service.go
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/gameplatform/session-service/internal/domain/errors"
	"github.com/gameplatform/session-service/internal/domain/models"
	"github.com/gameplatform/session-service/internal/domain/repository"
	eventModels "github.com/gameplatform/session-service/internal/events/models"
	"github.com/gameplatform/session-service/internal/utils/metrics"
)

// Revocation triggers label the revocations_total metric. Bounded set; the
// free-form reason string never becomes a label value.
const (
	RevocationTriggerUserRequest    = "user_request"
	RevocationTriggerAdmin          = "admin"
	RevocationTriggerReuse          = "reuse"
	RevocationTriggerAccountDeleted = "account_deleted"
	RevocationTriggerUserBlocked    = "user_blocked"
)

// Reasons stamped on rows revoked by the service itself rather than by an
// explicit caller-supplied reason.
const (
	RevokeReasonReuseDetected  = "token_reuse_detected"
	RevokeReasonAccountDeleted = "account_deleted"
	RevokeReasonUserBlocked    = "user_blocked"
)

// cascadeWorkers bounds the fan-out of per-token transitions when a whole
// session is being revoked.
const cascadeWorkers = 4

// RevocationService terminates tokens on explicit request: a single token, or
// every token a user holds. Reuse-triggered cascades go through the same
// per-token transitions via revokeSessionTokens.
type RevocationService struct {
	tokenRepo repository.RefreshTokenRepository
	audit     AuditSink
	events    EventPublisher
	logger    *zap.Logger
}

// NewRevocationService creates a new RevocationService. events may be nil.
func NewRevocationService(
	tokenRepo repository.RefreshTokenRepository,
	audit AuditSink,
	events EventPublisher,
	logger *zap.Logger,
) *RevocationService {
	return &RevocationService{
		tokenRepo: tokenRepo,
		audit:     audit,
		events:    events,
		logger:    logger.Named("revocation_service"),
	}
}

// RevokeTokenParams identifies the token to revoke and who is asking.
type RevokeTokenParams struct {
	TokenID uuid.UUID
	ActorID uuid.UUID
	Reason  string

	// RequireOwnership makes tokens owned by other users indistinguishable
	// from missing ones, so an authenticated caller cannot probe foreign
	// token IDs. Cleared only for callers holding sessions:revoke_any.
	RequireOwnership bool

	// Trigger labels the metric. Defaults to user_request.
	Trigger string

	Client models.ClientInfo
}

// RevokeToken transitions a single token ACTIVE -> REVOKED. A token that is
// already terminal is a no-op success; the audit record distinguishes the two
// outcomes. Returns domainErrors.ErrNotFound for unknown IDs.
func (s *RevocationService) RevokeToken(ctx context.Context, params RevokeTokenParams) error {
	token, err := s.tokenRepo.FindByID(ctx, params.TokenID)
	if err != nil {
		return err
	}
	if params.RequireOwnership && token.UserID != params.ActorID {
		s.logger.Warn("Revocation refused for foreign token",
			zap.String("actor_id", params.ActorID.String()),
			zap.String("token_id", params.TokenID.String()))
		return domainErrors.ErrNotFound
	}

	statusBefore := token.Status
	statusAfter := token.Status
	changed := false

	reason := params.Reason
	err = s.tokenRepo.TransitionStatus(ctx, token.ID, models.TokenStatusActive, models.TokenStatusRevoked, &reason)
	switch {
	case err == nil:
		changed = true
		statusAfter = models.TokenStatusRevoked
	case domainErrors.IsConflict(err):
		// Already terminal. Revoking twice is a success with no change.
	case domainErrors.IsNotFound(err):
		// Deleted between the read and the transition; nothing left to revoke.
	default:
		s.logger.Error("Failed to revoke token", zap.Error(err), zap.String("token_id", token.ID.String()))
		return err
	}

	if changed {
		trigger := params.Trigger
		if trigger == "" {
			trigger = RevocationTriggerUserRequest
		}
		metrics.RevocationsTotal.WithLabelValues(trigger).Inc()
	}

	s.audit.Record(models.AuditEvent{
		ActorID:    &params.ActorID,
		Action:     models.AuditActionTokenRevoked,
		TargetType: models.AuditTargetToken,
		TargetID:   token.ID.String(),
		Status:     models.AuditLogStatusSuccess,
		Client:     params.Client,
		Details: map[string]interface{}{
			"reason":        reason,
			"session_id":    token.SessionID.String(),
			"status_before": string(statusBefore),
			"status_after":  string(statusAfter),
			"changed":       changed,
		},
	})

	if changed && s.events != nil {
		actorID := params.ActorID.String()
		payload := eventModels.SessionRevokedPayload{
			UserID:    token.UserID.String(),
			SessionID: token.SessionID.String(),
			Reason:    reason,
			RevokedAt: time.Now().UTC(),
			ActorID:   &actorID,
		}
		if err := s.events.Publish(ctx, eventModels.SessionRevokedV1, token.SessionID.String(), payload); err != nil {
			s.logger.Error("Failed to publish session revoked event", zap.Error(err), zap.String("session_id", token.SessionID.String()))
		}
	}

	s.logger.Info("Token revoked",
		zap.String("token_id", token.ID.String()),
		zap.String("session_id", token.SessionID.String()),
		zap.Bool("changed", changed))
	return nil
}

// RevokeAllParams describes a user-wide revocation.
type RevokeAllParams struct {
	UserID  uuid.UUID
	ActorID *uuid.UUID
	Reason  string

	// Trigger labels the metric. Defaults to user_request.
	Trigger string

	// ExcludeSessionID spares one session, typically the caller's own so a
	// "log out everywhere else" request does not kill the session issuing it.
	ExcludeSessionID *uuid.UUID

	Client models.ClientInfo
}

// RevokeAllForUser revokes every ACTIVE token the user holds, minus the
// excluded session if one is given. Returns the number of revoked tokens;
// zero is a valid outcome, not an error.
func (s *RevocationService) RevokeAllForUser(ctx context.Context, params RevokeAllParams) (int64, error) {
	reason := params.Reason
	revoked, err := s.tokenRepo.RevokeAllActiveByUser(ctx, params.UserID, &reason, params.ExcludeSessionID)
	if err != nil {
		s.logger.Error("Failed to revoke user tokens", zap.Error(err), zap.String("user_id", params.UserID.String()))
		return 0, err
	}

	trigger := params.Trigger
	if trigger == "" {
		trigger = RevocationTriggerUserRequest
	}
	if revoked > 0 {
		metrics.RevocationsTotal.WithLabelValues(trigger).Add(float64(revoked))
	}

	details := map[string]interface{}{
		"reason":        reason,
		"revoked_count": revoked,
		"trigger":       trigger,
	}
	if params.ExcludeSessionID != nil {
		details["excluded_session_id"] = params.ExcludeSessionID.String()
	}
	s.audit.Record(models.AuditEvent{
		ActorID:    params.ActorID,
		Action:     models.AuditActionUserTokensRevoked,
		TargetType: models.AuditTargetUser,
		TargetID:   params.UserID.String(),
		Status:     models.AuditLogStatusSuccess,
		Client:     params.Client,
		Details:    details,
	})

	if revoked > 0 && s.events != nil {
		payload := eventModels.UserTokensRevokedPayload{
			UserID:       params.UserID.String(),
			RevokedCount: revoked,
			Reason:       reason,
			RevokedAt:    time.Now().UTC(),
		}
		if params.ExcludeSessionID != nil {
			excluded := params.ExcludeSessionID.String()
			payload.ExcludedSessionID = &excluded
		}
		if params.ActorID != nil {
			actor := params.ActorID.String()
			payload.ActorID = &actor
		}
		if err := s.events.Publish(ctx, eventModels.UserTokensRevokedV1, params.UserID.String(), payload); err != nil {
			s.logger.Error("Failed to publish user tokens revoked event", zap.Error(err), zap.String("user_id", params.UserID.String()))
		}
	}

	s.logger.Info("User tokens revoked",
		zap.String("user_id", params.UserID.String()),
		zap.Int64("revoked_count", revoked),
		zap.String("trigger", trigger))
	return revoked, nil
}

// revokeSessionTokens revokes every ACTIVE token in a session through
// individual compare-and-swap transitions fanned out across a small worker
// pool. Tokens that lose their transition to a concurrent writer count as
// done, not failed. Returns how many rows this call actually revoked and the
// first hard store error, if any.
func revokeSessionTokens(
	ctx context.Context,
	repo repository.RefreshTokenRepository,
	sessionID uuid.UUID,
	reason string,
) (int64, error) {
	tokens, err := repo.ListActiveBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	var (
		wg       sync.WaitGroup
		revoked  atomic.Int64
		once     sync.Once
		firstErr error
	)
	sem := make(chan struct{}, cascadeWorkers)
	for _, token := range tokens {
		token := token
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			r := reason
			err := repo.TransitionStatus(ctx, token.ID, models.TokenStatusActive, models.TokenStatusRevoked, &r)
			switch {
			case err == nil:
				revoked.Add(1)
			case domainErrors.IsConflict(err), domainErrors.IsNotFound(err):
				// A concurrent writer already terminated it. The cascade only
				// needs the token out of ACTIVE, so this counts as done.
			default:
				once.Do(func() { firstErr = err })
			}
		}()
	}
	wg.Wait()

	return revoked.Load(), firstErr
}
