// File: internal/service/rotation_service.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gameplatform/session-service/internal/config"
	domainErrors "github.com/gameplatform/session-service/internal/domain/errors"
	"github.com/gameplatform/session-service/internal/domain/models"
	"github.com/gameplatform/session-service/internal/domain/repository"
	domainService "github.com/gameplatform/session-service/internal/domain/service"
	eventModels "github.com/gameplatform/session-service/internal/events/models"
	"github.com/gameplatform/session-service/internal/infrastructure/security"
	"github.com/gameplatform/session-service/internal/utils/metrics"
)

// Denial reasons recorded on the audit channel. The external response is the
// same REFRESH_FAILED for every one of them.
const (
	denyReasonMalformedSecret    = "malformed_secret"
	denyReasonUnknownSelector    = "unknown_selector"
	denyReasonVerifierMismatch   = "verifier_mismatch"
	denyReasonTokenReuse         = "token_reuse"
	denyReasonTokenRevoked       = "token_revoked"
	denyReasonTokenExpired       = "token_expired"
	denyReasonConcurrentRotation = "concurrent_rotation"
)

// cascadeTimeout bounds a reuse cascade. The cascade runs detached from the
// request context so a client disconnect cannot abort session containment.
const cascadeTimeout = 15 * time.Second

// RotationServiceDeps lists the collaborators of RotationService.
// Events and ReplayTracker may be nil.
type RotationServiceDeps struct {
	TokenRepo     repository.RefreshTokenRepository
	Codec         domainService.TokenCodec
	Audit         AuditSink
	Events        EventPublisher
	ReplayTracker repository.ReplayTracker
	JWTConfig     config.JWTConfig
	Rotation      config.RotationConfig
	Logger        *zap.Logger
}

// RotationService exchanges a refresh secret for a fresh token pair. It owns
// the ACTIVE -> ROTATED transition and the reuse cascade that fires when a
// consumed secret is presented again.
type RotationService struct {
	tokenRepo     repository.RefreshTokenRepository
	codec         domainService.TokenCodec
	audit         AuditSink
	events        EventPublisher
	replayTracker repository.ReplayTracker
	jwtCfg        config.JWTConfig
	rotationCfg   config.RotationConfig
	logger        *zap.Logger

	cascades sync.WaitGroup
}

// NewRotationService creates a new RotationService.
func NewRotationService(deps RotationServiceDeps) *RotationService {
	return &RotationService{
		tokenRepo:     deps.TokenRepo,
		codec:         deps.Codec,
		audit:         deps.Audit,
		events:        deps.Events,
		replayTracker: deps.ReplayTracker,
		jwtCfg:        deps.JWTConfig,
		rotationCfg:   deps.Rotation,
		logger:        deps.Logger.Named("rotation_service"),
	}
}

// Refresh validates the presented secret and, on success, returns a new
// access token plus either a successor refresh secret (rotate mode) or the
// still-valid current one implied by an empty RefreshToken field (grace
// mode, inside the grace window).
//
// Every denial returns domainErrors.ErrRefreshFailed with no further detail;
// the distinguishing reason goes to the audit channel only. Store failures
// return their own error so the transport can answer 503 instead of 401.
func (s *RotationService) Refresh(ctx context.Context, secret string, client models.ClientInfo) (*models.TokenPair, error) {
	selector, verifier, err := security.SplitRefreshSecret(secret)
	if err != nil {
		return nil, s.deny(denyReasonMalformedSecret, nil, client)
	}

	token, err := s.tokenRepo.FindBySelector(ctx, selector)
	if err != nil {
		if domainErrors.IsNotFound(err) {
			return nil, s.deny(denyReasonUnknownSelector, nil, client)
		}
		metrics.TokenRefreshTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if !security.VerifyRefreshSecret(token.SecretSalt, token.SecretHash, verifier) {
		return nil, s.deny(denyReasonVerifierMismatch, token, client)
	}

	switch token.Status {
	case models.TokenStatusRotated:
		// The one-time secret came back. Either a benign race lost long ago
		// or a stolen token; both are contained by killing the session.
		s.escalateReuse(token, client)
		return nil, s.deny(denyReasonTokenReuse, token, client)
	case models.TokenStatusRevoked:
		return nil, s.deny(denyReasonTokenRevoked, token, client)
	case models.TokenStatusExpired:
		return nil, s.deny(denyReasonTokenExpired, token, client)
	}

	now := time.Now().UTC()
	if token.IsExpiredAt(now) {
		s.expireLazily(ctx, token)
		return nil, s.deny(denyReasonTokenExpired, token, client)
	}

	if s.rotationCfg.Mode == config.RotationModeGrace && now.Sub(token.IssuedAt) <= s.rotationCfg.GracePeriod {
		return s.refreshWithinGrace(ctx, token, client)
	}

	return s.rotate(ctx, token, client)
}

// rotate consumes the presented token and issues a successor. The access
// token is minted before the transition: signing is pure, so a failure there
// needs no compensation, while the reverse order could consume the secret and
// then hand the client nothing.
func (s *RotationService) rotate(ctx context.Context, token *models.RefreshToken, client models.ClientInfo) (*models.TokenPair, error) {
	accessToken, _, err := s.codec.GenerateAccessToken(token.UserID.String(), token.SessionID.String(), token.DeviceID, token.Role)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("error").Inc()
		s.logger.Error("Failed to mint access token", zap.Error(err), zap.String("user_id", token.UserID.String()))
		return nil, fmt.Errorf("failed to mint access token: %w", err)
	}

	err = s.tokenRepo.TransitionStatus(ctx, token.ID, models.TokenStatusActive, models.TokenStatusRotated, nil)
	if err != nil {
		if domainErrors.IsConflict(err) || domainErrors.IsNotFound(err) {
			// Lost the race to a concurrent refresh. The loser gets a plain
			// denial and must not issue anything.
			return nil, s.deny(denyReasonConcurrentRotation, token, client)
		}
		metrics.TokenRefreshTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	// The successor is persisted only after the predecessor's transition has
	// committed, so a crash between the two leaves a rotated token with no
	// successor (client re-authenticates) rather than two live secrets.
	successor, plaintext, err := createChainMember(ctx, s.tokenRepo, s.jwtCfg.RefreshTokenByteLength, models.CreateRefreshTokenParams{
		UserID:        token.UserID,
		SessionID:     token.SessionID,
		DeviceID:      token.DeviceID,
		Role:          token.Role,
		PredecessorID: &token.ID,
		TTL:           s.jwtCfg.RefreshTokenTTL,
		Client:        client,
	})
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("error").Inc()
		s.logger.Error("Failed to persist successor token",
			zap.Error(err),
			zap.String("session_id", token.SessionID.String()),
			zap.String("predecessor_id", token.ID.String()))
		return nil, err
	}

	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	s.audit.Record(models.AuditEvent{
		ActorID:    &token.UserID,
		Action:     models.AuditActionTokenRefreshed,
		TargetType: models.AuditTargetToken,
		TargetID:   successor.ID.String(),
		Status:     models.AuditLogStatusSuccess,
		Client:     client,
		Details: map[string]interface{}{
			"session_id":     token.SessionID.String(),
			"predecessor_id": token.ID.String(),
		},
	})
	s.logger.Info("Refresh token rotated",
		zap.String("session_id", token.SessionID.String()),
		zap.String("predecessor_id", token.ID.String()),
		zap.String("successor_id", successor.ID.String()))

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: plaintext,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int(s.jwtCfg.AccessTokenTTL.Seconds()),
	}, nil
}

// refreshWithinGrace mints a new access token while leaving the refresh
// token ACTIVE. The response carries no refresh secret; the client keeps
// using the one it has until the grace window closes.
func (s *RotationService) refreshWithinGrace(ctx context.Context, token *models.RefreshToken, client models.ClientInfo) (*models.TokenPair, error) {
	accessToken, _, err := s.codec.GenerateAccessToken(token.UserID.String(), token.SessionID.String(), token.DeviceID, token.Role)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("error").Inc()
		s.logger.Error("Failed to mint access token", zap.Error(err), zap.String("user_id", token.UserID.String()))
		return nil, fmt.Errorf("failed to mint access token: %w", err)
	}

	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	s.audit.Record(models.AuditEvent{
		ActorID:    &token.UserID,
		Action:     models.AuditActionTokenRefreshed,
		TargetType: models.AuditTargetToken,
		TargetID:   token.ID.String(),
		Status:     models.AuditLogStatusSuccess,
		Client:     client,
		Details: map[string]interface{}{
			"session_id": token.SessionID.String(),
			"mode":       config.RotationModeGrace,
		},
	})
	s.logger.Debug("Refresh served within grace window",
		zap.String("session_id", token.SessionID.String()),
		zap.String("token_id", token.ID.String()))

	return &models.TokenPair{
		AccessToken: accessToken,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int(s.jwtCfg.AccessTokenTTL.Seconds()),
	}, nil
}

// expireLazily moves a past-expiry token to EXPIRED. Losing the transition
// is fine; some other path already made it terminal.
func (s *RotationService) expireLazily(ctx context.Context, token *models.RefreshToken) {
	err := s.tokenRepo.TransitionStatus(ctx, token.ID, models.TokenStatusActive, models.TokenStatusExpired, nil)
	switch {
	case err == nil:
		metrics.TokensExpiredTotal.Inc()
	case domainErrors.IsConflict(err), domainErrors.IsNotFound(err):
	default:
		s.logger.Error("Failed to expire token lazily", zap.Error(err), zap.String("token_id", token.ID.String()))
	}
}

// deny records the precise reason on the audit channel and returns the
// uniform external denial. token is nil when the secret never matched a row.
func (s *RotationService) deny(reason string, token *models.RefreshToken, client models.ClientInfo) error {
	label := "denied"
	if reason == denyReasonConcurrentRotation {
		label = "conflict"
	}
	metrics.TokenRefreshTotal.WithLabelValues(label).Inc()

	event := models.AuditEvent{
		Action:  models.AuditActionRefreshDenied,
		Status:  models.AuditLogStatusFailure,
		Client:  client,
		Details: map[string]interface{}{"reason": reason},
	}
	fields := []zap.Field{zap.String("reason", reason)}
	if token != nil {
		event.ActorID = &token.UserID
		event.TargetType = models.AuditTargetToken
		event.TargetID = token.ID.String()
		event.Details["session_id"] = token.SessionID.String()
		fields = append(fields,
			zap.String("token_id", token.ID.String()),
			zap.String("session_id", token.SessionID.String()))
	}
	s.audit.Record(event)
	s.logger.Info("Refresh denied", fields...)

	return domainErrors.ErrRefreshFailed
}

// escalateReuse fires the session-kill cascade for a replayed secret. The
// cascade runs on its own goroutine and context; the caller returns the
// denial immediately.
func (s *RotationService) escalateReuse(token *models.RefreshToken, client models.ClientInfo) {
	metrics.TokenReuseDetectedTotal.Inc()
	s.logger.Warn("Rotated refresh token replayed, revoking session",
		zap.String("token_id", token.ID.String()),
		zap.String("session_id", token.SessionID.String()),
		zap.String("user_id", token.UserID.String()),
		zap.String("ip_address", client.IPAddress))

	s.cascades.Add(1)
	go func() {
		defer s.cascades.Done()
		ctx, cancel := context.WithTimeout(context.Background(), cascadeTimeout)
		defer cancel()
		s.runReuseCascade(ctx, token, client)
	}()
}

// runReuseCascade revokes every ACTIVE token in the compromised session and
// finalizes the security audit record only after the fan-out has joined, so
// the record carries the real revoked count.
func (s *RotationService) runReuseCascade(ctx context.Context, token *models.RefreshToken, client models.ClientInfo) {
	revoked, err := revokeSessionTokens(ctx, s.tokenRepo, token.SessionID, RevokeReasonReuseDetected)
	if err != nil {
		s.logger.Error("Reuse cascade incomplete",
			zap.Error(err),
			zap.String("session_id", token.SessionID.String()),
			zap.Int64("revoked_count", revoked))
	}
	if revoked > 0 {
		metrics.RevocationsTotal.WithLabelValues(RevocationTriggerReuse).Add(float64(revoked))
	}

	var reuseCount int64
	if s.replayTracker != nil {
		count, trackErr := s.replayTracker.RecordReuse(ctx, token.SessionID)
		if trackErr != nil {
			s.logger.Error("Failed to record reuse incident", zap.Error(trackErr), zap.String("session_id", token.SessionID.String()))
		} else {
			reuseCount = count
		}
	}

	status := models.AuditLogStatusSuccess
	details := map[string]interface{}{
		"session_id":    token.SessionID.String(),
		"revoked_count": revoked,
		"reason":        RevokeReasonReuseDetected,
	}
	if reuseCount > 0 {
		details["reuse_count"] = reuseCount
	}
	if err != nil {
		status = models.AuditLogStatusFailure
		details["error"] = err.Error()
	}
	s.audit.Record(models.AuditEvent{
		Action:     models.AuditActionTokenReuseDetected,
		TargetType: models.AuditTargetToken,
		TargetID:   token.ID.String(),
		Status:     status,
		Client:     client,
		Details:    details,
	})

	if s.events != nil {
		detected := eventModels.TokenReuseDetectedPayload{
			UserID:     token.UserID.String(),
			SessionID:  token.SessionID.String(),
			TokenID:    token.ID.String(),
			DetectedAt: time.Now().UTC(),
			IPAddress:  client.IPAddress,
			UserAgent:  client.UserAgent,
		}
		if pubErr := s.events.Publish(ctx, eventModels.TokenReuseDetectedV1, token.SessionID.String(), detected); pubErr != nil {
			s.logger.Error("Failed to publish reuse event", zap.Error(pubErr), zap.String("session_id", token.SessionID.String()))
		}
		if revoked > 0 {
			sessionRevoked := eventModels.SessionRevokedPayload{
				UserID:    token.UserID.String(),
				SessionID: token.SessionID.String(),
				Reason:    RevokeReasonReuseDetected,
				RevokedAt: time.Now().UTC(),
			}
			if pubErr := s.events.Publish(ctx, eventModels.SessionRevokedV1, token.SessionID.String(), sessionRevoked); pubErr != nil {
				s.logger.Error("Failed to publish session revoked event", zap.Error(pubErr), zap.String("session_id", token.SessionID.String()))
			}
		}
	}

	s.logger.Info("Reuse cascade finished",
		zap.String("session_id", token.SessionID.String()),
		zap.Int64("revoked_count", revoked))
}

// Close waits for in-flight reuse cascades. Call after the transport has
// stopped accepting refreshes.
func (s *RotationService) Close() {
	s.cascades.Wait()
}
