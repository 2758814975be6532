// File: internal/service/session_service.go
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gameplatform/session-service/internal/config"
	"github.com/gameplatform/session-service/internal/domain/models"
	"github.com/gameplatform/session-service/internal/domain/repository"
	domainService "github.com/gameplatform/session-service/internal/domain/service"
	"github.com/gameplatform/session-service/internal/utils/metrics"
)

// SessionService issues session chain roots and serves the active-session
// view. Login itself happens upstream; Issue trusts that the principal in the
// request was already authenticated.
type SessionService struct {
	tokenRepo repository.RefreshTokenRepository
	codec     domainService.TokenCodec
	audit     AuditSink
	jwtCfg    config.JWTConfig
	logger    *zap.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	tokenRepo repository.RefreshTokenRepository,
	codec domainService.TokenCodec,
	audit AuditSink,
	jwtCfg config.JWTConfig,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		tokenRepo: tokenRepo,
		codec:     codec,
		audit:     audit,
		jwtCfg:    jwtCfg,
		logger:    logger.Named("session_service"),
	}
}

// Issue creates a new session chain: one ACTIVE refresh token and a matching
// access token. The refresh secret in the response is the only copy that will
// ever exist.
func (s *SessionService) Issue(ctx context.Context, req models.IssueTokenRequest, client models.ClientInfo) (*models.IssueTokenResponse, error) {
	sessionID := uuid.New()

	// Minting is pure crypto; doing it first means a failure leaves no
	// orphaned store row.
	accessToken, _, err := s.codec.GenerateAccessToken(req.UserID.String(), sessionID.String(), req.DeviceID, req.Role)
	if err != nil {
		s.logger.Error("Failed to mint access token", zap.Error(err), zap.String("user_id", req.UserID.String()))
		return nil, fmt.Errorf("failed to mint access token: %w", err)
	}

	token, plaintext, err := createChainMember(ctx, s.tokenRepo, s.jwtCfg.RefreshTokenByteLength, models.CreateRefreshTokenParams{
		UserID:    req.UserID,
		SessionID: sessionID,
		DeviceID:  req.DeviceID,
		Role:      req.Role,
		TTL:       s.jwtCfg.RefreshTokenTTL,
		Client:    client,
	})
	if err != nil {
		s.logger.Error("Failed to create session chain root",
			zap.Error(err),
			zap.String("user_id", req.UserID.String()),
		)
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	metrics.TokenIssuedTotal.Inc()
	s.audit.Record(models.AuditEvent{
		ActorID:    &token.UserID,
		Action:     models.AuditActionTokenIssued,
		TargetType: models.AuditTargetToken,
		TargetID:   token.ID.String(),
		Status:     models.AuditLogStatusSuccess,
		Client:     client,
		Details: map[string]interface{}{
			"session_id": sessionID.String(),
			"device_id":  req.DeviceID,
		},
	})

	return &models.IssueTokenResponse{
		SessionID: sessionID,
		TokenID:   token.ID,
		TokenPair: models.TokenPair{
			AccessToken:  accessToken,
			RefreshToken: plaintext,
			TokenType:    tokenTypeBearer,
			ExpiresIn:    int(s.jwtCfg.AccessTokenTTL.Seconds()),
		},
	}, nil
}

// ListActiveSessions returns metadata for the user's ACTIVE, unexpired
// tokens. Secrets are never part of the view.
func (s *SessionService) ListActiveSessions(ctx context.Context, userID uuid.UUID) ([]models.ActiveSessionResponse, error) {
	tokens, err := s.tokenRepo.ListActiveByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list active sessions", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}

	sessions := make([]models.ActiveSessionResponse, 0, len(tokens))
	for _, token := range tokens {
		sessions = append(sessions, models.NewActiveSessionResponse(token))
	}
	return sessions, nil
}
