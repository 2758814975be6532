// File: internal/handler/http/session_handler.go
package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/gameplatform/session-service/internal/domain/errors"
	"github.com/gameplatform/session-service/internal/domain/models"
	domainService "github.com/gameplatform/session-service/internal/domain/service"
	"github.com/gameplatform/session-service/internal/handler/http/middleware"
	"github.com/gameplatform/session-service/internal/service"
)

// SessionLister serves the active-sessions view.
type SessionLister interface {
	ListActiveSessions(ctx context.Context, userID uuid.UUID) ([]models.ActiveSessionResponse, error)
}

// TokenRevoker terminates tokens on explicit request.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, params service.RevokeTokenParams) error
	RevokeAllForUser(ctx context.Context, params service.RevokeAllParams) (int64, error)
}

// SessionHandler handles the authenticated session-management surface: the
// active-sessions view and the revocation endpoints.
type SessionHandler struct {
	logger     *zap.Logger
	sessions   SessionLister
	revoker    TokenRevoker
	authorizer domainService.Authorizer
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(
	logger *zap.Logger,
	sessions SessionLister,
	revoker TokenRevoker,
	authorizer domainService.Authorizer,
) *SessionHandler {
	return &SessionHandler{
		logger:     logger.Named("session_handler"),
		sessions:   sessions,
		revoker:    revoker,
		authorizer: authorizer,
	}
}

// ListMySessions returns the caller's active sessions. Metadata only; the
// response never contains a secret in any form.
// GET /api/v1/sessions
func (h *SessionHandler) ListMySessions(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		RespondWithError(c, http.StatusUnauthorized, "Unauthorized", domainErrors.CodeUnauthorized, h.logger)
		return
	}

	sessions, err := h.sessions.ListActiveSessions(c.Request.Context(), userID)
	if err != nil {
		HandleDomainError(c, err, h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, gin.H{"sessions": sessions})
}

// RevokeToken revokes a single refresh token by id.
// POST /api/v1/sessions/revoke
//
// Callers without sessions:revoke_any can only hit their own tokens; foreign
// ids answer 404 exactly like unknown ones.
func (h *SessionHandler) RevokeToken(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		RespondWithError(c, http.StatusUnauthorized, "Unauthorized", domainErrors.CodeUnauthorized, h.logger)
		return
	}

	var req models.RevokeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request payload", domainErrors.CodeValidation, h.logger)
		return
	}

	canRevokeAny := h.authorizer.Can(middleware.CurrentRole(c), domainService.PermissionSessionsRevokeAny)

	params := service.RevokeTokenParams{
		TokenID:          req.TokenID,
		ActorID:          userID,
		Reason:           req.Reason,
		RequireOwnership: !canRevokeAny,
		Client:           clientInfo(c),
	}
	if canRevokeAny {
		params.Trigger = service.RevocationTriggerAdmin
	}

	if err := h.revoker.RevokeToken(c.Request.Context(), params); err != nil {
		HandleDomainError(c, err, h.logger)
		return
	}

	RespondWithNoContent(c)
}

// RevokeAll revokes every active token the caller holds. With
// exclude_current set the caller's own session survives, so "log out
// everywhere else" cannot lock the caller out.
// POST /api/v1/sessions/revoke-all
func (h *SessionHandler) RevokeAll(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		RespondWithError(c, http.StatusUnauthorized, "Unauthorized", domainErrors.CodeUnauthorized, h.logger)
		return
	}

	var req models.RevokeAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request payload", domainErrors.CodeValidation, h.logger)
		return
	}

	params := service.RevokeAllParams{
		UserID:  userID,
		ActorID: &userID,
		Reason:  req.Reason,
		Client:  clientInfo(c),
	}
	if req.ExcludeCurrent {
		sessionID, ok := middleware.CurrentSessionID(c)
		if !ok {
			RespondWithError(c, http.StatusUnauthorized, "Unauthorized", domainErrors.CodeUnauthorized, h.logger)
			return
		}
		params.ExcludeSessionID = &sessionID
	}

	revoked, err := h.revoker.RevokeAllForUser(c.Request.Context(), params)
	if err != nil {
		HandleDomainError(c, err, h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, models.RevokeAllResponse{RevokedCount: revoked})
}
