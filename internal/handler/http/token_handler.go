// File: internal/handler/http/token_handler.go
package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/gameplatform/session-service/internal/domain/errors"
	"github.com/gameplatform/session-service/internal/domain/models"
	domainService "github.com/gameplatform/session-service/internal/domain/service"
)

// SessionIssuer mints a new session chain for an authenticated principal.
type SessionIssuer interface {
	Issue(ctx context.Context, req models.IssueTokenRequest, client models.ClientInfo) (*models.IssueTokenResponse, error)
}

// TokenRefresher exchanges a refresh secret for a new token pair.
type TokenRefresher interface {
	Refresh(ctx context.Context, secret string, client models.ClientInfo) (*models.TokenPair, error)
}

// TokenHandler handles token issuance, refresh and the JWKS endpoint.
type TokenHandler struct {
	logger    *zap.Logger
	issuer    SessionIssuer
	refresher TokenRefresher
	codec     domainService.TokenCodec
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(
	logger *zap.Logger,
	issuer SessionIssuer,
	refresher TokenRefresher,
	codec domainService.TokenCodec,
) *TokenHandler {
	return &TokenHandler{
		logger:    logger.Named("token_handler"),
		issuer:    issuer,
		refresher: refresher,
		codec:     codec,
	}
}

// clientInfo captures the caller fingerprint recorded on every token row and
// audit entry.
func clientInfo(c *gin.Context) models.ClientInfo {
	return models.ClientInfo{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// Refresh exchanges a refresh secret for a new token pair.
// POST /api/v1/tokens/refresh
//
// Every denial is the same 401; a caller cannot distinguish a revoked secret
// from a replayed or malformed one.
func (h *TokenHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request payload", domainErrors.CodeValidation, h.logger)
		return
	}

	pair, err := h.refresher.Refresh(c.Request.Context(), req.RefreshToken, clientInfo(c))
	if err != nil {
		HandleDomainError(c, err, h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, pair)
}

// Issue creates a new session chain for an already-authenticated principal.
// POST /api/v1/tokens
func (h *TokenHandler) Issue(c *gin.Context) {
	var req models.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request payload", domainErrors.CodeValidation, h.logger)
		return
	}

	resp, err := h.issuer.Issue(c.Request.Context(), req, clientInfo(c))
	if err != nil {
		HandleDomainError(c, err, h.logger)
		return
	}

	RespondWithData(c, http.StatusCreated, resp)
}

// GetJWKS serves the public verification keys.
// GET /.well-known/jwks.json
func (h *TokenHandler) GetJWKS(c *gin.Context) {
	jwks, err := h.codec.GetJWKS()
	if err != nil {
		h.logger.Error("Failed to build JWKS", zap.Error(err))
		RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve JWKS", domainErrors.CodeInternal, h.logger)
		return
	}

	body, err := json.Marshal(jwks)
	if err != nil {
		h.logger.Error("Failed to encode JWKS", zap.Error(err))
		RespondWithError(c, http.StatusInternalServerError, "Failed to encode JWKS", domainErrors.CodeInternal, h.logger)
		return
	}

	c.Header("Cache-Control", "public, max-age=3600, must-revalidate")
	c.Data(http.StatusOK, "application/jwk-set+json", body)
}
