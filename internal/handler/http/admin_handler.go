// File: internal/handler/http/admin_handler.go
package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/gameplatform/session-service/internal/domain/errors"
	"github.com/gameplatform/session-service/internal/domain/models"
	"github.com/gameplatform/session-service/internal/domain/repository"
	"github.com/gameplatform/session-service/internal/handler/http/middleware"
	"github.com/gameplatform/session-service/internal/service"
)

// CleanupRunner runs one on-demand expiry sweep.
type CleanupRunner interface {
	Sweep(ctx context.Context, now time.Time, actorID *uuid.UUID) (int64, error)
}

// AdminHandler handles privileged operations: the on-demand cleanup sweep,
// cross-user revocation and the audit log view. Every route is gated by the
// authorization policy in the router, not by role checks here.
type AdminHandler struct {
	logger    *zap.Logger
	cleanup   CleanupRunner
	revoker   TokenRevoker
	auditRepo repository.AuditLogRepository
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	logger *zap.Logger,
	cleanup CleanupRunner,
	revoker TokenRevoker,
	auditRepo repository.AuditLogRepository,
) *AdminHandler {
	return &AdminHandler{
		logger:    logger.Named("admin_handler"),
		cleanup:   cleanup,
		revoker:   revoker,
		auditRepo: auditRepo,
	}
}

// Meta carries pagination info for list responses.
type Meta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
}

// ListAuditLogsResponse is the paginated audit log view.
type ListAuditLogsResponse struct {
	Data []*models.AuditLog `json:"data"`
	Meta Meta               `json:"meta"`
}

// TriggerCleanup runs one expiry sweep immediately.
// POST /api/v1/admin/cleanup
func (h *AdminHandler) TriggerCleanup(c *gin.Context) {
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		RespondWithError(c, http.StatusUnauthorized, "Unauthorized", domainErrors.CodeUnauthorized, h.logger)
		return
	}

	deleted, err := h.cleanup.Sweep(c.Request.Context(), time.Now().UTC(), &actorID)
	if err != nil {
		HandleDomainError(c, err, h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, models.CleanupResponse{DeletedCount: deleted})
}

// RevokeUserTokens revokes every active token of the addressed user.
// POST /api/v1/admin/users/:user_id/revoke-tokens
func (h *AdminHandler) RevokeUserTokens(c *gin.Context) {
	actorID, ok := middleware.CurrentUserID(c)
	if !ok {
		RespondWithError(c, http.StatusUnauthorized, "Unauthorized", domainErrors.CodeUnauthorized, h.logger)
		return
	}

	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid user id", domainErrors.CodeValidation, h.logger)
		return
	}

	var req models.AdminRevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request payload", domainErrors.CodeValidation, h.logger)
		return
	}

	revoked, err := h.revoker.RevokeAllForUser(c.Request.Context(), service.RevokeAllParams{
		UserID:  userID,
		ActorID: &actorID,
		Reason:  req.Reason,
		Trigger: service.RevocationTriggerAdmin,
		Client:  clientInfo(c),
	})
	if err != nil {
		HandleDomainError(c, err, h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, models.RevokeAllResponse{RevokedCount: revoked})
}

// ListAuditLogs returns a filterable, paginated audit log page.
// GET /api/v1/admin/audit-logs
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	params := models.ListAuditLogParams{
		Page:      page,
		PageSize:  perPage,
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if raw := c.Query("actor_id"); raw != "" {
		actorID, err := uuid.Parse(raw)
		if err != nil {
			RespondWithError(c, http.StatusBadRequest, "Invalid actor_id filter", domainErrors.CodeValidation, h.logger)
			return
		}
		params.ActorID = &actorID
	}
	if action := c.Query("action"); action != "" {
		params.Action = &action
	}
	if targetID := c.Query("target_id"); targetID != "" {
		params.TargetID = &targetID
	}
	if raw := c.Query("status"); raw != "" {
		status := models.AuditLogStatus(raw)
		if status != models.AuditLogStatusSuccess && status != models.AuditLogStatusFailure {
			RespondWithError(c, http.StatusBadRequest, "Invalid status filter", domainErrors.CodeValidation, h.logger)
			return
		}
		params.Status = &status
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondWithError(c, http.StatusBadRequest, "Invalid from timestamp, expected RFC3339", domainErrors.CodeValidation, h.logger)
			return
		}
		params.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondWithError(c, http.StatusBadRequest, "Invalid to timestamp, expected RFC3339", domainErrors.CodeValidation, h.logger)
			return
		}
		params.To = &to
	}

	logs, total, err := h.auditRepo.List(c.Request.Context(), params)
	if err != nil {
		HandleDomainError(c, err, h.logger)
		return
	}

	totalPages := 0
	if params.PageSize > 0 {
		totalPages = (total + params.PageSize - 1) / params.PageSize
	}
	RespondWithData(c, http.StatusOK, ListAuditLogsResponse{
		Data: logs,
		Meta: Meta{
			CurrentPage: params.Page,
			PerPage:     params.PageSize,
			TotalItems:  total,
			TotalPages:  totalPages,
		},
	})
}
