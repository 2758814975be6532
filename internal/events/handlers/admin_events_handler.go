// File: internal/events/handlers/admin_events_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	eventModels "github.com/gameplatform/session-service/internal/events/models"
	"github.com/gameplatform/session-service/internal/service"
)

// AdminEventsHandler applies moderation events from the admin service.
type AdminEventsHandler struct {
	revoker UserTokenRevoker
	logger  *zap.Logger
}

// NewAdminEventsHandler creates a new AdminEventsHandler.
func NewAdminEventsHandler(revoker UserTokenRevoker, logger *zap.Logger) *AdminEventsHandler {
	return &AdminEventsHandler{
		revoker: revoker,
		logger:  logger.Named("admin_events"),
	}
}

// HandleUserBlocked applies admin.user.blocked.v1: a blocked player is cut
// off everywhere at once rather than surviving until their tokens expire.
func (h *AdminEventsHandler) HandleUserBlocked(ctx context.Context, event eventModels.CloudEvent) error {
	var payload eventModels.UserBlockedPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		h.logger.Error("Failed to unmarshal user blocked payload", zap.Error(err), zap.String("event_id", event.ID))
		return fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		h.logger.Error("Invalid user id in user blocked event",
			zap.Error(err),
			zap.String("raw_user_id", payload.UserID),
			zap.String("event_id", event.ID))
		return fmt.Errorf("invalid user id in payload: %w", err)
	}

	reason := payload.Reason
	if reason == "" {
		reason = service.RevokeReasonUserBlocked
	}

	revoked, err := h.revoker.RevokeAllForUser(ctx, service.RevokeAllParams{
		UserID:  userID,
		ActorID: parseActorID(payload.ActorID),
		Reason:  reason,
		Trigger: service.RevocationTriggerUserBlocked,
	})
	if err != nil {
		h.logger.Error("Failed to revoke tokens for blocked user", zap.Error(err), zap.String("user_id", userID.String()))
		return fmt.Errorf("failed to revoke tokens for user %s: %w", userID, err)
	}

	h.logger.Info("Applied user block",
		zap.String("user_id", userID.String()),
		zap.Int64("revoked_count", revoked),
		zap.String("reason", reason),
		zap.String("event_id", event.ID))
	return nil
}
