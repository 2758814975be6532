// File: internal/events/handlers/account_events_handler.go
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

// UserTokenRevoker is the slice of the revocation service the event
// consumers need.
type UserTokenRevoker interface {
	RevokeAllForUser(ctx context.Context, params service.RevokeAllParams) (int64, error)
}

// AccountEventsHandler applies events originating from the account service.
type AccountEventsHandler struct {
	revoker UserTokenRevoker
	logger  *zap.Logger
}

// NewAccountEventsHandler creates a new AccountEventsHandler.
func NewAccountEventsHandler(revoker UserTokenRevoker, logger *zap.Logger) *AccountEventsHandler {
	return &AccountEventsHandler{
		revoker: revoker,
		logger:  logger.Named("account_events"),
	}
}

// HandleUserDeleted applies account.user.deleted.v1: a deleted account keeps
// no live tokens. Replays are harmless; a second pass revokes zero rows.
func (h *AccountEventsHandler) HandleUserDeleted(ctx context.Context, event eventModels.CloudEvent) error {
	var payload eventModels.UserDeletedPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		h.logger.Error("Failed to unmarshal user deleted payload", zap.Error(err), zap.String("event_id", event.ID))
		return fmt.Errorf("failed to unmarshal event data: %w", err)
	}

	userID, err := uuid.Parse(payload.UserID)
	if err != nil {
		h.logger.Error("Invalid user id in user deleted event",
			zap.Error(err),
			zap.String("raw_user_id", payload.UserID),
			zap.String("event_id", event.ID))
		return fmt.Errorf("invalid user id in payload: %w", err)
	}

	revoked, err := h.revoker.RevokeAllForUser(ctx, service.RevokeAllParams{
		UserID:  userID,
		ActorID: parseActorID(payload.ActorID),
		Reason:  service.RevokeReasonAccountDeleted,
		Trigger: service.RevocationTriggerAccountDeleted,
	})
	if err != nil {
		h.logger.Error("Failed to revoke tokens for deleted user", zap.Error(err), zap.String("user_id", userID.String()))
		return fmt.Errorf("failed to revoke tokens for user %s: %w", userID, err)
	}

	h.logger.Info("Applied account deletion",
		zap.String("user_id", userID.String()),
		zap.Int64("revoked_count", revoked),
		zap.String("event_id", event.ID))
	return nil
}

// parseActorID keeps a malformed or missing actor from failing the whole
// event; the actor is audit detail, not a precondition.
func parseActorID(raw *string) *uuid.UUID {
	if raw == nil {
		return nil
	}
	parsed, err := uuid.Parse(*raw)
	if err != nil {
		return nil
	}
	return &parsed
}
