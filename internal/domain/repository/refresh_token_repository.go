// File: internal/domain/repository/refresh_token_repository.go
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gameplatform/session-service/internal/domain/models"
)

// RefreshTokenRepository defines the interface for interacting with refresh
// token data. Status changes go through TransitionStatus so that concurrent
// writers race on a compare-and-swap instead of overwriting each other.
type RefreshTokenRepository interface {
	// Create persists a new refresh token row. The plaintext secret never
	// reaches this layer; callers store the selector, salt and verifier hash.
	Create(ctx context.Context, token *models.RefreshToken) error

	// FindByID retrieves a refresh token by its unique ID.
	// Returns domainErrors.ErrNotFound if no row exists.
	FindByID(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error)

	// FindBySelector retrieves a refresh token by its secret selector,
	// regardless of status. Reuse detection needs terminal rows too.
	// Returns domainErrors.ErrNotFound if no row exists.
	FindBySelector(ctx context.Context, selector string) (*models.RefreshToken, error)

	// TransitionStatus atomically moves a token from one status to another.
	// Returns domainErrors.ErrStatusConflict when the row exists but its
	// status no longer equals from, and domainErrors.ErrNotFound when the
	// row is gone. Exactly one of N concurrent callers with the same from
	// status wins.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.TokenStatus, reason *string) error

	// ListActiveByUser returns the user's ACTIVE, unexpired tokens ordered
	// by issue time, newest first.
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*models.RefreshToken, error)

	// ListActiveBySession returns every ACTIVE token sharing a session,
	// including any past expiry. The reuse cascade revokes them one by one
	// through TransitionStatus.
	ListActiveBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.RefreshToken, error)

	// RevokeAllActiveByUser revokes every ACTIVE token of a user, optionally
	// sparing one session. Returns the number of revoked rows.
	RevokeAllActiveByUser(ctx context.Context, userID uuid.UUID, reason *string, excludeSessionID *uuid.UUID) (int64, error)

	// ExpireTimedOut transitions ACTIVE rows whose expiry has passed to
	// EXPIRED. Returns the number of transitioned rows.
	ExpireTimedOut(ctx context.Context, now time.Time) (int64, error)

	// DeleteTerminalBefore removes ROTATED, REVOKED and EXPIRED rows whose
	// expiry or last status change is older than the cutoff. ACTIVE rows are
	// never touched. Returns the number of deleted rows.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// CountActive returns the number of ACTIVE, unexpired tokens.
	CountActive(ctx context.Context) (int64, error)
}
