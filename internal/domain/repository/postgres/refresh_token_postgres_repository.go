// File: internal/domain/repository/postgres/refresh_token_postgres_repository.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/gameplatform/session-service/internal/domain/errors"
	"github.com/gameplatform/session-service/internal/domain/models"
	"github.com/gameplatform/session-service/internal/domain/repository"
)

const refreshTokenColumns = `id, user_id, session_id, device_id, role, chain_predecessor_id,
		selector, secret_salt, secret_hash, status, issued_at, expires_at,
		status_changed_at, revoked_reason, ip_address, user_agent`

// RefreshTokenRepositoryPostgres implements repository.RefreshTokenRepository.
type RefreshTokenRepositoryPostgres struct {
	pool *pgxpool.Pool
}

// NewRefreshTokenRepositoryPostgres creates a new RefreshTokenRepositoryPostgres.
func NewRefreshTokenRepositoryPostgres(pool *pgxpool.Pool) *RefreshTokenRepositoryPostgres {
	return &RefreshTokenRepositoryPostgres{pool: pool}
}

// wrapStoreErr classifies infrastructure failures as ErrStoreUnavailable so
// callers can tell a denied request apart from an unreachable store.
func wrapStoreErr(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		pgconn.Timeout(err),
		errors.As(err, &netErr):
		return fmt.Errorf("%s: %v: %w", op, err, domainErrors.ErrStoreUnavailable)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func scanRefreshToken(row pgx.Row) (*models.RefreshToken, error) {
	rt := &models.RefreshToken{}
	err := row.Scan(
		&rt.ID, &rt.UserID, &rt.SessionID, &rt.DeviceID, &rt.Role, &rt.ChainPredecessorID,
		&rt.Selector, &rt.SecretSalt, &rt.SecretHash, &rt.Status, &rt.IssuedAt, &rt.ExpiresAt,
		&rt.StatusChangedAt, &rt.RevokedReason, &rt.IPAddress, &rt.UserAgent,
	)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// Create persists a new refresh token row.
func (r *RefreshTokenRepositoryPostgres) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, session_id, device_id, role, chain_predecessor_id,
			selector, secret_salt, secret_hash, status, issued_at, expires_at,
			status_changed_at, revoked_reason, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.pool.Exec(ctx, query,
		token.ID, token.UserID, token.SessionID, token.DeviceID, token.Role, token.ChainPredecessorID,
		token.Selector, token.SecretSalt, token.SecretHash, token.Status, token.IssuedAt, token.ExpiresAt,
		token.StatusChangedAt, token.RevokedReason, token.IPAddress, token.UserAgent,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("failed to create refresh token due to unique constraint on selector: %w", domainErrors.ErrDuplicateValue)
		}
		return wrapStoreErr("failed to create refresh token", err)
	}
	return nil
}

// FindByID retrieves a refresh token by its ID.
func (r *RefreshTokenRepositoryPostgres) FindByID(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	query := `
		SELECT ` + refreshTokenColumns + `
		FROM refresh_tokens
		WHERE id = $1
	`
	rt, err := scanRefreshToken(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, wrapStoreErr("failed to find refresh token by ID", err)
	}
	return rt, nil
}

// FindBySelector retrieves a refresh token by its secret selector. Terminal
// rows are returned too so that replays of consumed secrets stay detectable.
func (r *RefreshTokenRepositoryPostgres) FindBySelector(ctx context.Context, selector string) (*models.RefreshToken, error) {
	query := `
		SELECT ` + refreshTokenColumns + `
		FROM refresh_tokens
		WHERE selector = $1
	`
	rt, err := scanRefreshToken(r.pool.QueryRow(ctx, query, selector))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, wrapStoreErr("failed to find refresh token by selector", err)
	}
	return rt, nil
}

// TransitionStatus performs the compare-and-swap status transition. Exactly
// one of N concurrent callers observing the same from status succeeds; the
// rest get ErrStatusConflict.
func (r *RefreshTokenRepositoryPostgres) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.TokenStatus, reason *string) error {
	query := `
		UPDATE refresh_tokens
		SET status = $3, status_changed_at = NOW(), revoked_reason = COALESCE($4, revoked_reason)
		WHERE id = $1 AND status = $2
	`
	result, err := r.pool.Exec(ctx, query, id, from, to, reason)
	if err != nil {
		return wrapStoreErr("failed to transition refresh token status", err)
	}
	if result.RowsAffected() == 0 {
		// Zero rows means either the row is gone or another writer moved the
		// status first. Look again to report which.
		var current models.TokenStatus
		err := r.pool.QueryRow(ctx, `SELECT status FROM refresh_tokens WHERE id = $1`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return domainErrors.ErrNotFound
		}
		if err != nil {
			return wrapStoreErr("failed to inspect refresh token status after transition miss", err)
		}
		return fmt.Errorf("refresh token %s is %s, not %s: %w", id, current, from, domainErrors.ErrStatusConflict)
	}
	return nil
}

// ListActiveByUser returns the user's ACTIVE, unexpired tokens.
func (r *RefreshTokenRepositoryPostgres) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*models.RefreshToken, error) {
	query := `
		SELECT ` + refreshTokenColumns + `
		FROM refresh_tokens
		WHERE user_id = $1 AND status = $2 AND expires_at > NOW()
		ORDER BY issued_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID, models.TokenStatusActive)
	if err != nil {
		return nil, wrapStoreErr("failed to list active refresh tokens", err)
	}
	defer rows.Close()

	var tokens []*models.RefreshToken
	for rows.Next() {
		rt, err := scanRefreshToken(rows)
		if err != nil {
			return nil, wrapStoreErr("failed to scan refresh token row", err)
		}
		tokens = append(tokens, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("failed to iterate refresh token rows", err)
	}
	return tokens, nil
}

// ListActiveBySession returns every ACTIVE token in a session, expired or not.
// The reuse cascade transitions each one individually, so expired stragglers
// must be visible here.
func (r *RefreshTokenRepositoryPostgres) ListActiveBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.RefreshToken, error) {
	query := `
		SELECT ` + refreshTokenColumns + `
		FROM refresh_tokens
		WHERE session_id = $1 AND status = $2
		ORDER BY issued_at ASC
	`
	rows, err := r.pool.Query(ctx, query, sessionID, models.TokenStatusActive)
	if err != nil {
		return nil, wrapStoreErr("failed to list active refresh tokens by session", err)
	}
	defer rows.Close()

	var tokens []*models.RefreshToken
	for rows.Next() {
		rt, err := scanRefreshToken(rows)
		if err != nil {
			return nil, wrapStoreErr("failed to scan refresh token row", err)
		}
		tokens = append(tokens, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("failed to iterate refresh token rows", err)
	}
	return tokens, nil
}

// RevokeAllActiveByUser revokes every ACTIVE token of a user, optionally
// sparing the caller's own session.
func (r *RefreshTokenRepositoryPostgres) RevokeAllActiveByUser(ctx context.Context, userID uuid.UUID, reason *string, excludeSessionID *uuid.UUID) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET status = $4, status_changed_at = NOW(), revoked_reason = COALESCE($2, revoked_reason)
		WHERE user_id = $1 AND status = $5 AND ($3::uuid IS NULL OR session_id <> $3)
	`
	result, err := r.pool.Exec(ctx, query, userID, reason, excludeSessionID, models.TokenStatusRevoked, models.TokenStatusActive)
	if err != nil {
		return 0, wrapStoreErr("failed to revoke refresh tokens by user", err)
	}
	return result.RowsAffected(), nil
}

// ExpireTimedOut transitions ACTIVE rows past their expiry to EXPIRED. The
// status guard keeps it safe against concurrent rotations: a row that just
// became ROTATED is skipped.
func (r *RefreshTokenRepositoryPostgres) ExpireTimedOut(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET status = $2, status_changed_at = $1
		WHERE status = $3 AND expires_at <= $1
	`
	result, err := r.pool.Exec(ctx, query, now, models.TokenStatusExpired, models.TokenStatusActive)
	if err != nil {
		return 0, wrapStoreErr("failed to expire timed out refresh tokens", err)
	}
	return result.RowsAffected(), nil
}

// DeleteTerminalBefore removes terminal rows whose expiry or last status
// change predates the cutoff. ACTIVE rows are never deleted here.
func (r *RefreshTokenRepositoryPostgres) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE status <> $2 AND (expires_at < $1 OR status_changed_at < $1)
	`
	result, err := r.pool.Exec(ctx, query, cutoff, models.TokenStatusActive)
	if err != nil {
		return 0, wrapStoreErr("failed to delete terminal refresh tokens", err)
	}
	return result.RowsAffected(), nil
}

// CountActive returns the number of ACTIVE, unexpired tokens.
func (r *RefreshTokenRepositoryPostgres) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM refresh_tokens WHERE status = $1 AND expires_at > NOW()`, models.TokenStatusActive).Scan(&count)
	if err != nil {
		return 0, wrapStoreErr("failed to count active refresh tokens", err)
	}
	return count, nil
}

var _ repository.RefreshTokenRepository = (*RefreshTokenRepositoryPostgres)(nil)
