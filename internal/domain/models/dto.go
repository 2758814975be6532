// File: internal/domain/models/dto.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenPair is the credential set returned by issue and refresh. In grace
// mode a refresh may return only a new access token, in which case
// RefreshToken is empty and the client keeps using its current secret.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// RefreshRequest is the body of POST /api/v1/tokens/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// IssueTokenRequest is the body of POST /api/v1/tokens. The caller is the
// upstream authenticator; the principal is already verified.
type IssueTokenRequest struct {
	UserID   uuid.UUID `json:"user_id" binding:"required"`
	DeviceID string    `json:"device_id" binding:"required,max=255"`
	Role     string    `json:"role,omitempty" binding:"max=64"`
}

// IssueTokenResponse returns the new chain root together with its session
// identity so the authenticator can hand both to the client.
type IssueTokenResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	TokenID   uuid.UUID `json:"token_id"`
	TokenPair
}

// ActiveSessionResponse is one element of the active-sessions view.
// Metadata only; the secret is never part of any response.
type ActiveSessionResponse struct {
	TokenID   uuid.UUID `json:"token_id"`
	SessionID uuid.UUID `json:"session_id"`
	DeviceID  string    `json:"device_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IPAddress *string   `json:"ip_address,omitempty"`
	UserAgent *string   `json:"user_agent,omitempty"`
}

// NewActiveSessionResponse converts a stored token to its view form.
func NewActiveSessionResponse(t *RefreshToken) ActiveSessionResponse {
	return ActiveSessionResponse{
		TokenID:   t.ID,
		SessionID: t.SessionID,
		DeviceID:  t.DeviceID,
		IssuedAt:  t.IssuedAt,
		ExpiresAt: t.ExpiresAt,
		IPAddress: t.IPAddress,
		UserAgent: t.UserAgent,
	}
}

// RevokeTokenRequest is the body of POST /api/v1/sessions/revoke.
type RevokeTokenRequest struct {
	TokenID uuid.UUID `json:"token_id" binding:"required"`
	Reason  string    `json:"reason" binding:"required,revoke_reason"`
}

// RevokeAllRequest is the body of POST /api/v1/sessions/revoke-all.
// ExcludeCurrent keeps the caller's own session alive so "log out everywhere
// else" cannot lock the caller out.
type RevokeAllRequest struct {
	Reason         string `json:"reason" binding:"required,revoke_reason"`
	ExcludeCurrent bool   `json:"exclude_current"`
}

// RevokeAllResponse reports how many tokens were transitioned.
type RevokeAllResponse struct {
	RevokedCount int64 `json:"revoked_count"`
}

// AdminRevokeRequest is the body of POST /api/v1/admin/users/:user_id/revoke-tokens.
type AdminRevokeRequest struct {
	Reason string `json:"reason" binding:"required,revoke_reason"`
}

// CleanupResponse reports how many terminal records the sweep removed.
type CleanupResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

// HealthResponse is the reachability probe result. Status is "ok" when every
// dependency answers, "degraded" otherwise.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}
