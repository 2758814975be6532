// File: internal/events/models/event.go
package models

import "time"

// EventType is a string type for defining specific event types.
type EventType string

// Cloud Event types published by the session service.
const (
	SessionRevokedV1     EventType = "session.revoked.v1"
	TokenReuseDetectedV1 EventType = "session.token_reuse_detected.v1"
	UserTokensRevokedV1  EventType = "session.user_tokens_revoked.v1"
	TokensCleanedV1      EventType = "session.tokens_cleaned.v1"
)

// Cloud Event types consumed from other services.
const (
	AccountUserDeletedV1 EventType = "account.user.deleted.v1"
	AdminUserBlockedV1   EventType = "admin.user.blocked.v1"
)

// SessionRevokedPayload is the data for SessionRevokedV1, emitted when a whole
// session chain is revoked, whether explicitly or by the reuse cascade.
type SessionRevokedPayload struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Reason    string    `json:"reason"`
	RevokedAt time.Time `json:"revoked_at"`
	ActorID   *string   `json:"actor_id,omitempty"`
}

// TokenReuseDetectedPayload is the data for TokenReuseDetectedV1, emitted when
// an already consumed refresh secret is presented again.
type TokenReuseDetectedPayload struct {
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	TokenID    string    `json:"token_id"`
	DetectedAt time.Time `json:"detected_at"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
}

// UserTokensRevokedPayload is the data for UserTokensRevokedV1, emitted after
// a revoke-all operation.
type UserTokensRevokedPayload struct {
	UserID            string    `json:"user_id"`
	RevokedCount      int64     `json:"revoked_count"`
	Reason            string    `json:"reason"`
	RevokedAt         time.Time `json:"revoked_at"`
	ExcludedSessionID *string   `json:"excluded_session_id,omitempty"`
	ActorID           *string   `json:"actor_id,omitempty"`
}

// TokensCleanedPayload is the data for TokensCleanedV1, emitted after a
// reaper sweep.
type TokensCleanedPayload struct {
	ExpiredCount int64     `json:"expired_count"`
	DeletedCount int64     `json:"deleted_count"`
	SweptAt      time.Time `json:"swept_at"`
}

// UserDeletedPayload is the data of AccountUserDeletedV1 events consumed from
// the account service.
type UserDeletedPayload struct {
	UserID    string    `json:"user_id"`
	DeletedAt time.Time `json:"deleted_at"`
	ActorID   *string   `json:"actor_id,omitempty"`
}

// UserBlockedPayload is the data of AdminUserBlockedV1 events consumed from
// the admin service.
type UserBlockedPayload struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason,omitempty"`
	BlockedAt time.Time `json:"blocked_at"`
	ActorID   *string   `json:"actor_id,omitempty"`
}
