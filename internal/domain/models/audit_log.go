// File: internal/domain/models/audit_log.go
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLogStatus defines the possible statuses for an audit log entry.
type AuditLogStatus string

const (
	AuditLogStatusSuccess AuditLogStatus = "success"
	AuditLogStatusFailure AuditLogStatus = "failure"
)

// Audit actions recorded by this service. The audit channel carries the
// precise reason for every lifecycle decision, including the ones the
// external API deliberately reports as a bare refusal.
const (
	AuditActionTokenIssued        = "token.issued"
	AuditActionTokenRefreshed     = "token.refreshed"
	AuditActionRefreshDenied      = "token.refresh_denied"
	AuditActionTokenReuseDetected = "token.reuse_detected"
	AuditActionTokenRevoked       = "token.revoked"
	AuditActionSessionRevoked     = "session.revoked"
	AuditActionUserTokensRevoked  = "user.tokens_revoked"
	AuditActionTokensCleaned      = "tokens.cleaned"
)

// Audit target types.
const (
	AuditTargetToken   = "refresh_token"
	AuditTargetSession = "session"
	AuditTargetUser    = "user"
)

// AuditLog represents an audit_logs row.
type AuditLog struct {
	ID         int64           `json:"id" db:"id"`
	ActorID    *uuid.UUID      `json:"actor_id,omitempty" db:"actor_id"`
	Action     string          `json:"action" db:"action"`
	TargetType *string         `json:"target_type,omitempty" db:"target_type"`
	TargetID   *string         `json:"target_id,omitempty" db:"target_id"`
	IPAddress  *string         `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  *string         `json:"user_agent,omitempty" db:"user_agent"`
	Status     AuditLogStatus  `json:"status" db:"status"`
	Details    json.RawMessage `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// AuditEvent is the service-layer record handed to the recorder. Details is
// marshalled to JSONB at write time.
type AuditEvent struct {
	ActorID    *uuid.UUID
	Action     string
	TargetType string
	TargetID   string
	Status     AuditLogStatus
	Client     ClientInfo
	Details    map[string]interface{}
}

// ListAuditLogParams filters and paginates the admin audit view.
type ListAuditLogParams struct {
	Page      int
	PageSize  int
	ActorID   *uuid.UUID
	Action    *string
	TargetID  *string
	Status    *AuditLogStatus
	From      *time.Time
	To        *time.Time
	SortBy    string
	SortOrder string
}
