// File: internal/domain/models/refresh_token.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenStatus is the lifecycle state of a refresh token.
type TokenStatus string

const (
	TokenStatusActive  TokenStatus = "ACTIVE"
	TokenStatusRotated TokenStatus = "ROTATED"
	TokenStatusRevoked TokenStatus = "REVOKED"
	TokenStatusExpired TokenStatus = "EXPIRED"
)

// IsTerminal reports whether the status admits no further transitions.
// The state machine is monotonic: once a token leaves ACTIVE it never returns.
func (s TokenStatus) IsTerminal() bool {
	return s == TokenStatusRotated || s == TokenStatusRevoked || s == TokenStatusExpired
}

// Valid reports whether s is one of the known statuses.
func (s TokenStatus) Valid() bool {
	switch s {
	case TokenStatusActive, TokenStatusRotated, TokenStatusRevoked, TokenStatusExpired:
		return true
	}
	return false
}

// RefreshToken represents the refresh_tokens row. The secret itself is never
// stored: Selector locates the row, SecretSalt+SecretHash verify the
// presented verifier. ChainPredecessorID records rotation lineage and is used
// for forensics only, never for authorization.
type RefreshToken struct {
	ID                 uuid.UUID   `json:"id" db:"id"`
	UserID             uuid.UUID   `json:"user_id" db:"user_id"`
	SessionID          uuid.UUID   `json:"session_id" db:"session_id"`
	DeviceID           string      `json:"device_id" db:"device_id"`
	Role               string      `json:"role,omitempty" db:"role"`
	ChainPredecessorID *uuid.UUID  `json:"chain_predecessor_id,omitempty" db:"chain_predecessor_id"`
	Selector           string      `json:"-" db:"selector"`
	SecretSalt         []byte      `json:"-" db:"secret_salt"`
	SecretHash         []byte      `json:"-" db:"secret_hash"`
	Status             TokenStatus `json:"status" db:"status"`
	IssuedAt           time.Time   `json:"issued_at" db:"issued_at"`
	ExpiresAt          time.Time   `json:"expires_at" db:"expires_at"`
	StatusChangedAt    time.Time   `json:"status_changed_at" db:"status_changed_at"`
	RevokedReason      *string     `json:"revoked_reason,omitempty" db:"revoked_reason"`
	IPAddress          *string     `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent          *string     `json:"user_agent,omitempty" db:"user_agent"`
}

// IsExpiredAt reports whether the token's expiry has passed at the given time.
// Expiry is detected lazily: the stored status may still read ACTIVE.
func (t *RefreshToken) IsExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// ClientInfo is the fingerprint captured at issuance. Audit and anomaly
// signals only; never an authorization input.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

func (c ClientInfo) ipPtr() *string {
	if c.IPAddress == "" {
		return nil
	}
	ip := c.IPAddress
	return &ip
}

func (c ClientInfo) uaPtr() *string {
	if c.UserAgent == "" {
		return nil
	}
	ua := c.UserAgent
	return &ua
}

// Pointers returns the nullable column representation of the fingerprint.
func (c ClientInfo) Pointers() (ip *string, ua *string) {
	return c.ipPtr(), c.uaPtr()
}

// CreateRefreshTokenParams carries everything the store needs to persist a
// new chain member. PredecessorID is nil for a chain root. Role is echoed
// into access tokens minted against the chain.
type CreateRefreshTokenParams struct {
	UserID        uuid.UUID
	SessionID     uuid.UUID
	DeviceID      string
	Role          string
	PredecessorID *uuid.UUID
	TTL           time.Duration
	Client        ClientInfo
}
