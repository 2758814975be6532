// File: internal/domain/service/token_codec.go
package service

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims represents the JWT claims carried by access tokens.
type AccessTokenClaims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	DeviceID  string `json:"device_id,omitempty"`
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies RS256 access tokens and exposes the
// verification keys as a JWKS document. Implementations hold no
// persistent state; a token is a pure function of key, claims and clock.
type TokenCodec interface {
	// GenerateAccessToken creates a signed access token bound to the given
	// user, session and device. It returns the compact token string and the
	// claims it was signed with.
	GenerateAccessToken(userID, sessionID, deviceID, role string) (string, *AccessTokenClaims, error)

	// ValidateAccessToken parses and verifies an access token string.
	// Failures are classified as ErrTokenExpired, ErrInvalidSignature or
	// ErrTokenMalformed. Tokens signed by the immediately prior key are
	// accepted while the key rotation grace window is open.
	ValidateAccessToken(tokenString string) (*AccessTokenClaims, error)

	// GetJWKS returns the public key set for token verification. During key
	// rotation it contains both the current and the prior key.
	GetJWKS() (map[string]interface{}, error)
}
