// File: internal/infrastructure/security/rsa_jwt_service.go
package security

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	appConfig "github.com/gameplatform/session-service/internal/config"
	domainErrors "github.com/gameplatform/session-service/internal/domain/errors"
	domainService "github.com/gameplatform/session-service/internal/domain/service"
)

// rsaTokenCodec implements service.TokenCodec using RS256.
type rsaTokenCodec struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey

	// previousPublicKey verifies tokens signed before the last key rotation.
	// previousKeyDeadline zero means the key is accepted while configured.
	previousPublicKey   *rsa.PublicKey
	previousKeyDeadline time.Time

	cfg appConfig.JWTConfig
}

// NewRSATokenCodec creates a codec from the configured RSA key material.
// The public key is derived from the private key; a previous public key is
// optional and only honored inside the rotation grace window.
func NewRSATokenCodec(cfg appConfig.JWTConfig) (domainService.TokenCodec, error) {
	if cfg.RSAPrivateKeyPEM == "" || cfg.JWKSKeyID == "" {
		return nil, errors.New("RSA private key and JWKS key ID must be configured")
	}
	if cfg.AccessTokenTTL == 0 {
		return nil, errors.New("access token TTL must be configured")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("JWT issuer and audience must be configured")
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.RSAPrivateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA private key from PEM: %w", err)
	}

	codec := &rsaTokenCodec{
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
		cfg:        cfg,
	}

	if cfg.PreviousRSAPublicKeyPEM != "" {
		if cfg.PreviousJWKSKeyID == "" {
			return nil, errors.New("previous JWKS key ID must be configured alongside the previous public key")
		}
		previousKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PreviousRSAPublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse previous RSA public key from PEM: %w", err)
		}
		codec.previousPublicKey = previousKey

		if cfg.KeyRotatedAt != "" && cfg.KeyRotationGrace > 0 {
			rotatedAt, err := time.Parse(time.RFC3339, cfg.KeyRotatedAt)
			if err != nil {
				return nil, fmt.Errorf("failed to parse key rotation timestamp: %w", err)
			}
			codec.previousKeyDeadline = rotatedAt.Add(cfg.KeyRotationGrace)
		}
	}

	return codec, nil
}

// GenerateAccessToken creates a new RS256 signed access token.
func (c *rsaTokenCodec) GenerateAccessToken(userID, sessionID, deviceID, role string) (string, *domainService.AccessTokenClaims, error) {
	now := time.Now()

	claims := &domainService.AccessTokenClaims{
		UserID:    userID,
		SessionID: sessionID,
		DeviceID:  deviceID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.cfg.Issuer,
			Audience:  jwt.ClaimStrings{c.cfg.Audience},
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(c.cfg.AccessTokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = c.cfg.JWKSKeyID

	signedToken, err := token.SignedString(c.privateKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return signedToken, claims, nil
}

// ValidateAccessToken verifies the signature and registered claims of an
// access token and returns its claims.
func (c *rsaTokenCodec) ValidateAccessToken(tokenString string) (*domainService.AccessTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &domainService.AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		return c.verificationKey(kid)
	}, jwt.WithAudience(c.cfg.Audience), jwt.WithIssuer(c.cfg.Issuer))

	if err != nil {
		return nil, classifyTokenError(err)
	}

	claims, ok := token.Claims.(*domainService.AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: unexpected claims type", domainErrors.ErrTokenMalformed)
	}
	return claims, nil
}

// verificationKey selects the public key for the given kid. Tokens without a
// kid header are checked against the current key.
func (c *rsaTokenCodec) verificationKey(kid string) (*rsa.PublicKey, error) {
	switch kid {
	case "", c.cfg.JWKSKeyID:
		return c.publicKey, nil
	case c.cfg.PreviousJWKSKeyID:
		if c.previousPublicKey == nil {
			return nil, fmt.Errorf("no key registered for kid %q", kid)
		}
		if !c.previousKeyAccepted(time.Now()) {
			return nil, fmt.Errorf("rotation grace window for kid %q has closed", kid)
		}
		return c.previousPublicKey, nil
	default:
		return nil, fmt.Errorf("no key registered for kid %q", kid)
	}
}

func (c *rsaTokenCodec) previousKeyAccepted(now time.Time) bool {
	if c.previousPublicKey == nil {
		return false
	}
	if c.previousKeyDeadline.IsZero() {
		return true
	}
	return now.Before(c.previousKeyDeadline)
}

// classifyTokenError maps jwt parse failures onto the domain error kinds.
// Keyfunc failures (unknown kid, closed grace window) surface as unverifiable
// tokens and count as signature failures.
func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", domainErrors.ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", domainErrors.ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", domainErrors.ErrTokenMalformed, err)
	}
}

// GetJWKS returns the public key set in JWKS format. The prior key stays
// published while the rotation grace window is open so cached verifiers can
// finish draining.
func (c *rsaTokenCodec) GetJWKS() (map[string]interface{}, error) {
	if c.publicKey == nil {
		return nil, errors.New("public key not configured, cannot generate JWKS")
	}

	keys := []map[string]interface{}{
		jwkForKey(c.cfg.JWKSKeyID, c.publicKey),
	}
	if c.previousKeyAccepted(time.Now()) {
		keys = append(keys, jwkForKey(c.cfg.PreviousJWKSKeyID, c.previousPublicKey))
	}

	return map[string]interface{}{
		"keys": keys,
	}, nil
}

func jwkForKey(kid string, key *rsa.PublicKey) map[string]interface{} {
	return map[string]interface{}{
		"kty": "RSA",
		"kid": kid,
		"use": "sig",
		"alg": jwt.SigningMethodRS256.Alg(),
		"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}
}

// Ensure rsaTokenCodec implements service.TokenCodec.
var _ domainService.TokenCodec = (*rsaTokenCodec)(nil)
