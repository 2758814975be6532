// File: internal/infrastructure/security/token_secret.go
package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Refresh secrets are opaque strings of the form "<selector>.<verifier>".
// The selector is the database lookup key; the verifier is the confidential
// half, stored only as a salted SHA-256 digest. Splitting the two keeps the
// lookup index off the secret material itself.
const (
	selectorByteLength       = 16
	saltByteLength           = 16
	defaultVerifierByteCount = 32

	secretPartSeparator = "."
)

// RefreshSecret carries the components of a freshly generated refresh secret.
// Plaintext is returned to the client exactly once and never stored.
type RefreshSecret struct {
	Plaintext string
	Selector  string
	Salt      []byte
	Hash      []byte
}

// GenerateRefreshSecret creates a new selector.verifier refresh secret with
// verifierByteCount bytes of verifier entropy (a default applies when zero).
func GenerateRefreshSecret(verifierByteCount uint32) (*RefreshSecret, error) {
	if verifierByteCount == 0 {
		verifierByteCount = defaultVerifierByteCount
	}

	selectorBytes := make([]byte, selectorByteLength)
	if _, err := io.ReadFull(rand.Reader, selectorBytes); err != nil {
		return nil, fmt.Errorf("failed to read random bytes for selector: %w", err)
	}
	verifierBytes := make([]byte, verifierByteCount)
	if _, err := io.ReadFull(rand.Reader, verifierBytes); err != nil {
		return nil, fmt.Errorf("failed to read random bytes for verifier: %w", err)
	}
	salt := make([]byte, saltByteLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to read random bytes for salt: %w", err)
	}

	selector := base64.RawURLEncoding.EncodeToString(selectorBytes)
	verifier := base64.RawURLEncoding.EncodeToString(verifierBytes)

	return &RefreshSecret{
		Plaintext: selector + secretPartSeparator + verifier,
		Selector:  selector,
		Salt:      salt,
		Hash:      HashRefreshVerifier(salt, verifier),
	}, nil
}

// SplitRefreshSecret separates a presented refresh secret into its selector
// and verifier halves. Both halves must be non-empty URL-safe base64.
func SplitRefreshSecret(secret string) (selector, verifier string, err error) {
	selector, verifier, found := strings.Cut(secret, secretPartSeparator)
	if !found || selector == "" || verifier == "" {
		return "", "", fmt.Errorf("refresh secret is not in selector.verifier form")
	}
	if _, err := base64.RawURLEncoding.DecodeString(selector); err != nil {
		return "", "", fmt.Errorf("refresh secret selector is not URL-safe base64: %w", err)
	}
	return selector, verifier, nil
}

// HashRefreshVerifier digests the verifier half with its per-token salt.
func HashRefreshVerifier(salt []byte, verifier string) []byte {
	hasher := sha256.New()
	hasher.Write(salt)
	hasher.Write([]byte(verifier))
	return hasher.Sum(nil)
}

// VerifyRefreshSecret reports whether the presented verifier matches the
// stored digest. The comparison runs in constant time.
func VerifyRefreshSecret(salt, storedHash []byte, verifier string) bool {
	computed := HashRefreshVerifier(salt, verifier)
	return subtle.ConstantTimeCompare(computed, storedHash) == 1
}
