// File: internal/service/token_chain.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/gameplatform/session-service/internal/domain/errors"
	"github.com/gameplatform/session-service/internal/domain/models"
	"github.com/gameplatform/session-service/internal/domain/repository"
	"github.com/gameplatform/session-service/internal/infrastructure/security"
)

const tokenTypeBearer = "Bearer"

// buildChainMember assembles a persistable refresh token around a freshly
// generated secret. The plaintext is returned exactly once, here; only the
// selector, salt and verifier hash go to the store.
func buildChainMember(verifierByteCount uint32, params models.CreateRefreshTokenParams) (*models.RefreshToken, string, error) {
	secret, err := security.GenerateRefreshSecret(verifierByteCount)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate refresh secret: %w", err)
	}

	now := time.Now().UTC()
	ip, ua := params.Client.Pointers()
	token := &models.RefreshToken{
		ID:                 uuid.New(),
		UserID:             params.UserID,
		SessionID:          params.SessionID,
		DeviceID:           params.DeviceID,
		Role:               params.Role,
		ChainPredecessorID: params.PredecessorID,
		Selector:           secret.Selector,
		SecretSalt:         secret.Salt,
		SecretHash:         secret.Hash,
		Status:             models.TokenStatusActive,
		IssuedAt:           now,
		ExpiresAt:          now.Add(params.TTL),
		StatusChangedAt:    now,
		IPAddress:          ip,
		UserAgent:          ua,
	}
	return token, secret.Plaintext, nil
}

// createChainMember persists a new chain member. A selector collision is
// retried once with a fresh secret; two collisions in a row indicate
// something worse than bad luck and surface as the store error.
func createChainMember(ctx context.Context, repo repository.RefreshTokenRepository, verifierByteCount uint32, params models.CreateRefreshTokenParams) (*models.RefreshToken, string, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		token, plaintext, err := buildChainMember(verifierByteCount, params)
		if err != nil {
			return nil, "", err
		}
		if err := repo.Create(ctx, token); err != nil {
			if errors.Is(err, domainErrors.ErrDuplicateValue) {
				lastErr = err
				continue
			}
			return nil, "", err
		}
		return token, plaintext, nil
	}
	return nil, "", lastErr
}
