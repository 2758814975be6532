// File: internal/service/session_service_test.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gameplatform/session-service/internal/config"
	"github.com/gameplatform/session-service/internal/domain/models"
)

type sessionTestSuite struct {
	store *fakeTokenStore
	audit *recordingAuditSink
	codec *stubCodec
	svc   *SessionService
}

func setupSessionTestSuite(t *testing.T) *sessionTestSuite {
	t.Helper()
	ts := &sessionTestSuite{
		store: newFakeTokenStore(),
		audit: &recordingAuditSink{},
		codec: &stubCodec{},
	}
	ts.svc = NewSessionService(ts.store, ts.codec, ts.audit, config.JWTConfig{
		AccessTokenTTL:         15 * time.Minute,
		RefreshTokenTTL:        720 * time.Hour,
		RefreshTokenByteLength: 32,
	}, zap.NewNop())
	return ts
}

func TestSessionService_Issue_CreatesChainRoot(t *testing.T) {
	ts := setupSessionTestSuite(t)
	userID := uuid.New()

	resp, err := ts.svc.Issue(context.Background(), models.IssueTokenRequest{
		UserID:   userID,
		DeviceID: "handheld-7",
		Role:     "player",
	}, testClient)

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotEqual(t, uuid.Nil, resp.SessionID)
	assert.NotEqual(t, uuid.Nil, resp.TokenID)

	wantAccess := fmt.Sprintf("at|%s|%s|handheld-7|player", userID, resp.SessionID)
	assert.Equal(t, wantAccess, resp.AccessToken, "access claims carry the new session identity")
	assert.Contains(t, resp.RefreshToken, ".", "the refresh secret is selector.verifier")
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 900, resp.ExpiresIn)

	row := ts.store.get(resp.TokenID)
	require.NotNil(t, row)
	assert.Equal(t, models.TokenStatusActive, row.Status)
	assert.Equal(t, userID, row.UserID)
	assert.Equal(t, resp.SessionID, row.SessionID)
	assert.Equal(t, "handheld-7", row.DeviceID)
	assert.Equal(t, "player", row.Role)
	assert.Nil(t, row.ChainPredecessorID, "a chain root has no predecessor")
	require.NotNil(t, row.IPAddress)
	assert.Equal(t, testClient.IPAddress, *row.IPAddress)
	assert.WithinDuration(t, time.Now().UTC().Add(720*time.Hour), row.ExpiresAt, time.Minute)

	_, verifier, found := strings.Cut(resp.RefreshToken, ".")
	require.True(t, found)
	assert.NotContains(t, string(row.SecretHash), verifier, "the verifier is stored only as a digest")

	issued, ok := ts.audit.lastByAction(models.AuditActionTokenIssued)
	require.True(t, ok)
	assert.Equal(t, resp.TokenID.String(), issued.TargetID)
	require.NotNil(t, issued.ActorID)
	assert.Equal(t, userID, *issued.ActorID)
}

func TestSessionService_Issue_SecretRefreshesThroughRotation(t *testing.T) {
	ts := setupSessionTestSuite(t)
	rotation := NewRotationService(RotationServiceDeps{
		TokenRepo: ts.store,
		Codec:     ts.codec,
		Audit:     ts.audit,
		JWTConfig: config.JWTConfig{AccessTokenTTL: 15 * time.Minute, RefreshTokenTTL: 720 * time.Hour, RefreshTokenByteLength: 32},
		Rotation:  config.RotationConfig{Mode: config.RotationModeRotate},
		Logger:    zap.NewNop(),
	})

	resp, err := ts.svc.Issue(context.Background(), models.IssueTokenRequest{
		UserID:   uuid.New(),
		DeviceID: "handheld-7",
		Role:     "moderator",
	}, testClient)
	require.NoError(t, err)

	pair, err := rotation.Refresh(context.Background(), resp.RefreshToken, testClient)
	require.NoError(t, err, "an issued secret must be exchangeable")
	assert.Contains(t, pair.AccessToken, "|moderator", "the role persists across rotation without a user lookup")
	assert.Contains(t, pair.AccessToken, resp.SessionID.String(), "rotation never changes the session")
}

func TestSessionService_Issue_MintFailureLeavesNoRow(t *testing.T) {
	ts := setupSessionTestSuite(t)
	ts.codec.failMint = errors.New("signing key unavailable")

	resp, err := ts.svc.Issue(context.Background(), models.IssueTokenRequest{
		UserID:   uuid.New(),
		DeviceID: "handheld-7",
	}, testClient)

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Empty(t, ts.store.all(), "a failed issuance must not leave an orphaned chain root")
	assert.Empty(t, ts.audit.byAction(models.AuditActionTokenIssued))
}

func TestSessionService_ListActiveSessions(t *testing.T) {
	ts := setupSessionTestSuite(t)
	userID := uuid.New()
	now := time.Now().UTC()

	older := newTokenRow(func(rt *models.RefreshToken) {
		rt.UserID = userID
		rt.IssuedAt = now.Add(-2 * time.Hour)
	})
	newer := newTokenRow(func(rt *models.RefreshToken) {
		rt.UserID = userID
		rt.IssuedAt = now.Add(-time.Minute)
	})
	rotated := newTokenRow(func(rt *models.RefreshToken) {
		rt.UserID = userID
		rt.Status = models.TokenStatusRotated
	})
	expired := newTokenRow(func(rt *models.RefreshToken) {
		rt.UserID = userID
		rt.ExpiresAt = now.Add(-time.Hour)
	})
	foreign := newTokenRow()
	for _, row := range []*models.RefreshToken{older, newer, rotated, expired, foreign} {
		ts.store.insert(row)
	}

	sessions, err := ts.svc.ListActiveSessions(context.Background(), userID)

	require.NoError(t, err)
	require.Len(t, sessions, 2, "only ACTIVE, unexpired tokens appear")
	assert.Equal(t, newer.ID, sessions[0].TokenID, "newest first")
	assert.Equal(t, older.ID, sessions[1].TokenID)
	assert.Equal(t, older.SessionID, sessions[1].SessionID)
	assert.Equal(t, "device-1", sessions[0].DeviceID)
}

func TestSessionService_ListActiveSessions_EmptyIsNotAnError(t *testing.T) {
	ts := setupSessionTestSuite(t)

	sessions, err := ts.svc.ListActiveSessions(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Empty(t, sessions)
}
