// File: internal/handler/http/token_handler_test.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "github.com/gameplatform/session-service/internal/domain/errors"
	"github.com/gameplatform/session-service/internal/domain/models"
	domainService "github.com/gameplatform/session-service/internal/domain/service"
)

// --- Mocks ---

type MockTokenRefresher struct{ mock.Mock }

func (m *MockTokenRefresher) Refresh(ctx context.Context, secret string, client models.ClientInfo) (*models.TokenPair, error) {
	args := m.Called(ctx, secret, client)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenPair), args.Error(1)
}

type MockSessionIssuer struct{ mock.Mock }

func (m *MockSessionIssuer) Issue(ctx context.Context, req models.IssueTokenRequest, client models.ClientInfo) (*models.IssueTokenResponse, error) {
	args := m.Called(ctx, req, client)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IssueTokenResponse), args.Error(1)
}

type stubJWKSCodec struct {
	jwks    map[string]interface{}
	jwksErr error
}

func (s *stubJWKSCodec) GenerateAccessToken(userID, sessionID, deviceID, role string) (string, *domainService.AccessTokenClaims, error) {
	return "stub-token", &domainService.AccessTokenClaims{}, nil
}

func (s *stubJWKSCodec) ValidateAccessToken(tokenString string) (*domainService.AccessTokenClaims, error) {
	return nil, domainErrors.ErrTokenMalformed
}

func (s *stubJWKSCodec) GetJWKS() (map[string]interface{}, error) {
	return s.jwks, s.jwksErr
}

// --- Helpers ---

func newTokenTestRouter(refresher *MockTokenRefresher, issuer *MockSessionIssuer, codec domainService.TokenCodec) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewTokenHandler(zap.NewNop(), issuer, refresher, codec)
	r := gin.New()
	r.POST("/api/v1/tokens/refresh", h.Refresh)
	r.POST("/api/v1/tokens", h.Issue)
	r.GET("/.well-known/jwks.json", h.GetJWKS)
	return r
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ResponseError {
	t.Helper()
	var respErr ResponseError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &respErr))
	return respErr
}

// --- Tests ---

func TestTokenHandler_Refresh_ReturnsNewPair(t *testing.T) {
	refresher := new(MockTokenRefresher)
	router := newTokenTestRouter(refresher, new(MockSessionIssuer), &stubJWKSCodec{})

	pair := &models.TokenPair{
		AccessToken:  "new-access",
		RefreshToken: "new-secret",
		TokenType:    "Bearer",
		ExpiresIn:    900,
	}
	refresher.On("Refresh", mock.Anything, "old-secret", mock.Anything).Return(pair, nil).Once()

	w := doJSON(t, router, http.MethodPost, "/api/v1/tokens/refresh", models.RefreshRequest{RefreshToken: "old-secret"})

	require.Equal(t, http.StatusOK, w.Code)
	var got models.TokenPair
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "new-access", got.AccessToken)
	assert.Equal(t, "new-secret", got.RefreshToken)
	refresher.AssertExpectations(t)
}

func TestTokenHandler_Refresh_DenialIsUniform401(t *testing.T) {
	refresher := new(MockTokenRefresher)
	router := newTokenTestRouter(refresher, new(MockSessionIssuer), &stubJWKSCodec{})

	refresher.On("Refresh", mock.Anything, mock.Anything, mock.Anything).Return(nil, domainErrors.ErrRefreshFailed)

	w := doJSON(t, router, http.MethodPost, "/api/v1/tokens/refresh", models.RefreshRequest{RefreshToken: "whatever"})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	respErr := decodeError(t, w)
	assert.Equal(t, domainErrors.CodeRefreshFailed, respErr.Code)
	assert.Equal(t, "Refresh failed", respErr.Error)
}

func TestTokenHandler_Refresh_StoreOutageIs503(t *testing.T) {
	refresher := new(MockTokenRefresher)
	router := newTokenTestRouter(refresher, new(MockSessionIssuer), &stubJWKSCodec{})

	outage := fmt.Errorf("failed to find refresh token: %w", domainErrors.ErrStoreUnavailable)
	refresher.On("Refresh", mock.Anything, mock.Anything, mock.Anything).Return(nil, outage)

	w := doJSON(t, router, http.MethodPost, "/api/v1/tokens/refresh", models.RefreshRequest{RefreshToken: "whatever"})

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, domainErrors.CodeStoreUnavailable, decodeError(t, w).Code)
}

func TestTokenHandler_Refresh_MissingBodyIs400(t *testing.T) {
	refresher := new(MockTokenRefresher)
	router := newTokenTestRouter(refresher, new(MockSessionIssuer), &stubJWKSCodec{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/tokens/refresh", map[string]string{})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domainErrors.CodeValidation, decodeError(t, w).Code)
	refresher.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything, mock.Anything)
}

func TestTokenHandler_Issue_CreatesSession(t *testing.T) {
	issuer := new(MockSessionIssuer)
	router := newTokenTestRouter(new(MockTokenRefresher), issuer, &stubJWKSCodec{})

	userID := uuid.New()
	resp := &models.IssueTokenResponse{
		SessionID: uuid.New(),
		TokenID:   uuid.New(),
		TokenPair: models.TokenPair{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer", ExpiresIn: 900},
	}
	issuer.On("Issue", mock.Anything, mock.MatchedBy(func(req models.IssueTokenRequest) bool {
		return req.UserID == userID && req.DeviceID == "device-9" && req.Role == "player"
	}), mock.Anything).Return(resp, nil).Once()

	w := doJSON(t, router, http.MethodPost, "/api/v1/tokens", models.IssueTokenRequest{
		UserID:   userID,
		DeviceID: "device-9",
		Role:     "player",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var got models.IssueTokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, resp.SessionID, got.SessionID)
	assert.Equal(t, "rt", got.RefreshToken)
	issuer.AssertExpectations(t)
}

func TestTokenHandler_Issue_MissingDeviceIs400(t *testing.T) {
	issuer := new(MockSessionIssuer)
	router := newTokenTestRouter(new(MockTokenRefresher), issuer, &stubJWKSCodec{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/tokens", map[string]string{
		"user_id": uuid.NewString(),
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	issuer.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
}

func TestTokenHandler_GetJWKS_ServesKeySet(t *testing.T) {
	codec := &stubJWKSCodec{jwks: map[string]interface{}{
		"keys": []map[string]interface{}{{"kty": "RSA", "kid": "key-1"}},
	}}
	router := newTokenTestRouter(new(MockTokenRefresher), new(MockSessionIssuer), codec)

	w := doJSON(t, router, http.MethodGet, "/.well-known/jwks.json", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/jwk-set+json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "max-age=3600")
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Contains(t, got, "keys")
}

func TestTokenHandler_GetJWKS_CodecFailureIs500(t *testing.T) {
	codec := &stubJWKSCodec{jwksErr: fmt.Errorf("no key configured")}
	router := newTokenTestRouter(new(MockTokenRefresher), new(MockSessionIssuer), codec)

	w := doJSON(t, router, http.MethodGet, "/.well-known/jwks.json", nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, domainErrors.CodeInternal, decodeError(t, w).Code)
}
