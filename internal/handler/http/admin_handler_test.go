// File: internal/handler/http/admin_handler_test.go
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "github.com/gameplatform/session-service/internal/domain/errors"
	"github.com/gameplatform/session-service/internal/domain/models"
	"github.com/gameplatform/session-service/internal/service"
)

// --- Mocks (MockTokenRevoker lives in session_handler_test.go) ---

type MockCleanupRunner struct{ mock.Mock }

func (m *MockCleanupRunner) Sweep(ctx context.Context, now time.Time, actorID *uuid.UUID) (int64, error) {
	args := m.Called(ctx, now, actorID)
	return args.Get(0).(int64), args.Error(1)
}

type MockAuditLogRepository struct{ mock.Mock }

func (m *MockAuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditLogRepository) FindByID(ctx context.Context, id int64) (*models.AuditLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuditLog), args.Error(1)
}

func (m *MockAuditLogRepository) List(ctx context.Context, params models.ListAuditLogParams) ([]*models.AuditLog, int, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.AuditLog), args.Int(1), args.Error(2)
}

// --- Helpers ---

func newAdminTestRouter(cleanup *MockCleanupRunner, revoker *MockTokenRevoker, auditRepo *MockAuditLogRepository, identity gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAdminHandler(zap.NewNop(), cleanup, revoker, auditRepo)
	r := gin.New()
	group := r.Group("/api/v1/admin")
	if identity != nil {
		group.Use(identity)
	}
	group.POST("/cleanup", h.TriggerCleanup)
	group.POST("/users/:user_id/revoke-tokens", h.RevokeUserTokens)
	group.GET("/audit-logs", h.ListAuditLogs)
	return r
}

// --- Tests ---

func TestAdminHandler_TriggerCleanup_ReportsDeletedCount(t *testing.T) {
	cleanup := new(MockCleanupRunner)
	actorID := uuid.New()

	cleanup.On("Sweep", mock.Anything, mock.Anything, mock.MatchedBy(func(actor *uuid.UUID) bool {
		return actor != nil && *actor == actorID
	})).Return(int64(42), nil).Once()

	router := newAdminTestRouter(cleanup, new(MockTokenRevoker), new(MockAuditLogRepository), injectIdentity(actorID, uuid.New(), "admin"))
	w := doJSON(t, router, http.MethodPost, "/api/v1/admin/cleanup", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got models.CleanupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(42), got.DeletedCount)
	cleanup.AssertExpectations(t)
}

func TestAdminHandler_TriggerCleanup_NoIdentityIs401(t *testing.T) {
	cleanup := new(MockCleanupRunner)
	router := newAdminTestRouter(cleanup, new(MockTokenRevoker), new(MockAuditLogRepository), nil)

	w := doJSON(t, router, http.MethodPost, "/api/v1/admin/cleanup", nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	cleanup.AssertNotCalled(t, "Sweep", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminHandler_RevokeUserTokens_RevokesWithAdminTrigger(t *testing.T) {
	revoker := new(MockTokenRevoker)
	actorID := uuid.New()
	targetUserID := uuid.New()

	revoker.On("RevokeAllForUser", mock.Anything, mock.MatchedBy(func(params service.RevokeAllParams) bool {
		return params.UserID == targetUserID &&
			params.ActorID != nil && *params.ActorID == actorID &&
			params.Reason == "terms violation" &&
			params.Trigger == service.RevocationTriggerAdmin &&
			params.ExcludeSessionID == nil
	})).Return(int64(4), nil).Once()

	router := newAdminTestRouter(new(MockCleanupRunner), revoker, new(MockAuditLogRepository), injectIdentity(actorID, uuid.New(), "admin"))
	w := doJSON(t, router, http.MethodPost, "/api/v1/admin/users/"+targetUserID.String()+"/revoke-tokens", models.AdminRevokeRequest{
		Reason: "terms violation",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var got models.RevokeAllResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(4), got.RevokedCount)
	revoker.AssertExpectations(t)
}

func TestAdminHandler_RevokeUserTokens_BadUserIDIs400(t *testing.T) {
	revoker := new(MockTokenRevoker)
	router := newAdminTestRouter(new(MockCleanupRunner), revoker, new(MockAuditLogRepository), injectIdentity(uuid.New(), uuid.New(), "admin"))

	w := doJSON(t, router, http.MethodPost, "/api/v1/admin/users/not-a-uuid/revoke-tokens", models.AdminRevokeRequest{
		Reason: "terms violation",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domainErrors.CodeValidation, decodeError(t, w).Code)
	revoker.AssertNotCalled(t, "RevokeAllForUser", mock.Anything, mock.Anything)
}

func TestAdminHandler_ListAuditLogs_PaginatesAndFilters(t *testing.T) {
	auditRepo := new(MockAuditLogRepository)
	actorID := uuid.New()
	entries := []*models.AuditLog{
		{ID: 11, Action: models.AuditActionTokenRevoked, Status: models.AuditLogStatusSuccess, CreatedAt: time.Now().UTC()},
		{ID: 10, Action: models.AuditActionTokenRevoked, Status: models.AuditLogStatusSuccess, CreatedAt: time.Now().UTC()},
	}

	auditRepo.On("List", mock.Anything, mock.MatchedBy(func(params models.ListAuditLogParams) bool {
		return params.Page == 2 &&
			params.PageSize == 5 &&
			params.Action != nil && *params.Action == models.AuditActionTokenRevoked &&
			params.Status != nil && *params.Status == models.AuditLogStatusSuccess &&
			params.ActorID != nil && *params.ActorID == actorID &&
			params.SortBy == "created_at" &&
			params.SortOrder == "desc"
	})).Return(entries, 12, nil).Once()

	router := newAdminTestRouter(new(MockCleanupRunner), new(MockTokenRevoker), auditRepo, injectIdentity(uuid.New(), uuid.New(), "admin"))
	path := "/api/v1/admin/audit-logs?page=2&per_page=5&action=token.revoked&status=success&actor_id=" + actorID.String()
	w := doJSON(t, router, http.MethodGet, path, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got ListAuditLogsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Data, 2)
	assert.Equal(t, 2, got.Meta.CurrentPage)
	assert.Equal(t, 5, got.Meta.PerPage)
	assert.Equal(t, 12, got.Meta.TotalItems)
	assert.Equal(t, 3, got.Meta.TotalPages)
	auditRepo.AssertExpectations(t)
}

func TestAdminHandler_ListAuditLogs_ClampsPagination(t *testing.T) {
	auditRepo := new(MockAuditLogRepository)
	auditRepo.On("List", mock.Anything, mock.MatchedBy(func(params models.ListAuditLogParams) bool {
		return params.Page == 1 && params.PageSize == 20
	})).Return([]*models.AuditLog{}, 0, nil).Once()

	router := newAdminTestRouter(new(MockCleanupRunner), new(MockTokenRevoker), auditRepo, injectIdentity(uuid.New(), uuid.New(), "admin"))
	w := doJSON(t, router, http.MethodGet, "/api/v1/admin/audit-logs?page=-3&per_page=1000", nil)

	require.Equal(t, http.StatusOK, w.Code)
	auditRepo.AssertExpectations(t)
}

func TestAdminHandler_ListAuditLogs_TimeRangeFilter(t *testing.T) {
	auditRepo := new(MockAuditLogRepository)
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)

	auditRepo.On("List", mock.Anything, mock.MatchedBy(func(params models.ListAuditLogParams) bool {
		return params.From != nil && params.From.Equal(from) &&
			params.To != nil && params.To.Equal(to)
	})).Return([]*models.AuditLog{}, 0, nil).Once()

	router := newAdminTestRouter(new(MockCleanupRunner), new(MockTokenRevoker), auditRepo, injectIdentity(uuid.New(), uuid.New(), "admin"))
	path := "/api/v1/admin/audit-logs?from=" + from.Format(time.RFC3339) + "&to=" + to.Format(time.RFC3339)
	w := doJSON(t, router, http.MethodGet, path, nil)

	require.Equal(t, http.StatusOK, w.Code)
	auditRepo.AssertExpectations(t)
}

func TestAdminHandler_ListAuditLogs_InvalidFiltersAre400(t *testing.T) {
	auditRepo := new(MockAuditLogRepository)
	router := newAdminTestRouter(new(MockCleanupRunner), new(MockTokenRevoker), auditRepo, injectIdentity(uuid.New(), uuid.New(), "admin"))

	for _, query := range []string{
		"actor_id=not-a-uuid",
		"status=partial",
		"from=yesterday",
		"to=2025-13-99",
	} {
		w := doJSON(t, router, http.MethodGet, "/api/v1/admin/audit-logs?"+query, nil)
		assert.Equalf(t, http.StatusBadRequest, w.Code, "query %q", query)
	}
	auditRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}
