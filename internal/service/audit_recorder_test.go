// File: internal/service/audit_recorder_test.go
package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "github.com/gameplatform/session-service/internal/domain/errors"
	"github.com/gameplatform/session-service/internal/domain/models"
)

// fakeAuditRepo records writes and can hold the writer goroutine at the gate
// so queue-overflow behavior becomes deterministic.
type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLog

	failCreate error
	entered    chan struct{}
	gate       chan struct{}
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *models.AuditLog) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	if f.failCreate != nil {
		return f.failCreate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) FindByID(_ context.Context, _ int64) (*models.AuditLog, error) {
	return nil, domainErrors.ErrNotFound
}

func (f *fakeAuditRepo) List(_ context.Context, _ models.ListAuditLogParams) ([]*models.AuditLog, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.AuditLog(nil), f.entries...), len(f.entries), nil
}

func (f *fakeAuditRepo) stored() []*models.AuditLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.AuditLog(nil), f.entries...)
}

func TestAuditRecorder_PersistsRecordedEvents(t *testing.T) {
	repo := &fakeAuditRepo{}
	recorder := NewAuditRecorder(repo, 16, zap.NewNop())

	actor := uuid.New()
	recorder.Record(models.AuditEvent{
		ActorID:    &actor,
		Action:     models.AuditActionTokenRevoked,
		TargetType: models.AuditTargetToken,
		TargetID:   "1f1e9a4e",
		Status:     models.AuditLogStatusSuccess,
		Client:     testClient,
		Details:    map[string]interface{}{"reason": "logout"},
	})
	recorder.Close()

	entries := repo.stored()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, models.AuditActionTokenRevoked, entry.Action)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, actor, *entry.ActorID)
	require.NotNil(t, entry.TargetType)
	assert.Equal(t, models.AuditTargetToken, *entry.TargetType)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, "1f1e9a4e", *entry.TargetID)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, testClient.IPAddress, *entry.IPAddress)
	assert.Equal(t, models.AuditLogStatusSuccess, entry.Status)
	assert.JSONEq(t, `{"reason":"logout"}`, string(entry.Details))
}

func TestAuditRecorder_EmptyTargetBecomesNull(t *testing.T) {
	repo := &fakeAuditRepo{}
	recorder := NewAuditRecorder(repo, 16, zap.NewNop())

	recorder.Record(models.AuditEvent{
		Action: models.AuditActionTokensCleaned,
		Status: models.AuditLogStatusSuccess,
	})
	recorder.Close()

	entries := repo.stored()
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].ActorID)
	assert.Nil(t, entries[0].TargetType)
	assert.Nil(t, entries[0].TargetID)
	assert.Nil(t, entries[0].IPAddress)
	assert.Nil(t, entries[0].UserAgent)
}

func TestAuditRecorder_FullQueueDropsInsteadOfBlocking(t *testing.T) {
	repo := &fakeAuditRepo{
		entered: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
	recorder := NewAuditRecorder(repo, 1, zap.NewNop())

	// First event is picked up by the writer and parked at the gate.
	recorder.Record(models.AuditEvent{Action: "first", Status: models.AuditLogStatusSuccess})
	<-repo.entered

	// Second fills the queue; third has nowhere to go and must be dropped
	// without blocking the caller.
	recorder.Record(models.AuditEvent{Action: "second", Status: models.AuditLogStatusSuccess})
	recorder.Record(models.AuditEvent{Action: "third", Status: models.AuditLogStatusSuccess})

	close(repo.gate)
	go func() {
		for range repo.entered {
		}
	}()
	recorder.Close()
	close(repo.entered)

	entries := repo.stored()
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Action)
	assert.Equal(t, "second", entries[1].Action)
}

func TestAuditRecorder_RecordAfterCloseIsIgnored(t *testing.T) {
	repo := &fakeAuditRepo{}
	recorder := NewAuditRecorder(repo, 4, zap.NewNop())
	recorder.Close()

	assert.NotPanics(t, func() {
		recorder.Record(models.AuditEvent{Action: "late", Status: models.AuditLogStatusSuccess})
	})
	assert.Empty(t, repo.stored())
}

func TestAuditRecorder_WriteFailureIsSwallowed(t *testing.T) {
	repo := &fakeAuditRepo{failCreate: errors.New("insert failed")}
	recorder := NewAuditRecorder(repo, 4, zap.NewNop())

	recorder.Record(models.AuditEvent{Action: "doomed", Status: models.AuditLogStatusFailure})
	assert.NotPanics(t, recorder.Close)
	assert.Empty(t, repo.stored())
}
