// File: internal/service/helpers_test.go
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/gameplatform/session-service/internal/domain/errors"
	"github.com/gameplatform/session-service/internal/domain/models"
	domainService "github.com/gameplatform/session-service/internal/domain/service"
	eventModels "github.com/gameplatform/session-service/internal/events/models"
)

// fakeTokenStore is an in-memory RefreshTokenRepository with the same
// compare-and-swap semantics as the Postgres implementation, so concurrency
// tests exercise real winner/loser races.
type fakeTokenStore struct {
	mu     sync.RWMutex
	tokens map[uuid.UUID]*models.RefreshToken

	failCreate         error
	failFindBySelector error
	failExpireTimedOut error
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[uuid.UUID]*models.RefreshToken)}
}

func cloneToken(t *models.RefreshToken) *models.RefreshToken {
	c := *t
	return &c
}

func (s *fakeTokenStore) Create(_ context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	for _, existing := range s.tokens {
		if existing.Selector == token.Selector {
			return domainErrors.ErrDuplicateValue
		}
	}
	s.tokens[token.ID] = cloneToken(token)
	return nil
}

func (s *fakeTokenStore) FindByID(_ context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return cloneToken(token), nil
}

func (s *fakeTokenStore) FindBySelector(_ context.Context, selector string) (*models.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failFindBySelector != nil {
		return nil, s.failFindBySelector
	}
	for _, token := range s.tokens {
		if token.Selector == selector {
			return cloneToken(token), nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (s *fakeTokenStore) TransitionStatus(_ context.Context, id uuid.UUID, from, to models.TokenStatus, reason *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if token.Status != from {
		return fmt.Errorf("token %s is %s, not %s: %w", id, token.Status, from, domainErrors.ErrStatusConflict)
	}
	token.Status = to
	token.StatusChangedAt = time.Now().UTC()
	if reason != nil {
		token.RevokedReason = reason
	}
	return nil
}

func (s *fakeTokenStore) ListActiveByUser(_ context.Context, userID uuid.UUID) ([]*models.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now().UTC()
	var out []*models.RefreshToken
	for _, token := range s.tokens {
		if token.UserID == userID && token.Status == models.TokenStatusActive && token.ExpiresAt.After(now) {
			out = append(out, cloneToken(token))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}

func (s *fakeTokenStore) ListActiveBySession(_ context.Context, sessionID uuid.UUID) ([]*models.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.RefreshToken
	for _, token := range s.tokens {
		if token.SessionID == sessionID && token.Status == models.TokenStatusActive {
			out = append(out, cloneToken(token))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

func (s *fakeTokenStore) RevokeAllActiveByUser(_ context.Context, userID uuid.UUID, reason *string, excludeSessionID *uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var revoked int64
	for _, token := range s.tokens {
		if token.UserID != userID || token.Status != models.TokenStatusActive {
			continue
		}
		if excludeSessionID != nil && token.SessionID == *excludeSessionID {
			continue
		}
		token.Status = models.TokenStatusRevoked
		token.StatusChangedAt = time.Now().UTC()
		if reason != nil {
			token.RevokedReason = reason
		}
		revoked++
	}
	return revoked, nil
}

func (s *fakeTokenStore) ExpireTimedOut(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failExpireTimedOut != nil {
		return 0, s.failExpireTimedOut
	}
	var expired int64
	for _, token := range s.tokens {
		if token.Status == models.TokenStatusActive && !token.ExpiresAt.After(now) {
			token.Status = models.TokenStatusExpired
			token.StatusChangedAt = now
			expired++
		}
	}
	return expired, nil
}

func (s *fakeTokenStore) DeleteTerminalBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, token := range s.tokens {
		if token.Status == models.TokenStatusActive {
			continue
		}
		if token.ExpiresAt.Before(cutoff) || token.StatusChangedAt.Before(cutoff) {
			delete(s.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *fakeTokenStore) CountActive(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now().UTC()
	var count int64
	for _, token := range s.tokens {
		if token.Status == models.TokenStatusActive && token.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

// insert seeds a row directly, bypassing Create's selector check.
func (s *fakeTokenStore) insert(token *models.RefreshToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.ID] = cloneToken(token)
}

// get returns the stored row or nil.
func (s *fakeTokenStore) get(id uuid.UUID) *models.RefreshToken {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[id]
	if !ok {
		return nil
	}
	return cloneToken(token)
}

// all returns every stored row.
func (s *fakeTokenStore) all() []*models.RefreshToken {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.RefreshToken, 0, len(s.tokens))
	for _, token := range s.tokens {
		out = append(out, cloneToken(token))
	}
	return out
}

// countByStatus tallies rows in a session by status.
func (s *fakeTokenStore) countByStatus(sessionID uuid.UUID, status models.TokenStatus) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, token := range s.tokens {
		if token.SessionID == sessionID && token.Status == status {
			count++
		}
	}
	return count
}

// newTokenRow builds an ACTIVE row for direct insertion when the test never
// presents the secret. Selector is random so rows coexist.
func newTokenRow(mutate ...func(*models.RefreshToken)) *models.RefreshToken {
	now := time.Now().UTC()
	token := &models.RefreshToken{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		SessionID:       uuid.New(),
		DeviceID:        "device-1",
		Role:            "player",
		Selector:        uuid.NewString(),
		SecretSalt:      []byte("salt"),
		SecretHash:      []byte("hash"),
		Status:          models.TokenStatusActive,
		IssuedAt:        now,
		ExpiresAt:       now.Add(24 * time.Hour),
		StatusChangedAt: now,
	}
	for _, m := range mutate {
		m(token)
	}
	return token
}

// recordingAuditSink captures audit events synchronously for assertions.
type recordingAuditSink struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (r *recordingAuditSink) Record(event models.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAuditSink) byAction(action string) []models.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AuditEvent
	for _, event := range r.events {
		if event.Action == action {
			out = append(out, event)
		}
	}
	return out
}

func (r *recordingAuditSink) lastByAction(action string) (models.AuditEvent, bool) {
	matches := r.byAction(action)
	if len(matches) == 0 {
		return models.AuditEvent{}, false
	}
	return matches[len(matches)-1], true
}

// publishedEvent is one captured EventPublisher call.
type publishedEvent struct {
	eventType eventModels.EventType
	subject   string
	payload   interface{}
}

// recordingEventPublisher captures published events for assertions.
type recordingEventPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (r *recordingEventPublisher) Publish(_ context.Context, eventType eventModels.EventType, subject string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{eventType: eventType, subject: subject, payload: payload})
	return r.err
}

func (r *recordingEventPublisher) byType(eventType eventModels.EventType) []publishedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []publishedEvent
	for _, event := range r.events {
		if event.eventType == eventType {
			out = append(out, event)
		}
	}
	return out
}

// fakeReplayTracker counts reuse incidents in memory.
type fakeReplayTracker struct {
	mu     sync.Mutex
	counts map[uuid.UUID]int64
}

func newFakeReplayTracker() *fakeReplayTracker {
	return &fakeReplayTracker{counts: make(map[uuid.UUID]int64)}
}

func (f *fakeReplayTracker) RecordReuse(_ context.Context, sessionID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[sessionID]++
	return f.counts[sessionID], nil
}

func (f *fakeReplayTracker) ReuseCount(_ context.Context, sessionID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[sessionID], nil
}

// stubCodec mints predictable access tokens so tests can assert claim
// continuity without RSA keys.
type stubCodec struct {
	failMint error
}

func (c *stubCodec) GenerateAccessToken(userID, sessionID, deviceID, role string) (string, *domainService.AccessTokenClaims, error) {
	if c.failMint != nil {
		return "", nil, c.failMint
	}
	claims := &domainService.AccessTokenClaims{
		UserID:    userID,
		SessionID: sessionID,
		DeviceID:  deviceID,
		Role:      role,
	}
	return strings.Join([]string{"at", userID, sessionID, deviceID, role}, "|"), claims, nil
}

func (c *stubCodec) ValidateAccessToken(tokenString string) (*domainService.AccessTokenClaims, error) {
	parts := strings.Split(tokenString, "|")
	if len(parts) != 5 || parts[0] != "at" {
		return nil, domainErrors.ErrTokenMalformed
	}
	return &domainService.AccessTokenClaims{
		UserID:    parts[1],
		SessionID: parts[2],
		DeviceID:  parts[3],
		Role:      parts[4],
	}, nil
}

func (c *stubCodec) GetJWKS() (map[string]interface{}, error) {
	return map[string]interface{}{"keys": []interface{}{}}, nil
}
