package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-incentive-api/internal/dto"
	"github.com/noah-isme/sma-incentive-api/internal/models"
	appErrors "github.com/noah-isme/sma-incentive-api/pkg/errors"
)

type stubAuditStore struct {
	mu       sync.Mutex
	logs     []*models.AuditLog
	failures int
	filter   models.AuditFilter
}

func (s *stubAuditStore) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("transient")
	}
	s.logs = append(s.logs, log)
	return nil
}

func (s *stubAuditStore) ListAuditLogs(_ context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = filter
	out := make([]models.AuditLog, 0, len(s.logs))
	for _, log := range s.logs {
		out = append(out, *log)
	}
	return out, nil
}

func (s *stubAuditStore) snapshot() []*models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.AuditLog(nil), s.logs...)
}

func TestAuditServicePersistsQueuedEntries(t *testing.T) {
	store := &stubAuditStore{}
	svc := NewAuditService(store, nil, AuditConfig{Workers: 2, MaxRetries: 1}, nil)
	svc.Start(context.Background())

	svc.Record(context.Background(), AuditEntry{ActorID: 3, Action: models.AuditActionClaimAccept, Resource: "claim", ResourceID: 11, Values: map[string]int{"offerId": 4}})
	svc.Record(context.Background(), AuditEntry{Action: models.AuditActionLogin, Resource: "auth"})
	svc.Stop()

	logs := store.snapshot()
	require.Len(t, logs, 2)
	byAction := map[string]*models.AuditLog{}
	for _, log := range logs {
		byAction[log.Action] = log
	}

	accept := byAction[models.AuditActionClaimAccept]
	require.NotNil(t, accept)
	require.NotNil(t, accept.UserID)
	assert.Equal(t, int64(3), *accept.UserID)
	require.NotNil(t, accept.ResourceID)
	assert.Equal(t, int64(11), *accept.ResourceID)
	require.NotNil(t, accept.NewValues)
	var values map[string]int
	require.NoError(t, json.Unmarshal([]byte(*accept.NewValues), &values))
	assert.Equal(t, 4, values["offerId"])

	login := byAction[models.AuditActionLogin]
	require.NotNil(t, login)
	assert.Nil(t, login.UserID)
	assert.Nil(t, login.NewValues)
}

func TestAuditServiceRetriesTransientFailures(t *testing.T) {
	store := &stubAuditStore{failures: 1}
	svc := NewAuditService(store, nil, AuditConfig{Workers: 1, MaxRetries: 2}, nil)
	svc.Start(context.Background())

	svc.Record(context.Background(), AuditEntry{Action: models.AuditActionOfferPublish, Resource: "offer", ResourceID: 1})
	require.Eventually(t, func() bool { return len(store.snapshot()) == 1 }, 3*time.Second, 20*time.Millisecond)
	svc.Stop()
}

func TestAuditServiceList(t *testing.T) {
	store := &stubAuditStore{}
	svc := NewAuditService(store, nil, AuditConfig{}, nil)

	_, err := svc.List(context.Background(), dto.AuditQuery{Resource: "claim", Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, models.AuditFilter{Resource: "claim", Limit: 20}, store.filter)

	_, err = svc.List(context.Background(), dto.AuditQuery{Limit: 501})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAuditServiceNilRecordIsNoop(t *testing.T) {
	var svc *AuditService
	svc.Record(context.Background(), AuditEntry{Action: "x"})
}
