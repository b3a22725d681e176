package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-incentive-api/internal/dto"
	"github.com/noah-isme/sma-incentive-api/internal/models"
	appErrors "github.com/noah-isme/sma-incentive-api/pkg/errors"
	"github.com/noah-isme/sma-incentive-api/pkg/jobs"
)

const auditJobType = "audit_log"

type auditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	ListAuditLogs(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)
}

// auditRecorder is what workflow services need from the audit trail.
type auditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry describes an applied mutation worth keeping in the audit trail.
type AuditEntry struct {
	ActorID    int64
	Action     string
	Resource   string
	ResourceID int64
	Values     interface{}
}

// AuditConfig sizes the background writer.
type AuditConfig struct {
	Workers    int
	MaxRetries int
}

// AuditService persists audit records in the background so workflow calls never wait on them.
type AuditService struct {
	store   auditStore
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditService constructs the service and its queue. Call Start before recording.
func NewAuditService(store auditStore, metrics *MetricsService, cfg AuditConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AuditService{store: store, metrics: metrics, logger: logger}
	svc.queue = jobs.NewQueue("audit", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: 500 * time.Millisecond,
		Logger:     logger,
	})
	return svc
}

// Start launches the background writers.
func (s *AuditService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop flushes buffered records and stops the writers.
func (s *AuditService) Stop() {
	s.queue.Stop()
}

// Record queues an audit entry. Failures are logged and counted, never returned.
func (s *AuditService) Record(_ context.Context, entry AuditEntry) {
	if s == nil {
		return
	}
	log, err := entry.toModel()
	if err != nil {
		s.logger.Warn("failed to encode audit values", zap.String("action", entry.Action), zap.Error(err))
		return
	}
	if err := s.queue.Enqueue(jobs.Job{Type: auditJobType, Payload: log}); err != nil {
		s.metrics.RecordAuditDropped()
		s.logger.Warn("failed to queue audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

// List returns the most recent audit records.
func (s *AuditService) List(ctx context.Context, query dto.AuditQuery) ([]models.AuditLog, error) {
	if query.Limit < 0 || query.Limit > 500 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "limit must be between 0 and 500")
	}
	logs, err := s.store.ListAuditLogs(ctx, models.AuditFilter{Resource: query.Resource, Limit: query.Limit})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list audit logs")
	}
	return logs, nil
}

func (s *AuditService) handle(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		s.logger.Error("unexpected audit payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	if err := s.store.CreateAuditLog(ctx, log); err != nil {
		return fmt.Errorf("persist audit log: %w", err)
	}
	return nil
}

func (e AuditEntry) toModel() (*models.AuditLog, error) {
	log := &models.AuditLog{
		Action:    e.Action,
		Resource:  e.Resource,
		CreatedAt: time.Now().UTC(),
	}
	if e.ActorID > 0 {
		actor := e.ActorID
		log.UserID = &actor
	}
	if e.ResourceID > 0 {
		id := e.ResourceID
		log.ResourceID = &id
	}
	if e.Values != nil {
		raw, err := json.Marshal(e.Values)
		if err != nil {
			return nil, err
		}
		values := string(raw)
		log.NewValues = &values
	}
	return log, nil
}
