package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-incentive-api/internal/models"
)

const defaultAuditLimit = 100

// CreateAuditLog inserts a new audit log entry.
func (s *SQLStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	defer s.observe("create_audit_log", time.Now())
	log.CreatedAt = nowUTC(log.CreatedAt)
	id, err := s.insertReturningID(ctx,
		`INSERT INTO audit_logs (user_id, action, resource, resource_id, new_values, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		log.UserID, log.Action, log.Resource, log.ResourceID, log.NewValues, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	log.ID = id
	return nil
}

// ListAuditLogs returns the most recent entries first.
func (s *SQLStore) ListAuditLogs(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	defer s.observe("list_audit_logs", time.Now())
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = defaultAuditLimit
	}
	query := `SELECT id, user_id, action, resource, resource_id, new_values, created_at FROM audit_logs`
	var args []interface{}
	if filter.Resource != "" {
		query += " WHERE resource = ?"
		args = append(args, filter.Resource)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	logs := []models.AuditLog{}
	if err := sqlx.SelectContext(ctx, s.ext, &logs, s.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
