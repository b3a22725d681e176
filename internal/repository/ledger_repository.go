package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-incentive-api/internal/models"
)

// AppendLedgerEntries inserts all entries in a single transaction and assigns their ids.
func (s *SQLStore) AppendLedgerEntries(ctx context.Context, entries []models.LedgerEntry) error {
	defer s.observe("append_ledger", time.Now())
	if len(entries) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *SQLStore) error {
		for i := range entries {
			entry := &entries[i]
			entry.CreatedAt = nowUTC(entry.CreatedAt)
			id, err := tx.insertReturningID(ctx,
				`INSERT INTO reward_ledger (subject_id, user_id, source_type, source_id, badge_id, exp_delta, badge_delta, created_by, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
				entry.SubjectID, entry.UserID, entry.SourceType, entry.SourceID, entry.BadgeID,
				entry.ExpDelta, entry.BadgeDelta, entry.CreatedBy, entry.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("append ledger entry: %w", err)
			}
			entry.ID = id
		}
		return nil
	})
}

// ListLedgerEntries returns entries matching the filter in insertion order.
func (s *SQLStore) ListLedgerEntries(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error) {
	defer s.observe("list_ledger", time.Now())
	var conditions []string
	var args []interface{}
	if filter.UserID > 0 {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.SubjectID > 0 {
		conditions = append(conditions, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.SourceID > 0 {
		conditions = append(conditions, "source_id = ?")
		args = append(args, filter.SourceID)
	}
	query := `SELECT id, subject_id, user_id, source_type, source_id, badge_id, exp_delta, badge_delta, created_by, created_at FROM reward_ledger`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id ASC"

	entries := []models.LedgerEntry{}
	if err := sqlx.SelectContext(ctx, s.ext, &entries, s.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}
