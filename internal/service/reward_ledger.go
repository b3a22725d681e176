package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-incentive-api/internal/models"
)

type ledgerWriter interface {
	GetBadge(ctx context.Context, id int64) (*models.Badge, error)
	AppendLedgerEntries(ctx context.Context, entries []models.LedgerEntry) error
}

// RewardLedger turns an approved claim into ledger entries, one per reward badge.
// It must run in the same unit of work as the approving transition.
type RewardLedger struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewRewardLedger constructs the ledger generator.
func NewRewardLedger(logger *zap.Logger) *RewardLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RewardLedger{logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Grant appends the entries for claimID and returns them. Missing badges are skipped.
func (l *RewardLedger) Grant(ctx context.Context, store ledgerWriter, offer *models.Offer, studentUserID, claimID, createdBy int64) ([]models.LedgerEntry, error) {
	if offer == nil {
		return nil, nil
	}
	at := l.now()
	entries := make([]models.LedgerEntry, 0, len(offer.RewardBadgeIDs))
	for _, badgeID := range offer.RewardBadgeIDs {
		badge, err := store.GetBadge(ctx, badgeID)
		if errors.Is(err, sql.ErrNoRows) {
			l.logger.Warn("reward badge missing, skipped", zap.Int64("badge_id", badgeID), zap.Int64("claim_id", claimID))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load reward badge %d: %w", badgeID, err)
		}
		id := badge.ID
		entries = append(entries, models.LedgerEntry{
			SubjectID:  offer.SubjectID,
			UserID:     studentUserID,
			SourceType: models.LedgerSourceOfferClaim,
			SourceID:   claimID,
			BadgeID:    &id,
			ExpDelta:   badge.ExpValue,
			BadgeDelta: badge.BadgeValue,
			CreatedBy:  createdBy,
			CreatedAt:  at,
		})
	}
	if len(entries) == 0 {
		return entries, nil
	}
	if err := store.AppendLedgerEntries(ctx, entries); err != nil {
		return nil, fmt.Errorf("append ledger entries: %w", err)
	}
	return entries, nil
}
