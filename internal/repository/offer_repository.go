package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-incentive-api/internal/models"
)

const offerColumns = `id, subject_id, created_by, title, description, status, requires_approval, created_at, updated_at`

type offerRewardRow struct {
	OfferID int64 `db:"offer_id"`
	BadgeID int64 `db:"badge_id"`
}

// CreateOffer inserts the offer row and its reward associations in one transaction.
func (s *SQLStore) CreateOffer(ctx context.Context, offer *models.Offer) error {
	defer s.observe("create_offer", time.Now())
	now := time.Now().UTC()
	offer.CreatedAt = nowUTC(offer.CreatedAt)
	if offer.UpdatedAt.IsZero() {
		offer.UpdatedAt = now
	}
	if offer.Status == "" {
		offer.Status = models.OfferStatusPublished
	}
	return s.inTx(ctx, func(tx *SQLStore) error {
		id, err := tx.insertReturningID(ctx,
			`INSERT INTO offers (subject_id, created_by, title, description, status, requires_approval, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			offer.SubjectID, offer.CreatedBy, offer.Title, offer.Description, offer.Status, offer.RequiresApproval, offer.CreatedAt, offer.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("create offer: %w", err)
		}
		offer.ID = id
		return tx.insertRewards(ctx, id, offer.RewardBadgeIDs)
	})
}

// GetOffer returns an offer with its ordered reward badge ids.
func (s *SQLStore) GetOffer(ctx context.Context, id int64) (*models.Offer, error) {
	defer s.observe("get_offer", time.Now())
	query := s.rebind(`SELECT ` + offerColumns + ` FROM offers WHERE id = ?`)
	var offer models.Offer
	if err := sqlx.GetContext(ctx, s.ext, &offer, query, id); err != nil {
		return nil, err
	}
	rewards, err := s.rewardsFor(ctx, []int64{offer.ID})
	if err != nil {
		return nil, err
	}
	offer.RewardBadgeIDs = rewards[offer.ID]
	if offer.RewardBadgeIDs == nil {
		offer.RewardBadgeIDs = []int64{}
	}
	return &offer, nil
}

// ListOffers returns offers matching the filter ordered by id.
func (s *SQLStore) ListOffers(ctx context.Context, filter models.OfferFilter) ([]models.Offer, error) {
	defer s.observe("list_offers", time.Now())
	var conditions []string
	var args []interface{}
	if filter.SubjectID > 0 {
		conditions = append(conditions, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	query := `SELECT ` + offerColumns + ` FROM offers`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id ASC"

	offers := []models.Offer{}
	if err := sqlx.SelectContext(ctx, s.ext, &offers, s.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	if len(offers) == 0 {
		return offers, nil
	}

	ids := make([]int64, len(offers))
	for i := range offers {
		ids[i] = offers[i].ID
	}
	rewards, err := s.rewardsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range offers {
		offers[i].RewardBadgeIDs = rewards[offers[i].ID]
		if offers[i].RewardBadgeIDs == nil {
			offers[i].RewardBadgeIDs = []int64{}
		}
	}
	return offers, nil
}

// UpdateOffer rewrites the editable columns of a published offer within its subject.
// It reports false when no row matched.
func (s *SQLStore) UpdateOffer(ctx context.Context, offer *models.Offer) (bool, error) {
	defer s.observe("update_offer", time.Now())
	offer.UpdatedAt = nowUTC(offer.UpdatedAt)
	query := s.rebind(`UPDATE offers SET title = ?, description = ?, requires_approval = ?, updated_at = ?
	WHERE id = ? AND subject_id = ? AND status = ?`)
	result, err := s.ext.ExecContext(ctx, query,
		offer.Title, offer.Description, offer.RequiresApproval, offer.UpdatedAt,
		offer.ID, offer.SubjectID, models.OfferStatusPublished,
	)
	if err != nil {
		return false, fmt.Errorf("update offer: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check offer update rows: %w", err)
	}
	return rows > 0, nil
}

// ReplaceOfferRewards discards the current reward set and inserts the given one.
func (s *SQLStore) ReplaceOfferRewards(ctx context.Context, offerID int64, badgeIDs []int64) error {
	defer s.observe("replace_offer_rewards", time.Now())
	return s.inTx(ctx, func(tx *SQLStore) error {
		if _, err := tx.ext.ExecContext(ctx, tx.rebind(`DELETE FROM offer_rewards WHERE offer_id = ?`), offerID); err != nil {
			return fmt.Errorf("delete offer rewards: %w", err)
		}
		return tx.insertRewards(ctx, offerID, badgeIDs)
	})
}

// TransitionOfferStatus applies a guarded status change.
func (s *SQLStore) TransitionOfferStatus(ctx context.Context, params OfferTransition) (bool, error) {
	defer s.observe("transition_offer", time.Now())
	query := s.rebind(`UPDATE offers SET status = ?, updated_at = ? WHERE id = ? AND subject_id = ? AND status = ?`)
	result, err := s.ext.ExecContext(ctx, query, params.To, nowUTC(params.At), params.ID, params.SubjectID, params.From)
	if err != nil {
		return false, fmt.Errorf("transition offer: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check offer transition rows: %w", err)
	}
	return rows > 0, nil
}

func (s *SQLStore) insertRewards(ctx context.Context, offerID int64, badgeIDs []int64) error {
	query := s.rebind(`INSERT INTO offer_rewards (offer_id, badge_id, position, qty, exp_bonus) VALUES (?, ?, ?, 1, 0)`)
	for i, badgeID := range badgeIDs {
		if _, err := s.ext.ExecContext(ctx, query, offerID, badgeID, i); err != nil {
			return fmt.Errorf("insert offer reward: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) rewardsFor(ctx context.Context, offerIDs []int64) (map[int64][]int64, error) {
	query, args, err := sqlx.In(`SELECT offer_id, badge_id FROM offer_rewards WHERE offer_id IN (?) ORDER BY offer_id ASC, position ASC`, offerIDs)
	if err != nil {
		return nil, fmt.Errorf("build offer rewards query: %w", err)
	}
	var rows []offerRewardRow
	if err := sqlx.SelectContext(ctx, s.ext, &rows, s.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list offer rewards: %w", err)
	}
	result := make(map[int64][]int64, len(offerIDs))
	for _, row := range rows {
		result[row.OfferID] = append(result[row.OfferID], row.BadgeID)
	}
	return result, nil
}
