package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-incentive-api/internal/models"
)

const badgeColumns = `id, title, description, exp_value, badge_value, is_repeatable, created_at`

// ListBadges returns the badge catalog ordered by id.
func (s *SQLStore) ListBadges(ctx context.Context) ([]models.Badge, error) {
	defer s.observe("list_badges", time.Now())
	query := `SELECT ` + badgeColumns + ` FROM badges ORDER BY id ASC`
	badges := []models.Badge{}
	if err := sqlx.SelectContext(ctx, s.ext, &badges, query); err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	return badges, nil
}

// GetBadge returns a badge by id.
func (s *SQLStore) GetBadge(ctx context.Context, id int64) (*models.Badge, error) {
	defer s.observe("get_badge", time.Now())
	query := s.rebind(`SELECT ` + badgeColumns + ` FROM badges WHERE id = ?`)
	var badge models.Badge
	if err := sqlx.GetContext(ctx, s.ext, &badge, query, id); err != nil {
		return nil, err
	}
	return &badge, nil
}

// CreateBadge persists a new badge and assigns its id.
func (s *SQLStore) CreateBadge(ctx context.Context, badge *models.Badge) error {
	defer s.observe("create_badge", time.Now())
	badge.CreatedAt = nowUTC(badge.CreatedAt)
	id, err := s.insertReturningID(ctx,
		`INSERT INTO badges (title, description, exp_value, badge_value, is_repeatable, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		badge.Title, badge.Description, badge.ExpValue, badge.BadgeValue, badge.IsRepeatable, badge.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create badge: %w", err)
	}
	badge.ID = id
	return nil
}
