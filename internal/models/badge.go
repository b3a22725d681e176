package models

import "time"

// DefaultBadgeValue is the badge count granted per award.
const DefaultBadgeValue = 1

// Badge is a catalog-wide reward definition. Badges are never updated once created.
type Badge struct {
	ID           int64     `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	ExpValue     int       `db:"exp_value" json:"expValue"`
	BadgeValue   int       `db:"badge_value" json:"badgeValue"`
	IsRepeatable bool      `db:"is_repeatable" json:"isRepeatable"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}
