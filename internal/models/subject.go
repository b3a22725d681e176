package models

import "time"

// Subject groups offers under a teacher-owned topic.
type Subject struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	OwnerUserID int64     `db:"owner_user_id" json:"ownerUserId"`
	IsArchived  bool      `db:"is_archived" json:"isArchived"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
