package models

import "time"

// OfferStatus captures the offer lifecycle. Archived is terminal.
type OfferStatus string

const (
	OfferStatusPublished OfferStatus = "published"
	OfferStatusArchived  OfferStatus = "archived"
)

// Offer is a teacher-published incentive redeemable for badge rewards.
type Offer struct {
	ID               int64       `db:"id" json:"id"`
	SubjectID        int64       `db:"subject_id" json:"subjectId"`
	CreatedBy        int64       `db:"created_by" json:"createdBy"`
	Title            string      `db:"title" json:"title"`
	Description      string      `db:"description" json:"description"`
	Status           OfferStatus `db:"status" json:"status"`
	RequiresApproval bool        `db:"requires_approval" json:"requiresApproval"`
	RewardBadgeIDs   []int64     `db:"-" json:"rewardBadgeIds"`
	CreatedAt        time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updatedAt"`
}

// IsPublished reports whether claims may still be accepted against the offer.
func (o *Offer) IsPublished() bool {
	return o != nil && o.Status == OfferStatusPublished
}

// OfferFilter narrows offer listings.
type OfferFilter struct {
	SubjectID int64
	Status    OfferStatus
}

// UniqueBadgeIDs keeps the first occurrence of every positive id, preserving order.
func UniqueBadgeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	result := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
