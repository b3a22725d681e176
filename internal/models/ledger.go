package models

import "time"

// LedgerSourceOfferClaim tags entries generated by an approved offer claim.
const LedgerSourceOfferClaim = "offer_claim"

// LedgerEntry is an immutable exp/badge credit. Entries are only ever appended.
type LedgerEntry struct {
	ID         int64     `db:"id" json:"id"`
	SubjectID  int64     `db:"subject_id" json:"subjectId"`
	UserID     int64     `db:"user_id" json:"userId"`
	SourceType string    `db:"source_type" json:"sourceType"`
	SourceID   int64     `db:"source_id" json:"sourceId"`
	BadgeID    *int64    `db:"badge_id" json:"badgeId"`
	ExpDelta   int       `db:"exp_delta" json:"expDelta"`
	BadgeDelta int       `db:"badge_delta" json:"badgeDelta"`
	CreatedBy  int64     `db:"created_by" json:"createdBy"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// LedgerFilter selects a student's entries, optionally within one subject.
type LedgerFilter struct {
	UserID    int64
	SubjectID int64
	SourceID  int64
}

// ProfileSummary is the aggregate derived purely from ledger entries.
type ProfileSummary struct {
	UserID      int64         `json:"userId"`
	SubjectID   *int64        `json:"subjectId,omitempty"`
	ExpTotal    int           `json:"expTotal"`
	BadgeTotals map[int64]int `json:"badgeTotals"`
}
