package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin         = "LOGIN"
	AuditActionSubjectCreate = "SUBJECT_CREATE"
	AuditActionBadgeCreate   = "BADGE_CREATE"
	AuditActionOfferPublish  = "OFFER_PUBLISH"
	AuditActionOfferUpdate   = "OFFER_UPDATE"
	AuditActionOfferArchive  = "OFFER_ARCHIVE"
	AuditActionClaimAccept   = "CLAIM_ACCEPT"
	AuditActionClaimSubmit   = "CLAIM_SUBMIT"
	AuditActionClaimDecide   = "CLAIM_DECIDE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         int64     `db:"id" json:"id"`
	UserID     *int64    `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *int64    `db:"resource_id" json:"resourceId,omitempty"`
	NewValues  *string   `db:"new_values" json:"newValues,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	Resource string
	Limit    int
}
