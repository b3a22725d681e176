package models

import "time"

// ClaimStatus captures workflow states for offer claims.
type ClaimStatus string

const (
	ClaimStatusAccepted  ClaimStatus = "accepted"
	ClaimStatusSubmitted ClaimStatus = "submitted"
	ClaimStatusApproved  ClaimStatus = "approved"
	ClaimStatusRejected  ClaimStatus = "rejected"
)

// IsTerminal reports whether no further transition can leave the status.
func (s ClaimStatus) IsTerminal() bool {
	return s == ClaimStatusApproved || s == ClaimStatusRejected
}

// Claim is a student's attempt to redeem an offer.
type Claim struct {
	ID            int64       `db:"id" json:"id"`
	OfferID       int64       `db:"offer_id" json:"offerId"`
	StudentUserID int64       `db:"student_user_id" json:"studentUserId"`
	Status        ClaimStatus `db:"status" json:"status"`
	Evidence      *string     `db:"evidence" json:"evidence,omitempty"`
	DecisionNote  *string     `db:"decision_note" json:"decisionNote,omitempty"`
	AcceptedAt    time.Time   `db:"accepted_at" json:"acceptedAt"`
	SubmittedAt   *time.Time  `db:"submitted_at" json:"submittedAt,omitempty"`
	DecidedAt     *time.Time  `db:"decided_at" json:"decidedAt,omitempty"`
	DecidedBy     *int64      `db:"decided_by" json:"decidedBy,omitempty"`
}

// ClaimFilter narrows claim listings. Zero values mean "any".
type ClaimFilter struct {
	SubjectID     int64
	StudentUserID int64
	Status        ClaimStatus
}

// EvidenceTypeText marks free-form textual proof.
const EvidenceTypeText = "text"

// ClaimEvidence is the side-table record written when a claim is submitted.
type ClaimEvidence struct {
	ID        int64     `db:"id" json:"id"`
	ClaimID   int64     `db:"claim_id" json:"claimId"`
	Type      string    `db:"type" json:"type"`
	Value     string    `db:"value" json:"value"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
