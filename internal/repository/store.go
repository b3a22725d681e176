package repository

import (
	"context"
	"time"

	"github.com/noah-isme/sma-incentive-api/internal/models"
)

// Lookups that find nothing return sql.ErrNoRows in every implementation.

// CatalogStore persists subjects and badges.
type CatalogStore interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	GetSubject(ctx context.Context, id int64) (*models.Subject, error)
	CreateSubject(ctx context.Context, subject *models.Subject) error
	ListBadges(ctx context.Context) ([]models.Badge, error)
	GetBadge(ctx context.Context, id int64) (*models.Badge, error)
	CreateBadge(ctx context.Context, badge *models.Badge) error
}

// OfferStore persists offers and their reward associations.
type OfferStore interface {
	CreateOffer(ctx context.Context, offer *models.Offer) error
	GetOffer(ctx context.Context, id int64) (*models.Offer, error)
	ListOffers(ctx context.Context, filter models.OfferFilter) ([]models.Offer, error)
	UpdateOffer(ctx context.Context, offer *models.Offer) (bool, error)
	ReplaceOfferRewards(ctx context.Context, offerID int64, badgeIDs []int64) error
	TransitionOfferStatus(ctx context.Context, params OfferTransition) (bool, error)
}

// ClaimStore persists claims and their evidence.
type ClaimStore interface {
	CreateClaim(ctx context.Context, claim *models.Claim) (bool, error)
	GetClaim(ctx context.Context, id int64) (*models.Claim, error)
	FindClaim(ctx context.Context, offerID, studentUserID int64) (*models.Claim, error)
	ListClaims(ctx context.Context, filter models.ClaimFilter) ([]models.Claim, error)
	TransitionClaim(ctx context.Context, params ClaimTransition) (bool, error)
	AddClaimEvidence(ctx context.Context, evidence *models.ClaimEvidence) error
}

// LedgerStore is append-only: there is no update or delete.
type LedgerStore interface {
	AppendLedgerEntries(ctx context.Context, entries []models.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error)
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, role models.UserRole) ([]models.User, error)
}

// AuditStore persists audit trail records.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	ListAuditLogs(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error)
}

// Store is the full persistence boundary of the incentive workflow.
type Store interface {
	CatalogStore
	OfferStore
	ClaimStore
	LedgerStore
	UserStore
	AuditStore

	// WithinTx runs fn as one unit of work. Nested calls join the outer unit.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// OfferTransition moves an offer between statuses when id, subject and current status match.
type OfferTransition struct {
	ID        int64
	SubjectID int64
	From      models.OfferStatus
	To        models.OfferStatus
	At        time.Time
}

// ClaimTransition moves a claim from one status to another. A zero StudentUserID
// matches any student; nil pointer fields are left untouched.
type ClaimTransition struct {
	ID            int64
	StudentUserID int64
	From          models.ClaimStatus
	To            models.ClaimStatus
	Evidence      *string
	DecisionNote  *string
	SubmittedAt   *time.Time
	DecidedAt     *time.Time
	DecidedBy     *int64
}
