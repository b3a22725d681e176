package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-incentive-api/internal/models"
)

const claimColumns = `c.id, c.offer_id, c.student_user_id, c.status, c.evidence, c.decision_note, c.accepted_at, c.submitted_at, c.decided_at, c.decided_by`

// CreateClaim inserts a claim unless one already exists for the offer and student.
// It reports false, without error, when the pair is taken.
func (s *SQLStore) CreateClaim(ctx context.Context, claim *models.Claim) (bool, error) {
	defer s.observe("create_claim", time.Now())
	claim.AcceptedAt = nowUTC(claim.AcceptedAt)
	if claim.Status == "" {
		claim.Status = models.ClaimStatusAccepted
	}
	id, err := s.insertReturningID(ctx,
		`INSERT INTO offer_claims (offer_id, student_user_id, status, accepted_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (offer_id, student_user_id) DO NOTHING
		RETURNING id`,
		claim.OfferID, claim.StudentUserID, claim.Status, claim.AcceptedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create claim: %w", err)
	}
	claim.ID = id
	return true, nil
}

// GetClaim returns a claim by id.
func (s *SQLStore) GetClaim(ctx context.Context, id int64) (*models.Claim, error) {
	defer s.observe("get_claim", time.Now())
	var claim models.Claim
	query := s.rebind(`SELECT ` + claimColumns + ` FROM offer_claims c WHERE c.id = ?`)
	if err := sqlx.GetContext(ctx, s.ext, &claim, query, id); err != nil {
		return nil, err
	}
	return &claim, nil
}

// FindClaim returns the claim a student holds on an offer.
func (s *SQLStore) FindClaim(ctx context.Context, offerID, studentUserID int64) (*models.Claim, error) {
	defer s.observe("find_claim", time.Now())
	var claim models.Claim
	query := s.rebind(`SELECT ` + claimColumns + ` FROM offer_claims c WHERE c.offer_id = ? AND c.student_user_id = ?`)
	if err := sqlx.GetContext(ctx, s.ext, &claim, query, offerID, studentUserID); err != nil {
		return nil, err
	}
	return &claim, nil
}

// ListClaims returns claims matching the filter ordered by id.
func (s *SQLStore) ListClaims(ctx context.Context, filter models.ClaimFilter) ([]models.Claim, error) {
	defer s.observe("list_claims", time.Now())
	var conditions []string
	var args []interface{}
	if filter.SubjectID > 0 {
		conditions = append(conditions, "o.subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.StudentUserID > 0 {
		conditions = append(conditions, "c.student_user_id = ?")
		args = append(args, filter.StudentUserID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "c.status = ?")
		args = append(args, filter.Status)
	}
	query := `SELECT ` + claimColumns + ` FROM offer_claims c JOIN offers o ON o.id = c.offer_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY c.id ASC"

	claims := []models.Claim{}
	if err := sqlx.SelectContext(ctx, s.ext, &claims, s.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claims, nil
}

// TransitionClaim applies a guarded status change and the optional column updates that go with it.
func (s *SQLStore) TransitionClaim(ctx context.Context, params ClaimTransition) (bool, error) {
	defer s.observe("transition_claim", time.Now())
	sets := []string{"status = ?"}
	args := []interface{}{params.To}
	if params.Evidence != nil {
		sets = append(sets, "evidence = ?")
		args = append(args, *params.Evidence)
	}
	if params.DecisionNote != nil {
		sets = append(sets, "decision_note = ?")
		args = append(args, *params.DecisionNote)
	}
	if params.SubmittedAt != nil {
		sets = append(sets, "submitted_at = ?")
		args = append(args, *params.SubmittedAt)
	}
	if params.DecidedAt != nil {
		sets = append(sets, "decided_at = ?")
		args = append(args, *params.DecidedAt)
	}
	if params.DecidedBy != nil {
		sets = append(sets, "decided_by = ?")
		args = append(args, *params.DecidedBy)
	}

	query := "UPDATE offer_claims SET " + strings.Join(sets, ", ") + " WHERE id = ? AND status = ?"
	args = append(args, params.ID, params.From)
	if params.StudentUserID > 0 {
		query += " AND student_user_id = ?"
		args = append(args, params.StudentUserID)
	}

	result, err := s.ext.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return false, fmt.Errorf("transition claim: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check claim transition rows: %w", err)
	}
	return rows > 0, nil
}

// AddClaimEvidence records a piece of proof attached on submission.
func (s *SQLStore) AddClaimEvidence(ctx context.Context, evidence *models.ClaimEvidence) error {
	defer s.observe("add_claim_evidence", time.Now())
	evidence.CreatedAt = nowUTC(evidence.CreatedAt)
	if evidence.Type == "" {
		evidence.Type = models.EvidenceTypeText
	}
	id, err := s.insertReturningID(ctx,
		`INSERT INTO offer_claim_evidence (claim_id, type, value, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		evidence.ClaimID, evidence.Type, evidence.Value, evidence.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add claim evidence: %w", err)
	}
	evidence.ID = id
	return nil
}
