package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-incentive-api/internal/dto"
	"github.com/noah-isme/sma-incentive-api/internal/models"
	"github.com/noah-isme/sma-incentive-api/internal/repository"
	appErrors "github.com/noah-isme/sma-incentive-api/pkg/errors"
)

// ClaimConfig holds workflow knobs.
type ClaimConfig struct {
	// SystemActorID is recorded as the creator of ledger entries granted by auto-approval.
	SystemActorID int64
}

// ClaimService drives the accept, submit and decide transitions of claims.
//
// Invalid invocations never fail: they leave state untouched and report why through
// the returned Outcome. Errors are reserved for validation and storage failures.
type ClaimService struct {
	store     repository.Store
	ledger    *RewardLedger
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ClaimConfig
	now       func() time.Time
}

// ClaimServiceOption configures the service.
type ClaimServiceOption func(*ClaimService)

// WithClaimAudit records applied transitions in the audit trail.
func WithClaimAudit(audit auditRecorder) ClaimServiceOption {
	return func(s *ClaimService) {
		s.audit = audit
	}
}

// WithClaimMetrics counts outcomes and granted entries.
func WithClaimMetrics(metrics *MetricsService) ClaimServiceOption {
	return func(s *ClaimService) {
		s.metrics = metrics
	}
}

// NewClaimService constructs the claim workflow.
func NewClaimService(store repository.Store, ledger *RewardLedger, cfg ClaimConfig, validate *validator.Validate, logger *zap.Logger, opts ...ClaimServiceOption) *ClaimService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if ledger == nil {
		ledger = NewRewardLedger(logger)
	}
	svc := &ClaimService{
		store:     store,
		ledger:    ledger,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Accept opens a claim for the student on a published offer. Offers without approval
// are approved on the spot and credited to the ledger by the system actor. The
// returned claim is the new one, or the existing one on a repeated accept.
func (s *ClaimService) Accept(ctx context.Context, offerID, studentUserID int64) (claim *models.Claim, outcome models.Outcome, err error) {
	ctx, span := startSpan(ctx, "ClaimService.Accept",
		attribute.Int64("incentive.offer_id", offerID),
		attribute.Int64("incentive.student_id", studentUserID),
	)
	defer func() { finishSpan(span, outcome, err) }()

	if offerID <= 0 || studentUserID <= 0 {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "offer and student ids must be positive")
	}

	var granted []models.LedgerEntry
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		existing, err := tx.FindClaim(ctx, offerID, studentUserID)
		if err == nil {
			claim, outcome = existing, models.OutcomeDuplicate
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		offer, err := tx.GetOffer(ctx, offerID)
		if errors.Is(err, sql.ErrNoRows) {
			outcome = models.OutcomeNotFound
			return nil
		}
		if err != nil {
			return err
		}
		if !offer.IsPublished() {
			outcome = models.OutcomeInvalidState
			return nil
		}

		candidate := &models.Claim{
			OfferID:       offerID,
			StudentUserID: studentUserID,
			Status:        models.ClaimStatusAccepted,
			AcceptedAt:    s.now(),
		}
		if !offer.RequiresApproval {
			candidate.Status = models.ClaimStatusApproved
		}
		created, err := tx.CreateClaim(ctx, candidate)
		if err != nil {
			return err
		}
		if !created {
			// a concurrent accept won the insert
			claim, err = tx.FindClaim(ctx, offerID, studentUserID)
			outcome = models.OutcomeDuplicate
			return err
		}
		claim, outcome = candidate, models.OutcomeApplied

		if candidate.Status == models.ClaimStatusApproved {
			granted, err = s.ledger.Grant(ctx, tx, offer, studentUserID, candidate.ID, s.cfg.SystemActorID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, "", appErrors.Internal(err, "failed to accept offer")
	}

	s.metrics.RecordWorkflowOutcome("accept_offer", outcome)
	if !outcome.Applied() {
		s.logger.Debug("offer accept ignored", zap.Int64("offer_id", offerID), zap.Int64("student_id", studentUserID), zap.String("outcome", string(outcome)))
		return claim, outcome, nil
	}
	s.metrics.RecordLedgerEntries("auto", len(granted))
	s.logger.Info("offer accepted",
		zap.Int64("claim_id", claim.ID),
		zap.Int64("offer_id", offerID),
		zap.Int64("student_id", studentUserID),
		zap.String("status", string(claim.Status)),
		zap.Int("ledger_entries", len(granted)),
	)
	s.record(ctx, AuditEntry{ActorID: studentUserID, Action: models.AuditActionClaimAccept, Resource: "claim", ResourceID: claim.ID, Values: claim})
	return claim, outcome, nil
}

// Submit attaches evidence to the student's accepted claim and moves it to submitted.
func (s *ClaimService) Submit(ctx context.Context, claimID, studentUserID int64, req dto.SubmitClaimRequest) (outcome models.Outcome, err error) {
	ctx, span := startSpan(ctx, "ClaimService.Submit",
		attribute.Int64("incentive.claim_id", claimID),
		attribute.Int64("incentive.student_id", studentUserID),
	)
	defer func() { finishSpan(span, outcome, err) }()

	if claimID <= 0 || studentUserID <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "claim and student ids must be positive")
	}
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	evidence := strings.TrimSpace(req.Evidence)
	at := s.now()

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		ok, err := tx.TransitionClaim(ctx, repository.ClaimTransition{
			ID:            claimID,
			StudentUserID: studentUserID,
			From:          models.ClaimStatusAccepted,
			To:            models.ClaimStatusSubmitted,
			Evidence:      &evidence,
			SubmittedAt:   &at,
		})
		if err != nil {
			return err
		}
		if !ok {
			outcome, err = classifyClaimMiss(ctx, tx, claimID, studentUserID)
			return err
		}
		outcome = models.OutcomeApplied
		return tx.AddClaimEvidence(ctx, &models.ClaimEvidence{
			ClaimID:   claimID,
			Type:      models.EvidenceTypeText,
			Value:     evidence,
			CreatedAt: at,
		})
	})
	if err != nil {
		return "", appErrors.Internal(err, "failed to submit claim")
	}

	s.metrics.RecordWorkflowOutcome("submit_claim", outcome)
	if !outcome.Applied() {
		s.logger.Debug("claim submit ignored", zap.Int64("claim_id", claimID), zap.Int64("student_id", studentUserID), zap.String("outcome", string(outcome)))
		return outcome, nil
	}
	s.logger.Info("claim submitted", zap.Int64("claim_id", claimID), zap.Int64("student_id", studentUserID))
	s.record(ctx, AuditEntry{ActorID: studentUserID, Action: models.AuditActionClaimSubmit, Resource: "claim", ResourceID: claimID, Values: map[string]string{"evidence": evidence}})
	return outcome, nil
}

// Decide approves or rejects a submitted claim. Approval credits the ledger with the
// deciding teacher as creator; rejection is terminal and grants nothing.
func (s *ClaimService) Decide(ctx context.Context, claimID int64, req dto.DecideClaimRequest, teacherUserID int64) (outcome models.Outcome, err error) {
	ctx, span := startSpan(ctx, "ClaimService.Decide",
		attribute.Int64("incentive.claim_id", claimID),
		attribute.Int64("incentive.teacher_id", teacherUserID),
	)
	defer func() { finishSpan(span, outcome, err) }()

	if claimID <= 0 || teacherUserID <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "claim and teacher ids must be positive")
	}
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	approve := *req.Approve
	note := strings.TrimSpace(req.Note)
	target := models.ClaimStatusRejected
	if approve {
		target = models.ClaimStatusApproved
	}
	at := s.now()

	var granted []models.LedgerEntry
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		claim, err := tx.GetClaim(ctx, claimID)
		if errors.Is(err, sql.ErrNoRows) {
			outcome = models.OutcomeNotFound
			return nil
		}
		if err != nil {
			return err
		}
		if claim.Status != models.ClaimStatusSubmitted {
			outcome = models.OutcomeInvalidState
			return nil
		}

		ok, err := tx.TransitionClaim(ctx, repository.ClaimTransition{
			ID:           claimID,
			From:         models.ClaimStatusSubmitted,
			To:           target,
			DecisionNote: &note,
			DecidedAt:    &at,
			DecidedBy:    &teacherUserID,
		})
		if err != nil {
			return err
		}
		if !ok {
			outcome = models.OutcomeInvalidState
			return nil
		}
		outcome = models.OutcomeApplied
		if !approve {
			return nil
		}

		offer, err := tx.GetOffer(ctx, claim.OfferID)
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("approved claim has no offer, nothing granted", zap.Int64("claim_id", claimID), zap.Int64("offer_id", claim.OfferID))
			return nil
		}
		if err != nil {
			return err
		}
		granted, err = s.ledger.Grant(ctx, tx, offer, claim.StudentUserID, claimID, teacherUserID)
		return err
	})
	if err != nil {
		return "", appErrors.Internal(err, "failed to decide claim")
	}

	s.metrics.RecordWorkflowOutcome("decide_claim", outcome)
	if !outcome.Applied() {
		s.logger.Debug("claim decision ignored", zap.Int64("claim_id", claimID), zap.String("outcome", string(outcome)))
		return outcome, nil
	}
	s.metrics.RecordLedgerEntries("decision", len(granted))
	s.logger.Info("claim decided",
		zap.Int64("claim_id", claimID),
		zap.Bool("approved", approve),
		zap.Int64("teacher_id", teacherUserID),
		zap.Int("ledger_entries", len(granted)),
	)
	s.record(ctx, AuditEntry{
		ActorID:    teacherUserID,
		Action:     models.AuditActionClaimDecide,
		Resource:   "claim",
		ResourceID: claimID,
		Values:     map[string]interface{}{"status": target, "note": note, "ledgerEntries": len(granted)},
	})
	return outcome, nil
}

// List returns the claims on a subject's offers ordered by id, optionally for one student.
func (s *ClaimService) List(ctx context.Context, subjectID int64, query dto.ClaimQuery) ([]models.Claim, error) {
	if subjectID <= 0 || query.StudentUserID < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject id must be positive")
	}
	claims, err := s.store.ListClaims(ctx, models.ClaimFilter{SubjectID: subjectID, StudentUserID: query.StudentUserID})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list claims")
	}
	return claims, nil
}

func (s *ClaimService) record(ctx context.Context, entry AuditEntry) {
	if s.audit != nil {
		s.audit.Record(ctx, entry)
	}
}

// classifyClaimMiss explains why a guarded submit matched nothing. Another student's
// claim reads as not found.
func classifyClaimMiss(ctx context.Context, store repository.ClaimStore, claimID, studentUserID int64) (models.Outcome, error) {
	claim, err := store.GetClaim(ctx, claimID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.OutcomeNotFound, nil
	}
	if err != nil {
		return "", err
	}
	if claim.StudentUserID != studentUserID {
		return models.OutcomeNotFound, nil
	}
	return models.OutcomeInvalidState, nil
}
