package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
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

// OfferService publishes, edits and archives offers. Edits and archival only touch an
// offer that is still published within the given subject; anything else is a no-op
// reported through the returned Outcome.
type OfferService struct {
	store     repository.Store
	cache     *CacheService
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// OfferServiceOption configures the service.
type OfferServiceOption func(*OfferService)

// WithOfferCache caches published offer listings per subject.
func WithOfferCache(cache *CacheService) OfferServiceOption {
	return func(s *OfferService) {
		s.cache = cache
	}
}

// WithOfferAudit records applied changes in the audit trail.
func WithOfferAudit(audit auditRecorder) OfferServiceOption {
	return func(s *OfferService) {
		s.audit = audit
	}
}

// WithOfferMetrics counts outcomes.
func WithOfferMetrics(metrics *MetricsService) OfferServiceOption {
	return func(s *OfferService) {
		s.metrics = metrics
	}
}

// NewOfferService constructs the offer registry.
func NewOfferService(store repository.Store, validate *validator.Validate, logger *zap.Logger, opts ...OfferServiceOption) *OfferService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &OfferService{store: store, validator: validate, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Publish creates a published offer in the subject with the given reward set.
func (s *OfferService) Publish(ctx context.Context, subjectID int64, req dto.OfferRequest, actorID int64) (offer *models.Offer, err error) {
	ctx, span := startSpan(ctx, "OfferService.Publish", attribute.Int64("incentive.subject_id", subjectID))
	defer func() { finishSpan(span, "", err) }()

	req, err = s.normalize(req)
	if err != nil {
		return nil, err
	}
	if subjectID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject id must be positive")
	}
	if _, err := s.store.GetSubject(ctx, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Internal(err, "failed to load subject")
	}
	if err := s.ensureBadgesExist(ctx, req.BadgeIDs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	offer = &models.Offer{
		SubjectID:        subjectID,
		CreatedBy:        actorID,
		Title:            req.Title,
		Description:      req.Description,
		Status:           models.OfferStatusPublished,
		RequiresApproval: req.RequiresApproval,
		RewardBadgeIDs:   req.BadgeIDs,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateOffer(ctx, offer); err != nil {
		return nil, appErrors.Internal(err, "failed to publish offer")
	}

	s.cache.Invalidate(ctx, offersCacheKey(subjectID))
	s.metrics.RecordWorkflowOutcome("publish_offer", models.OutcomeApplied)
	s.logger.Info("offer published",
		zap.Int64("offer_id", offer.ID),
		zap.Int64("subject_id", subjectID),
		zap.Bool("requires_approval", offer.RequiresApproval),
		zap.Int64s("reward_badge_ids", offer.RewardBadgeIDs),
	)
	s.record(ctx, AuditEntry{ActorID: actorID, Action: models.AuditActionOfferPublish, Resource: "offer", ResourceID: offer.ID, Values: offer})
	return offer, nil
}

// Update rewrites title, description, approval flag and the whole reward set of a
// published offer in the subject.
func (s *OfferService) Update(ctx context.Context, offerID, subjectID int64, req dto.OfferRequest, actorID int64) (outcome models.Outcome, err error) {
	ctx, span := startSpan(ctx, "OfferService.Update",
		attribute.Int64("incentive.offer_id", offerID),
		attribute.Int64("incentive.subject_id", subjectID),
	)
	defer func() { finishSpan(span, outcome, err) }()

	req, err = s.normalize(req)
	if err != nil {
		return "", err
	}
	if offerID <= 0 || subjectID <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "offer and subject ids must be positive")
	}
	if err := s.ensureBadgesExist(ctx, req.BadgeIDs); err != nil {
		return "", err
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		ok, err := tx.UpdateOffer(ctx, &models.Offer{
			ID:               offerID,
			SubjectID:        subjectID,
			Title:            req.Title,
			Description:      req.Description,
			RequiresApproval: req.RequiresApproval,
			UpdatedAt:        time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if !ok {
			outcome, err = classifyOfferMiss(ctx, tx, offerID, subjectID)
			return err
		}
		if err := tx.ReplaceOfferRewards(ctx, offerID, req.BadgeIDs); err != nil {
			return err
		}
		outcome = models.OutcomeApplied
		return nil
	})
	if err != nil {
		return "", appErrors.Internal(err, "failed to update offer")
	}

	s.metrics.RecordWorkflowOutcome("update_offer", outcome)
	if !outcome.Applied() {
		s.logger.Debug("offer update ignored", zap.Int64("offer_id", offerID), zap.Int64("subject_id", subjectID), zap.String("outcome", string(outcome)))
		return outcome, nil
	}
	s.cache.Invalidate(ctx, offersCacheKey(subjectID))
	s.logger.Info("offer updated", zap.Int64("offer_id", offerID), zap.Int64s("reward_badge_ids", req.BadgeIDs))
	s.record(ctx, AuditEntry{ActorID: actorID, Action: models.AuditActionOfferUpdate, Resource: "offer", ResourceID: offerID, Values: req})
	return outcome, nil
}

// Archive moves a published offer of the subject to archived. Archived offers accept no claims.
func (s *OfferService) Archive(ctx context.Context, offerID, subjectID, actorID int64) (outcome models.Outcome, err error) {
	ctx, span := startSpan(ctx, "OfferService.Archive",
		attribute.Int64("incentive.offer_id", offerID),
		attribute.Int64("incentive.subject_id", subjectID),
	)
	defer func() { finishSpan(span, outcome, err) }()

	if offerID <= 0 || subjectID <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "offer and subject ids must be positive")
	}

	ok, err := s.store.TransitionOfferStatus(ctx, repository.OfferTransition{
		ID:        offerID,
		SubjectID: subjectID,
		From:      models.OfferStatusPublished,
		To:        models.OfferStatusArchived,
		At:        time.Now().UTC(),
	})
	if err != nil {
		return "", appErrors.Internal(err, "failed to archive offer")
	}
	if ok {
		outcome = models.OutcomeApplied
	} else if outcome, err = classifyOfferMiss(ctx, s.store, offerID, subjectID); err != nil {
		return "", appErrors.Internal(err, "failed to load offer")
	}

	s.metrics.RecordWorkflowOutcome("archive_offer", outcome)
	if !outcome.Applied() {
		s.logger.Debug("offer archive ignored", zap.Int64("offer_id", offerID), zap.String("outcome", string(outcome)))
		return outcome, nil
	}
	s.cache.Invalidate(ctx, offersCacheKey(subjectID))
	s.logger.Info("offer archived", zap.Int64("offer_id", offerID), zap.Int64("subject_id", subjectID))
	s.record(ctx, AuditEntry{ActorID: actorID, Action: models.AuditActionOfferArchive, Resource: "offer", ResourceID: offerID})
	return outcome, nil
}

// List returns the published offers of a subject ordered by id.
func (s *OfferService) List(ctx context.Context, subjectID int64) ([]models.Offer, error) {
	if subjectID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject id must be positive")
	}
	key := offersCacheKey(subjectID)
	var offers []models.Offer
	if s.cache.Get(ctx, key, &offers) {
		return offers, nil
	}
	offers, err := s.store.ListOffers(ctx, models.OfferFilter{SubjectID: subjectID, Status: models.OfferStatusPublished})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list offers")
	}
	s.cache.Set(ctx, key, offers, 0)
	return offers, nil
}

func (s *OfferService) normalize(req dto.OfferRequest) (dto.OfferRequest, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offer payload")
	}
	req.BadgeIDs = models.UniqueBadgeIDs(req.BadgeIDs)
	return req, nil
}

func (s *OfferService) ensureBadgesExist(ctx context.Context, badgeIDs []int64) error {
	for _, id := range badgeIDs {
		if _, err := s.store.GetBadge(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("badge %d does not exist", id))
			}
			return appErrors.Internal(err, "failed to load badge")
		}
	}
	return nil
}

func (s *OfferService) record(ctx context.Context, entry AuditEntry) {
	if s.audit != nil {
		s.audit.Record(ctx, entry)
	}
}

// classifyOfferMiss explains why a guarded offer write matched nothing. A subject
// mismatch reads as not found so callers cannot probe other subjects.
func classifyOfferMiss(ctx context.Context, store repository.OfferStore, offerID, subjectID int64) (models.Outcome, error) {
	offer, err := store.GetOffer(ctx, offerID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.OutcomeNotFound, nil
	}
	if err != nil {
		return "", err
	}
	if offer.SubjectID != subjectID {
		return models.OutcomeNotFound, nil
	}
	return models.OutcomeInvalidState, nil
}

func offersCacheKey(subjectID int64) string {
	return cacheKeyOffersScope + strconv.FormatInt(subjectID, 10)
}
