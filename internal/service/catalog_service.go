package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-incentive-api/internal/dto"
	"github.com/noah-isme/sma-incentive-api/internal/models"
	appErrors "github.com/noah-isme/sma-incentive-api/pkg/errors"
)

type catalogStore interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	CreateSubject(ctx context.Context, subject *models.Subject) error
	ListBadges(ctx context.Context) ([]models.Badge, error)
	CreateBadge(ctx context.Context, badge *models.Badge) error
	ListUsers(ctx context.Context, role models.UserRole) ([]models.User, error)
}

// CatalogService manages subjects, badges and the student roster.
type CatalogService struct {
	store     catalogStore
	cache     *CacheService
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs the catalog service. cache and audit may be nil.
func NewCatalogService(store catalogStore, cache *CacheService, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CatalogService{store: store, cache: cache, audit: audit, validator: validate, logger: logger}
}

// ListSubjects returns every subject ordered by id.
func (s *CatalogService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	if s.cache.Get(ctx, cacheKeySubjects, &subjects) {
		return subjects, nil
	}
	subjects, err := s.store.ListSubjects(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list subjects")
	}
	s.cache.Set(ctx, cacheKeySubjects, subjects, 0)
	return subjects, nil
}

// CreateSubject creates a subject owned by the acting teacher.
func (s *CatalogService) CreateSubject(ctx context.Context, req dto.CreateSubjectRequest, ownerUserID int64) (*models.Subject, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	if ownerUserID < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "owner id must not be negative")
	}
	subject := &models.Subject{Title: req.Title, OwnerUserID: ownerUserID}
	if err := s.store.CreateSubject(ctx, subject); err != nil {
		return nil, appErrors.Internal(err, "failed to create subject")
	}
	s.cache.Invalidate(ctx, cacheKeySubjects)
	s.logger.Info("subject created", zap.Int64("subject_id", subject.ID), zap.Int64("owner_id", ownerUserID))
	s.record(ctx, AuditEntry{ActorID: ownerUserID, Action: models.AuditActionSubjectCreate, Resource: "subject", ResourceID: subject.ID, Values: subject})
	return subject, nil
}

// ListBadges returns the global badge catalog ordered by id.
func (s *CatalogService) ListBadges(ctx context.Context) ([]models.Badge, error) {
	var badges []models.Badge
	if s.cache.Get(ctx, cacheKeyBadges, &badges) {
		return badges, nil
	}
	badges, err := s.store.ListBadges(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list badges")
	}
	s.cache.Set(ctx, cacheKeyBadges, badges, 0)
	return badges, nil
}

// CreateBadge adds a badge to the catalog. Every badge is granted one at a time.
func (s *CatalogService) CreateBadge(ctx context.Context, req dto.CreateBadgeRequest, actorID int64) (*models.Badge, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid badge payload")
	}
	badge := &models.Badge{
		Title:        req.Title,
		Description:  strings.TrimSpace(req.Description),
		ExpValue:     req.ExpValue,
		BadgeValue:   models.DefaultBadgeValue,
		IsRepeatable: req.IsRepeatable,
	}
	if err := s.store.CreateBadge(ctx, badge); err != nil {
		return nil, appErrors.Internal(err, "failed to create badge")
	}
	s.cache.Invalidate(ctx, cacheKeyBadges)
	s.logger.Info("badge created", zap.Int64("badge_id", badge.ID), zap.Int("exp_value", badge.ExpValue))
	s.record(ctx, AuditEntry{ActorID: actorID, Action: models.AuditActionBadgeCreate, Resource: "badge", ResourceID: badge.ID, Values: badge})
	return badge, nil
}

// ListStudents returns accounts with the student role ordered by id.
func (s *CatalogService) ListStudents(ctx context.Context) ([]models.User, error) {
	students, err := s.store.ListUsers(ctx, models.RoleStudent)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list students")
	}
	return students, nil
}

func (s *CatalogService) record(ctx context.Context, entry AuditEntry) {
	if s.audit != nil {
		s.audit.Record(ctx, entry)
	}
}
