package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-incentive-api/internal/dto"
	"github.com/noah-isme/sma-incentive-api/internal/models"
	appErrors "github.com/noah-isme/sma-incentive-api/pkg/errors"
	"github.com/noah-isme/sma-incentive-api/pkg/export"
)

type ledgerReader interface {
	ListLedgerEntries(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error)
	ListBadges(ctx context.Context) ([]models.Badge, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

var ledgerHeaders = []string{"Entry", "Date", "Subject", "Claim", "Badge", "Exp", "Badges"}

// ProfileService projects ledger entries into student summaries. Nothing is cached:
// every read replays the ledger.
type ProfileService struct {
	store     ledgerReader
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs the profile aggregator. Nil renderers fall back to pkg/export.
func NewProfileService(store ledgerReader, csv csvRenderer, pdf pdfRenderer, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ProfileService{store: store, csv: csv, pdf: pdf, validator: validate, logger: logger}
}

// Summarize totals the student's ledger, optionally within one subject (subjectID 0 means all).
func (s *ProfileService) Summarize(ctx context.Context, studentUserID, subjectID int64) (summary models.ProfileSummary, err error) {
	ctx, span := startSpan(ctx, "ProfileService.Summarize",
		attribute.Int64("incentive.student_id", studentUserID),
		attribute.Int64("incentive.subject_id", subjectID),
	)
	defer func() { finishSpan(span, "", err) }()

	entries, err := s.Ledger(ctx, studentUserID, subjectID)
	if err != nil {
		return models.ProfileSummary{}, err
	}
	return Summarize(studentUserID, subjectID, entries), nil
}

// Ledger returns the student's entries in insertion order.
func (s *ProfileService) Ledger(ctx context.Context, studentUserID, subjectID int64) ([]models.LedgerEntry, error) {
	if studentUserID <= 0 || subjectID < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id must be positive")
	}
	entries, err := s.store.ListLedgerEntries(ctx, models.LedgerFilter{UserID: studentUserID, SubjectID: subjectID})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load ledger")
	}
	return entries, nil
}

// Export renders the student's ledger statement as CSV or PDF.
func (s *ProfileService) Export(ctx context.Context, studentUserID int64, query dto.ProfileQuery) (*dto.LedgerExport, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}
	entries, err := s.Ledger(ctx, studentUserID, query.SubjectID)
	if err != nil {
		return nil, err
	}
	badges, err := s.store.ListBadges(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load badges")
	}
	summary := Summarize(studentUserID, query.SubjectID, entries)
	data := ledgerDataset(entries, badges, summary)
	stamp := time.Now().UTC().Format("20060102")
	base := fmt.Sprintf("ledger-%d-%s", studentUserID, stamp)

	switch query.Format {
	case dto.LedgerFormatCSV:
		body, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render csv")
		}
		return &dto.LedgerExport{Filename: base + ".csv", ContentType: "text/csv", Body: body}, nil
	case dto.LedgerFormatPDF:
		body, err := s.pdf.Render(data, fmt.Sprintf("Ledger statement - student %d", studentUserID))
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render pdf")
		}
		return &dto.LedgerExport{Filename: base + ".pdf", ContentType: "application/pdf", Body: body}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// Summarize folds ledger entries into totals. Entries of other students or, when
// subjectID is non-zero, other subjects are ignored.
func Summarize(studentUserID, subjectID int64, entries []models.LedgerEntry) models.ProfileSummary {
	summary := models.ProfileSummary{UserID: studentUserID, BadgeTotals: map[int64]int{}}
	if subjectID > 0 {
		scoped := subjectID
		summary.SubjectID = &scoped
	}
	for _, entry := range entries {
		if entry.UserID != studentUserID {
			continue
		}
		if subjectID > 0 && entry.SubjectID != subjectID {
			continue
		}
		summary.ExpTotal += entry.ExpDelta
		if entry.BadgeID != nil {
			summary.BadgeTotals[*entry.BadgeID] += entry.BadgeDelta
		}
	}
	return summary
}

func ledgerDataset(entries []models.LedgerEntry, badges []models.Badge, summary models.ProfileSummary) export.Dataset {
	titles := make(map[int64]string, len(badges))
	for _, badge := range badges {
		titles[badge.ID] = badge.Title
	}
	rows := make([]map[string]string, 0, len(entries))
	for _, entry := range entries {
		badge := "-"
		if entry.BadgeID != nil {
			badge = titles[*entry.BadgeID]
			if badge == "" {
				badge = "#" + strconv.FormatInt(*entry.BadgeID, 10)
			}
		}
		rows = append(rows, map[string]string{
			"Entry":   strconv.FormatInt(entry.ID, 10),
			"Date":    entry.CreatedAt.UTC().Format("2006-01-02"),
			"Subject": strconv.FormatInt(entry.SubjectID, 10),
			"Claim":   strconv.FormatInt(entry.SourceID, 10),
			"Badge":   badge,
			"Exp":     strconv.Itoa(entry.ExpDelta),
			"Badges":  strconv.Itoa(entry.BadgeDelta),
		})
	}

	badgeCount := 0
	for _, count := range summary.BadgeTotals {
		badgeCount += count
	}
	totals := map[string]string{
		"Entry":  "Total",
		"Badge":  strconv.Itoa(len(summary.BadgeTotals)) + " kinds",
		"Exp":    strconv.Itoa(summary.ExpTotal),
		"Badges": strconv.Itoa(badgeCount),
	}
	return export.Dataset{Headers: ledgerHeaders, Rows: rows, Totals: totals, Numeric: []string{"Exp", "Badges"}}
}
