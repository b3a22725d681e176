package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-incentive-api/internal/dto"
	"github.com/noah-isme/sma-incentive-api/internal/models"
	appErrors "github.com/noah-isme/sma-incentive-api/pkg/errors"
	"github.com/noah-isme/sma-incentive-api/pkg/response"
)

type profileService interface {
	Summarize(ctx context.Context, studentUserID, subjectID int64) (models.ProfileSummary, error)
	Ledger(ctx context.Context, studentUserID, subjectID int64) ([]models.LedgerEntry, error)
	Export(ctx context.Context, studentUserID int64, query dto.ProfileQuery) (*dto.LedgerExport, error)
}

// ProfileHandler serves ledger-derived student profiles.
type ProfileHandler struct {
	service profileService
}

// NewProfileHandler constructs a profile handler.
func NewProfileHandler(svc profileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// Me godoc
// @Summary Current student's profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Param subjectId query int false "Scope to one subject"
// @Success 200 {object} response.Envelope
// @Router /profile [get]
func (h *ProfileHandler) Me(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	h.summary(c, claims.UserID)
}

// Student godoc
// @Summary A student's profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Param studentId path int true "Student user ID"
// @Param subjectId query int false "Scope to one subject"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/profile [get]
func (h *ProfileHandler) Student(c *gin.Context) {
	studentID, ok := pathID(c, "studentId")
	if !ok {
		return
	}
	h.summary(c, studentID)
}

// Ledger godoc
// @Summary Current student's ledger
// @Description Returns ledger rows as JSON, or a CSV/PDF statement when format is set.
// @Tags Profile
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param subjectId query int false "Scope to one subject"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /profile/ledger [get]
func (h *ProfileHandler) Ledger(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	query, ok := bindProfileQuery(c)
	if !ok {
		return
	}

	if query.Format == "" || query.Format == dto.LedgerFormatJSON {
		entries, err := h.service.Ledger(c.Request.Context(), claims.UserID, query.SubjectID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, entries)
		return
	}

	out, err := h.service.Export(c.Request.Context(), claims.UserID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, out.Filename, out.ContentType, out.Body)
}

func (h *ProfileHandler) summary(c *gin.Context, studentID int64) {
	query, ok := bindProfileQuery(c)
	if !ok {
		return
	}
	summary, err := h.service.Summarize(c.Request.Context(), studentID, query.SubjectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

func bindProfileQuery(c *gin.Context) (dto.ProfileQuery, bool) {
	var query dto.ProfileQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return query, false
	}
	return query, true
}
