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

type claimService interface {
	Accept(ctx context.Context, offerID, studentUserID int64) (*models.Claim, models.Outcome, error)
	Submit(ctx context.Context, claimID, studentUserID int64, req dto.SubmitClaimRequest) (models.Outcome, error)
	Decide(ctx context.Context, claimID int64, req dto.DecideClaimRequest, teacherUserID int64) (models.Outcome, error)
	List(ctx context.Context, subjectID int64, query dto.ClaimQuery) ([]models.Claim, error)
}

// ClaimHandler exposes the claim workflow.
type ClaimHandler struct {
	service claimService
}

// NewClaimHandler constructs a claim handler.
func NewClaimHandler(svc claimService) *ClaimHandler {
	return &ClaimHandler{service: svc}
}

// Accept godoc
// @Summary Accept offer
// @Description Opens a claim for the calling student. Repeated or inapplicable calls answer 200 with meta.applied=false.
// @Tags Claims
// @Produce json
// @Security BearerAuth
// @Param offerId path int true "Offer ID"
// @Success 200 {object} response.Envelope
// @Router /offers/{offerId}/accept [post]
func (h *ClaimHandler) Accept(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	offerID, ok := pathID(c, "offerId")
	if !ok {
		return
	}
	claim, outcome, err := h.service.Accept(c.Request.Context(), offerID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	workflowResult(c, claim, outcome)
}

// Submit godoc
// @Summary Submit claim evidence
// @Tags Claims
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param claimId path int true "Claim ID"
// @Param payload body dto.SubmitClaimRequest true "Evidence"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /claims/{claimId}/submit [post]
func (h *ClaimHandler) Submit(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	claimID, ok := pathID(c, "claimId")
	if !ok {
		return
	}
	var req dto.SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.service.Submit(c.Request.Context(), claimID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	workflowResult(c, gin.H{"claimId": claimID}, outcome)
}

// Decide godoc
// @Summary Decide submitted claim
// @Tags Claims
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param claimId path int true "Claim ID"
// @Param payload body dto.DecideClaimRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /claims/{claimId}/decision [post]
func (h *ClaimHandler) Decide(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	claimID, ok := pathID(c, "claimId")
	if !ok {
		return
	}
	var req dto.DecideClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.service.Decide(c.Request.Context(), claimID, req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	workflowResult(c, gin.H{"claimId": claimID}, outcome)
}

// List godoc
// @Summary List claims of a subject
// @Description Teachers see every claim, optionally filtered by studentId. Students only see their own.
// @Tags Claims
// @Produce json
// @Security BearerAuth
// @Param subjectId path int true "Subject ID"
// @Param studentId query int false "Student user ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{subjectId}/claims [get]
func (h *ClaimHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	subjectID, ok := pathID(c, "subjectId")
	if !ok {
		return
	}
	var query dto.ClaimQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	if !claims.Role.IsTeacherLike() {
		query.StudentUserID = claims.UserID
	}
	result, err := h.service.List(c.Request.Context(), subjectID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
