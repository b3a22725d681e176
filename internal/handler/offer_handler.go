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

type offerService interface {
	List(ctx context.Context, subjectID int64) ([]models.Offer, error)
	Publish(ctx context.Context, subjectID int64, req dto.OfferRequest, actorID int64) (*models.Offer, error)
	Update(ctx context.Context, offerID, subjectID int64, req dto.OfferRequest, actorID int64) (models.Outcome, error)
	Archive(ctx context.Context, offerID, subjectID, actorID int64) (models.Outcome, error)
}

// OfferHandler exposes the offer registry of a subject.
type OfferHandler struct {
	service offerService
}

// NewOfferHandler constructs an offer handler.
func NewOfferHandler(svc offerService) *OfferHandler {
	return &OfferHandler{service: svc}
}

// List godoc
// @Summary List published offers of a subject
// @Tags Offers
// @Produce json
// @Security BearerAuth
// @Param subjectId path int true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{subjectId}/offers [get]
func (h *OfferHandler) List(c *gin.Context) {
	subjectID, ok := pathID(c, "subjectId")
	if !ok {
		return
	}
	offers, err := h.service.List(c.Request.Context(), subjectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offers)
}

// Publish godoc
// @Summary Publish offer
// @Tags Offers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param subjectId path int true "Subject ID"
// @Param payload body dto.OfferRequest true "Offer payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{subjectId}/offers [post]
func (h *OfferHandler) Publish(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	subjectID, ok := pathID(c, "subjectId")
	if !ok {
		return
	}
	var req dto.OfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	offer, err := h.service.Publish(c.Request.Context(), subjectID, req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, offer)
}

// Update godoc
// @Summary Update offer
// @Description Rewrites a published offer and its full reward set. Non-applicable calls answer 200 with meta.applied=false.
// @Tags Offers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param subjectId path int true "Subject ID"
// @Param offerId path int true "Offer ID"
// @Param payload body dto.OfferRequest true "Offer payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /subjects/{subjectId}/offers/{offerId} [put]
func (h *OfferHandler) Update(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	subjectID, ok := pathID(c, "subjectId")
	if !ok {
		return
	}
	offerID, ok := pathID(c, "offerId")
	if !ok {
		return
	}
	var req dto.OfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.service.Update(c.Request.Context(), offerID, subjectID, req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	workflowResult(c, gin.H{"offerId": offerID}, outcome)
}

// Archive godoc
// @Summary Archive offer
// @Tags Offers
// @Produce json
// @Security BearerAuth
// @Param subjectId path int true "Subject ID"
// @Param offerId path int true "Offer ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{subjectId}/offers/{offerId} [delete]
func (h *OfferHandler) Archive(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	subjectID, ok := pathID(c, "subjectId")
	if !ok {
		return
	}
	offerID, ok := pathID(c, "offerId")
	if !ok {
		return
	}
	outcome, err := h.service.Archive(c.Request.Context(), offerID, subjectID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	workflowResult(c, gin.H{"offerId": offerID}, outcome)
}
