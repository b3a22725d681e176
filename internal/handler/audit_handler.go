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

type auditService interface {
	List(ctx context.Context, query dto.AuditQuery) ([]models.AuditLog, error)
}

// AuditHandler exposes the audit trail.
type AuditHandler struct {
	service auditService
}

// NewAuditHandler constructs an audit handler.
func NewAuditHandler(svc auditService) *AuditHandler {
	return &AuditHandler{service: svc}
}

// List godoc
// @Summary List audit logs
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param resource query string false "Resource filter"
// @Param limit query int false "Max rows (default 100, max 500)"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	var query dto.AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	logs, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs)
}
