package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-incentive-api/internal/middleware"
	"github.com/noah-isme/sma-incentive-api/internal/models"
	appErrors "github.com/noah-isme/sma-incentive-api/pkg/errors"
	"github.com/noah-isme/sma-incentive-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return claims
}

// requireClaims writes 401 and returns nil when the request carries no user.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
	}
	return claims
}

// pathID parses a positive numeric route parameter, writing 400 when it is malformed.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" must be a positive integer"))
		return 0, false
	}
	return id, true
}

// workflowResult answers 200 with the outcome in meta. No-op calls are not errors.
func workflowResult(c *gin.Context, data interface{}, outcome models.Outcome) {
	middleware.SetOutcome(c, outcome)
	response.JSON(c, 200, data, middleware.ExtractMeta(c))
}
