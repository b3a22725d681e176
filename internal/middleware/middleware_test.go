package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-incentive-api/internal/models"
	"github.com/noah-isme/sma-incentive-api/internal/service"
	appErrors "github.com/noah-isme/sma-incentive-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	token  string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.token = token
	return s.claims, s.err
}

func newRouter(validator TokenValidator, gate gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/students/:studentId/profile", JWT(validator), gate, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func get(router *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	validator := &stubValidator{err: appErrors.ErrUnauthorized}
	router := newRouter(validator, TeacherLike())

	assert.Equal(t, http.StatusUnauthorized, get(router, "/students/1/profile", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/students/1/profile", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/students/1/profile", "Bearer bad").Code)
	assert.Equal(t, "bad", validator.token)
}

func TestRBACRolesAndSelf(t *testing.T) {
	tests := []struct {
		name   string
		claims *models.JWTClaims
		path   string
		want   int
	}{
		{"teacher", &models.JWTClaims{UserID: 1, Role: models.RoleTeacher}, "/students/5/profile", http.StatusOK},
		{"admin", &models.JWTClaims{UserID: 1, Role: models.RoleAdmin}, "/students/5/profile", http.StatusOK},
		{"self", &models.JWTClaims{UserID: 5, Role: models.RoleStudent}, "/students/5/profile", http.StatusOK},
		{"other student", &models.JWTClaims{UserID: 6, Role: models.RoleStudent}, "/students/5/profile", http.StatusForbidden},
		{"malformed id", &models.JWTClaims{UserID: 5, Role: models.RoleStudent}, "/students/abc/profile", http.StatusForbidden},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router := newRouter(&stubValidator{claims: tc.claims}, RBAC(string(models.RoleTeacher), string(models.RoleAdmin), Self))
			assert.Equal(t, tc.want, get(router, tc.path, "Bearer token").Code)
		})
	}
}

func TestStudentOnly(t *testing.T) {
	router := newRouter(&stubValidator{claims: &models.JWTClaims{UserID: 1, Role: models.RoleTeacher}}, StudentOnly())
	assert.Equal(t, http.StatusForbidden, get(router, "/students/1/profile", "Bearer token").Code)
}

func TestResponseMetaCarriesOutcome(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WithResponseMeta())
	router.POST("/accept", func(c *gin.Context) {
		SetOutcome(c, models.OutcomeDuplicate)
		c.JSON(http.StatusOK, gin.H{"meta": ExtractMeta(c)})
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/accept", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "duplicate", body.Meta["outcome"])
	assert.Equal(t, false, body.Meta["applied"])
	assert.Contains(t, body.Meta, "processing_time_ms")
}

func TestMetricsMiddlewareRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/offers/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/offers/1", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)

	scrape := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	exposition := scrape.Body.String()
	assert.Contains(t, exposition, `path="/offers/:id"`)
	assert.Contains(t, exposition, `path="unmatched"`)
	assert.Contains(t, exposition, "http_requests_in_flight 0")
}
