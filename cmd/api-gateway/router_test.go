package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-incentive-api/internal/handler"
	"github.com/noah-isme/sma-incentive-api/internal/models"
	"github.com/noah-isme/sma-incentive-api/internal/repository"
	"github.com/noah-isme/sma-incentive-api/internal/service"
	"github.com/noah-isme/sma-incentive-api/pkg/config"
)

type envelope struct {
	Data json.RawMessage        `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api/v1"}
	store := repository.NewMemoryStore()
	metrics := service.NewMetricsService()
	logr := zap.NewNop()

	auth := service.NewAuthService(store, nil, nil, logr, service.AuthConfig{AccessTokenSecret: "test", AccessTokenExpiry: time.Hour})
	for _, account := range []service.CreateAccountRequest{
		{Email: "teacher@school.test", Name: "Teacher", Role: models.RoleTeacher, Secret: "apple"},
		{Email: "student@school.test", Name: "Student", Role: models.RoleStudent, Secret: "pear"},
	} {
		_, err := auth.CreateAccount(context.Background(), account)
		require.NoError(t, err)
	}

	audit := service.NewAuditService(store, metrics, service.AuditConfig{}, logr)
	router := newRouter(cfg, logr, metrics, routeHandlers{
		auth:    handler.NewAuthHandler(auth),
		catalog: handler.NewCatalogHandler(service.NewCatalogService(store, nil, nil, nil, logr)),
		offers:  handler.NewOfferHandler(service.NewOfferService(store, nil, logr)),
		claims:  handler.NewClaimHandler(service.NewClaimService(store, nil, service.ClaimConfig{}, nil, logr)),
		profile: handler.NewProfileHandler(service.NewProfileService(store, nil, nil, nil, logr)),
		audit:   handler.NewAuditHandler(audit),
		metrics: handler.NewMetricsHandler(metrics, nil),
	}, auth)
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func (s *testServer) login(email, secret string) (string, int64) {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "secret": secret})
	require.Equal(s.t, http.StatusOK, code)
	var resp models.LoginResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &resp))
	return resp.AccessToken, resp.User.ID
}

func decodeID(t *testing.T, raw json.RawMessage) int64 {
	t.Helper()
	var v struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &v))
	return v.ID
}

func TestRouterApprovalFlow(t *testing.T) {
	s := newTestServer(t)
	teacherToken, _ := s.login("teacher@school.test", "apple")
	studentToken, studentID := s.login("student@school.test", "pear")

	code, env := s.do(http.MethodPost, "/subjects", teacherToken, map[string]string{"title": "Physics"})
	require.Equal(t, http.StatusCreated, code)
	subjectID := decodeID(t, env.Data)

	code, env = s.do(http.MethodPost, "/badges", teacherToken, map[string]interface{}{"title": "A", "expValue": 30})
	require.Equal(t, http.StatusCreated, code)
	badgeID := decodeID(t, env.Data)

	code, env = s.do(http.MethodPost, fmt.Sprintf("/subjects/%d/offers", subjectID), teacherToken, map[string]interface{}{
		"title": "Lab report", "requiresApproval": true, "badgeIds": []int64{badgeID},
	})
	require.Equal(t, http.StatusCreated, code)
	offerID := decodeID(t, env.Data)

	code, _ = s.do(http.MethodPost, fmt.Sprintf("/offers/%d/accept", offerID), teacherToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodPost, fmt.Sprintf("/offers/%d/accept", offerID), studentToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "applied", env.Meta["outcome"])
	claimID := decodeID(t, env.Data)

	code, env = s.do(http.MethodPost, fmt.Sprintf("/offers/%d/accept", offerID), studentToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "duplicate", env.Meta["outcome"])
	assert.Equal(t, claimID, decodeID(t, env.Data))

	code, env = s.do(http.MethodPost, fmt.Sprintf("/claims/%d/submit", claimID), studentToken, map[string]string{"evidence": "done"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, env.Meta["applied"])

	code, env = s.do(http.MethodPost, fmt.Sprintf("/claims/%d/decision", claimID), teacherToken, map[string]interface{}{"approve": true})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, env.Meta["applied"])

	code, env = s.do(http.MethodPost, fmt.Sprintf("/claims/%d/decision", claimID), teacherToken, map[string]interface{}{"approve": true})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "invalid_state", env.Meta["outcome"])

	code, env = s.do(http.MethodGet, "/profile", studentToken, nil)
	require.Equal(t, http.StatusOK, code)
	var summary models.ProfileSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 30, summary.ExpTotal)
	assert.Equal(t, map[int64]int{badgeID: 1}, summary.BadgeTotals)

	code, env = s.do(http.MethodGet, fmt.Sprintf("/students/%d/profile", studentID), teacherToken, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 30, summary.ExpTotal)

	code, _ = s.do(http.MethodGet, fmt.Sprintf("/students/%d/profile", studentID+100), studentToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRouterRequiresToken(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(http.MethodGet, "/subjects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "teacher@school.test", "secret": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)
}
