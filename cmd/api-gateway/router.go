package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-incentive-api/internal/handler"
	"github.com/noah-isme/sma-incentive-api/internal/middleware"
	"github.com/noah-isme/sma-incentive-api/internal/models"
	"github.com/noah-isme/sma-incentive-api/internal/service"
	"github.com/noah-isme/sma-incentive-api/pkg/config"
	"github.com/noah-isme/sma-incentive-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-incentive-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-incentive-api/pkg/middleware/requestid"
)

type routeHandlers struct {
	auth    *handler.AuthHandler
	catalog *handler.CatalogHandler
	offers  *handler.OfferHandler
	claims  *handler.ClaimHandler
	profile *handler.ProfileHandler
	audit   *handler.AuditHandler
	metrics *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, h routeHandlers, tokens middleware.TokenValidator) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))
	teacherLike := middleware.TeacherLike()
	studentOnly := middleware.StudentOnly()

	secured.GET("/auth/me", h.auth.Me)

	secured.GET("/subjects", h.catalog.ListSubjects)
	secured.POST("/subjects", teacherLike, h.catalog.CreateSubject)
	secured.GET("/badges", h.catalog.ListBadges)
	secured.POST("/badges", teacherLike, h.catalog.CreateBadge)
	secured.GET("/students", teacherLike, h.catalog.ListStudents)

	secured.GET("/subjects/:subjectId/offers", h.offers.List)
	secured.POST("/subjects/:subjectId/offers", teacherLike, h.offers.Publish)
	secured.PUT("/subjects/:subjectId/offers/:offerId", teacherLike, h.offers.Update)
	secured.DELETE("/subjects/:subjectId/offers/:offerId", teacherLike, h.offers.Archive)

	secured.GET("/subjects/:subjectId/claims", h.claims.List)
	secured.POST("/offers/:offerId/accept", studentOnly, h.claims.Accept)
	secured.POST("/claims/:claimId/submit", studentOnly, h.claims.Submit)
	secured.POST("/claims/:claimId/decision", teacherLike, h.claims.Decide)

	secured.GET("/profile", studentOnly, h.profile.Me)
	secured.GET("/profile/ledger", studentOnly, h.profile.Ledger)
	secured.GET("/students/:studentId/profile",
		middleware.RBAC(string(models.RoleTeacher), string(models.RoleAdmin), middleware.Self), h.profile.Student)

	secured.GET("/audit-logs", teacherLike, h.audit.List)
	secured.GET("/metrics/summary", teacherLike, h.metrics.Summary)

	return r
}
