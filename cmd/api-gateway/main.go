package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-incentive-api/api/swagger"
	"github.com/noah-isme/sma-incentive-api/internal/handler"
	"github.com/noah-isme/sma-incentive-api/internal/repository"
	"github.com/noah-isme/sma-incentive-api/internal/service"
	"github.com/noah-isme/sma-incentive-api/pkg/cache"
	"github.com/noah-isme/sma-incentive-api/pkg/config"
	"github.com/noah-isme/sma-incentive-api/pkg/database"
	"github.com/noah-isme/sma-incentive-api/pkg/logger"
	"github.com/noah-isme/sma-incentive-api/pkg/tracing"
)

// @title Classroom Incentives API
// @version 1.0.0
// @description Teachers publish offers, students claim them, approved claims credit an append-only reward ledger.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Init(ctx, cfg.Tracing, cfg.Env, logr)
	metricsSvc := service.NewMetricsService()
	checks := map[string]handler.Pinger{}

	store, db, err := openStore(ctx, cfg, metricsSvc, logr)
	if err != nil {
		logr.Fatal("failed to open store", zap.Error(err))
	}
	if db != nil {
		checks["database"] = pingerFunc(db.PingContext)
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	if redisClient != nil {
		checks["redis"] = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.CatalogTTL, logr, redisClient != nil)

	validate := validator.New()
	auditSvc := service.NewAuditService(store, metricsSvc, service.AuditConfig{
		Workers:    cfg.Audit.Workers,
		MaxRetries: cfg.Audit.MaxRetries,
	}, logr.Named("audit"))
	auditSvc.Start(ctx)

	authSvc := service.NewAuthService(store, auditSvc, validate, logr.Named("auth"), service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	catalogSvc := service.NewCatalogService(store, cacheSvc, auditSvc, validate, logr.Named("catalog"))
	offerSvc := service.NewOfferService(store, validate, logr.Named("offers"),
		service.WithOfferCache(cacheSvc),
		service.WithOfferAudit(auditSvc),
		service.WithOfferMetrics(metricsSvc),
	)
	claimSvc := service.NewClaimService(store, service.NewRewardLedger(logr.Named("ledger")),
		service.ClaimConfig{SystemActorID: cfg.Incentive.SystemActorID}, validate, logr.Named("claims"),
		service.WithClaimAudit(auditSvc),
		service.WithClaimMetrics(metricsSvc),
	)
	profileSvc := service.NewProfileService(store, nil, nil, validate, logr.Named("profile"))

	router := newRouter(cfg, logr, metricsSvc, routeHandlers{
		auth:    handler.NewAuthHandler(authSvc),
		catalog: handler.NewCatalogHandler(catalogSvc),
		offers:  handler.NewOfferHandler(offerSvc),
		claims:  handler.NewClaimHandler(claimSvc),
		profile: handler.NewProfileHandler(profileSvc),
		audit:   handler.NewAuditHandler(auditSvc),
		metrics: handler.NewMetricsHandler(metricsSvc, checks),
	}, authSvc)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown failed", zap.Error(err))
	}
	auditSvc.Stop()
	if db != nil {
		if err := db.Close(); err != nil {
			logr.Warn("database close failed", zap.Error(err))
		}
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Warn("redis close failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logr.Warn("tracer shutdown failed", zap.Error(err))
	}
}

// openStore returns the configured persistence backend. db is nil for the memory store.
func openStore(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (repository.Store, *sqlx.DB, error) {
	if cfg.Store.Backend == config.StoreMemory {
		logr.Warn("using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), nil, nil
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
	}
	return repository.NewSQLStore(db, repository.WithQueryObserver(metrics)), db, nil
}
