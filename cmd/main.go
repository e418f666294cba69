package main

import (
	"context"
	"os"
	"time"

	"github.com/hellofresh/health-go/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/yskhub/TaskVault/internal/api"
	"github.com/yskhub/TaskVault/internal/config"
	"github.com/yskhub/TaskVault/internal/db"
	"github.com/yskhub/TaskVault/internal/identity"
	"github.com/yskhub/TaskVault/internal/ratelimit"
	"github.com/yskhub/TaskVault/internal/repository"
	"github.com/yskhub/TaskVault/internal/service"
	"github.com/yskhub/TaskVault/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	logger, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting application")

	cfg := config.Load(".env")

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err = pool.Ping(context.Background()); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}

	if initSQL, err := os.ReadFile(cfg.InitSQLPath); err == nil {
		if _, err = pool.Exec(context.Background(), string(initSQL)); err != nil {
			logger.Fatal("failed to apply init sql", zap.Error(err))
		}
		logger.Info("schema initialized", zap.String("path", cfg.InitSQLPath))
	} else {
		logger.Warn("init sql not found, assuming schema exists", zap.String("path", cfg.InitSQLPath))
	}

	logger.Info("database connection established")

	limiter, err := ratelimit.NewLimiter(cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer limiter.Close()

	idClient := identity.NewClient(cfg.IdentityURL, cfg.IdentityServiceKey)

	var usage service.UsageRecorder = service.NopUsageRecorder()
	if cfg.UsageAnalyticsEnabled && cfg.IdentityURL != "" {
		usage = identity.NewUsageRecorder(idClient)
	}

	transactor := db.NewPgxTransactor(pool)

	teamRepo := repository.NewPgxTeamRepository(pool)
	workflowRepo := repository.NewPgxWorkflowRepository(pool)
	auditRepo := repository.NewPgxAuditRepository(pool)

	team := service.NewTeamService(transactor).
		WithTeamRepo(teamRepo).
		WithAuditRepo(auditRepo).
		WithUsageRecorder(usage)
	workflows := service.NewWorkflowService(transactor).
		WithWorkflowRepo(workflowRepo).
		WithAuditRepo(auditRepo).
		WithUsageRecorder(usage)
	audit := service.NewAuditService().WithAuditRepo(auditRepo)
	analytics := service.NewAnalyticsService().
		WithTeamRepo(teamRepo).
		WithWorkflowRepo(workflowRepo)

	checks := []health.Config{
		{
			Name:    "postgres",
			Timeout: 5 * time.Second,
			Check:   pool.Ping,
		},
		{
			Name:    "redis",
			Timeout: 5 * time.Second,
			Check:   limiter.Ping,
		},
	}
	if cfg.IdentityURL != "" {
		checks = append(checks, health.Config{
			Name:    "identity",
			Timeout: 5 * time.Second,
			Check:   idClient.CheckHealth,
		})
	}

	e := echo.New()

	handler := api.NewHandler(logger).
		WithHealthChecker(api.MustNewHealthChecker(checks...)).
		WithRateLimiter(limiter).
		WithTeamService(team).
		WithWorkflowService(workflows).
		WithAuditService(audit).
		WithAnalyticsService(analytics)

	if cfg.IdentityURL != "" && cfg.IdentityJWTSecret != "" {
		verifier := identity.NewTokenVerifier(cfg.IdentityJWTSecret)
		handler = handler.WithPlanSource(identity.NewPlanResolver(verifier, idClient))
	}

	handler.RegisterRoutes(e)

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err = e.Start(":" + cfg.Port); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
