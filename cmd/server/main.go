package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"mosaic/backend/internal/alert"
	"mosaic/backend/internal/audit"
	"mosaic/backend/internal/banlist"
	"mosaic/backend/internal/config"
	"mosaic/backend/internal/db"
	"mosaic/backend/internal/fallback"
	"mosaic/backend/internal/gate"
	"mosaic/backend/internal/handler"
	gatehttp "mosaic/backend/internal/http"
	"mosaic/backend/internal/logger"
	"mosaic/backend/internal/ratelimit"
	"mosaic/backend/internal/repository"
	"mosaic/backend/internal/scheduler"
	"mosaic/backend/internal/store"
	"mosaic/backend/pkg/snowflake"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Init(logger.ParseLevel(cfg.LogLevel))

	if err := snowflake.Init(1); err != nil {
		logger.Error("failed to init id generator", "error", err)
		os.Exit(1)
	}

	redisStore, err := store.New(store.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	defer redisStore.Close()

	var sinks []audit.Sink
	var auditRepo repository.AuditRepository
	var sqlDB *sql.DB
	if cfg.AuditDBPath != "" {
		sqlDB, err = sql.Open("sqlite", cfg.AuditDBPath)
		if err != nil {
			logger.Error("failed to open audit database", "path", cfg.AuditDBPath, "error", err)
			os.Exit(1)
		}
		defer sqlDB.Close()

		if err := db.Migrate(sqlDB); err != nil {
			logger.Error("failed to migrate audit database", "error", err)
			os.Exit(1)
		}
		auditRepo = repository.NewAuditRepository(sqlDB)
		sinks = append(sinks, auditRepo)
	}
	auditor := audit.New(sinks...)

	var notifier alert.Notifier = alert.NopNotifier{}
	if cfg.Fallback.AlertsEnabled && cfg.Fallback.AlertWebhookURL != "" {
		notifier = alert.NewThrottled(
			alert.NewWebhookNotifier(cfg.Fallback.AlertWebhookURL, 10*time.Second),
			time.Minute, 5,
		)
	}

	limiter := ratelimit.New(redisStore)
	bans := banlist.New(redisStore)
	prober := fallback.NewHTTPProber(cfg.Fallback.VerifyURL, cfg.Fallback.Timeout)
	fallbacks := fallback.New(cfg.Fallback, prober, auditor, notifier)

	gateSvc := gate.New(cfg, limiter, bans, fallbacks, auditor)
	gateSvc.Start()
	defer gateSvc.Stop()

	sweeper := scheduler.New(bans, cfg.SweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	banHandler := handler.NewBanHandler(bans, auditor)
	rateLimitHandler := handler.NewRateLimitHandler(limiter)
	fallbackHandler := handler.NewFallbackHandler(fallbacks)
	var auditHandler *handler.AuditHandler
	if auditRepo != nil {
		auditHandler = handler.NewAuditHandler(auditRepo)
	}

	e := gatehttp.NewRouter(banHandler, rateLimitHandler, fallbackHandler, auditHandler)

	go func() {
		logger.Info("server listening", "addr", cfg.Addr)
		if err := e.Start(cfg.Addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
}
