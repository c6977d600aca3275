package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/workdesk/internal/app"
	"github.com/odyssey-erp/workdesk/internal/audit"
	"github.com/odyssey-erp/workdesk/internal/documents"
	"github.com/odyssey-erp/workdesk/internal/notify"
	"github.com/odyssey-erp/workdesk/internal/observability"
	"github.com/odyssey-erp/workdesk/internal/platform/cache"
	"github.com/odyssey-erp/workdesk/internal/platform/db"
	"github.com/odyssey-erp/workdesk/internal/rbac"
	"github.com/odyssey-erp/workdesk/internal/settings"
	"github.com/odyssey-erp/workdesk/internal/shared"
	"github.com/odyssey-erp/workdesk/jobs"
	"github.com/odyssey-erp/workdesk/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	rbacService := rbac.NewService(rbac.NewStore(dbpool))
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	settingsService := settings.NewService(settings.NewStore(dbpool), cache.NewJSONCache(redisClient, "workdesk:settings", cfg.SettingsCacheTTL))

	documentService := documents.NewService(documents.NewRepository(dbpool), auditLogger, idempotencyStore, logger, documents.Options{
		MaxNumberAttempts: cfg.NumberingMaxAttempts,
	})

	notifyService := notify.NewService(notify.NewStore(dbpool), settingsService, jobClient, logger, notify.Options{
		AppName:        cfg.AppName,
		AppURL:         cfg.AppURL,
		SMTPConfigured: cfg.SMTPConfigured(),
	})

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	var pdfRenderer notify.PDFRenderer
	if pdfClient := report.NewClient(cfg.GotenbergURL); pdfClient.Enabled() {
		pdfRenderer = pdfClient
	}

	metrics := observability.NewMetrics()
	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Database:         dbpool,
		DocumentsHandler: documents.NewHandler(logger, documentService, rbacMiddleware),
		RBACHandler:      rbac.NewHandler(logger, rbacService, rbacMiddleware),
		SettingsHandler:  settings.NewHandler(logger, settingsService, rbacMiddleware),
		NotifyHandler:    notify.NewHandler(logger, notifyService, rbacMiddleware, pdfRenderer),
		JobHandler:       jobs.NewHandler(inspector, logger),
		AuditHandler:     audit.NewHandler(logger, audit.NewService(audit.NewStore(dbpool)), rbacMiddleware),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
