package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/workdesk/internal/app"
	"github.com/odyssey-erp/workdesk/internal/documents"
	"github.com/odyssey-erp/workdesk/internal/notify"
	"github.com/odyssey-erp/workdesk/internal/observability"
	"github.com/odyssey-erp/workdesk/internal/platform/cache"
	"github.com/odyssey-erp/workdesk/internal/platform/db"
	"github.com/odyssey-erp/workdesk/internal/settings"
	"github.com/odyssey-erp/workdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	registry := observability.NewMetrics()
	metrics := registry.Jobs()
	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: registry.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	settingsService := settings.NewService(settings.NewStore(pool), cache.NewJSONCache(redisClient, "workdesk:settings", cfg.SettingsCacheTTL))
	documentService := documents.NewService(documents.NewRepository(pool), nil, nil, logger, documents.Options{
		MaxNumberAttempts: cfg.NumberingMaxAttempts,
	})
	notifyService := notify.NewService(notify.NewStore(pool), settingsService, jobClient, logger, notify.Options{
		AppName:        cfg.AppName,
		AppURL:         cfg.AppURL,
		SMTPConfigured: cfg.SMTPConfigured(),
	})

	mailJob := &jobs.SendEmailJob{
		Mailer: jobs.NewSMTPMailer(jobs.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}),
		Settings: settingsService,
		Logger:   logger,
		Metrics:  metrics,
	}
	reminderJob := jobs.NewOverdueReminderJob(settingsService, documentService, notifyService, settingsService, logger, metrics)
	reminderJob.Concurrency = cfg.ReminderConcurrency

	reminderTask, err := jobs.NewOverdueRemindersTask(jobs.OverdueRemindersPayload{})
	if err != nil {
		logger.Error("build reminder task", slog.Any("error", err))
		os.Exit(1)
	}

	if !cfg.SMTPConfigured() {
		logger.Warn("smtp not configured, mail:send tasks will fail")
	}
	handlers := []jobs.TaskHandler{
		{Type: jobs.TaskTypeSendEmail, Handler: mailJob.Handle},
		{Type: jobs.TaskOverdueReminders, Handler: reminderJob.Handle},
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers:    handlers,
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ReminderCron, Task: reminderTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
