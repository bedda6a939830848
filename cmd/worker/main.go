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

	"github.com/vendorflow/vendorflow/internal/app"
	"github.com/vendorflow/vendorflow/internal/integration/odoo"
	"github.com/vendorflow/vendorflow/internal/inventory"
	jobmetrics "github.com/vendorflow/vendorflow/internal/jobs"
	"github.com/vendorflow/vendorflow/internal/notify"
	"github.com/vendorflow/vendorflow/internal/observability"
	"github.com/vendorflow/vendorflow/internal/platform/cache"
	"github.com/vendorflow/vendorflow/internal/platform/db"
	"github.com/vendorflow/vendorflow/internal/platform/lock"
	"github.com/vendorflow/vendorflow/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	ledger := inventory.NewLedger(logger)
	inventoryService := inventory.NewService(inventory.NewRepository(pool), ledger, lock.New(redisClient, logger), logger)
	metrics := observability.NewMetrics()
	reconcileJob := jobs.NewStockReconcileJob(jobs.PoolCompanies{Pool: pool}, inventoryService, logger,
		jobmetrics.NewMetrics(metrics.Registerer()))

	if cfg.MetricsEnabled && cfg.MetricsAddr != "" {
		metricsServer := metrics.Server(cfg.MetricsAddr)
		go func() {
			logger.Info("starting metrics server", slog.String("addr", cfg.MetricsAddr))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown", slog.Any("error", err))
			}
		}()
	}

	odooService := odoo.NewService(odoo.NewRepository(pool), odoo.NewClient(http.DefaultTransport), cfg.OdooURL, logger)

	sender := notify.NewSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.SMTPFrom,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	}, logger)

	reconcileTask, err := jobs.NewStockReconcileTask(0, time.Now())
	if err != nil {
		logger.Error("build reconcile task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: notify.HandleSendEmail(sender, logger)},
			{Type: jobs.TaskTypeProductSync, Handler: odooService.HandleProductSync},
			{Type: jobs.TaskTypeStockReconcile, Handler: reconcileJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 2 * * *", Task: reconcileTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
