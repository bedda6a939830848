package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/vendorflow/vendorflow/cmd/vendorflow/cli"
	"github.com/vendorflow/vendorflow/internal/app"
	"github.com/vendorflow/vendorflow/internal/auth"
	"github.com/vendorflow/vendorflow/internal/connections"
	"github.com/vendorflow/vendorflow/internal/dashboard"
	"github.com/vendorflow/vendorflow/internal/events"
	"github.com/vendorflow/vendorflow/internal/fleet"
	"github.com/vendorflow/vendorflow/internal/intake"
	"github.com/vendorflow/vendorflow/internal/integration/odoo"
	"github.com/vendorflow/vendorflow/internal/inventory"
	"github.com/vendorflow/vendorflow/internal/invoicing"
	"github.com/vendorflow/vendorflow/internal/masterdata/categories"
	"github.com/vendorflow/vendorflow/internal/masterdata/companies"
	"github.com/vendorflow/vendorflow/internal/masterdata/products"
	"github.com/vendorflow/vendorflow/internal/notify"
	"github.com/vendorflow/vendorflow/internal/observability"
	"github.com/vendorflow/vendorflow/internal/orders"
	"github.com/vendorflow/vendorflow/internal/platform/cache"
	"github.com/vendorflow/vendorflow/internal/platform/db"
	"github.com/vendorflow/vendorflow/internal/platform/lock"
	"github.com/vendorflow/vendorflow/internal/rbac"
	"github.com/vendorflow/vendorflow/internal/retailers"
	"github.com/vendorflow/vendorflow/internal/shared"
	"github.com/vendorflow/vendorflow/internal/shipments"
	"github.com/vendorflow/vendorflow/internal/users"
	"github.com/vendorflow/vendorflow/jobs"
	"github.com/vendorflow/vendorflow/migrations"
)

const usage = `usage: vendorflow <command>

commands:
  serve                          run the HTTP API (default)
  migrate                        apply pending database migrations
  jobs trigger <type> [company]  enqueue a background job
  jobs stats                     print default queue counters`

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

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "migrate":
		err = migrate(ctx, cfg, logger)
	case "jobs":
		err = runJobs(ctx, cfg, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error(cmd, slog.Any("error", err))
		os.Exit(1)
	}
}

func migrate(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool, migrations.FS, logger)
	if err != nil {
		return err
	}
	logger.Info("migrations complete", slog.Int("applied", applied))
	return nil
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
	defer jobsCLI.Close()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New("jobs trigger: task type required")
		}
		var companyID int64
		if len(args) > 2 {
			id, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("jobs trigger: company id: %w", err)
			}
			companyID = id
		}
		info, err := jobsCLI.Trigger(ctx, args[1], companyID)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	default:
		return errors.New(usage)
	}
	return nil
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	publisher, closePublisher := newPublisher(cfg, logger)
	defer closePublisher()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return fmt.Errorf("init job client: %w", err)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	mailTemplates, err := notify.LoadTemplates()
	if err != nil {
		return fmt.Errorf("parse mail templates: %w", err)
	}
	mailer := notify.NewMailer(jobClient, mailTemplates)

	locker := lock.New(redisClient, logger)
	ledger := inventory.NewLedger(logger)
	auditLogger := shared.NewAuditLogger(pool)

	usersService := users.NewService(users.NewRepository(pool), auditLogger)
	rbacMiddleware := rbac.Middleware{Resolver: usersService, Logger: logger}

	companiesService := companies.NewService(companies.NewRepository(pool), auditLogger, logger)
	guard := companiesService

	fleetService := fleet.NewService(fleet.NewRepository(pool), auditLogger, logger)
	retailersRepo := retailers.NewRepository(pool)
	retailersService := retailers.NewService(retailersRepo, auditLogger, logger)

	authService := auth.NewService(
		auth.NewRepository(pool),
		auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		auth.NewRedisStore(redisClient),
		mailer,
		auth.Options{
			OTPTTL: cfg.OTPTTL,
			Hooks: []auth.RegistrationHook{
				retailers.ProfileHook{Store: retailersRepo},
				fleet.EmployeeHook{Service: fleetService},
			},
			Logger: logger,
		},
	)

	categoriesService := categories.NewService(categories.NewRepository(pool))
	productsService := products.NewService(products.NewRepository(pool), ledger, products.Options{
		Locker: locker,
		Sync:   jobClient,
		Audit:  auditLogger,
		Logger: logger,
	})
	inventoryService := inventory.NewService(inventory.NewRepository(pool), ledger, locker, logger)
	connectionsService := connections.NewService(connections.NewRepository(pool), auditLogger, logger)
	ordersService := orders.NewService(orders.NewRepository(pool), ledger, orders.Options{
		Locker:    locker,
		Publisher: publisher,
		Audit:     auditLogger,
		Logger:    logger,
	})
	shipmentsService := shipments.NewService(shipments.NewRepository(pool), ledger, shipments.Options{
		Locker:    locker,
		Publisher: publisher,
		Orders:    ordersService,
		Audit:     auditLogger,
		Logger:    logger,
	})
	invoicingService := invoicing.NewService(invoicing.NewRepository(pool), ledger, invoicing.Options{
		Locker:    locker,
		Publisher: publisher,
		Audit:     auditLogger,
		Logger:    logger,
	})
	intakeService := intake.NewService(intake.NewRepository(pool), ledger, intake.Options{
		Locker: locker,
		Sync:   jobClient,
		Audit:  auditLogger,
		Logger: logger,
	})
	dashboardService := dashboard.NewService(dashboard.Sources{
		Counts:     ordersService,
		Categories: categoriesService,
		Shipments:  shipmentsService,
		Invoices:   invoicingService,
		Activity:   auditLogger,
	}, cache.NewJSONCache(redisClient, "dashboard", dashboard.TTL), logger)
	odooService := odoo.NewService(odoo.NewRepository(pool), odoo.NewClient(http.DefaultTransport), cfg.OdooURL, logger)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Authenticate:       authService.Bearer,
		AuthHandler:        auth.NewHandler(logger, authService),
		UsersHandler:       users.NewHandler(logger, usersService, guard, rbacMiddleware),
		CompaniesHandler:   companies.NewHandler(logger, companiesService, rbacMiddleware),
		CategoriesHandler:  categories.NewHandler(logger, categoriesService, guard, rbacMiddleware),
		ProductsHandler:    products.NewHandler(logger, productsService, guard, rbacMiddleware),
		InventoryHandler:   inventory.NewHandler(inventoryService, guard, rbacMiddleware, logger),
		RetailersHandler:   retailers.NewHandler(logger, retailersService, guard, rbacMiddleware),
		ConnectionsHandler: connections.NewHandler(logger, connectionsService, guard, rbacMiddleware),
		OrdersHandler:      orders.NewHandler(logger, ordersService, guard, rbacMiddleware),
		FleetHandler:       fleet.NewHandler(logger, fleetService, guard, rbacMiddleware),
		ShipmentsHandler:   shipments.NewHandler(logger, shipmentsService, guard, rbacMiddleware),
		InvoicesHandler:    invoicing.NewHandler(logger, invoicingService, guard, rbacMiddleware),
		IntakeHandler:      intake.NewHandler(logger, intakeService, guard, rbacMiddleware),
		DashboardHandler:   dashboard.NewHandler(logger, dashboardService, guard, rbacMiddleware),
		OdooHandler:        odoo.NewHandler(logger, odooService),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            observability.NewMetrics(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
		IdleTimeout:  cfg.AppIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}

func newPublisher(cfg *app.Config, logger *slog.Logger) (events.Publisher, func()) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP_URL not set, domain events are dropped")
		return events.Noop{}, func() {}
	}
	pub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	if err != nil {
		logger.Warn("amqp unavailable, domain events are dropped", slog.Any("error", err))
		return events.Noop{}, func() {}
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			logger.Warn("amqp close", slog.Any("error", err))
		}
	}
}
