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
	"github.com/shopspring/decimal"

	"github.com/oris-services/servicedesk/internal/app"
	"github.com/oris-services/servicedesk/internal/auth"
	"github.com/oris-services/servicedesk/internal/dashboard"
	"github.com/oris-services/servicedesk/internal/inventory"
	"github.com/oris-services/servicedesk/internal/masterdata/offerings"
	"github.com/oris-services/servicedesk/internal/masterdata/products"
	"github.com/oris-services/servicedesk/internal/observability"
	"github.com/oris-services/servicedesk/internal/platform/cache"
	"github.com/oris-services/servicedesk/internal/platform/db"
	"github.com/oris-services/servicedesk/internal/publications"
	"github.com/oris-services/servicedesk/internal/rbac"
	"github.com/oris-services/servicedesk/internal/sales/quotations"
	"github.com/oris-services/servicedesk/internal/shared"
	"github.com/oris-services/servicedesk/internal/tickets"
	"github.com/oris-services/servicedesk/internal/users"
	"github.com/oris-services/servicedesk/jobs"
	"github.com/oris-services/servicedesk/report"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "desk_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	metrics := observability.NewMetrics()

	rbacService := rbac.NewService(rbac.NewPGStore(dbpool))
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	threshold := int64(cfg.LowStockThreshold)
	dashboardCache := cache.NewVersioned(redisClient, "dashboard", cfg.DashboardCacheTTL)
	dashboardService := dashboard.NewService(dashboard.NewRepository(dbpool), dashboardCache, threshold, logger)

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger, idempotencyStore, dashboardService, logger)

	quotationService := quotations.NewService(quotations.NewRepository(dbpool), logger,
		quotations.WithAudit(auditLogger),
		quotations.WithStockNotifier(inventoryService),
		quotations.WithRecorder(metrics),
		quotations.WithInvalidator(dashboardService),
	)

	reportClient := report.NewClient(cfg.GotenbergURL)
	renderer, err := report.NewRenderer(reportClient)
	if err != nil {
		logger.Error("init document renderer", slog.Any("error", err))
		os.Exit(1)
	}

	evidenceStore, evidenceFiles, err := app.NewStore(ctx, cfg)
	if err != nil {
		logger.Error("init evidence storage", slog.Any("error", err))
		os.Exit(1)
	}
	ticketService := tickets.NewService(tickets.NewRepository(dbpool), evidenceStore, logger,
		tickets.WithAudit(auditLogger),
		tickets.WithInvalidator(dashboardService),
	)
	publicationService := publications.NewService(publications.NewRepository(dbpool), evidenceStore, logger,
		publications.WithAudit(auditLogger),
	)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Metrics:        metrics,
		RBAC:           rbacMiddleware,

		AuthHandler:         auth.NewHandler(logger, auth.NewService(auth.NewRepository(dbpool)), sessionManager, csrfManager, rbacMiddleware),
		UsersHandler:        users.NewHandler(logger, users.NewService(users.NewRepository(dbpool), auditLogger, logger), rbacMiddleware),
		PermissionsHandler:  rbac.NewPermissionsHandler(rbacService, rbacMiddleware),
		ProductsHandler:     products.NewHandler(logger, products.NewService(products.NewRepository(dbpool), dashboardService, logger), rbacMiddleware),
		OfferingsHandler:    offerings.NewHandler(logger, offerings.NewService(offerings.NewRepository(dbpool)), rbacMiddleware),
		InventoryHandler:    inventory.NewHandler(logger, inventoryService, rbacMiddleware, threshold),
		QuotationsHandler:   quotations.NewHandler(logger, quotationService, renderer, rbacMiddleware, decimal.NewFromFloat(cfg.TaxRate)),
		TicketsHandler:      tickets.NewHandler(logger, ticketService, rbacMiddleware),
		PublicationsHandler: publications.NewHandler(logger, publicationService, rbacMiddleware),
		DashboardHandler:    dashboard.NewHandler(logger, dashboardService, rbacMiddleware),
		ReportHandler:       report.NewHandler(reportClient, logger),
		JobHandler:          jobs.NewHandler(inspector, logger),

		EvidenceFiles: evidenceFiles,
		EvidencePath:  cfg.StorageBaseURL,
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
