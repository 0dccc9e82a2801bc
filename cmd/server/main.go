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

	"github.com/gadgetbay/gadgetbay/internal/accounts"
	"github.com/gadgetbay/gadgetbay/internal/app"
	"github.com/gadgetbay/gadgetbay/internal/audit"
	audithttp "github.com/gadgetbay/gadgetbay/internal/audit/http"
	"github.com/gadgetbay/gadgetbay/internal/auth"
	"github.com/gadgetbay/gadgetbay/internal/claims"
	"github.com/gadgetbay/gadgetbay/internal/gate"
	"github.com/gadgetbay/gadgetbay/internal/listings"
	"github.com/gadgetbay/gadgetbay/internal/observability"
	"github.com/gadgetbay/gadgetbay/internal/orders"
	"github.com/gadgetbay/gadgetbay/internal/platform/cache"
	"github.com/gadgetbay/gadgetbay/internal/platform/db"
	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/internal/reviews"
	"github.com/gadgetbay/gadgetbay/internal/sellers"
	"github.com/gadgetbay/gadgetbay/internal/shared"
	"github.com/gadgetbay/gadgetbay/internal/view"
	"github.com/gadgetbay/gadgetbay/jobs"
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

	metrics := observability.NewMetrics()

	issuer, err := claims.NewIssuer(cfg.ClaimsSecret, cfg.ClaimsTTL)
	if err != nil {
		logger.Error("claims issuer", slog.Any("error", err))
		os.Exit(1)
	}
	invalidations := shared.NewInvalidationLog(dbpool, redisClient, cfg.StaleMarkerTTL)
	accountsRepo := accounts.NewRepository(dbpool)
	refresher := claims.NewRefresher(issuer, accountsRepo, invalidations, cfg.ClaimsRefreshInterval)
	transport := claims.NewTransport(cfg.ClaimsCookie, cfg.IsProduction())
	claimsLoader := &claims.Loader{
		Issuer:    issuer,
		Refresher: refresher,
		Transport: transport,
		Logger:    logger,
		Recorder:  metrics,
	}

	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret, cfg.IsProduction())

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	listingsService := listings.NewService(listings.NewRepository(dbpool), accountsRepo)
	accountsService := accounts.NewService(accountsRepo, auditLogger, invalidations, listingsService, jobClient, hasher, logger)
	sellersService := sellers.NewService(sellers.NewRepository(dbpool), accountsRepo, auditLogger, invalidations, jobClient, logger)
	ordersService := orders.NewService(orders.NewRepository(dbpool), accountsRepo, listingsService, idempotencyStore, logger)
	reviewsService := reviews.NewService(reviews.NewRepository(dbpool), accountsRepo, ordersService)
	auditService := audit.NewService(audit.NewRepository(dbpool), accountsRepo)
	authService := auth.NewService(accountsRepo, hasher, issuer, refresher)

	actor := rbac.ActorFunc(claims.ActorFromRequest)
	rbacMiddleware := rbac.Middleware{Actor: actor, Logger: logger, Recorder: metrics}

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		ClaimsLoader: claimsLoader,
		Gate:         gate.Default(),
		CSRFManager:  csrfManager,
		Metrics:      metrics,
		PagesHandler: app.NewPagesHandler(logger, templates, csrfManager, app.DashboardSources{
			Orders:   ordersService,
			Listings: listingsService,
			Sellers:  sellersService,
			Accounts: accountsService,
		}),
		AuthHandler:        auth.NewHandler(logger, authService, templates, transport, csrfManager),
		AccountsHandler:    accounts.NewHandler(logger, accountsService, actor),
		SellersHandler:     sellers.NewHandler(logger, sellersService, actor),
		ListingsHandler:    listings.NewHandler(logger, listingsService, actor),
		OrdersHandler:      orders.NewHandler(logger, ordersService, actor),
		ReviewsHandler:     reviews.NewHandler(logger, reviewsService, actor),
		AuditHandler:       audithttp.NewHandler(logger, auditService, actor),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
