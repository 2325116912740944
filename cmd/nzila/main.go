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
	"github.com/redis/go-redis/v9"

	"github.com/anungis437/nzila-os-sub012/internal/app"
	"github.com/anungis437/nzila-os-sub012/internal/assignments"
	"github.com/anungis437/nzila-os-sub012/internal/authz"
	"github.com/anungis437/nzila-os-sub012/internal/exceptions"
	"github.com/anungis437/nzila-os-sub012/internal/ledger"
	"github.com/anungis437/nzila-os-sub012/internal/observability"
	"github.com/anungis437/nzila-os-sub012/internal/platform/db"
	"github.com/anungis437/nzila-os-sub012/internal/roles"
)

func main() {
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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	metrics := observability.NewMetrics()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()
	recorder := ledger.NewDispatcher(asynqClient, logger, metrics)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()
	go ledger.NewBacklogMonitor(inspector, metrics, logger, cfg.AuditBacklogPoll).Run(ctx)

	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo)

	permCache := authz.NewPermissionCache(redisClient, cfg.PermissionCacheTTL)

	assignmentsRepo := assignments.NewRepository(pool)
	assignmentsService := assignments.NewService(assignmentsRepo, rolesService, recorder, permCache, logger)

	exceptionsRepo := exceptions.NewRepository(pool)
	exceptionsService := exceptions.NewService(exceptionsRepo, recorder)

	resolver := authz.NewResolver(assignmentsRepo, rolesService, recorder, permCache, metrics)

	ledgerService := ledger.NewService(ledger.NewRepository(pool))

	handler := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		RolesHandler:       roles.NewHandler(rolesService),
		AssignmentsHandler: assignments.NewHandler(assignmentsService),
		ExceptionsHandler:  exceptions.NewHandler(exceptionsService),
		AuthzHandler:       authz.NewHandler(resolver),
		LedgerHandler:      ledger.NewHandler(ledgerService),
		AuthzMiddleware:    authz.Middleware{Resolver: resolver, Recorder: recorder, Metrics: metrics, Logger: logger},
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      handler,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
