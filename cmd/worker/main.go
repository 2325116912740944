package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/anungis437/nzila-os-sub012/internal/app"
	"github.com/anungis437/nzila-os-sub012/internal/assignments"
	jobmetrics "github.com/anungis437/nzila-os-sub012/internal/jobs"
	"github.com/anungis437/nzila-os-sub012/internal/ledger"
	"github.com/anungis437/nzila-os-sub012/internal/lifecycle"
	"github.com/anungis437/nzila-os-sub012/internal/observability"
	"github.com/anungis437/nzila-os-sub012/internal/platform/db"
	"github.com/anungis437/nzila-os-sub012/jobs"
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

	ledgerService := ledger.NewService(ledger.NewRepository(pool))

	store := lifecycle.NewStore(pool)
	// Sweep expirations are appended synchronously here: the worker is
	// already off the request path, so there is nothing to defer to.
	sweeper := lifecycle.NewSweeper(store, syncRecorder{svc: ledgerService, logger: logger}, logger)
	tracker := lifecycle.NewElectionTracker(assignments.NewRepository(pool), logger)

	electionTask, err := jobs.NewElectionScanTask(jobs.ElectionScanPayload{HorizonDays: cfg.ElectionHorizonDays})
	if err != nil {
		logger.Error("build election task", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Metrics:   jobmetrics.NewMetrics(metrics.Registerer()),
		Handlers: []jobs.TaskHandler{
			{Type: ledger.TaskTypeAppend, Handler: jobs.NewLedgerAppendHandler(ledgerService, logger, metrics)},
			{Type: jobs.TaskTermSweep, Handler: jobs.NewTermSweepHandler(sweeper, logger, metrics)},
			{Type: jobs.TaskElectionScan, Handler: jobs.NewElectionScanHandler(store, tracker, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SweepCron, Task: jobs.NewTermSweepTask(), Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
			{Spec: cfg.ElectionScanCron, Task: electionTask, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// syncRecorder appends directly to the ledger, still swallowing failures so
// batch jobs are never blocked by the audit sink.
type syncRecorder struct {
	svc    *ledger.Service
	logger *slog.Logger
}

func (r syncRecorder) Record(ctx context.Context, entry ledger.Entry) {
	if _, err := r.svc.Append(ctx, entry); err != nil {
		r.logger.Error("sweep audit append failed",
			slog.String("org_id", entry.OrgID),
			slog.Any("error", err))
	}
}
