package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/msmebazaar/platform/internal/app"
	"github.com/msmebazaar/platform/internal/gamification"
	jobmetrics "github.com/msmebazaar/platform/internal/jobs"
	"github.com/msmebazaar/platform/internal/matchmaking"
	"github.com/msmebazaar/platform/internal/payments"
	"github.com/msmebazaar/platform/internal/profiles"
	"github.com/msmebazaar/platform/internal/sellers"
	"github.com/msmebazaar/platform/internal/txmatch"
	"github.com/msmebazaar/platform/jobs"
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

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
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

	mailer := &jobs.SMTPMailer{
		Addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		From: cfg.SMTPFrom,
	}

	sellersRepo := sellers.NewRepository(pool)
	profilesRepo := profiles.NewRepository(pool)
	matchCache := matchmaking.NewCache(redisClient, cfg.MatchCacheTTL)
	matchService := matchmaking.NewService(sellersRepo, profilesRepo, matchCache)

	paymentsRepo := payments.NewRepository(pool)
	txmatchRepo := txmatch.NewRepository(pool)
	txmatchService := txmatch.NewService(txmatchRepo, paymentsRepo, txmatch.DefaultOptions(), logger)

	gamifyRepo := gamification.NewRepository(pool)
	gamifyService := gamification.NewService(gamifyRepo, redisClient)

	metrics := jobmetrics.NewMetrics(nil)

	queueClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	reconcileTask, err := jobs.NewReconcileTask(jobs.ReconcilePayload{})
	if err != nil {
		logger.Error("build reconcile task", slog.Any("error", err))
		os.Exit(1)
	}
	sweepTask, err := jobs.NewMatchSweepTask(jobs.MatchSweepPayload{})
	if err != nil {
		logger.Error("build match sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Metrics:   metrics,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskWelcomeEmail, Handler: jobs.HandleWelcomeEmailTask(mailer, logger)},
			{Type: jobs.TaskMatchRebuild, Handler: jobs.HandleMatchRebuildTask(matchService, logger)},
			{Type: jobs.TaskMatchSweep, Handler: jobs.HandleMatchSweepTask(profilesRepo, queueClient, logger)},
			{Type: jobs.TaskReconcile, Handler: jobs.HandleReconcileTask(txmatchService, metrics, logger)},
			{Type: jobs.TaskAwardPoints, Handler: jobs.HandleAwardPointsTask(gamifyService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 2 * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(2)}},
			{Spec: "0 3 * * *", Task: reconcileTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
