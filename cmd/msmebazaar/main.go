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

	"github.com/msmebazaar/platform/internal/app"
	"github.com/msmebazaar/platform/internal/auth"
	"github.com/msmebazaar/platform/internal/gamification"
	"github.com/msmebazaar/platform/internal/loans"
	"github.com/msmebazaar/platform/internal/matchmaking"
	"github.com/msmebazaar/platform/internal/mlmonitor"
	"github.com/msmebazaar/platform/internal/observability"
	"github.com/msmebazaar/platform/internal/payments"
	"github.com/msmebazaar/platform/internal/platform/cache"
	"github.com/msmebazaar/platform/internal/platform/db"
	"github.com/msmebazaar/platform/internal/profiles"
	"github.com/msmebazaar/platform/internal/recommendations"
	"github.com/msmebazaar/platform/internal/sellers"
	"github.com/msmebazaar/platform/internal/shared"
	"github.com/msmebazaar/platform/internal/txmatch"
	"github.com/msmebazaar/platform/jobs"
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

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenIss, cfg.TokenTTL)
	if err != nil {
		logger.Error("token issuer", slog.Any("error", err))
		os.Exit(1)
	}
	authMW := auth.Middleware{Tokens: tokens}

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokens, jobClient)
	authHandler := auth.NewHandler(logger, authService, authMW)

	matchCache := matchmaking.NewCache(redisClient, cfg.MatchCacheTTL)

	sellersRepo := sellers.NewRepository(dbpool)

	profilesRepo := profiles.NewRepository(dbpool)

	recsService := recommendations.NewService(sellersRepo, profilesRepo, redisClient, cfg.RecsCacheTTL)
	recsHandler := recommendations.NewHandler(logger, recsService, authMW)

	sellersService := sellers.NewService(sellersRepo, auditLogger, matchCache, recsService)
	sellersHandler := sellers.NewHandler(logger, sellersService, authMW)

	gamifyRepo := gamification.NewRepository(dbpool)
	gamifyService := gamification.NewService(gamifyRepo, redisClient)
	gamifyHandler := gamification.NewHandler(logger, gamifyService, authMW)

	profilesService := profiles.NewService(profilesRepo, gamifyService, recsService, jobClient)
	profilesHandler := profiles.NewHandler(logger, profilesService, authMW)

	matchService := matchmaking.NewService(sellersRepo, profilesRepo, matchCache)
	matchHandler := matchmaking.NewHandler(logger, matchService, authMW)
	if err := matchCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("match cache subscribe", slog.Any("error", err))
	}

	loansRepo := loans.NewRepository(dbpool)
	loansService := loans.NewService(loansRepo, auditLogger)
	loansHandler := loans.NewHandler(logger, loansService, authMW)

	paymentsRepo := payments.NewRepository(dbpool)
	paymentsService := payments.NewService(paymentsRepo, idempotencyStore)
	paymentsHandler := payments.NewHandler(logger, paymentsService, authMW)

	txmatchRepo := txmatch.NewRepository(dbpool)
	txmatchService := txmatch.NewService(txmatchRepo, paymentsRepo, txmatch.DefaultOptions(), logger)
	txmatchHandler := txmatch.NewHandler(logger, txmatchService, authMW)

	mlRepo := mlmonitor.NewRepository(dbpool)
	mlService := mlmonitor.NewService(mlRepo, metrics.Registerer())
	mlHandler := mlmonitor.NewHandler(logger, mlService, authMW)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Metrics:         metrics,
		Auth:            authHandler,
		Sellers:         sellersHandler,
		Profiles:        profilesHandler,
		Loans:           loansHandler,
		Payments:        paymentsHandler,
		Matchmaking:     matchHandler,
		Recommendations: recsHandler,
		Gamification:    gamifyHandler,
		TxMatch:         txmatchHandler,
		MLMonitor:       mlHandler,
		Jobs:            jobHandler,
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
