// Copyright (c) 2026 Fabula. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Fabula HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire HTTP handlers.
//  7. Sweep the content store against the database in the background.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/taibuivan/fabula/internal/api"
	"github.com/taibuivan/fabula/internal/guest"
	"github.com/taibuivan/fabula/internal/history"
	"github.com/taibuivan/fabula/internal/platform/config"
	"github.com/taibuivan/fabula/internal/platform/constants"
	"github.com/taibuivan/fabula/internal/platform/migration"
	pgstore "github.com/taibuivan/fabula/internal/platform/postgres"
	redisstore "github.com/taibuivan/fabula/internal/platform/redis"
	"github.com/taibuivan/fabula/internal/platform/sec"
	"github.com/taibuivan/fabula/internal/story"
	storysync "github.com/taibuivan/fabula/internal/sync"
	"github.com/taibuivan/fabula/internal/users/account"
	"github.com/taibuivan/fabula/internal/users/auth"
	"github.com/taibuivan/fabula/internal/voice"
	"github.com/taibuivan/fabula/internal/workflow"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "fabula"))
	slog.SetDefault(log)

	log.Info("[Fabula] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "fabula"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Auth Service ───────────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)
	resetRepository := auth.NewResetTokenRepository(rdb)
	verifyRepository := auth.NewVerificationTokenRepository(rdb)
	authService := auth.NewService(userRepository, sessionRepository, resetRepository, verifyRepository, jwtSvc)
	authHandler := auth.NewHandler(authService)

	accountRepository := account.NewAccountRepository(pool)
	preferencesRepository := account.NewPreferencesRepository(pool)
	accountSessionRepository := account.NewSessionRepository(pool)
	accountService := account.NewService(accountRepository, preferencesRepository, accountSessionRepository, log)
	accountHandler := account.NewHandler(accountService)

	voiceRepository := voice.NewRepository(pool)
	voiceService := voice.NewService(voiceRepository, cfg.VoicesPath, log)
	voiceHandler := voice.NewHandler(voiceService)

	storyRepository := story.NewRepository(pool)
	contentStore := storysync.NewContentStore(cfg.StoriesPath)
	syncEngine := storysync.NewEngine(storyRepository, contentStore, log)
	workflowClient := workflow.NewClient(cfg.WorkflowWebhookURL, cfg.WorkflowRedubWebhookURL, log)
	storyService := story.NewService(storyRepository, workflowClient, syncEngine, voiceService, cfg.DailyStoryLimit, log)

	guestRepository := guest.NewRepository(pool)
	guestLimiter := guest.NewLimiter(guestRepository, cfg.GuestDailyReadLimit, log)
	storyHandler := story.NewHandler(storyService, guestLimiter)

	historyRepository := history.NewRepository(pool)
	historyService := history.NewService(historyRepository, log)
	historyHandler := history.NewHandler(historyService)

	// ── 9. Startup Sweep ──────────────────────────────────────────────────
	// Reconcile the content store in the background so a large library
	// does not delay serving traffic.
	go func() {
		sweepCtx, sweepCancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer sweepCancel()
		if err := syncEngine.ReconcileAll(sweepCtx); err != nil {
			log.Error("startup sweep failed", slog.Any("error", err))
		}
	}()

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Account:   accountHandler,
		Story:     storyHandler,
		Voice:     voiceHandler,
		History:   historyHandler,
	}

	// The server context outlives startup; it feeds the rate limiter's
	// background cleanup loop.
	server := api.NewServer(context.Background(), cfg, log, jwtSvc, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
