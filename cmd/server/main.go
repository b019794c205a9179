package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/database"
	"github.com/stemsi/exstem-practice/internal/handler"
	"github.com/stemsi/exstem-practice/internal/llm"
	"github.com/stemsi/exstem-practice/internal/logger"
	"github.com/stemsi/exstem-practice/internal/repository"
	"github.com/stemsi/exstem-practice/internal/router"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stemsi/exstem-practice/internal/validator"
	"github.com/stemsi/exstem-practice/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("llm_provider", cfg.LLM.Provider).
		Msg("Starting ExStem Practice")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── LLM Provider ──────────────────────────────────────────────────
	provider, err := llm.NewProvider(ctx, cfg.LLM, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize LLM provider")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	catalogRepo := repository.NewCatalogRepository(pool)
	sessionRepo := repository.NewPracticeSessionRepository(pool)
	explanationRepo := repository.NewExplanationRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)
	counterRepo := repository.NewCounterRepository(rdb)
	cacheRepo := repository.NewExplanationCacheRepository(rdb)
	snapshotRepo := repository.NewSnapshotRepository(rdb, cfg.SampleSnapshotTTL)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	rateLimitService := service.NewRateLimitService(counterRepo, cfg.AIQuota, log)
	analyticsService := service.NewAnalyticsService(rdb)
	generator := service.NewExplanationGenerator(provider, cacheRepo, explanationRepo, cfg, log)
	explanationService := service.NewExplanationService(
		service.NewExplanationDeps(catalogRepo, generator, rateLimitService),
		analyticsService,
		log,
	)
	practiceService := service.NewPracticeSessionService(catalogRepo, sessionRepo, cfg.SampleQuestionLimit, log)
	sampleService := service.NewSampleSessionService(
		catalogRepo,
		service.RedisSnapshotNamespaces(snapshotRepo),
		cfg.SampleQuestionLimit,
		log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": pool,
			"redis": handler.PingFunc(func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}),
		}),
		Practice:    handler.NewPracticeSessionHandler(practiceService, log),
		Sample:      handler.NewSampleSessionHandler(sampleService, log),
		Explanation: handler.NewExplanationHandler(explanationService, log),
		WS:          handler.NewWSHandler(practiceService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	analyticsWorker := worker.NewAnalyticsWorker(rdb, analyticsRepo, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		analyticsWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, rateLimitService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the analytics queue to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
