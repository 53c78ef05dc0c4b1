package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/abroad-backend/internal/config"
	"github.com/stemsi/abroad-backend/internal/database"
	"github.com/stemsi/abroad-backend/internal/handler"
	"github.com/stemsi/abroad-backend/internal/lifecycle"
	"github.com/stemsi/abroad-backend/internal/logger"
	"github.com/stemsi/abroad-backend/internal/middleware"
	"github.com/stemsi/abroad-backend/internal/querycache"
	"github.com/stemsi/abroad-backend/internal/repository"
	"github.com/stemsi/abroad-backend/internal/router"
	"github.com/stemsi/abroad-backend/internal/service"
	"github.com/stemsi/abroad-backend/internal/validator"
	ws "github.com/stemsi/abroad-backend/internal/websocket"
	"github.com/stemsi/abroad-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Abroad Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	// ─── Load Status Catalogue ─────────────────────────────────────────
	catalogue, err := config.LoadStatusCatalogue(cfg.StatusCataloguePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.StatusCataloguePath).Msg("Failed to load status catalogue")
	}
	log.Info().Int("statuses", len(catalogue.Statuses())).Msg("Status catalogue loaded")

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

	// ─── Initialize Repositories ───────────────────────────────────────
	staffRepo := repository.NewStaffRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	catalogueRepo := repository.NewCatalogueRepository(pool)
	applicationRepo := repository.NewApplicationRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	listCache := querycache.NewRedisStore(rdb, cfg.ListCacheTTL, log)
	machine := lifecycle.NewMachine(catalogue)

	authService := service.NewAuthService(cfg, rdb, staffRepo)
	studentService := service.NewStudentService(studentRepo, listCache, log)
	catalogueService := service.NewCatalogueService(catalogueRepo, listCache, log)
	applicationService := service.NewApplicationService(
		applicationRepo, studentRepo, catalogueRepo, activityRepo, machine, listCache, rdb, log,
	)
	conversationService := service.NewConversationService(conversationRepo, listCache, rdb, log)
	mediaService := service.NewMediaService(cfg)

	// ─── Initialize Handlers ──────────────────────────────────────────
	hub := ws.NewHub(conversationService, log)
	handlers := &router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Student:      handler.NewStudentHandler(studentService),
		Application:  handler.NewApplicationHandler(applicationService),
		Conversation: handler.NewConversationHandler(conversationService),
		Catalogue:    handler.NewCatalogueHandler(catalogueService),
		Media:        handler.NewMediaHandler(mediaService),
		WS:           handler.NewWSHandler(conversationService, hub, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})

	activityWorker := worker.NewActivityWorker(activityRepo, rdb, log)
	go func() {
		activityWorker.Start(workerCtx)
		close(workerDone)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	loginLimiter := middleware.NewRateLimiter(rdb, cfg.LoginRateLimit, cfg.LoginRateWindow, log)
	health := database.NewHealth(map[string]database.Pinger{
		"postgres": pool.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	r := router.SetupRouter(authService, loginLimiter, health, handlers, cfg, log)

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

	// 2. Stop the activity worker and wait for its buffer to flush.
	workerCancel()
	select {
	case <-workerDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Activity worker did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
