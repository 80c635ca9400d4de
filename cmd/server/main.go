package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stemsi/tugas-backend/internal/config"
	"github.com/stemsi/tugas-backend/internal/database"
	"github.com/stemsi/tugas-backend/internal/handler"
	"github.com/stemsi/tugas-backend/internal/logger"
	"github.com/stemsi/tugas-backend/internal/progress"
	"github.com/stemsi/tugas-backend/internal/repository"
	"github.com/stemsi/tugas-backend/internal/router"
	"github.com/stemsi/tugas-backend/internal/service"
	"github.com/stemsi/tugas-backend/internal/storage"
	"github.com/stemsi/tugas-backend/internal/validator"
	"github.com/stemsi/tugas-backend/internal/worker"
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
		Str("store", cfg.StoreDriver).
		Str("blob", cfg.BlobDriver).
		Str("timezone", cfg.SchoolLocation.String()).
		Msg("Starting Tugas Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Assignment Store & Roster ─────────────────────────────────────
	var (
		store  repository.AssignmentStore
		roster repository.RosterProvider
		pool   *pgxpool.Pool
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn().
			Int("roster_sections", len(cfg.MemoryRoster)).
			Msg("Using in-memory assignment store; data is lost on restart and progress totals come from MEMORY_ROSTER")
		store = repository.NewMemoryStore()
		roster = repository.StaticRoster(cfg.MemoryRoster)
	default:
		var err error
		pool, err = database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		store = repository.NewAssignmentRepository(pool)
		roster = repository.NewRosterRepository(pool)
	}

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Blob Store ────────────────────────────────────────────────────
	blobs, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open blob store")
	}

	// ─── Background Workers ────────────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	reaper := worker.NewBlobReaperWorker(rdb, blobs, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		reaper.Start(workerCtx)
	}()

	// ─── Initialize Services ──────────────────────────────────────────
	identityService := service.NewIdentityService(cfg)
	assignmentService := service.NewAssignmentService(store, roster, reaper, log)
	submissionService := service.NewSubmissionService(store, blobs, reaper, cfg.MaxUploadBytes, cfg.SchoolLocation, log)
	broker := progress.NewRedisBroker(rdb, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Assignment: handler.NewAssignmentHandler(assignmentService, cfg.SchoolLocation),
		Submission: handler.NewSubmissionHandler(submissionService, broker, cfg.MaxUploadBytes, log),
		WS:         handler.NewWSHandler(broker, log, cfg.AllowedOrigins),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(identityService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests. Uploads in flight get longer than
	// plain API calls to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the reaper and wait for its queue to drain.
	workerCancel()
	select {
	case <-workerDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Blob reaper did not drain in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
