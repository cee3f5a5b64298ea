package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/examdrive/examdrive-backend/internal/cache"
	"github.com/examdrive/examdrive-backend/internal/config"
	"github.com/examdrive/examdrive-backend/internal/database"
	"github.com/examdrive/examdrive-backend/internal/events"
	"github.com/examdrive/examdrive-backend/internal/handler"
	"github.com/examdrive/examdrive-backend/internal/logger"
	"github.com/examdrive/examdrive-backend/internal/middleware"
	"github.com/examdrive/examdrive-backend/internal/repository"
	"github.com/examdrive/examdrive-backend/internal/repository/memstore"
	"github.com/examdrive/examdrive-backend/internal/router"
	"github.com/examdrive/examdrive-backend/internal/service"
	"github.com/examdrive/examdrive-backend/internal/validator"
	"github.com/examdrive/examdrive-backend/internal/worker"
	"github.com/rs/zerolog"
)

// stores bundles the persistence the services need.
type stores struct {
	drives    repository.DriveStore
	students  repository.StudentStore
	operators repository.OperatorStore
	audit     repository.ViolationAudit
	db        handler.Pinger
	close     func()
}

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("store", cfg.StoreBackend).
		Msg("Starting exam drive backend")
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect Stores ────────────────────────────────────────────────
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open stores")
	}
	defer st.close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Services ──────────────────────────────────────────
	publisher := events.NewRedisPublisher(rdb, log)
	papers := cache.NewPaperCache(rdb, st.drives, cfg.PaperCacheTTL, log)
	clock := service.Clock(service.SystemClock)

	authService := service.NewAuthService(cfg, rdb, st.students, st.operators, clock)
	driveService := service.NewDriveService(st.drives, st.students, clock, log)
	windowService := service.NewWindowService(st.drives, st.students, publisher, clock, log)
	sessionService := service.NewSessionService(st.drives, st.students, papers, service.CryptoShuffler{}, publisher, clock, log)
	violationService := service.NewViolationService(st.students, publisher, clock, log)
	resultService := service.NewResultService(st.drives, st.students)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService, log),
		StudentPortal: handler.NewStudentPortalHandler(sessionService, violationService, log),
		Drive:         handler.NewDriveHandler(driveService, windowService, papers, log),
		Result:        handler.NewResultHandler(resultService, log),
		Monitor:       handler.NewMonitorHandler(rdb, resultService, st.audit, log),
		WS:            handler.NewWSHandler(violationService, log, cfg.AllowedOrigins),
		System:        handler.NewSystemHandler(rdb, st.db, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	violationWorker := worker.NewViolationWorker(st.audit, rdb, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		violationWorker.Start(workerCtx)
	}()

	// Login routes: 30 requests per minute per client and route.
	authLimiter := middleware.NewRateLimiter(30, time.Minute)
	go authLimiter.Run(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, authLimiter, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
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

	// 2. Stop the violation worker and let it flush its last batch.
	workerCancel()
	select {
	case <-workerDone:
	case <-time.After(5 * time.Second):
		log.Warn().Msg("Violation worker did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		log.Warn().Msg("Using in-memory store; data is lost on restart")
		mem := memstore.New()
		return &stores{
			drives:    mem,
			students:  mem,
			operators: mem,
			audit:     mem,
			close:     func() {},
		}, nil
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &stores{
		drives:    repository.NewDriveRepository(pool),
		students:  repository.NewStudentRepository(pool),
		operators: repository.NewOperatorRepository(pool),
		audit:     repository.NewViolationEventRepository(pool),
		db:        pool,
		close:     pool.Close,
	}, nil
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
