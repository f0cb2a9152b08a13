package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/access"
	"github.com/stemsi/exam-portal/internal/attempt"
	"github.com/stemsi/exam-portal/internal/backend"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/database"
	"github.com/stemsi/exam-portal/internal/handler"
	"github.com/stemsi/exam-portal/internal/journal"
	"github.com/stemsi/exam-portal/internal/logger"
	"github.com/stemsi/exam-portal/internal/repository"
	"github.com/stemsi/exam-portal/internal/router"
	"github.com/stemsi/exam-portal/internal/session"
	"github.com/stemsi/exam-portal/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("backend_url", cfg.BackendURL).
		Msg("Starting Exam Portal")

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

	// ─── Load Account Directory ────────────────────────────────────────
	directory, err := loadDirectory(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load accounts")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	eventRepo := repository.NewAttemptEventRepository(pool)
	sessions := session.NewStore(cfg, rdb, directory, log)
	school := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, log)
	attemptJournal := journal.NewRedisJournal(rdb, log)
	registry := attempt.NewRegistry()

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth: handler.NewAuthHandler(sessions, log),
		Nav:  handler.NewNavHandler(access.Routes),
		Exam: handler.NewExamHandler(school, eventRepo, log),
		Attempt: handler.NewAttemptHandler(registry, school, attemptJournal, handler.AttemptOptions{
			RetryDelay: cfg.SubmitRetryDelay,
		}, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})

	journalWorker := journal.NewWorker(eventRepo, rdb, log)
	go func() {
		defer close(workerDone)
		journalWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(sessions, handlers, cfg, log)

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

	// 2. Unmount attempts still open on hijacked WebSocket connections.
	registry.CloseAll()

	// 3. Stop background workers and wait for the journal queue to drain.
	workerCancel()
	select {
	case <-workerDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Journal worker did not drain in time")
	}

	log.Info().Msg("Shutdown complete")
}

// loadDirectory reads the accounts file, falling back to the development
// directory when it does not exist.
func loadDirectory(cfg *config.Config, log zerolog.Logger) (*session.Directory, error) {
	accounts, err := config.LoadAccounts(cfg.AccountsFile)
	if errors.Is(err, config.ErrNoAccountsFile) {
		log.Warn().Str("file", cfg.AccountsFile).Msg("Accounts file not found, using development accounts")
		return session.DevDirectory()
	}
	if err != nil {
		return nil, err
	}
	dir, err := session.NewDirectory(accounts)
	if err != nil {
		return nil, err
	}
	log.Info().Int("accounts", dir.Len()).Msg("Accounts loaded")
	return dir, nil
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
