// Package main is the entry point for the drawgen lottery number generation
// service. The application keeps a catalog of lottery games, ingests official
// draw results, builds frequency and co-occurrence statistics from them, and
// generates optimized game batches on demand.
//
// The application follows clean architecture principles:
// - Domain layer is pure (no infrastructure dependencies)
// - Dependency injection via DI container
// - Repository pattern for data access
// - Service layer for business logic
// - HTTP handlers for API endpoints
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lottokit/drawgen/internal/config"
	"github.com/lottokit/drawgen/internal/di"
	"github.com/lottokit/drawgen/internal/server"
	"github.com/lottokit/drawgen/pkg/logger"
)

// main orchestrates the system startup sequence:
// 1. Loads configuration from environment variables (.env file)
// 2. Initializes logging
// 3. Wires all dependencies via DI container (databases, repositories,
//    services, scheduler jobs)
// 4. Seeds the lottery catalog on first run
// 5. Starts the HTTP server
// 6. Starts the draw feed subscriber and the job scheduler
// 7. Waits for shutdown signal and performs graceful shutdown
//
// The application uses a 4-database architecture:
// - catalog.db: Lottery games and runtime settings
// - history.db: Official draw results
// - results.db: Immutable ledger of issued game batches
// - cache.db: Memoized engine results and job history
func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger with config level
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().Msg("Starting drawgen")

	// Wire all dependencies using DI container
	// This initializes databases, repositories, services and scheduler jobs.
	// Stored settings override environment defaults for credentials and
	// engine tunables, so operators can adjust them via the API.
	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// Cleanup databases on exit
	// All 4 databases must be properly closed so WAL checkpoints are written.
	// Using defer ensures cleanup even on panic.
	defer container.Close()

	// Seed the lottery catalog on first run
	// An empty catalog means nothing can be generated, so a fresh install
	// loads the bundled game definitions. Existing catalogs are left alone;
	// operators manage them via the API afterwards.
	count, err := container.LotteryRepo.Count()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to count lotteries")
	}
	if count == 0 && cfg.LotterySeed != "" {
		seeded, err := container.Seeder.SeedFromFile(cfg.LotterySeed)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.LotterySeed).Msg("Failed to seed lottery catalog")
		} else {
			log.Info().Int("lotteries", seeded).Msg("Lottery catalog seeded")
		}
	}

	// Initialize HTTP server
	// The HTTP server provides REST API endpoints for:
	// - Lottery catalog management
	// - Draw history (list, submit, sync from the feed)
	// - Statistics and correlation snapshots
	// - Batch generation and the issued-batch ledger
	// - Settings management
	// - System operations (health checks, job triggers, backups)
	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
	})

	// Start server in goroutine
	// The HTTP server runs in a separate goroutine so the scheduler and the
	// feed subscriber can start concurrently.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Start the draw feed subscriber (real-time draw push over websocket)
	// Only wired when FEED_WS_URL is configured. Pushed draws are ingested
	// through the same validation path as polled and submitted ones.
	if container.FeedSubscriber != nil {
		if err := container.FeedSubscriber.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start draw feed subscriber")
		} else {
			log.Info().Msg("Draw feed subscriber started")
		}
	}

	// Start the job scheduler
	// Jobs: draw sync, statistics refresh, cache cleanup, database
	// maintenance and remote backups. Every run lands on the job history
	// ledger in cache.db.
	container.Scheduler.Start()
	log.Info().Msg("Scheduler started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop the scheduler first so no new job starts mid-shutdown.
	// In-progress jobs are allowed to complete.
	container.Scheduler.Stop()
	log.Info().Msg("Scheduler stopped")

	// Stop the feed subscriber
	if container.FeedSubscriber != nil {
		if err := container.FeedSubscriber.Stop(); err != nil {
			log.Error().Err(err).Msg("Error stopping draw feed subscriber")
		} else {
			log.Info().Msg("Draw feed subscriber stopped")
		}
	}

	// Graceful shutdown
	// The HTTP server is given up to 10 seconds to finish in-flight requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
