// Package server provides the HTTP server and routing for drawgen.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/lottokit/drawgen/internal/config"
	"github.com/lottokit/drawgen/internal/di"
	batcheshandlers "github.com/lottokit/drawgen/internal/modules/batches/handlers"
	correlationhandlers "github.com/lottokit/drawgen/internal/modules/correlation/handlers"
	drawshandlers "github.com/lottokit/drawgen/internal/modules/draws/handlers"
	enginehandlers "github.com/lottokit/drawgen/internal/modules/engine/handlers"
	lotterieshandlers "github.com/lottokit/drawgen/internal/modules/lotteries/handlers"
	settingshandlers "github.com/lottokit/drawgen/internal/modules/settings/handlers"
	statshandlers "github.com/lottokit/drawgen/internal/modules/stats/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
	}

	s.systemHandlers = NewSystemHandlers(SystemConfig{
		Log:       cfg.Log,
		DataDir:   cfg.Config.DataDir,
		Databases: cfg.Container.Databases(),
		Scheduler: cfg.Container.Scheduler,
		History:   cfg.Container.JobHistory,
		Jobs:      cfg.Container.Jobs,
	})

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes. Module handlers register their own
// /api/... paths.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	c := s.container

	// Catalog module
	lotterieshandlers.NewHandler(c.LotteryRepo, s.log).RegisterRoutes(s.router)

	// Draw history module
	drawshandlers.NewHandler(c.DrawService, c.LotteryRepo, s.log).RegisterRoutes(s.router)

	// Statistics module
	statshandlers.NewHandler(c.LotteryRepo, c.DrawRepo, c.StatsProvider, s.log).RegisterRoutes(s.router)

	// Correlation module
	correlationhandlers.NewHandler(c.LotteryRepo, c.DrawRepo, c.CorrProvider, s.log).RegisterRoutes(s.router)

	// Generation engine
	enginehandlers.NewHandler(c.Engine, c.LotteryRepo, c.DrawRepo, c.BatchRepo, s.log).RegisterRoutes(s.router)

	// Batch ledger
	batcheshandlers.NewHandler(c.BatchRepo, s.log).RegisterRoutes(s.router)

	// Settings module
	settingshandlers.NewHandler(c.SettingsRepo, s.log).RegisterRoutes(s.router)

	// System monitoring and operations
	s.router.Route("/api/system", func(r chi.Router) {
		r.Get("/status", s.systemHandlers.HandleSystemStatus)
		r.Get("/jobs", s.systemHandlers.HandleJobsStatus)
		r.Post("/jobs/{name}", s.systemHandlers.HandleTriggerJob)
		r.Post("/backup", s.systemHandlers.HandleTriggerBackup)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
