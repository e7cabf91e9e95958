package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/attempt"
	"github.com/stemsi/exstem-portal/internal/backend"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/database"
	"github.com/stemsi/exstem-portal/internal/guard"
	"github.com/stemsi/exstem-portal/internal/handler"
	"github.com/stemsi/exstem-portal/internal/logger"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/render"
	"github.com/stemsi/exstem-portal/internal/router"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/session"
	"github.com/stemsi/exstem-portal/internal/validator"
	"github.com/stemsi/exstem-portal/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("backend", cfg.BackendURL).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExStem Portal")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// ─── Sessions ──────────────────────────────────────────────────────
	var store session.Store = session.NewMemoryStore()
	if rdb != nil {
		store = session.NewRedisStore(rdb)
	}
	decoder := session.NewTokenDecoder(cfg.TokenSecret, cfg.DemoToken)
	sessions := session.NewManager(store, decoder, cfg.SessionTTL, log)
	sessionGuard := guard.New(sessions, log)
	cookie := middleware.CookieConfig{
		Name:   cfg.SessionCookie,
		TTL:    cfg.SessionTTL,
		Secure: cfg.GinMode == "release",
	}

	// ─── Backend Client & Renderer ─────────────────────────────────────
	api := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, log)
	renderer := render.New(cfg.ImageBaseURL)
	registry := attempt.NewRegistry()

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, api, sessions, log)
	attemptService := service.NewAttemptService(cfg, api, registry, rdb, log)
	classroomService := service.NewClassroomService(api)
	assignmentService := service.NewAssignmentService(api, time.Local)
	mediaService := service.NewMediaService(cfg, api)
	questionService := service.NewQuestionService(api, mediaService)
	reportService := service.NewReportService(api)
	dashboardService := service.NewDashboardService(api, attemptService, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, sessions, cookie, cfg.DemoEnabled, log),
		Dashboard:  handler.NewDashboardHandler(dashboardService, renderer, sessions, log),
		Classroom:  handler.NewClassroomHandler(classroomService, assignmentService, dashboardService, sessions, log),
		Assignment: handler.NewAssignmentHandler(assignmentService, questionService, renderer, sessions, log),
		Attempt:    handler.NewAttemptHandler(attemptService, renderer, sessions, log),
		Report:     handler.NewReportHandler(reportService, renderer, sessions, log),
		Media:      handler.NewMediaHandler(mediaService, renderer, sessions, log),
		WS:         handler.NewWSHandler(attemptService, sessions, log, cfg.AllowedOrigins),
		System:     handler.NewSystemHandler(rdb, api, registry, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	sweeper := worker.NewAttemptSweeper(registry, cfg.AttemptIdleTimeout, log)
	go sweeper.Start(workerCtx)

	loginLimiter := middleware.NewRateLimiter(workerCtx, cfg.LoginRatePerMinute, time.Minute)

	// ─── Setup Router ──────────────────────────────────────────────────
	r, err := router.SetupRouter(router.Dependencies{
		Guard:        sessionGuard,
		Cookie:       cookie,
		LoginLimiter: loginLimiter,
	}, handlers, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up router")
	}

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

	// 2. Stop background workers, then stop every live attempt timer.
	workerCancel()
	registry.Sweep(0)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
