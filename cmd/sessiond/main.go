package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	clockpkg "github.com/proctorly/sessiond/internal/clock"
	"github.com/proctorly/sessiond/internal/config"
	dbRedis "github.com/proctorly/sessiond/internal/db/redis"
	logpkg "github.com/proctorly/sessiond/internal/logger"
	"github.com/proctorly/sessiond/internal/metrics"
	eventrepo "github.com/proctorly/sessiond/internal/repository/event"
	sessionrepo "github.com/proctorly/sessiond/internal/repository/session"
	transcriptrepo "github.com/proctorly/sessiond/internal/repository/transcript"
	chiTransport "github.com/proctorly/sessiond/internal/transport/chi"
	openaiTransport "github.com/proctorly/sessiond/internal/transport/openai"
	chatuc "github.com/proctorly/sessiond/internal/usecase/chat"
	governoruc "github.com/proctorly/sessiond/internal/usecase/governor"
	healthuc "github.com/proctorly/sessiond/internal/usecase/health"
	"github.com/proctorly/sessiond/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting sessiond API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("model", cfg.Model.Name),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register session metrics explicitly (no init())
	metrics.RegisterSessionMetrics()

	// Create repositories. Terminal sessions and their trails share one
	// retention window.
	retention := time.Duration(cfg.Session.RetentionDays) * 24 * time.Hour
	sessRepo := sessionrepo.New(store, retention)
	eventRepo := eventrepo.New(store, retention)
	transRepo := transcriptrepo.New(store, retention)

	clk := clockpkg.System{}

	// Governor — lifecycle, budgets, audit, expiry
	governor := governoruc.New(sessRepo, eventRepo, clk, governoruc.Defaults{
		TimeLimit:   time.Duration(cfg.Session.DefaultTimeLimitSec) * time.Second,
		TokenBudget: cfg.Session.DefaultTokenBudget,
	}, time.Duration(cfg.Session.ReservationTimeoutSec)*time.Second, logger)

	// Completion provider
	completer := openaiTransport.NewCompleter(&openaiTransport.Config{
		APIKey:      cfg.Model.APIKey,
		BaseURL:     cfg.Model.BaseURL,
		Model:       cfg.Model.Name,
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
		Logger:      logger,
	})

	chatSvc := chatuc.New(governor, completer, transRepo, clk,
		cfg.Model.SystemPrompt, cfg.Session.MaxMessageLength, logger)

	healthSvc := healthuc.New(store, completer)

	// Background sweeper bounds how long exhausted idle sessions linger and
	// reclaims abandoned reservations.
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go governor.RunSweeper(sweepCtx, time.Duration(cfg.Session.SweepIntervalSec)*time.Second)

	// Create chi server
	server := chiTransport.NewServer(governor, chatSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")
	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
