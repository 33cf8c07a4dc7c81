// edupath - Adaptive Pedagogical Process Server
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

	"github.com/ashureev/edupath/internal/api"
	"github.com/ashureev/edupath/internal/config"
	"github.com/ashureev/edupath/internal/executor"
	"github.com/ashureev/edupath/internal/identity"
	"github.com/ashureev/edupath/internal/middleware"
	"github.com/ashureev/edupath/internal/orchestrator"
	"github.com/ashureev/edupath/internal/progress"
	"github.com/ashureev/edupath/internal/retrieval"
	"github.com/ashureev/edupath/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Retrieval is optional: without a configured URL, steps are generated
	// without supporting citations.
	var searcher retrieval.Searcher
	if cfg.RetrievalURL != "" {
		searcher = retrieval.NewHTTPClient(retrieval.HTTPClientConfig{
			BaseURL:        cfg.RetrievalURL,
			RequestTimeout: cfg.RetrievalTimeout,
		}, logger)
		slog.Info("Retrieval client configured", "url", cfg.RetrievalURL, "timeout", cfg.RetrievalTimeout)
	} else {
		slog.Info("Retrieval disabled (RETRIEVAL_URL not set)")
	}

	// Progress observers: WebSocket hub always, NDJSON event log when enabled.
	hub := progress.NewHub()
	defer hub.Close()

	observers := progress.Multi{hub}
	eventLog, err := progress.NewEventLog(progress.EventLogConfig{
		Enabled:   cfg.EventLog.Enabled,
		Path:      cfg.EventLog.Path,
		QueueSize: cfg.EventLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize event log", "error", err)
		os.Exit(1)
	}
	if eventLog != nil {
		defer func() {
			if closeErr := eventLog.Close(); closeErr != nil {
				slog.Error("Failed to close event log", "error", closeErr)
			}
		}()
		observers = append(observers, eventLog)
		slog.Info("Event log enabled", "path", cfg.EventLog.Path)
	}

	exec := executor.New(searcher, cfg.RetrievalTimeout, logger)
	orch := orchestrator.New(repo, exec, observers, logger)

	// Initialize handlers.
	baseHandler := api.NewHandler(orch)
	processHandler := api.NewProcessHandler(baseHandler)
	healthHandler := api.NewHealthHandler(repo)
	wsHandler := progress.NewWebSocketHandler(hub, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	processHandler.RegisterRoutes(r)

	// WebSocket endpoint for live progress events.
	r.Get("/ws/progress", wsHandler.ServeHTTP)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout, progress streams stay open
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
