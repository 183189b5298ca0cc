package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onatuner/tap-or-tarp-sub001/internal/config"
	"github.com/onatuner/tap-or-tarp-sub001/internal/feedback"
	"github.com/onatuner/tap-or-tarp-sub001/internal/httpapi"
	"github.com/onatuner/tap-or-tarp-sub001/internal/hub"
	"github.com/onatuner/tap-or-tarp-sub001/internal/store"
	"github.com/onatuner/tap-or-tarp-sub001/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "configs/taportarp.yaml", "path to config file")
	flag.Parse()

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("starting taportarp",
		"version", httpapi.Version,
		"listen", cfg.Listen,
		"storage", cfg.Storage.Type,
		"instance", cfg.Instance.ID,
	)

	// State store
	var st store.Store
	switch cfg.Storage.Type {
	case "redis":
		rs, err := store.NewRedisStore(cfg.Redis.URL)
		if err != nil {
			slog.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		st = rs
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
			slog.Error("failed to create data directory", "error", err, "path", cfg.Storage.Path)
			os.Exit(1)
		}
		ss, err := store.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			slog.Error("failed to initialize SQLite storage", "error", err)
			os.Exit(1)
		}
		st = ss
	default:
		st = store.NewMemoryStore()
		slog.Info("using in-memory state store")
	}
	defer st.Close()

	// Feedback store
	var fb feedback.Store
	if cfg.Feedback.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Feedback.Path), 0o755); err != nil {
			slog.Error("failed to create data directory", "error", err, "path", cfg.Feedback.Path)
			os.Exit(1)
		}
		fb, err = feedback.NewSQLiteStore(cfg.Feedback.Path)
		if err != nil {
			slog.Error("failed to initialize feedback storage", "error", err)
			os.Exit(1)
		}
	} else {
		fb = feedback.NewMemoryStore()
	}
	defer fb.Close()

	// Telemetry; failure degrades to no tracing.
	tp, err := telemetry.NewProvider(telemetry.ConfigFromEnv(cfg.Telemetry))
	if err != nil {
		slog.Warn("telemetry initialization failed, continuing without tracing", "error", err)
		tp = telemetry.NoopProvider()
	} else if tp.Enabled() {
		slog.Info("telemetry enabled", "exporter", cfg.Telemetry.Exporter, "endpoint", cfg.Telemetry.Endpoint)
	}

	h := hub.New(cfg, st, fb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := h.Run(ctx); err != nil {
		slog.Error("failed to restore games", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleWS)

	wsServer := &http.Server{
		Addr:        cfg.Listen,
		Handler:     mux,
		ReadTimeout: 0, // websocket connections are long-lived
		IdleTimeout: 120 * time.Second,
	}

	var apiServer *http.Server
	if cfg.API.Enabled {
		apiServer = &http.Server{
			Addr:         cfg.API.Listen,
			Handler:      httpapi.New(h),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
	}

	errChan := make(chan error, 2)
	go func() {
		slog.Info("websocket server starting", "addr", cfg.Listen)
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("websocket server error: %w", err)
		}
	}()
	if apiServer != nil {
		go func() {
			slog.Info("api server starting", "addr", cfg.API.Listen)
			if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- fmt.Errorf("api server error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("server error", "error", err)
	case sig := <-sigChan:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timing.ShutdownGrace)
	defer shutdownCancel()

	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("websocket server shutdown incomplete", "error", err)
	}
	if apiServer != nil {
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("api server shutdown incomplete", "error", err)
		}
	}
	h.Shutdown(shutdownCtx)
	if err := tp.Shutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown incomplete", "error", err)
	}
	slog.Info("shutdown complete")
}
