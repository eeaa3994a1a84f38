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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Elloy123/imbalance-chart27/internal/broadcast"
	"github.com/Elloy123/imbalance-chart27/internal/config"
	"github.com/Elloy123/imbalance-chart27/internal/feed"
	"github.com/Elloy123/imbalance-chart27/internal/instrumentation"
	"github.com/Elloy123/imbalance-chart27/internal/model"
	"github.com/Elloy123/imbalance-chart27/internal/publisher"
	"github.com/Elloy123/imbalance-chart27/internal/stream"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Structured JSON logging
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("orderflow_service_starting",
		"addr", cfg.HTTPAddr,
		"symbol", cfg.Symbol,
		"feed", cfg.Feed,
		"engines", cfg.Engines,
		"weight_mode", cfg.WeightMode,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := instrumentation.NewMetrics()

	// Snapshot cache is optional; without a URL the session runs websocket-only.
	var pub publisher.Snapshot = publisher.Disabled{}
	if cfg.SnapshotRedisURL != "" {
		redisPub, err := publisher.NewRedis(
			cfg.SnapshotRedisURL,
			cfg.RedisPassword,
			cfg.SnapshotTTL,
			cfg.SnapshotInterval,
			metrics,
			logger,
		)
		if err != nil {
			logger.Error("failed to create snapshot publisher", "error", err)
			os.Exit(1)
		}
		defer redisPub.Close()
		pub = redisPub
		logger.Info("snapshot_publisher_initialized")
	}

	// Market data source
	var source feed.Feed
	switch cfg.Feed {
	case "sim":
		source = feed.NewSimulator(cfg.Symbol, model.WeightMode(cfg.WeightMode), logger)
	default:
		source = feed.NewBinance(cfg.Symbol, logger)
	}

	session, err := stream.New(cfg.EngineConfig(), source, pub, metrics, logger)
	if err != nil {
		logger.Error("failed to create session", "error", err)
		os.Exit(1)
	}

	hub := broadcast.NewHub(session, broadcast.NewRing(cfg.ReplayBuffer), metrics, logger)
	session.AttachHub(hub)
	go hub.Run(ctx)

	// Router
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/ws", hub.ServeWS)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/*", http.FileServer(http.Dir(cfg.WebDir)))

	srv := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     r,
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http_server_listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_error", "error", err)
			os.Exit(1)
		}
	}()

	// Feed loop
	errChan := make(chan error, 1)
	go func() {
		if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- err
		}
	}()

	logger.Info("orderflow_service_running", "status", "healthy")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("shutdown_signal_received", "signal", sig.String())
	case err := <-errChan:
		logger.Error("feed_error", "error", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}

	logger.Info("orderflow_service_stopped")
}
