package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"weather-workbench/internal/config"
	"weather-workbench/internal/handlers"
	"weather-workbench/internal/repository"
	"weather-workbench/internal/services"
	"weather-workbench/pkg/logging"
	"weather-workbench/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("weather-workbench", version, logging.ParseLevel(cfg.Logging.Level))
	defer logger.Sync()

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting weather workbench API server", logging.Fields{
		"version":         version,
		"server_host":     cfg.Server.Host,
		"server_port":     cfg.Server.Port,
		"data_dir":        cfg.Storage.DataDir,
		"default_file":    cfg.Storage.DefaultFile,
		"temperature_pct": cfg.Analysis.TemperaturePct,
		"pressure_pct":    cfg.Analysis.PressurePct,
	})

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Data directory unavailable", logging.Fields{
			"data_dir": cfg.Storage.DataDir,
		}, err)
	}

	metricsCollector := metrics.NewCollector("workbench")

	repo := repository.NewFileRepository(cfg.Storage.DataDir, logger, metricsCollector)

	seed := cfg.Analysis.ForecastSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	workbench := services.NewWorkbenchService(repo, logger, metricsCollector, services.AnalysisSettings{
		TemperaturePct: cfg.Analysis.TemperaturePct,
		PressurePct:    cfg.Analysis.PressurePct,
	}, rand.New(rand.NewPCG(seed, seed>>1|1)))

	handler := handlers.NewWorkbenchHandler(workbench, cfg.Storage.DefaultFile, logger, metricsCollector)

	var limiter *rate.Limiter
	if cfg.RateLimit.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	}

	router := mux.NewRouter()
	router.Use(
		handlers.RequestIDMiddleware,
		handlers.RateLimitMiddleware(limiter, metricsCollector),
		handlers.MetricsMiddleware(metricsCollector, logger),
	)
	handler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", metricsCollector.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	if workbench.Dirty() {
		logger.Warn(ctx, "[SHUTDOWN] Staged edits were never committed", logging.Fields{})
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{
		"committed_records": workbench.Records().Len(),
	})
}
