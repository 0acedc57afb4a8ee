package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/joho/godotenv"

	"github.com/gamelearn/analytics/internal/db"
	"github.com/gamelearn/analytics/internal/export"
	"github.com/gamelearn/analytics/internal/logger"
)

// runWorker is the entry point for the export worker process. It claims
// pending export jobs, renders and uploads them, and sweeps idle learning
// sessions between cycles.
func runWorker() {
	logger.Info("starting export worker")

	_ = godotenv.Load()

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		logger.Warn("failed to configure OpenTelemetry for worker", "error", err)
	} else {
		defer otelShutdown()
	}

	config := loadExportConfig()
	logger.Info("worker configuration loaded",
		"poll_interval", config.PollInterval,
		"max_jobs", config.MaxJobs,
		"stale_after", config.StaleAfter,
		"session_idle_timeout", config.SessionIdleTimeout,
	)

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("missing required env var", "var", "DATABASE_URL")
	}

	database, err := db.Connect(databaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer database.Close()

	artifacts, err := export.NewArtifactStore(loadS3Config())
	if err != nil {
		logger.Fatal("failed to initialize artifact store", "error", err)
	}

	manager := export.NewManager(database, artifacts, config)

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("shutdown signal received, stopping worker")
		cancel()
	}()

	manager.Run(ctx)
	logger.Info("worker stopped")
}

// loadExportConfig loads worker tuning from environment variables,
// falling back to defaults.
func loadExportConfig() export.Config {
	config := export.DefaultConfig()

	if interval := os.Getenv("WORKER_POLL_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil && parsed > 0 {
			config.PollInterval = parsed
		}
	}

	if maxJobs := os.Getenv("WORKER_MAX_JOBS"); maxJobs != "" {
		parsed, err := strconv.Atoi(maxJobs)
		if err != nil || parsed <= 0 {
			logger.Fatal("invalid WORKER_MAX_JOBS", "value", maxJobs)
		}
		config.MaxJobs = parsed
	}

	if stale := os.Getenv("WORKER_STALE_AFTER"); stale != "" {
		if parsed, err := time.ParseDuration(stale); err == nil && parsed > 0 {
			config.StaleAfter = parsed
		}
	}

	if idle := os.Getenv("SESSION_IDLE_TIMEOUT"); idle != "" {
		if parsed, err := time.ParseDuration(idle); err == nil && parsed > 0 {
			config.SessionIdleTimeout = parsed
		}
	}

	return config
}
