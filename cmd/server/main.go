package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gamelearn/analytics/internal/api"
	"github.com/gamelearn/analytics/internal/db"
	"github.com/gamelearn/analytics/internal/embed"
	"github.com/gamelearn/analytics/internal/export"
	"github.com/gamelearn/analytics/internal/logger"
)

var version string

func main() {
	// Check for worker mode
	if len(os.Args) > 1 && os.Args[1] == "worker" {
		runWorker()
		return
	}

	// Local development convenience; missing .env is fine
	_ = godotenv.Load()

	// Initialize OpenTelemetry (traces to whatever OTEL_EXPORTER_OTLP_*
	// points at). Non-fatal: continue without tracing if unset.
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		logger.Warn("failed to configure OpenTelemetry", "error", err)
	} else {
		defer otelShutdown()
	}

	config := loadConfig()

	// Note: migrations are run separately before starting the server:
	//   migrate -database "$DATABASE_URL" -path internal/db/migrations up
	database, err := db.Connect(config.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer database.Close()

	artifacts, err := export.NewArtifactStore(config.S3Config)
	if err != nil {
		logger.Fatal("failed to initialize artifact store", "error", err)
	}

	posthog := embed.NewPostHogSigner(config.PostHog)
	if posthog.Configured() {
		logger.Info("posthog embedding enabled", "host", config.PostHog.Host)
	} else {
		logger.Info("posthog embedding disabled (POSTHOG_HOST, POSTHOG_PROJECT_ID or POSTHOG_SHARED_SECRET not set)")
	}
	metabase := embed.NewMetabaseSigner(config.Metabase)
	if metabase.Configured() {
		logger.Info("metabase embedding enabled", "site", config.Metabase.SiteURL)
	} else {
		logger.Info("metabase embedding disabled (METABASE_SITE_URL or METABASE_EMBEDDING_SECRET not set)")
	}

	server := api.NewServer(database, artifacts, posthog, metabase, version)
	router := server.SetupRoutes(config.AllowedOrigins)

	// Wrap router with OpenTelemetry HTTP instrumentation
	handler := otelhttp.NewHandler(router, "gamelearn-analytics")

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", config.Port, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

type Config struct {
	Port           int
	DatabaseURL    string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	S3Config       export.S3Config
	PostHog        embed.PostHogConfig
	Metabase       embed.MetabaseConfig
}

func loadConfig() Config {
	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		fmt.Sscanf(p, "%d", &port)
	}

	readTimeout := 30 * time.Second
	if rt := os.Getenv("HTTP_READ_TIMEOUT"); rt != "" {
		if parsed, err := time.ParseDuration(rt); err == nil {
			readTimeout = parsed
		}
	}

	writeTimeout := 30 * time.Second
	if wt := os.Getenv("HTTP_WRITE_TIMEOUT"); wt != "" {
		if parsed, err := time.ParseDuration(wt); err == nil {
			writeTimeout = parsed
		}
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("missing required env var", "var", "DATABASE_URL")
	}

	var allowedOrigins []string
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
	}

	return Config{
		Port:           port,
		DatabaseURL:    databaseURL,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		AllowedOrigins: allowedOrigins,
		S3Config:       loadS3Config(),
		PostHog: embed.PostHogConfig{
			Host:         os.Getenv("POSTHOG_HOST"),
			ProjectID:    os.Getenv("POSTHOG_PROJECT_ID"),
			SharedSecret: os.Getenv("POSTHOG_SHARED_SECRET"),
		},
		Metabase: embed.MetabaseConfig{
			SiteURL:         os.Getenv("METABASE_SITE_URL"),
			EmbeddingSecret: os.Getenv("METABASE_EMBEDDING_SECRET"),
		},
	}
}

// loadS3Config loads artifact storage configuration from environment
// variables. All are required: exports have nowhere to go without it.
func loadS3Config() export.S3Config {
	s3Endpoint := os.Getenv("S3_ENDPOINT")
	if s3Endpoint == "" {
		logger.Fatal("missing required env var", "var", "S3_ENDPOINT")
	}

	accessKeyID := os.Getenv("AWS_ACCESS_KEY_ID")
	if accessKeyID == "" {
		logger.Fatal("missing required env var", "var", "AWS_ACCESS_KEY_ID")
	}

	secretAccessKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if secretAccessKey == "" {
		logger.Fatal("missing required env var", "var", "AWS_SECRET_ACCESS_KEY")
	}

	bucketName := os.Getenv("BUCKET_NAME")
	if bucketName == "" {
		logger.Fatal("missing required env var", "var", "BUCKET_NAME")
	}

	return export.S3Config{
		Endpoint:        s3Endpoint,
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
		BucketName:      bucketName,
		UseSSL:          os.Getenv("S3_USE_SSL") != "false",
	}
}
