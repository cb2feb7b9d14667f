// Package main provides the entrypoint for the AlertArea API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/alertarea/alertarea/internal/aggregate"
	"github.com/alertarea/alertarea/internal/alertapi"
	"github.com/alertarea/alertarea/internal/api"
	"github.com/alertarea/alertarea/internal/api/middleware"
	"github.com/alertarea/alertarea/internal/broadcast"
	"github.com/alertarea/alertarea/internal/catalogue"
	"github.com/alertarea/alertarea/internal/customarea"
	"github.com/alertarea/alertarea/internal/database"
	"github.com/alertarea/alertarea/internal/geometry"
	"github.com/alertarea/alertarea/internal/population"
	"github.com/alertarea/alertarea/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "alertarea-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AlertArea API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	cataloguePath := os.Getenv("CATALOGUE_PATH")
	if cataloguePath == "" {
		cataloguePath = "data/catalogue.sqlite3"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"
	sampleRatio := 0.0
	if v := os.Getenv("OTEL_SAMPLE_RATIO"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			sampleRatio = parsed
		}
	}

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
		SampleRatio:    sampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Open the area catalogue
	store, err := catalogue.Open(cataloguePath, geometry.DefaultOptions())
	if err != nil {
		log.Fatal().Err(err).Str("path", cataloguePath).Msg("failed to open area catalogue")
	}
	defer store.Close()

	entries, err := store.WardBBoxes()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load ward bounding boxes")
	}
	index, err := catalogue.NewIndex(entries)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build ward index")
	}
	log.Info().
		Str("path", cataloguePath).
		Int("wards", index.Size()).
		Msg("area catalogue loaded")

	// Connect to database for broadcast records
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Initialize the composition stack
	counter := population.NewCounter(population.CounterConfig{
		Store: store,
		Index: index,
	})
	aggregator := aggregate.New(aggregate.Config{
		Store:   store,
		Counter: counter,
	})
	composer := broadcast.NewComposer(broadcast.ComposerConfig{
		Store:      store,
		Counter:    counter,
		Aggregator: aggregator,
	})
	builder := customarea.NewBuilder(customarea.Config{
		Store: store,
		Index: index,
	})

	// Initialize the alert gateway client (may be nil if not configured)
	var (
		dispatcher   broadcast.Dispatcher
		gatewayState func() string
	)
	gatewayURL := os.Getenv("ALERT_GATEWAY_URL")
	if gatewayURL != "" {
		resilient := alertapi.NewResilientClient(alertapi.ResilientConfig{
			Name: alertapi.ClientName,
		})
		gatewayMetrics, err := middleware.NewGatewayMetrics()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize gateway metrics")
		}
		dispatcher = alertapi.NewClient(alertapi.ClientConfig{
			BaseURL:    gatewayURL,
			APIKey:     os.Getenv("ALERT_GATEWAY_API_KEY"),
			HTTPClient: resilient,
			Logger:     log,
			Metrics:    gatewayMetrics,
		})
		gatewayState = func() string { return resilient.State().String() }
		log.Info().Str("url", gatewayURL).Msg("alert gateway client initialized")
	} else {
		log.Warn().Msg("alert gateway not configured - approved broadcasts will not be dispatched")
	}

	broadcastService := broadcast.NewService(broadcast.ServiceConfig{
		Repo:       broadcast.NewPostgresRepository(pool),
		Composer:   composer,
		Store:      store,
		Builder:    builder,
		Dispatcher: dispatcher,
	})
	log.Info().Msg("broadcast service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:          Version,
		BuildTime:        BuildTime,
		Logger:           log,
		ServiceName:      serviceName,
		Metrics:          metrics,
		Store:            store,
		Index:            index,
		Counter:          counter,
		Builder:          builder,
		BroadcastService: broadcastService,
		GatewayState:     gatewayState,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
