// Package main provides the entrypoint for the AlertArea status poller.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/alertarea/alertarea/internal/aggregate"
	"github.com/alertarea/alertarea/internal/alertapi"
	"github.com/alertarea/alertarea/internal/api/middleware"
	"github.com/alertarea/alertarea/internal/broadcast"
	"github.com/alertarea/alertarea/internal/catalogue"
	"github.com/alertarea/alertarea/internal/database"
	"github.com/alertarea/alertarea/internal/geometry"
	"github.com/alertarea/alertarea/internal/population"
	"github.com/alertarea/alertarea/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "alertarea-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AlertArea status poller")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	cataloguePath := os.Getenv("CATALOGUE_PATH")
	if cataloguePath == "" {
		cataloguePath = "data/catalogue.sqlite3"
	}

	gatewayURL := os.Getenv("ALERT_GATEWAY_URL")
	if gatewayURL == "" {
		log.Fatal().Msg("ALERT_GATEWAY_URL is required")
	}

	interval := 30 * time.Second
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid POLL_INTERVAL")
		}
		interval = parsed
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// Connect to database for broadcast records
	pool, err := database.Connect(ctx, database.ConfigFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	counter := population.NewCounter(population.CounterConfig{Store: store, Index: index})
	aggregator := aggregate.New(aggregate.Config{Store: store, Counter: counter})
	composer := broadcast.NewComposer(broadcast.ComposerConfig{
		Store:      store,
		Counter:    counter,
		Aggregator: aggregator,
	})

	gatewayMetrics, err := middleware.NewGatewayMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize gateway metrics")
	}
	gateway := alertapi.NewClient(alertapi.ClientConfig{
		BaseURL: gatewayURL,
		APIKey:  os.Getenv("ALERT_GATEWAY_API_KEY"),
		Logger:  log,
		Metrics: gatewayMetrics,
	})

	svc := broadcast.NewService(broadcast.ServiceConfig{
		Repo:       broadcast.NewPostgresRepository(pool),
		Composer:   composer,
		Store:      store,
		Dispatcher: gateway,
	})

	poller := worker.NewPoller(worker.PollerConfig{
		Config:    worker.PollConfig{Interval: interval},
		Logger:    log,
		Lifecycle: svc,
		Source:    gateway,
	})

	// Health endpoint for the container platform
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"OK","version":"` + Version + `"}`))
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	go func() {
		log.Info().Dur("interval", interval).Msg("poller started")
		poller.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("stopped")
}
