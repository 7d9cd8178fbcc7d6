/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// stationd tails a syslog file for hostapd messages, maintains a presence
// database of wireless stations, and serves it over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/stationwatch/pkg/alerts"
	"github.com/carverauto/stationwatch/pkg/api"
	"github.com/carverauto/stationwatch/pkg/config"
	"github.com/carverauto/stationwatch/pkg/events"
	"github.com/carverauto/stationwatch/pkg/ingest"
	"github.com/carverauto/stationwatch/pkg/logger"
	"github.com/carverauto/stationwatch/pkg/models"
	"github.com/carverauto/stationwatch/pkg/presence"
	"github.com/carverauto/stationwatch/pkg/tail"
	"github.com/carverauto/stationwatch/pkg/version"
	"github.com/carverauto/stationwatch/pkg/watchdog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to stationd config file")
	logFile := flag.String("file", "", "Log file to follow (overrides config)")
	listenAddr := flag.String("listen", "", "HTTP listen address (overrides config)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("stationd %s\n", version.GetFullVersion())
		return nil
	}

	// Setup a context canceled on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Step 1: Load config and apply flag and environment overrides
	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		return err
	}

	if *logFile != "" {
		cfg.LogFile = *logFile
	}

	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	config.ApplyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Step 2: Create logger from loaded config
	mainLogger, err := logger.NewWithComponent("stationd", cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		if shutdownErr := logger.Shutdown(); shutdownErr != nil {
			log.Printf("Failed to shutdown logger: %v", shutdownErr)
		}
	}()

	if cfg.Logging != nil {
		if _, metricsErr := logger.InitializeMetrics(ctx, logger.MetricsConfig{
			ServiceName:    "stationd",
			ServiceVersion: version.GetVersion(),
			OTel:           &cfg.Logging.OTel,
		}); metricsErr != nil && !errors.Is(metricsErr, logger.ErrOTelMetricsDisabled) {
			return metricsErr
		}
	}

	mainLogger.Info().
		Str("version", version.GetFullVersion()).
		Str("log_file", cfg.LogFile).
		Str("listen_addr", cfg.ListenAddr).
		Msg("Starting stationd")

	// Step 3: Build the pipeline: store, hub, optional publisher, ingestor
	store := presence.NewStore()
	hub := events.NewHub(mainLogger)

	var publisher ingest.EventPublisher

	if cfg.Events != nil && cfg.Events.Enabled {
		nc, connErr := events.Connect(cfg.NATS, mainLogger)
		if connErr != nil {
			return connErr
		}
		defer nc.Close()

		pub, pubErr := events.NewPublisher(ctx, nc, cfg.NATS.Domain, cfg.Events, mainLogger)
		if pubErr != nil {
			return pubErr
		}

		publisher = pub
	}

	ingestor := ingest.NewIngestor(store, hub, publisher, mainLogger)

	// Step 4: Start HTTP API server in background
	apiServer := api.NewAPIServer(cfg.CORS,
		api.WithStore(store),
		api.WithHub(hub),
		api.WithLogger(mainLogger),
	)

	apiErrCh := make(chan error, 1)

	go func() {
		mainLogger.Info().
			Str("listen_addr", cfg.ListenAddr).
			Msg("Starting HTTP API server")

		if serveErr := apiServer.Start(cfg.ListenAddr); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			apiErrCh <- serveErr
		}
	}()

	// Step 5: Start the watchdog when configured
	if cfg.Watchdog != nil && cfg.Watchdog.Enabled {
		go watchdog.New(cfg.Watchdog, store, webhookAlerters(cfg.Watchdog, mainLogger), mainLogger).Run(ctx)
	}

	// Step 6: Follow the log file until shutdown
	follower := tail.NewFollower(cfg.LogFile, mainLogger)

	ingestErrCh := make(chan error, 1)

	go func() {
		ingestErrCh <- ingestor.Run(ctx, follower)
	}()

	var runErr error

	select {
	case serveErr := <-apiErrCh:
		runErr = fmt.Errorf("HTTP API server error: %w", serveErr)
	case ingestErr := <-ingestErrCh:
		if ingestErr != nil {
			runErr = fmt.Errorf("log ingest stopped: %w", ingestErr)
		}
	case <-ctx.Done():
		mainLogger.Info().Msg("Shutdown signal received")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if shutdownErr := apiServer.Shutdown(shutdownCtx); shutdownErr != nil {
		mainLogger.Warn().Err(shutdownErr).Msg("HTTP API server shutdown error")
	}

	if runErr != nil {
		return runErr
	}

	mainLogger.Info().Msg("stationd stopped")

	return nil
}

// loadConfig builds the effective configuration: compiled-in defaults,
// refined by a config file (or CONFIG_SOURCE=env) when one is named.
func loadConfig(ctx context.Context, path string) (*models.DaemonConfig, error) {
	cfg := config.Default()

	if path == "" && os.Getenv("CONFIG_SOURCE") == "" {
		return cfg, nil
	}

	cfgLoader := config.NewConfig(nil)
	if err := cfgLoader.LoadAndValidate(ctx, path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

func webhookAlerters(cfg *models.WatchdogConfig, log logger.Logger) []alerts.AlertService {
	alerters := make([]alerts.AlertService, 0, len(cfg.Webhooks))

	for _, wh := range cfg.Webhooks {
		if !wh.Enabled {
			continue
		}

		alerters = append(alerters, alerts.NewWebhookAlerter(wh, log))
	}

	return alerters
}
