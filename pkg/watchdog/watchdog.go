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

// Package watchdog alerts when the event stream goes quiet. A healthy access
// point emits hostapd lines continuously; a long silence usually means the
// log pipeline broke somewhere upstream of us.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/carverauto/stationwatch/pkg/alerts"
	"github.com/carverauto/stationwatch/pkg/logger"
	"github.com/carverauto/stationwatch/pkg/models"
)

// Source reports when the last presence event was witnessed. The presence
// store implements it.
type Source interface {
	LastEventTimestamp() *time.Time
}

// Watchdog periodically compares the last event timestamp against a
// staleness threshold. Each staleness episode alerts once: after firing, the
// watchdog disarms until fresh events are seen again.
type Watchdog struct {
	source    Source
	alerters  []alerts.AlertService
	interval  time.Duration
	threshold time.Duration
	hostname  string
	logger    logger.Logger
	now       func() time.Time
	armed     bool
}

// New builds a watchdog from validated configuration.
func New(cfg *models.WatchdogConfig, source Source, alerters []alerts.AlertService, log logger.Logger) *Watchdog {
	return &Watchdog{
		source:    source,
		alerters:  alerters,
		interval:  time.Duration(cfg.Interval),
		threshold: time.Duration(cfg.Threshold),
		hostname:  getHostname(),
		logger:    log,
		now:       time.Now,
		armed:     true,
	}
}

// Run checks staleness once per interval until ctx is canceled.
func (w *Watchdog) Run(ctx context.Context) {
	w.logger.Info().
		Dur("interval", w.interval).
		Dur("threshold", w.threshold).
		Msg("Watchdog started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Watchdog stopped")
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

// check runs one staleness evaluation. Before the first event arrives there
// is nothing to compare against and no alert fires.
func (w *Watchdog) check(ctx context.Context) {
	last := w.source.LastEventTimestamp()
	if last == nil {
		return
	}

	elapsed := w.now().Sub(*last)

	if elapsed < w.threshold {
		if !w.armed {
			w.logger.Info().Msg("Event stream is fresh again; re-arming watchdog")
		}

		w.armed = true

		return
	}

	if !w.armed {
		return
	}

	w.armed = false

	w.logger.Warn().
		Dur("elapsed", elapsed).
		Dur("threshold", w.threshold).
		Time("last_event", *last).
		Msg("No hostapd events within staleness threshold")

	alert := &alerts.WebhookAlert{
		Level:     alerts.Warning,
		Title:     "No hostapd events",
		Message:   fmt.Sprintf("No hostapd events for %s", elapsed.Round(time.Second)),
		Timestamp: w.now().UTC().Format(time.RFC3339),
		Host:      w.hostname,
		Details: map[string]any{
			"last_event": last.UTC().Format(time.RFC3339),
			"threshold":  w.threshold.String(),
		},
	}

	for _, alerter := range w.alerters {
		if err := alerter.Alert(ctx, alert); err != nil {
			if errors.Is(err, alerts.ErrWebhookDisabled) || errors.Is(err, alerts.ErrWebhookCooldown) {
				w.logger.Debug().Err(err).Msg("Skipped watchdog alerter")
				continue
			}

			w.logger.Warn().Err(err).Msg("Failed to deliver watchdog alert")
		}
	}
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}

	return hostname
}
