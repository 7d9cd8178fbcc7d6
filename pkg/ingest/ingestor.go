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

// Package ingest is the single writer of the presence store. It consumes raw
// log lines in order, turns them into events and applies each event before
// handing it to the broadcast paths. Malformed lines are logged and dropped;
// only an upstream stream failure ends ingestion.
package ingest

import (
	"context"
	"errors"

	"github.com/carverauto/stationwatch/pkg/events"
	"github.com/carverauto/stationwatch/pkg/hostapd"
	"github.com/carverauto/stationwatch/pkg/logger"
	"github.com/carverauto/stationwatch/pkg/models"
	"github.com/carverauto/stationwatch/pkg/presence"
)

// LineSource supplies raw log lines in order. pkg/tail provides the
// production implementation.
type LineSource interface {
	Stream(ctx context.Context, handler func(line string) error) error
}

// EventPublisher forwards witnessed events to an external bus.
type EventPublisher interface {
	PublishPresenceEvent(ctx context.Context, event *models.Event) error
}

// Ingestor applies the decode → parse → witness pipeline to each line.
type Ingestor struct {
	store     *presence.Store
	hub       *events.Hub
	publisher EventPublisher
	logger    logger.Logger
	metrics   *ingestMetrics
}

// NewIngestor wires the pipeline. publisher may be nil when no event bus is
// configured.
func NewIngestor(store *presence.Store, hub *events.Hub, publisher EventPublisher, log logger.Logger) *Ingestor {
	return &Ingestor{
		store:     store,
		hub:       hub,
		publisher: publisher,
		logger:    log,
		metrics:   newIngestMetrics(store),
	}
}

// Run consumes lines from source until the source fails or ctx is canceled.
// The returned error is the source's: per-line failures never end the run.
func (i *Ingestor) Run(ctx context.Context, source LineSource) error {
	return source.Stream(ctx, func(line string) error {
		i.HandleLine(ctx, line)
		return nil
	})
}

// HandleLine processes one raw line. It is total: every failure mode is
// logged and swallowed so the surrounding stream keeps flowing, and the store
// is only touched once a fully formed event exists.
func (i *Ingestor) HandleLine(ctx context.Context, line string) {
	i.metrics.add(ctx, i.metrics.lines)

	event, err := hostapd.ParseLine([]byte(line))
	if err != nil {
		if errors.Is(err, hostapd.ErrUnrecognizedMessage) {
			i.metrics.add(ctx, i.metrics.grammarErrors)
			i.logger.Error().
				Err(err).
				Str("line", line).
				Msg("Unrecognized hostapd message")
		} else {
			i.metrics.add(ctx, i.metrics.decodeErrors)
			i.logger.Warn().
				Err(err).
				Str("line", line).
				Msg("Failed to decode log line")
		}

		return
	}

	// Lines from other programs and recognized no-op messages produce no
	// event.
	if event == nil {
		return
	}

	i.store.Witness(event)
	i.metrics.addEvent(ctx, event.Action)

	i.logger.Debug().
		Str("host", event.Host).
		Str("interface", event.Interface).
		Str("mac", event.MAC).
		Str("action", string(event.Action)).
		Msg("Witnessed presence event")

	i.hub.Broadcast(event)

	if i.publisher != nil {
		if err := i.publisher.PublishPresenceEvent(ctx, event); err != nil {
			i.logger.Warn().
				Err(err).
				Str("mac", event.MAC).
				Msg("Failed to publish presence event")
		}
	}
}
