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

package ingest

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/stationwatch/pkg/models"
	"github.com/carverauto/stationwatch/pkg/presence"
)

const (
	ingestMeterName = "stationwatch.ingest"

	// Metric names for ingest observability.
	metricLinesTotalName         = "stationwatch_lines_total"
	metricEventsTotalName        = "stationwatch_events_total"
	metricDecodeErrorsTotalName  = "stationwatch_decode_errors_total"
	metricGrammarErrorsTotalName = "stationwatch_grammar_errors_total"
	metricDevicesName            = "stationwatch_devices"
	metricDevicesOnlineName      = "stationwatch_devices_online"
)

// ingestMetrics holds the per-line counters plus gauges observed directly from
// the presence store. Instruments come from the global meter provider, so
// everything here is a no-op unless an exporter was configured at startup.
type ingestMetrics struct {
	lines         metric.Int64Counter
	events        metric.Int64Counter
	decodeErrors  metric.Int64Counter
	grammarErrors metric.Int64Counter

	registration metric.Registration //nolint:unused // kept to retain callback
}

func newIngestMetrics(store *presence.Store) *ingestMetrics {
	meter := otel.Meter(ingestMeterName)
	m := &ingestMetrics{}

	var err error

	m.lines, err = meter.Int64Counter(
		metricLinesTotalName,
		metric.WithDescription("Log lines read from the input stream"),
	)
	if err != nil {
		otel.Handle(err)
		return m
	}

	m.events, err = meter.Int64Counter(
		metricEventsTotalName,
		metric.WithDescription("Presence events witnessed"),
	)
	if err != nil {
		otel.Handle(err)
		return m
	}

	m.decodeErrors, err = meter.Int64Counter(
		metricDecodeErrorsTotalName,
		metric.WithDescription("Lines dropped because the JSON envelope did not decode"),
	)
	if err != nil {
		otel.Handle(err)
		return m
	}

	m.grammarErrors, err = meter.Int64Counter(
		metricGrammarErrorsTotalName,
		metric.WithDescription("hostapd lines dropped because the message matched no known pattern"),
	)
	if err != nil {
		otel.Handle(err)
		return m
	}

	devices, err := meter.Int64ObservableGauge(
		metricDevicesName,
		metric.WithDescription("Devices ever witnessed by the presence store"),
	)
	if err != nil {
		otel.Handle(err)
		return m
	}

	online, err := meter.Int64ObservableGauge(
		metricDevicesOnlineName,
		metric.WithDescription("Devices with at least one current association"),
	)
	if err != nil {
		otel.Handle(err)
		return m
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(devices, int64(store.DeviceCount()))
		observer.ObserveInt64(online, int64(store.OnlineCount()))
		return nil
	}, devices, online)
	if err != nil {
		otel.Handle(err)
		return m
	}

	m.registration = registration

	return m
}

func (m *ingestMetrics) add(ctx context.Context, counter metric.Int64Counter) {
	if counter != nil {
		counter.Add(ctx, 1)
	}
}

func (m *ingestMetrics) addEvent(ctx context.Context, action models.Action) {
	if m.events != nil {
		m.events.Add(ctx, 1, metric.WithAttributes(attribute.String("action", string(action))))
	}
}
