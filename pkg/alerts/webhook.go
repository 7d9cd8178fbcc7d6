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

// Package alerts delivers notifications to external webhook endpoints.
package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"text/template"
	"time"

	"github.com/carverauto/stationwatch/pkg/logger"
	"github.com/carverauto/stationwatch/pkg/models"
)

// AlertLevel indicates alert severity.
type AlertLevel string

const (
	// Info is for informational alerts.
	Info AlertLevel = "info"
	// Warning is for actionable but non-fatal alerts.
	Warning AlertLevel = "warning"
	// Error is for failures.
	Error AlertLevel = "error"
)

const defaultAlertTimeout = 10 * time.Second

var (
	// ErrWebhookDisabled is returned when the alerter is configured off.
	ErrWebhookDisabled = errors.New("webhook alerter disabled")
	// ErrWebhookCooldown is returned when an alert with the same title fired
	// too recently.
	ErrWebhookCooldown = errors.New("alert is within cooldown period")

	errWebhookStatus   = errors.New("webhook returned error status")
	errWebhookTemplate = errors.New("webhook template failed")
)

// WebhookAlert is the payload delivered to notification endpoints.
type WebhookAlert struct {
	Level     AlertLevel     `json:"level"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Timestamp string         `json:"timestamp"`
	Host      string         `json:"host"`
	Details   map[string]any `json:"details,omitempty"`
}

// AlertService sends alerts to a notification channel.
type AlertService interface {
	Alert(ctx context.Context, alert *WebhookAlert) error
	IsEnabled() bool
}

// WebhookAlerter delivers alerts over HTTP POST. An optional body template
// replaces the default JSON payload so endpoints like Pushcut or Slack can be
// fed their native shapes.
type WebhookAlerter struct {
	config   models.WebhookConfig
	client   *http.Client
	mu       sync.Mutex
	lastSent map[string]time.Time
	logger   logger.Logger
	now      func() time.Time
}

// NewWebhookAlerter creates an alerter for one webhook endpoint.
func NewWebhookAlerter(config models.WebhookConfig, log logger.Logger) *WebhookAlerter {
	return &WebhookAlerter{
		config:   config,
		client:   &http.Client{Timeout: defaultAlertTimeout},
		lastSent: make(map[string]time.Time),
		logger:   log,
		now:      time.Now,
	}
}

// IsEnabled reports whether this alerter will deliver anything.
func (w *WebhookAlerter) IsEnabled() bool {
	return w.config.Enabled
}

// Alert posts the alert to the configured endpoint. Alerts sharing a title
// are rate-limited by the configured cooldown, counted from the last attempt.
func (w *WebhookAlerter) Alert(ctx context.Context, alert *WebhookAlert) error {
	if !w.config.Enabled {
		return ErrWebhookDisabled
	}

	if err := w.checkCooldown(alert.Title); err != nil {
		return err
	}

	payload, err := w.buildPayload(alert)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for _, header := range w.config.Headers {
		req.Header.Set(header.Key, header.Value)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %d", errWebhookStatus, resp.StatusCode)
	}

	w.logger.Info().
		Str("title", alert.Title).
		Str("url", w.config.URL).
		Msg("Delivered webhook alert")

	return nil
}

func (w *WebhookAlerter) checkCooldown(title string) error {
	if w.config.Cooldown == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if last, ok := w.lastSent[title]; ok && w.now().Sub(last) < time.Duration(w.config.Cooldown) {
		return ErrWebhookCooldown
	}

	w.lastSent[title] = w.now()

	return nil
}

// buildPayload renders the configured template against the alert, or marshals
// the alert itself when no template is set.
func (w *WebhookAlerter) buildPayload(alert *WebhookAlert) ([]byte, error) {
	if w.config.Template == "" {
		payload, err := json.Marshal(alert)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal webhook alert: %w", err)
		}

		return payload, nil
	}

	tmpl, err := template.New("webhook").Parse(w.config.Template)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errWebhookTemplate, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, alert); err != nil {
		return nil, fmt.Errorf("%w: %w", errWebhookTemplate, err)
	}

	return buf.Bytes(), nil
}
