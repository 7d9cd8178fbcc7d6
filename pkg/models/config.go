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

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/carverauto/stationwatch/pkg/logger"
)

var (
	errInvalidDuration        = fmt.Errorf("invalid duration")
	errLogFileRequired        = fmt.Errorf("log file path is required")
	errListenAddrRequired     = fmt.Errorf("listen address is required")
	errWebhookURLRequired     = fmt.Errorf("webhook url is required when enabled")
	errWatchdogIntervalNeeded = fmt.Errorf("watchdog interval must be positive")
	errWatchdogThresholdShort = fmt.Errorf("watchdog threshold must be at least one interval")
)

// Duration wraps time.Duration so config files may spell durations either as
// Go duration strings ("30m") or as integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// DaemonConfig is the root configuration for stationd.
type DaemonConfig struct {
	LogFile    string          `json:"log_file"`
	ListenAddr string          `json:"listen_addr"`
	CORS       CORSConfig      `json:"cors,omitempty"`
	Watchdog   *WatchdogConfig `json:"watchdog,omitempty"`
	NATS       *NATSConfig     `json:"nats,omitempty"`
	Events     *EventsConfig   `json:"events,omitempty"`
	Logging    *logger.Config  `json:"logging,omitempty"`
}

// Validate checks the daemon configuration and applies section defaults.
func (c *DaemonConfig) Validate() error {
	if c.LogFile == "" {
		return errLogFileRequired
	}

	if c.ListenAddr == "" {
		return errListenAddrRequired
	}

	if c.Watchdog != nil {
		if err := c.Watchdog.Validate(); err != nil {
			return err
		}
	}

	if c.Events != nil && c.Events.Enabled {
		if err := c.Events.Validate(); err != nil {
			return err
		}

		if c.NATS == nil {
			return errNATSRequiredForEvents
		}

		if err := c.NATS.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// WatchdogConfig controls the staleness monitor over the event stream.
type WatchdogConfig struct {
	Enabled   bool            `json:"enabled"`
	Interval  Duration        `json:"interval"`
	Threshold Duration        `json:"threshold"`
	Webhooks  []WebhookConfig `json:"webhooks,omitempty"`
}

// Validate applies watchdog defaults and rejects nonsense intervals.
func (c *WatchdogConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Interval == 0 {
		c.Interval = Duration(defaultWatchdogInterval)
	}

	if c.Threshold == 0 {
		c.Threshold = Duration(defaultWatchdogThreshold)
	}

	if c.Interval < 0 {
		return errWatchdogIntervalNeeded
	}

	if c.Threshold < c.Interval {
		return errWatchdogThresholdShort
	}

	for i := range c.Webhooks {
		if c.Webhooks[i].Enabled && c.Webhooks[i].URL == "" {
			return errWebhookURLRequired
		}
	}

	return nil
}

const (
	defaultWatchdogInterval  = time.Minute
	defaultWatchdogThreshold = 30 * time.Minute
)

// WebhookConfig represents a webhook notification configuration.
type WebhookConfig struct {
	Enabled  bool     `json:"enabled"`
	URL      string   `json:"url"`
	Cooldown Duration `json:"cooldown"`
	Template string   `json:"template"`
	Headers  []Header `json:"headers,omitempty"` // Optional custom headers
}

// Header represents a custom HTTP header.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CORSConfig controls cross-origin access to the read API.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins,omitempty"`
	AllowCredentials bool     `json:"allow_credentials,omitempty"`
}

// TLSConfig holds certificate paths for mTLS connections.
type TLSConfig struct {
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`
	CAFile   string `json:"ca_file"`
}

// SecurityConfig holds common security configuration for outbound
// connections (currently only NATS).
type SecurityConfig struct {
	Mode       string    `json:"mode"`
	CertDir    string    `json:"cert_dir"`
	ServerName string    `json:"server_name,omitempty"`
	TLS        TLSConfig `json:"tls"`
}
