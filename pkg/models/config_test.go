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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaemonConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  DaemonConfig
		wantErr string
	}{
		{
			name: "minimal valid",
			config: DaemonConfig{
				LogFile:    "/var/log/messages",
				ListenAddr: "0.0.0.0:5580",
			},
		},
		{
			name: "missing log file",
			config: DaemonConfig{
				ListenAddr: "0.0.0.0:5580",
			},
			wantErr: "log file path is required",
		},
		{
			name: "missing listen address",
			config: DaemonConfig{
				LogFile: "/var/log/messages",
			},
			wantErr: "listen address is required",
		},
		{
			name: "events enabled without nats",
			config: DaemonConfig{
				LogFile:    "/var/log/messages",
				ListenAddr: "0.0.0.0:5580",
				Events:     &EventsConfig{Enabled: true},
			},
			wantErr: "nats configuration is required",
		},
		{
			name: "events enabled with empty nats url",
			config: DaemonConfig{
				LogFile:    "/var/log/messages",
				ListenAddr: "0.0.0.0:5580",
				Events:     &EventsConfig{Enabled: true},
				NATS:       &NATSConfig{},
			},
			wantErr: "nats url is required",
		},
		{
			name: "events enabled with nats",
			config: DaemonConfig{
				LogFile:    "/var/log/messages",
				ListenAddr: "0.0.0.0:5580",
				Events:     &EventsConfig{Enabled: true},
				NATS:       &NATSConfig{URL: "nats://127.0.0.1:4222"},
			},
		},
		{
			name: "events disabled does not require nats",
			config: DaemonConfig{
				LogFile:    "/var/log/messages",
				ListenAddr: "0.0.0.0:5580",
				Events:     &EventsConfig{Enabled: false},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDaemonConfigValidateFillsEventDefaults(t *testing.T) {
	cfg := DaemonConfig{
		LogFile:    "/var/log/messages",
		ListenAddr: "0.0.0.0:5580",
		Events:     &EventsConfig{Enabled: true},
		NATS:       &NATSConfig{URL: "nats://127.0.0.1:4222"},
	}

	require.NoError(t, cfg.Validate())

	assert.Equal(t, "events", cfg.Events.StreamName)
	assert.Equal(t, []string{"events.hostapd.>"}, cfg.Events.Subjects)
}

func TestWatchdogConfigValidateFillsDefaults(t *testing.T) {
	cfg := WatchdogConfig{Enabled: true}

	require.NoError(t, cfg.Validate())

	assert.Equal(t, Duration(time.Minute), cfg.Interval)
	assert.Equal(t, Duration(30*time.Minute), cfg.Threshold)
}

func TestWatchdogConfigValidateRejectsShortThreshold(t *testing.T) {
	cfg := WatchdogConfig{
		Enabled:   true,
		Interval:  Duration(10 * time.Minute),
		Threshold: Duration(time.Minute),
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold")
}

func TestWatchdogConfigValidateRequiresWebhookURL(t *testing.T) {
	cfg := WatchdogConfig{
		Enabled:  true,
		Webhooks: []WebhookConfig{{Enabled: true}},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook url")
}

func TestWatchdogConfigValidateSkipsWhenDisabled(t *testing.T) {
	cfg := WatchdogConfig{
		Enabled:   false,
		Threshold: Duration(-time.Hour),
		Webhooks:  []WebhookConfig{{Enabled: true}},
	}

	require.NoError(t, cfg.Validate())
	// Disabled sections are left untouched.
	assert.Equal(t, Duration(-time.Hour), cfg.Threshold)
}

func TestDurationUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "duration string", input: `"30m"`, want: 30 * time.Minute},
		{name: "compound string", input: `"1h30m"`, want: 90 * time.Minute},
		{name: "numeric nanoseconds", input: `60000000000`, want: time.Minute},
		{name: "bad string", input: `"soon"`, wantErr: true},
		{name: "wrong type", input: `["30m"]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration

			err := json.Unmarshal([]byte(tt.input), &d)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, time.Duration(d))
		})
	}
}

func TestDurationMarshalJSON(t *testing.T) {
	out, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.JSONEq(t, `"1m30s"`, string(out))

	var back Duration

	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, Duration(90*time.Second), back)
}
