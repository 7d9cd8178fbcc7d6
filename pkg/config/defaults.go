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

package config

import (
	"os"

	"github.com/carverauto/stationwatch/pkg/logger"
	"github.com/carverauto/stationwatch/pkg/models"
)

const (
	// DefaultLogFile is where BSD-flavored syslogd writes by default.
	DefaultLogFile = "/var/log/messages"
	// DefaultListenAddr is the default bind address for the read API.
	DefaultListenAddr = "0.0.0.0:5580"

	// pushcutTemplate renders the alert body Pushcut-style receivers expect.
	pushcutTemplate = `{"text": "{{.Message}}"}`
)

// Default returns the built-in daemon configuration. It is a complete,
// valid config; a config file and flags refine it.
func Default() *models.DaemonConfig {
	return &models.DaemonConfig{
		LogFile:    DefaultLogFile,
		ListenAddr: DefaultListenAddr,
		CORS: models.CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Logging: logger.DefaultConfig(),
	}
}

// ApplyEnvOverrides folds ambient environment settings into a loaded
// configuration. WATCHDOG_URL arms the watchdog with a Pushcut-style webhook
// when the config does not already name one.
func ApplyEnvOverrides(cfg *models.DaemonConfig) {
	url := os.Getenv("WATCHDOG_URL")
	if url == "" {
		return
	}

	if cfg.Watchdog == nil {
		cfg.Watchdog = &models.WatchdogConfig{}
	}

	cfg.Watchdog.Enabled = true

	for _, wh := range cfg.Watchdog.Webhooks {
		if wh.URL != "" {
			return
		}
	}

	cfg.Watchdog.Webhooks = append(cfg.Watchdog.Webhooks, models.WebhookConfig{
		Enabled:  true,
		URL:      url,
		Template: pushcutTemplate,
	})
}
