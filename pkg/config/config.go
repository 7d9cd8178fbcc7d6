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

// Package config loads and validates stationwatch configuration.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/carverauto/stationwatch/pkg/logger"
	"github.com/carverauto/stationwatch/pkg/models"
)

var (
	errInvalidConfigSource = errors.New("invalid CONFIG_SOURCE value")
	errInvalidConfigPtr    = errors.New("config must be a non-nil pointer")
)

const (
	configSourceFile = "file"
	configSourceEnv  = "env"
)

// Loader loads configuration from some source into dst.
type Loader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// Validator is implemented by configuration types that can check themselves.
type Validator interface {
	Validate() error
}

// Config holds the configuration loading dependencies.
type Config struct {
	defaultLoader Loader
	logger        logger.Logger
}

// NewConfig initializes a Config with a file loader. A nil logger falls back
// to a stderr warn-level logger so load problems stay visible.
func NewConfig(log logger.Logger) *Config {
	if log == nil {
		log = createBasicLogger()
	}

	return &Config{
		defaultLoader: &FileConfigLoader{},
		logger:        log,
	}
}

func createBasicLogger() logger.Logger {
	log, err := logger.New(&logger.Config{Level: "warn", Output: "stderr"})
	if err != nil {
		return logger.NewTestLogger()
	}

	return log
}

// ValidateConfig validates a configuration if it implements Validator.
func ValidateConfig(cfg interface{}) error {
	v, ok := cfg.(Validator)
	if !ok {
		return nil
	}

	return v.Validate()
}

// LoadAndValidate loads a configuration, normalizes SecurityConfig paths if
// present, and validates it.
func (c *Config) LoadAndValidate(ctx context.Context, path string, cfg interface{}) error {
	if err := c.loadWithSource(ctx, path, cfg); err != nil {
		return err
	}

	if err := c.normalizeSecurityConfig(cfg); err != nil {
		return fmt.Errorf("failed to normalize SecurityConfig: %w", err)
	}

	return ValidateConfig(cfg)
}

// loadWithSource picks the loader named by CONFIG_SOURCE; files are the
// default.
func (c *Config) loadWithSource(ctx context.Context, path string, cfg interface{}) error {
	source := strings.ToLower(os.Getenv("CONFIG_SOURCE"))

	var loader Loader

	switch source {
	case configSourceEnv:
		prefix := os.Getenv("CONFIG_ENV_PREFIX")
		if prefix == "" {
			prefix = "STATIONWATCH_"
		}

		loader = NewEnvConfigLoader(c.logger, prefix)
	case configSourceFile, "":
		loader = c.defaultLoader
	default:
		return fmt.Errorf("%w: %s (expected '%s' or '%s')",
			errInvalidConfigSource, source, configSourceFile, configSourceEnv)
	}

	return loader.Load(ctx, path, cfg)
}

// normalizeSecurityConfig normalizes TLS paths in any struct containing a
// *models.SecurityConfig field, directly or one pointer level down.
func (c *Config) normalizeSecurityConfig(cfg interface{}) error {
	v := reflect.ValueOf(cfg)

	if v.Kind() != reflect.Ptr || v.IsNil() {
		return errInvalidConfigPtr
	}

	v = v.Elem()

	if v.Kind() != reflect.Struct {
		return nil
	}

	c.normalizeStructFields(v)

	return nil
}

func (c *Config) normalizeStructFields(v reflect.Value) {
	securityType := reflect.TypeOf((*models.SecurityConfig)(nil))

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)

		if field.Type() == securityType {
			if !field.IsNil() {
				c.normalizeSecurity(field.Interface().(*models.SecurityConfig))
			}

			continue
		}

		// Descend into nested config sections such as DaemonConfig.NATS.
		if field.Kind() == reflect.Ptr && !field.IsNil() && field.Elem().Kind() == reflect.Struct {
			c.normalizeStructFields(field.Elem())
		}
	}
}

func (c *Config) normalizeSecurity(sec *models.SecurityConfig) {
	NormalizeTLSPaths(&sec.TLS, sec.CertDir)

	if c.logger != nil {
		c.logger.Info().
			Str("cert_file", sec.TLS.CertFile).
			Str("key_file", sec.TLS.KeyFile).
			Str("ca_file", sec.TLS.CAFile).
			Msg("Normalized TLS paths")
	}
}

// NormalizeTLSPaths resolves relative certificate paths against certDir.
func NormalizeTLSPaths(tls *models.TLSConfig, certDir string) {
	if tls.CertFile != "" && !filepath.IsAbs(tls.CertFile) {
		tls.CertFile = filepath.Join(certDir, tls.CertFile)
	}

	if tls.KeyFile != "" && !filepath.IsAbs(tls.KeyFile) {
		tls.KeyFile = filepath.Join(certDir, tls.KeyFile)
	}

	if tls.CAFile != "" && !filepath.IsAbs(tls.CAFile) {
		tls.CAFile = filepath.Join(certDir, tls.CAFile)
	}
}
