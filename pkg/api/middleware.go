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

// Package api pkg/api/middleware.go
package api

import (
	"net/http"
	"time"

	"github.com/carverauto/stationwatch/pkg/logger"
	"github.com/carverauto/stationwatch/pkg/models"
)

// CommonMiddleware applies CORS headers and request logging to every route.
// Origins outside the configured allow-list receive no CORS headers; requests
// without an Origin header pass through untouched.
func CommonMiddleware(next http.Handler, corsConfig models.CORSConfig, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		applyCORSHeaders(w, r, corsConfig)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)

		if log != nil {
			log.Debug().
				Str("remote_addr", r.RemoteAddr).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("Handled request")
		}
	})
}

func applyCORSHeaders(w http.ResponseWriter, r *http.Request, corsConfig models.CORSConfig) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	allowed := false

	for _, candidate := range corsConfig.AllowedOrigins {
		if candidate == origin || candidate == "*" {
			allowed = true
			break
		}
	}

	if !allowed {
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600") // Cache preflight for 1 hour

	if corsConfig.AllowCredentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
}
