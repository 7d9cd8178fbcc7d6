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

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/carverauto/stationwatch/pkg/models"
)

const streamPingInterval = 30 * time.Second // Keepalive ping cadence

// StreamMessage represents a message sent over the WebSocket
type StreamMessage struct {
	Type      string        `json:"type"` // "data", "error", "ping"
	Data      *models.Event `json:"data,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// handleEventStream handles WebSocket connections streaming witnessed
// presence events. Every event the ingest pipeline broadcasts is forwarded to
// the client as a data message until the client disconnects.
func (s *APIServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return s.checkWebSocketOrigin(r)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Str("origin", r.Header.Get("Origin")).
			Msg("Failed to upgrade to WebSocket")

		return
	}

	defer func() {
		s.logger.Debug().
			Str("remote_addr", r.RemoteAddr).
			Msg("Closing WebSocket connection")
		conn.Close()
	}()

	if s.hub == nil {
		if sendErr := sendErrorMessage(conn, "Event streaming is not enabled"); sendErr != nil {
			s.logger.Error().Err(sendErr).Msg("Failed to send error message")
		}

		return
	}

	s.logger.Info().
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket event stream established")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads are only used to detect the client going away.
	go s.watchClientClose(conn, r.RemoteAddr, cancel)

	eventCh, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	sendCount := 0

	defer func() {
		s.logger.Debug().
			Str("remote_addr", r.RemoteAddr).
			Int("send_count", sendCount).
			Msg("WebSocket event stream ended")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if pingErr := sendPingMessage(conn); pingErr != nil {
				s.logger.Debug().
					Err(pingErr).
					Str("remote_addr", r.RemoteAddr).
					Msg("WebSocket ping failed; dropping subscriber")

				return
			}

		case event, ok := <-eventCh:
			if !ok {
				return
			}

			if sendErr := sendDataMessage(conn, event); sendErr != nil {
				s.logger.Debug().
					Err(sendErr).
					Str("remote_addr", r.RemoteAddr).
					Msg("WebSocket write failed; dropping subscriber")

				return
			}

			sendCount++
		}
	}
}

// watchClientClose blocks reading the connection until it errors, which is
// how gorilla/websocket surfaces a client disconnect, then cancels the
// streaming context. Closing the connection on the handler side unblocks the
// read and ends this goroutine.
func (s *APIServer) watchClientClose(conn *websocket.Conn, clientAddr string, cancel context.CancelFunc) {
	defer cancel()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().
					Err(err).
					Str("client_addr", clientAddr).
					Msg("WebSocket closed unexpectedly")
			}

			return
		}
	}
}

// checkWebSocketOrigin validates the Origin header against the CORS
// allow-list. Connections without an Origin header (curl, native clients) are
// allowed, matching the middleware logic.
func (s *APIServer) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowedOrigin := range s.corsConfig.AllowedOrigins {
		if allowedOrigin == origin || allowedOrigin == "*" {
			return true
		}
	}

	if s.logger != nil {
		s.logger.Warn().
			Str("origin", origin).
			Interface("allowed_origins", s.corsConfig.AllowedOrigins).
			Msg("WebSocket CORS: Origin not allowed")
	}

	return false
}

// Message sending helper functions

func sendDataMessage(conn *websocket.Conn, event *models.Event) error {
	msg := StreamMessage{
		Type:      "data",
		Data:      event,
		Timestamp: time.Now(),
	}

	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write data message: %w", err)
	}

	return nil
}

func sendErrorMessage(conn *websocket.Conn, errMsg string) error {
	msg := StreamMessage{
		Type:      "error",
		Error:     errMsg,
		Timestamp: time.Now(),
	}

	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write error message: %w", err)
	}

	return nil
}

func sendPingMessage(conn *websocket.Conn) error {
	msg := StreamMessage{
		Type:      "ping",
		Timestamp: time.Now(),
	}

	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write ping message: %w", err)
	}

	return nil
}
