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

// Package events fans parsed presence events out to in-process subscribers
// (the websocket stream) and, when configured, to NATS JetStream as
// CloudEvents.
package events

import (
	"sync"

	"github.com/carverauto/stationwatch/pkg/logger"
	"github.com/carverauto/stationwatch/pkg/models"
)

// subscriberBuffer bounds how far a subscriber may fall behind before events
// are dropped for it. The ingest loop must never block on a slow websocket.
const subscriberBuffer = 16

// Hub broadcasts events to any number of subscribers. Subscribers that do not
// drain their channel lose events; the live stream is best-effort and the
// presence store remains the source of truth.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan *models.Event]struct{}
	logger      logger.Logger
}

// NewHub returns an empty hub.
func NewHub(log logger.Logger) *Hub {
	return &Hub{
		subscribers: make(map[chan *models.Event]struct{}),
		logger:      log,
	}
}

// Subscribe registers a new subscriber and returns its channel along with an
// unsubscribe function. The channel is closed by the unsubscribe call, which
// is safe to invoke more than once.
func (h *Hub) Subscribe() (<-chan *models.Event, func()) {
	ch := make(chan *models.Event, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once

	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()

			close(ch)
		})
	}

	return ch, unsubscribe
}

// Broadcast delivers the event to every subscriber without blocking. Events
// for subscribers with a full buffer are dropped.
func (h *Hub) Broadcast(event *models.Event) {
	if event == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			h.logger.Debug().
				Str("mac", event.MAC).
				Msg("Dropping event for slow subscriber")
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers)
}
