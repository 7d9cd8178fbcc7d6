package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/carverauto/stationwatch/pkg/logger"
	"github.com/carverauto/stationwatch/pkg/models"
)

func testEvent(action models.Action) *models.Event {
	return &models.Event{
		Host:      "den-ap",
		Interface: "wl1.1",
		MAC:       "32:42:fd:88:86:0c",
		Action:    action,
		Timestamp: time.Date(2024, 1, 1, 9, 42, 46, 0, time.UTC),
	}
}

func TestHubBroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub(logger.NewTestLogger())

	first, unsubFirst := hub.Subscribe()
	defer unsubFirst()

	second, unsubSecond := hub.Subscribe()
	defer unsubSecond()

	if hub.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", hub.SubscriberCount())
	}

	sent := testEvent(models.ActionAssociated)
	hub.Broadcast(sent)

	for _, ch := range []<-chan *models.Event{first, second} {
		select {
		case got := <-ch:
			if got != sent {
				t.Fatalf("expected broadcast event, got %#v", got)
			}
		default:
			t.Fatalf("expected event to be buffered for subscriber")
		}
	}
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub(logger.NewTestLogger())

	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Broadcast(testEvent(models.ActionObserved))
	}

	if len(ch) != subscriberBuffer {
		t.Fatalf("expected buffer to cap at %d events, got %d", subscriberBuffer, len(ch))
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(logger.NewTestLogger())

	ch, unsubscribe := hub.Subscribe()

	unsubscribe()
	unsubscribe() // safe to call twice

	if hub.SubscriberCount() != 0 {
		t.Fatalf("expected no subscribers after unsubscribe, got %d", hub.SubscriberCount())
	}

	if _, open := <-ch; open {
		t.Fatalf("expected channel to be closed after unsubscribe")
	}

	// Broadcasting with no subscribers is a no-op.
	hub.Broadcast(testEvent(models.ActionDisassociated))
}

func TestNewPresenceCloudEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		action      models.Action
		wantType    string
		wantSubject string
	}{
		{"associated", models.ActionAssociated, "com.carverauto.stationwatch.presence.associated", "events.hostapd.associated"},
		{"disassociated", models.ActionDisassociated, "com.carverauto.stationwatch.presence.disassociated", "events.hostapd.disassociated"},
		{"observed", models.ActionObserved, "com.carverauto.stationwatch.presence.observed", "events.hostapd.observed"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			event := testEvent(tc.action)
			ce := NewPresenceCloudEvent(event)

			if ce.SpecVersion != "1.0" {
				t.Fatalf("specversion = %q, want 1.0", ce.SpecVersion)
			}
			if ce.ID == "" {
				t.Fatalf("expected a generated event id")
			}
			if ce.Type != tc.wantType {
				t.Fatalf("type = %q, want %q", ce.Type, tc.wantType)
			}
			if ce.Subject != tc.wantSubject {
				t.Fatalf("subject = %q, want %q", ce.Subject, tc.wantSubject)
			}
			if ce.Time == nil || !ce.Time.Equal(event.Timestamp) {
				t.Fatalf("time = %v, want event timestamp %v", ce.Time, event.Timestamp)
			}

			payload, err := json.Marshal(ce)
			if err != nil {
				t.Fatalf("marshal cloud event: %v", err)
			}

			var decoded map[string]interface{}
			if err := json.Unmarshal(payload, &decoded); err != nil {
				t.Fatalf("unmarshal cloud event: %v", err)
			}

			data, ok := decoded["data"].(map[string]interface{})
			if !ok {
				t.Fatalf("expected data payload, got %#v", decoded["data"])
			}
			if data["mac"] != "32:42:fd:88:86:0c" {
				t.Fatalf("data.mac = %v, want canonical address", data["mac"])
			}
		})
	}
}

func TestTLSConfigRequiresMTLSMode(t *testing.T) {
	t.Parallel()

	if _, err := TLSConfig(nil); err != ErrMTLSRequired {
		t.Fatalf("TLSConfig(nil) err = %v, want ErrMTLSRequired", err)
	}

	if _, err := TLSConfig(&models.SecurityConfig{Mode: "spiffe"}); err != ErrMTLSRequired {
		t.Fatalf("TLSConfig(spiffe) err = %v, want ErrMTLSRequired", err)
	}
}
