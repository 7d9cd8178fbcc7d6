package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/stationwatch/pkg/events"
	"github.com/carverauto/stationwatch/pkg/logger"
	"github.com/carverauto/stationwatch/pkg/models"
	"github.com/carverauto/stationwatch/pkg/presence"
)

const associateLine = `{"host":"den-ap","program":"hostapd","timestamp":"2024-01-01T09:42:46Z",` +
	`"message":"wl1.1: STA 32:42:fd:88:86:0c IEEE 802.11: associated"}`

type fakeSource struct {
	lines []string
	err   error
}

func (f *fakeSource) Stream(_ context.Context, handler func(line string) error) error {
	for _, line := range f.lines {
		if err := handler(line); err != nil {
			return err
		}
	}

	return f.err
}

type fakePublisher struct {
	published []*models.Event
	err       error
}

func (f *fakePublisher) PublishPresenceEvent(_ context.Context, event *models.Event) error {
	f.published = append(f.published, event)
	return f.err
}

func newTestIngestor(publisher EventPublisher) (*Ingestor, *presence.Store, *events.Hub) {
	store := presence.NewStore()
	hub := events.NewHub(logger.NewTestLogger())

	return NewIngestor(store, hub, publisher, logger.NewTestLogger()), store, hub
}

func TestHandleLineWitnessesAndBroadcasts(t *testing.T) {
	publisher := &fakePublisher{}
	ingestor, store, hub := newTestIngestor(publisher)

	stream, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	ingestor.HandleLine(context.Background(), associateLine)

	device := store.Get("32:42:fd:88:86:0c")
	require.NotNil(t, device)
	assert.True(t, device.Online)
	require.Len(t, device.Stations, 1)
	assert.Equal(t, models.Station{Hostname: "den-ap", Interface: "wl1.1"}, device.Stations[0])

	select {
	case event := <-stream:
		assert.Equal(t, models.ActionAssociated, event.Action)
		assert.Equal(t, "32:42:fd:88:86:0c", event.MAC)
	default:
		t.Fatal("expected event on the hub")
	}

	require.Len(t, publisher.published, 1)
	assert.Equal(t, "32:42:fd:88:86:0c", publisher.published[0].MAC)
}

func TestHandleLineSkipsBenignLines(t *testing.T) {
	publisher := &fakePublisher{}
	ingestor, store, _ := newTestIngestor(publisher)

	lines := []string{
		// Another daemon's chatter is silently ignored.
		`{"host":"den-ap","program":"other-daemon","timestamp":"2024-01-01T09:42:46Z",` +
			`"message":"wl1.1: STA 32:42:fd:88:86:0c IEEE 802.11: associated"}`,
		// Accounting-session notices are recognized no-ops.
		`{"host":"den-ap","program":"hostapd","timestamp":"2024-01-01T09:42:46Z",` +
			`"message":"eth10: STA 04:17:b6:37:96:dc RADIUS: starting accounting session 5F3F4F6F"}`,
	}

	for _, line := range lines {
		ingestor.HandleLine(context.Background(), line)
	}

	assert.Zero(t, store.DeviceCount())
	assert.Empty(t, publisher.published)
}

func TestHandleLineErrorSeverities(t *testing.T) {
	var buf bytes.Buffer

	store := presence.NewStore()
	hub := events.NewHub(logger.NewTestLogger())
	log := logger.NewWriterLogger(&buf)
	ingestor := NewIngestor(store, hub, nil, log)

	// A grammar failure is logged at error severity, a decode failure at warn.
	ingestor.HandleLine(context.Background(),
		`{"host":"den-ap","program":"hostapd","timestamp":"2024-01-01T09:42:46Z",`+
			`"message":"wl1.1: STA zz:bad:ad:dr:es:sx IEEE 802.11: associated"}`)
	ingestor.HandleLine(context.Background(), "Jan  1 09:42:46 den-ap hostapd: not json")

	assert.Zero(t, store.DeviceCount())

	var levels []string

	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &entry))
		levels = append(levels, entry["level"].(string))
	}

	assert.Equal(t, []string{"error", "warn"}, levels)
}

func TestHandleLineToleratesPublishFailure(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("nats unavailable")}
	ingestor, store, _ := newTestIngestor(publisher)

	ingestor.HandleLine(context.Background(), associateLine)

	// The store is still the source of truth even when publishing fails.
	require.NotNil(t, store.Get("32:42:fd:88:86:0c"))
	assert.Len(t, publisher.published, 1)
}

func TestRunReplaysSourceAndPropagatesStreamError(t *testing.T) {
	wantErr := errors.New("tail failed")
	ingestor, store, _ := newTestIngestor(nil)

	source := &fakeSource{
		lines: []string{
			associateLine,
			`{"host":"den-ap","program":"hostapd","timestamp":"2024-01-01T09:43:00Z",` +
				`"message":"wl1.1: STA 32:42:fd:88:86:0c IEEE 802.11: disassociated"}`,
		},
		err: wantErr,
	}

	err := ingestor.Run(context.Background(), source)
	require.ErrorIs(t, err, wantErr)

	device := store.Get("32:42:fd:88:86:0c")
	require.NotNil(t, device)
	assert.False(t, device.Online)
	assert.NotNil(t, device.LastAssociated)
	assert.NotNil(t, device.LastDisassociated)
}
