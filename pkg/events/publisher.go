package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/stationwatch/pkg/logger"
	"github.com/carverauto/stationwatch/pkg/models"
)

const (
	cloudEventSpecVersion = "1.0"
	cloudEventSource      = "stationwatch/stationd"
	presenceEventPrefix   = "com.carverauto.stationwatch.presence"
	presenceSubjectPrefix = "events.hostapd"
)

// Publisher publishes presence events to NATS JetStream as CloudEvents, one
// subject per action kind.
type Publisher struct {
	js     jetstream.JetStream
	stream string
	logger logger.Logger
}

// Connect creates a NATS connection using the configured security settings
// and logs connection lifecycle transitions.
func Connect(cfg *models.NATSConfig, log logger.Logger) (*nats.Conn, error) {
	var opts []nats.Option

	if cfg.Security != nil {
		tlsConf, err := TLSConfig(cfg.Security)
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts,
			nats.Secure(tlsConf),
			nats.RootCAs(cfg.Security.TLS.CAFile),
			nats.ClientCert(cfg.Security.TLS.CertFile, cfg.Security.TLS.KeyFile),
		)
	}

	opts = append(opts,
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.ConnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return nc, nil
}

// NewPublisher creates a Publisher on an existing NATS connection, ensuring
// the configured stream exists first.
func NewPublisher(ctx context.Context, nc *nats.Conn, domain string, cfg *models.EventsConfig, log logger.Logger) (*Publisher, error) {
	var js jetstream.JetStream

	var err error

	if domain != "" {
		js, err = jetstream.NewWithDomain(nc, domain)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context with domain %s: %w", domain, err)
		}
	} else {
		js, err = jetstream.New(nc)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
	}

	if _, err = js.Stream(ctx, cfg.StreamName); err != nil {
		streamConfig := jetstream.StreamConfig{
			Name:     cfg.StreamName,
			Subjects: cfg.Subjects,
		}

		if _, err = js.CreateOrUpdateStream(ctx, streamConfig); err != nil {
			return nil, fmt.Errorf("failed to create or get stream %s: %w", cfg.StreamName, err)
		}

		log.Info().Str("stream", cfg.StreamName).Msg("Created NATS JetStream stream")
	}

	return &Publisher{
		js:     js,
		stream: cfg.StreamName,
		logger: log,
	}, nil
}

// PublishPresenceEvent wraps the event in a CloudEvents envelope and publishes
// it to the action-specific subject.
func (p *Publisher) PublishPresenceEvent(ctx context.Context, event *models.Event) error {
	ce := NewPresenceCloudEvent(event)

	eventBytes, err := json.Marshal(ce)
	if err != nil {
		return fmt.Errorf("failed to marshal presence event: %w", err)
	}

	ack, err := p.js.Publish(ctx, ce.Subject, eventBytes)
	if err != nil {
		return fmt.Errorf("failed to publish presence event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", ce.ID).
		Str("subject", ce.Subject).
		Uint64("sequence", ack.Sequence).
		Msg("Published presence event")

	return nil
}

// NewPresenceCloudEvent builds the CloudEvents envelope for one presence
// event. The event timestamp, not the publish time, becomes the CloudEvents
// time attribute.
func NewPresenceCloudEvent(event *models.Event) models.CloudEvent {
	return models.CloudEvent{
		SpecVersion:     cloudEventSpecVersion,
		ID:              uuid.New().String(),
		Source:          cloudEventSource,
		Type:            fmt.Sprintf("%s.%s", presenceEventPrefix, event.Action),
		DataContentType: "application/json",
		Subject:         fmt.Sprintf("%s.%s", presenceSubjectPrefix, event.Action),
		Time:            &event.Timestamp,
		Data:            event,
	}
}
