package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/skill-dashboard/internal/metrics"
)

// NATSPublisher publishes completion events on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	metrics *metrics.Metrics
}

// NewNATS connects to NATS. Connection failures at startup are retried in the
// background by the client.
func NewNATS(url, token, subject string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("skill-dashboard"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Info().Str("url", url).Str("subject", subject).Msg("NATS publisher initialized")
	return &NATSPublisher{conn: nc, subject: subject, metrics: metrics.DefaultMetrics}, nil
}

func (p *NATSPublisher) PublishCompleted(_ context.Context, event TranscriptCompleted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	err = p.conn.Publish(p.subject, payload)
	p.metrics.EventsPublished.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

// Close drains pending messages before closing the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
