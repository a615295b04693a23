package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/codebuildervaibhav/skill-dashboard/internal/metrics"
)

// KafkaPublisher writes completion events to a Kafka topic. With no brokers
// configured it runs in log-only mode.
type KafkaPublisher struct {
	writer  *kafka.Writer
	topic   string
	enabled bool
	metrics *metrics.Metrics
}

// KafkaConfig holds Kafka publisher configuration.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// NewKafka creates a Kafka publisher.
func NewKafka(cfg *KafkaConfig) *KafkaPublisher {
	m := metrics.DefaultMetrics

	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		p := &KafkaPublisher{metrics: m}
		if cfg != nil {
			p.topic = cfg.Topic
		}
		return p
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("Kafka publisher initialized")

	return &KafkaPublisher{
		writer:  writer,
		topic:   cfg.Topic,
		enabled: true,
		metrics: m,
	}
}

// PublishCompleted writes the event keyed by transcript id so updates for one
// job land on one partition.
func (p *KafkaPublisher) PublishCompleted(ctx context.Context, event TranscriptCompleted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", p.topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("topic", p.topic).
		Str("key", event.TranscriptID).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || p.writer == nil {
		p.metrics.EventsPublished.WithLabelValues("skipped").Inc()
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(event.TranscriptID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte("transcript.completed")},
			{Key: "userId", Value: []byte(event.UserID)},
		},
	}

	err = p.writer.WriteMessages(ctx, msg)
	p.metrics.EventsPublished.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		log.Error().
			Err(err).
			Str("topic", p.topic).
			Str("key", event.TranscriptID).
			Msg("Failed to write to Kafka")
		return err
	}
	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
