package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/paymentsaga/payment-saga/pkg/logger"
	"github.com/paymentsaga/payment-saga/pkg/retry"
)

// BusProducer is the producer surface the publisher needs.
// *kafka.Producer satisfies it.
type BusProducer interface {
	ProduceJSON(ctx context.Context, topic string, key string, data interface{}, headers map[string]string) error
}

// PublisherConfig holds publisher configuration
type PublisherConfig struct {
	// Source names the emitting participant, stamped into metadata
	Source string
	// MaxRetries bounds publish attempts before giving up
	MaxRetries int
	// RetryInterval is the initial backoff between publish attempts
	RetryInterval time.Duration
}

// Publisher enriches envelopes and publishes them keyed by sagaId
type Publisher struct {
	producer BusProducer
	config   *PublisherConfig
	retrier  *retry.Retrier
	log      *logger.Logger
}

// NewPublisher creates a Publisher
func NewPublisher(producer BusProducer, cfg *PublisherConfig) *Publisher {
	if cfg == nil {
		cfg = &PublisherConfig{}
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}

	return &Publisher{
		producer: producer,
		config:   cfg,
		retrier: retry.New(&retry.Config{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.RetryInterval,
			MaxInterval:     5 * time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		}),
		log: logger.Get(),
	}
}

// Publish enriches the envelope and produces it to the topic with
// key = sagaId. Publishing is retried with bounded attempts; the caller
// decides what a persistent failure means for acknowledgment.
func (p *Publisher) Publish(ctx context.Context, topic string, env *Envelope) error {
	if env == nil {
		return fmt.Errorf("envelope is required")
	}
	env.Enrich()
	if env.Metadata.Source == "" {
		env.Metadata.Source = p.config.Source
	}
	if err := env.Validate(); err != nil {
		return err
	}

	headers := map[string]string{
		"eventType":     string(env.EventType),
		"eventId":       env.EventID,
		"correlationId": env.CorrelationID,
		"timestamp":     env.Timestamp.Format(time.RFC3339Nano),
		"retry-count":   strconv.Itoa(env.Metadata.RetryCount),
	}

	result := p.retrier.DoWithCallback(ctx, func(ctx context.Context) error {
		return p.producer.ProduceJSON(ctx, topic, env.SagaID, env, headers)
	}, func(attempt int, err error, next time.Duration) {
		p.log.Warn("publish failed, retrying",
			"topic", topic,
			"event_type", env.EventType,
			"saga_id", env.SagaID,
			"attempt", attempt,
			"next_interval", next,
			"error", err,
		)
	})
	if result.Err != nil {
		p.log.Error("publish failed permanently",
			"topic", topic,
			"event_type", env.EventType,
			"saga_id", env.SagaID,
			"attempts", result.Attempts,
			"error", result.LastError,
		)
		return fmt.Errorf("failed to publish %s to %s: %w", env.EventType, topic, result.Err)
	}

	p.log.Info("event published",
		"topic", topic,
		"event_type", env.EventType,
		"event_id", env.EventID,
		"saga_id", env.SagaID,
	)
	return nil
}

// PublishEvent builds an envelope from the payload and publishes it
func (p *Publisher) PublishEvent(ctx context.Context, topic string, eventType EventType, sagaID string, payload interface{}) error {
	env, err := New(eventType, sagaID, p.config.Source, payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, topic, env)
}

// PublishChained builds an envelope that continues the causal chain of
// a consumed event, carrying its correlationId forward.
func (p *Publisher) PublishChained(ctx context.Context, topic string, eventType EventType, parent *Envelope, payload interface{}) error {
	env, err := New(eventType, parent.SagaID, p.config.Source, payload)
	if err != nil {
		return err
	}
	env.CorrelationID = parent.CorrelationID
	return p.Publish(ctx, topic, env)
}
