package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/paymentsaga/payment-saga/internal/payment/service"
	"github.com/paymentsaga/payment-saga/pkg/events"
	"github.com/paymentsaga/payment-saga/pkg/kafka"
	"github.com/paymentsaga/payment-saga/pkg/logger"
)

// Config holds the payment listener configuration
type Config struct {
	Brokers       []string
	GroupID       string
	WorkerCount   int
	MaxRetries    int
	RetryInterval time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Brokers:       []string{"localhost:9092"},
		GroupID:       "payment-service",
		WorkerCount:   5,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	}
}

// PaymentListener consumes risk outcomes and compensation triggers
type PaymentListener struct {
	listener *events.Listener
	service  service.PaymentService
	log      *logger.Logger
}

// NewPaymentListener creates the listener subscribed to risk-events and
// saga-compensation.
func NewPaymentListener(ctx context.Context, cfg *Config, svc service.PaymentService, producer events.BusProducer) (*PaymentListener, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	consumer, err := kafka.NewConsumer(ctx, &kafka.ConsumerConfig{
		Brokers:       cfg.Brokers,
		GroupID:       cfg.GroupID,
		Topics:        []string{events.TopicRiskEvents, events.TopicSagaCompensation},
		ClientID:      "payment-service-consumer",
		MaxRetries:    cfg.MaxRetries,
		RetryInterval: cfg.RetryInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment consumer: %w", err)
	}

	l := &PaymentListener{
		listener: events.NewListener(consumer, events.NewDeadLetterPublisher(producer), &events.ListenerConfig{
			Name:        "payment",
			WorkerCount: cfg.WorkerCount,
		}),
		service: svc,
		log:     logger.Get().With("component", "payment-listener"),
	}

	l.listener.On(events.EventRiskCheckCompleted, l.handleRiskCompleted)
	l.listener.On(events.EventOrderCancelled, l.handleCompensation)
	l.listener.On(events.EventPaymentFailed, l.handleCompensation)

	return l, nil
}

// Start begins consuming
func (l *PaymentListener) Start(ctx context.Context) error {
	return l.listener.Start(ctx)
}

// Stop drains and closes the listener
func (l *PaymentListener) Stop() {
	l.listener.Stop()
}

func (l *PaymentListener) handleRiskCompleted(ctx context.Context, env *events.Envelope) error {
	payload, err := events.DecodePayload[events.RiskCheckCompletedPayload](env)
	if err != nil {
		return err
	}

	if !payload.Approved {
		// Declined sagas never reach the gateway
		l.log.Debug("risk declined, skipping charge", "saga_id", env.SagaID)
		return nil
	}

	return l.service.Process(ctx, env, payload)
}

func (l *PaymentListener) handleCompensation(ctx context.Context, env *events.Envelope) error {
	reason := string(env.EventType)
	if env.EventType == events.EventOrderCancelled {
		if payload, err := events.DecodePayload[events.OrderCancelledPayload](env); err == nil && payload.Reason != "" {
			reason = payload.Reason
		}
	}

	return l.service.Refund(ctx, env, reason)
}
