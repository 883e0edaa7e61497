package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/paymentsaga/payment-saga/internal/risk/service"
	"github.com/paymentsaga/payment-saga/pkg/events"
	"github.com/paymentsaga/payment-saga/pkg/kafka"
	"github.com/paymentsaga/payment-saga/pkg/logger"
)

// Config holds the risk listener configuration
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
		GroupID:       "risk-service",
		WorkerCount:   5,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	}
}

// RiskListener consumes payment initiations and compensation triggers
type RiskListener struct {
	listener  *events.Listener
	service   service.RiskService
	publisher service.EventPublisher
	log       *logger.Logger
}

// NewRiskListener creates the listener subscribed to payment-saga and
// saga-compensation.
func NewRiskListener(ctx context.Context, cfg *Config, svc service.RiskService, publisher service.EventPublisher, producer events.BusProducer) (*RiskListener, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	consumer, err := kafka.NewConsumer(ctx, &kafka.ConsumerConfig{
		Brokers:       cfg.Brokers,
		GroupID:       cfg.GroupID,
		Topics:        []string{events.TopicPaymentSaga, events.TopicSagaCompensation},
		ClientID:      "risk-service-consumer",
		MaxRetries:    cfg.MaxRetries,
		RetryInterval: cfg.RetryInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create risk consumer: %w", err)
	}

	l := &RiskListener{
		listener: events.NewListener(consumer, events.NewDeadLetterPublisher(producer), &events.ListenerConfig{
			Name:        "risk",
			WorkerCount: cfg.WorkerCount,
		}),
		service:   svc,
		publisher: publisher,
		log:       logger.Get().With("component", "risk-listener"),
	}

	l.listener.On(events.EventPaymentInitiated, l.handlePaymentInitiated)
	l.listener.On(events.EventOrderCancelled, l.handleCompensation)
	l.listener.On(events.EventPaymentFailed, l.handleCompensation)

	return l, nil
}

// Start begins consuming
func (l *RiskListener) Start(ctx context.Context) error {
	return l.listener.Start(ctx)
}

// Stop drains and closes the listener
func (l *RiskListener) Stop() {
	l.listener.Stop()
}

func (l *RiskListener) handlePaymentInitiated(ctx context.Context, env *events.Envelope) error {
	payload, err := events.DecodePayload[events.PaymentInitiatedPayload](env)
	if err != nil {
		// The assessment can never run; surface the failure so the
		// coordinator cancels instead of waiting forever
		l.log.Error("undecodable PAYMENT_INITIATED payload", "saga_id", env.SagaID, "error", err)
		return service.ReportFailure(ctx, l.publisher, env, fmt.Sprintf("malformed payment payload: %v", err))
	}

	return l.service.Assess(ctx, env, payload)
}

func (l *RiskListener) handleCompensation(ctx context.Context, env *events.Envelope) error {
	reason := string(env.EventType)
	if env.EventType == events.EventOrderCancelled {
		if payload, err := events.DecodePayload[events.OrderCancelledPayload](env); err == nil && payload.Reason != "" {
			reason = payload.Reason
		}
	}

	return l.service.Rollback(ctx, env, reason)
}
