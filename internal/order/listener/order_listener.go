package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/paymentsaga/payment-saga/internal/order/service"
	"github.com/paymentsaga/payment-saga/pkg/events"
	"github.com/paymentsaga/payment-saga/pkg/kafka"
	"github.com/paymentsaga/payment-saga/pkg/logger"
)

// Config holds the order listener configuration
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
		GroupID:       "order-service",
		WorkerCount:   5,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	}
}

// OrderListener reacts to risk and payment outcomes and drives the
// order state machine forward or into cancellation.
type OrderListener struct {
	listener *events.Listener
	service  service.OrderService
	log      *logger.Logger
}

// NewOrderListener creates the listener subscribed to risk-events and
// payment-events.
func NewOrderListener(ctx context.Context, cfg *Config, svc service.OrderService, producer events.BusProducer) (*OrderListener, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	consumer, err := kafka.NewConsumer(ctx, &kafka.ConsumerConfig{
		Brokers:       cfg.Brokers,
		GroupID:       cfg.GroupID,
		Topics:        []string{events.TopicRiskEvents, events.TopicPaymentEvents},
		ClientID:      "order-service-consumer",
		MaxRetries:    cfg.MaxRetries,
		RetryInterval: cfg.RetryInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order consumer: %w", err)
	}

	l := &OrderListener{
		listener: events.NewListener(consumer, events.NewDeadLetterPublisher(producer), &events.ListenerConfig{
			Name:        "order",
			WorkerCount: cfg.WorkerCount,
		}),
		service: svc,
		log:     logger.Get().With("component", "order-listener"),
	}

	l.listener.On(events.EventRiskCheckCompleted, l.handleRiskCompleted)
	l.listener.On(events.EventRiskCheckFailed, l.handleRiskFailed)
	l.listener.On(events.EventPaymentProcessed, l.handlePaymentProcessed)
	l.listener.On(events.EventPaymentFailed, l.handlePaymentFailed)

	return l, nil
}

// Start begins consuming
func (l *OrderListener) Start(ctx context.Context) error {
	return l.listener.Start(ctx)
}

// Stop drains and closes the listener
func (l *OrderListener) Stop() {
	l.listener.Stop()
}

// handleRiskCompleted advances the saga on approval and cancels on
// decline. A declined check is a business outcome, not a processing
// failure.
func (l *OrderListener) handleRiskCompleted(ctx context.Context, env *events.Envelope) error {
	payload, err := events.DecodePayload[events.RiskCheckCompletedPayload](env)
	if err != nil {
		return err
	}

	if payload.Approved {
		return l.service.MarkProcessing(ctx, env.SagaID)
	}

	l.log.Info("risk check declined, cancelling order",
		"saga_id", env.SagaID,
		"order_id", payload.OrderID,
		"risk_score", payload.RiskScore,
	)
	return l.service.CancelOrder(ctx, env.SagaID, "Risk check declined")
}

func (l *OrderListener) handleRiskFailed(ctx context.Context, env *events.Envelope) error {
	payload, err := events.DecodePayload[events.RiskCheckFailedPayload](env)
	if err != nil {
		return err
	}

	reason := fmt.Sprintf("Risk check failed: %s", payload.Reason)
	return l.service.CancelOrder(ctx, env.SagaID, reason)
}

func (l *OrderListener) handlePaymentProcessed(ctx context.Context, env *events.Envelope) error {
	payload, err := events.DecodePayload[events.PaymentProcessedPayload](env)
	if err != nil {
		return err
	}

	return l.service.ConfirmOrder(ctx, env.SagaID, payload.TransactionID)
}

func (l *OrderListener) handlePaymentFailed(ctx context.Context, env *events.Envelope) error {
	payload, err := events.DecodePayload[events.PaymentFailedPayload](env)
	if err != nil {
		return err
	}

	reason := fmt.Sprintf("Payment failed: %s", payload.Reason)
	return l.service.CancelOrder(ctx, env.SagaID, reason)
}
