package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/paymentsaga/payment-saga/internal/notification/domain"
	"github.com/paymentsaga/payment-saga/internal/notification/service"
	"github.com/paymentsaga/payment-saga/pkg/events"
	"github.com/paymentsaga/payment-saga/pkg/kafka"
	"github.com/paymentsaga/payment-saga/pkg/logger"
)

// Config holds the notification listener configuration
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
		GroupID:       "notification-service",
		WorkerCount:   5,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	}
}

// NotificationListener consumes payment outcomes and compensation
// events and turns them into user notifications
type NotificationListener struct {
	listener *events.Listener
	service  service.NotificationService
	log      *logger.Logger
}

// NewNotificationListener creates the listener subscribed to
// payment-events and saga-compensation.
func NewNotificationListener(ctx context.Context, cfg *Config, svc service.NotificationService, producer events.BusProducer) (*NotificationListener, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	consumer, err := kafka.NewConsumer(ctx, &kafka.ConsumerConfig{
		Brokers:       cfg.Brokers,
		GroupID:       cfg.GroupID,
		Topics:        []string{events.TopicPaymentEvents, events.TopicSagaCompensation},
		ClientID:      "notification-service-consumer",
		MaxRetries:    cfg.MaxRetries,
		RetryInterval: cfg.RetryInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create notification consumer: %w", err)
	}

	l := &NotificationListener{
		listener: events.NewListener(consumer, events.NewDeadLetterPublisher(producer), &events.ListenerConfig{
			Name:        "notification",
			WorkerCount: cfg.WorkerCount,
		}),
		service: svc,
		log:     logger.Get().With("component", "notification-listener"),
	}

	l.listener.On(events.EventPaymentProcessed, l.handlePaymentProcessed)
	l.listener.On(events.EventPaymentFailed, l.handlePaymentFailed)
	l.listener.On(events.EventOrderCancelled, l.handleOrderCancelled)
	l.listener.On(events.EventPaymentRefunded, l.handlePaymentRefunded)

	return l, nil
}

// Start begins consuming
func (l *NotificationListener) Start(ctx context.Context) error {
	return l.listener.Start(ctx)
}

// Stop drains and closes the listener
func (l *NotificationListener) Stop() {
	l.listener.Stop()
}

func (l *NotificationListener) handlePaymentProcessed(ctx context.Context, env *events.Envelope) error {
	payload, err := events.DecodePayload[events.PaymentProcessedPayload](env)
	if err != nil {
		return err
	}
	return l.service.Dispatch(ctx, domain.NewSuccessNotification(payload.OrderID, payload.TransactionID, payload.Amount, payload.Currency))
}

func (l *NotificationListener) handlePaymentFailed(ctx context.Context, env *events.Envelope) error {
	payload, err := events.DecodePayload[events.PaymentFailedPayload](env)
	if err != nil {
		return err
	}
	return l.service.Dispatch(ctx, domain.NewFailureNotification(payload.OrderID, payload.Reason))
}

func (l *NotificationListener) handleOrderCancelled(ctx context.Context, env *events.Envelope) error {
	payload, err := events.DecodePayload[events.OrderCancelledPayload](env)
	if err != nil {
		return err
	}
	return l.service.Dispatch(ctx, domain.NewCancelledNotification(payload.OrderID, payload.Reason))
}

func (l *NotificationListener) handlePaymentRefunded(ctx context.Context, env *events.Envelope) error {
	payload, err := events.DecodePayload[events.PaymentRefundedPayload](env)
	if err != nil {
		return err
	}
	return l.service.Dispatch(ctx, domain.NewRefundNotification(payload.OrderID, payload.RefundID, payload.Amount))
}
