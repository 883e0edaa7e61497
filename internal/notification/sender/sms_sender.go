package sender

import (
	"context"

	"github.com/paymentsaga/payment-saga/internal/notification/domain"
	"github.com/paymentsaga/payment-saga/pkg/logger"
)

// SMSSender simulates an SMS delivery channel
type SMSSender struct {
	log *logger.Logger
}

// NewSMSSender creates an SMS sender
func NewSMSSender() *SMSSender {
	return &SMSSender{
		log: logger.Get().With("channel", "sms"),
	}
}

// Send dispatches the notification
func (s *SMSSender) Send(ctx context.Context, n *domain.Notification) error {
	s.log.Info("sms notification dispatched",
		"order_id", n.OrderID,
		"category", n.Category,
		"body", n.Body,
	)
	return nil
}

// Name returns the channel name
func (s *SMSSender) Name() string {
	return "sms"
}
