package sender

import (
	"context"

	"github.com/paymentsaga/payment-saga/internal/notification/domain"
	"github.com/paymentsaga/payment-saga/pkg/logger"
)

// EmailSender simulates an email delivery channel. The message is
// logged where a real deployment would hand it to an email provider.
type EmailSender struct {
	log *logger.Logger
}

// NewEmailSender creates an email sender
func NewEmailSender() *EmailSender {
	return &EmailSender{
		log: logger.Get().With("channel", "email"),
	}
}

// Send dispatches the notification
func (s *EmailSender) Send(ctx context.Context, n *domain.Notification) error {
	s.log.Info("email notification dispatched",
		"order_id", n.OrderID,
		"category", n.Category,
		"subject", n.Subject,
		"body", n.Body,
	)
	return nil
}

// Name returns the channel name
func (s *EmailSender) Name() string {
	return "email"
}
