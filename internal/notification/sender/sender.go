package sender

import (
	"context"

	"github.com/paymentsaga/payment-saga/internal/notification/domain"
)

// Sender dispatches a notification through one delivery channel
type Sender interface {
	Send(ctx context.Context, n *domain.Notification) error
	Name() string
}
