package service

import (
	"context"
	"fmt"

	"github.com/paymentsaga/payment-saga/internal/notification/domain"
	"github.com/paymentsaga/payment-saga/internal/notification/registry"
	"github.com/paymentsaga/payment-saga/internal/notification/sender"
	"github.com/paymentsaga/payment-saga/pkg/logger"
)

// NotificationService dispatches at most one notification per
// (orderId, category)
type NotificationService interface {
	Dispatch(ctx context.Context, n *domain.Notification) error
}

type notificationService struct {
	registry registry.SentRegistry
	senders  []sender.Sender
	log      *logger.Logger
}

// NewNotificationService creates a NotificationService fanning out to
// the given delivery channels
func NewNotificationService(reg registry.SentRegistry, senders ...sender.Sender) NotificationService {
	return &notificationService{
		registry: reg,
		senders:  senders,
		log:      logger.Get().With("component", "notification-service"),
	}
}

// Dispatch sends the notification through every channel unless its
// dedup key was already recorded. The key is claimed before sending:
// a channel failure after the claim is logged and not resent, keeping
// delivery at-most-once. A registry error is returned before anything
// is sent, so redelivery is safe.
func (s *notificationService) Dispatch(ctx context.Context, n *domain.Notification) error {
	fresh, err := s.registry.MarkSent(ctx, n.DedupKey())
	if err != nil {
		return fmt.Errorf("failed to claim notification %s: %w", n.DedupKey(), err)
	}
	if !fresh {
		s.log.Debug("notification already sent, skipping",
			"order_id", n.OrderID,
			"category", n.Category,
		)
		return nil
	}

	for _, snd := range s.senders {
		if err := snd.Send(ctx, n); err != nil {
			// Best effort; the user-visible effect is not transactional
			s.log.Error("notification dispatch failed",
				"channel", snd.Name(),
				"order_id", n.OrderID,
				"category", n.Category,
				"error", err,
			)
		}
	}

	return nil
}
