package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paymentsaga/payment-saga/internal/order/domain"
	"github.com/paymentsaga/payment-saga/internal/order/dto"
	"github.com/paymentsaga/payment-saga/internal/order/metrics"
	"github.com/paymentsaga/payment-saga/internal/order/repository"
	"github.com/paymentsaga/payment-saga/pkg/events"
	"github.com/paymentsaga/payment-saga/pkg/logger"
)

// EventPublisher is the publishing surface the service needs.
// *events.Publisher satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, eventType events.EventType, sagaID string, payload interface{}) error
	PublishChained(ctx context.Context, topic string, eventType events.EventType, parent *events.Envelope, payload interface{}) error
}

// OrderService coordinates the saga from the order side
type OrderService interface {
	// InitiatePayment starts a fresh saga and returns the PENDING order
	InitiatePayment(ctx context.Context, req *dto.InitiatePaymentRequest) (*domain.Order, error)
	// GetOrder returns an order owned by the given user
	GetOrder(ctx context.Context, orderID, userID string) (*domain.Order, error)
	// MarkProcessing advances the order after risk approval
	MarkProcessing(ctx context.Context, sagaID string) error
	// ConfirmOrder finalizes the order with the completed transaction
	ConfirmOrder(ctx context.Context, sagaID, transactionID string) error
	// CancelOrder cancels the order and fans out compensation
	CancelOrder(ctx context.Context, sagaID, reason string) error
}

type orderService struct {
	repo      repository.OrderRepository
	publisher EventPublisher
	log       *logger.Logger
}

// NewOrderService creates an OrderService
func NewOrderService(repo repository.OrderRepository, publisher EventPublisher) OrderService {
	return &orderService{
		repo:      repo,
		publisher: publisher,
		log:       logger.Get().With("component", "order-service"),
	}
}

// InitiatePayment is the only externally triggered saga entry point
func (s *orderService) InitiatePayment(ctx context.Context, req *dto.InitiatePaymentRequest) (*domain.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	order := domain.NewOrder(req.UserID, req.Amount, req.Currency, req.PaymentMethod, req.ToItems())
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	payload := &events.PaymentInitiatedPayload{
		OrderID:       order.OrderID,
		UserID:        order.UserID,
		Amount:        order.Amount,
		Currency:      order.Currency,
		PaymentMethod: order.PaymentMethod,
		Items:         toEventItems(order.Items),
	}
	if err := s.publisher.PublishEvent(ctx, events.TopicPaymentSaga, events.EventPaymentInitiated, order.SagaID, payload); err != nil {
		// The order stays PENDING; an operator or watchdog resolves it
		s.log.Error("failed to publish PAYMENT_INITIATED",
			"order_id", order.OrderID,
			"saga_id", order.SagaID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to start saga: %w", err)
	}

	metrics.RecordInitiated(ctx, order.Currency, order.Amount)
	s.log.Info("payment saga initiated",
		"order_id", order.OrderID,
		"saga_id", order.SagaID,
		"user_id", order.UserID,
		"amount", order.Amount,
	)
	return order, nil
}

// GetOrder returns the snapshot, scoped to the requesting user
func (s *orderService) GetOrder(ctx context.Context, orderID, userID string) (*domain.Order, error) {
	order, err := s.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		// Do not leak existence of other users' orders
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// MarkProcessing advances PENDING to PROCESSING after risk approval
func (s *orderService) MarkProcessing(ctx context.Context, sagaID string) error {
	order, err := s.repo.GetBySagaID(ctx, sagaID)
	if err != nil {
		return err
	}

	if err := order.MarkProcessing(); err != nil {
		if errors.Is(err, domain.ErrTerminalState) {
			// Late approval of an already-resolved saga; nothing to apply
			s.log.Warn("risk approval for terminal order ignored",
				"saga_id", sagaID,
				"status", order.Status,
			)
			return nil
		}
		return err
	}

	return s.repo.Update(ctx, order)
}

// ConfirmOrder finalizes the happy path
func (s *orderService) ConfirmOrder(ctx context.Context, sagaID, transactionID string) error {
	order, err := s.repo.GetBySagaID(ctx, sagaID)
	if err != nil {
		return err
	}

	alreadyConfirmed := order.Status == domain.OrderStatusConfirmed

	if err := order.Confirm(transactionID); err != nil {
		if errors.Is(err, domain.ErrTerminalState) {
			// Payment succeeded for a cancelled saga; refund is driven by
			// the compensation already in flight
			s.log.Warn("payment success for terminal order ignored",
				"saga_id", sagaID,
				"status", order.Status,
			)
			return nil
		}
		return err
	}
	if alreadyConfirmed {
		// Duplicate delivery; state already applied
		return nil
	}

	if err := s.repo.Update(ctx, order); err != nil {
		return err
	}

	metrics.RecordConfirmed(ctx, time.Since(order.CreatedAt).Seconds())
	s.log.Info("order confirmed",
		"order_id", order.OrderID,
		"saga_id", sagaID,
		"transaction_id", transactionID,
	)
	return nil
}

// CancelOrder is the compensation fan-out point. Emitting ORDER_CANCELLED
// is what drives risk rollback and payment refund.
func (s *orderService) CancelOrder(ctx context.Context, sagaID, reason string) error {
	order, err := s.repo.GetBySagaID(ctx, sagaID)
	if err != nil {
		return err
	}

	if order.Status == domain.OrderStatusCancelled {
		// Already cancelled; compensation has already fanned out
		return nil
	}

	if err := order.Cancel(reason); err != nil {
		if errors.Is(err, domain.ErrTerminalState) {
			s.log.Warn("cancellation of confirmed order rejected",
				"saga_id", sagaID,
				"reason", reason,
			)
			return nil
		}
		return err
	}

	if err := s.repo.Update(ctx, order); err != nil {
		return err
	}

	payload := &events.OrderCancelledPayload{
		OrderID:     order.OrderID,
		Reason:      reason,
		CancelledAt: order.UpdatedAt,
	}
	if err := s.publisher.PublishEvent(ctx, events.TopicSagaCompensation, events.EventOrderCancelled, sagaID, payload); err != nil {
		return fmt.Errorf("failed to publish ORDER_CANCELLED: %w", err)
	}

	metrics.RecordCancelled(ctx, reason, time.Since(order.CreatedAt).Seconds())
	s.log.Info("order cancelled",
		"order_id", order.OrderID,
		"saga_id", sagaID,
		"reason", reason,
	)
	return nil
}

func toEventItems(items []domain.OrderItem) []events.OrderItem {
	out := make([]events.OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, events.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return out
}
