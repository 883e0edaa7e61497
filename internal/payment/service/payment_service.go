package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paymentsaga/payment-saga/internal/payment/domain"
	"github.com/paymentsaga/payment-saga/internal/payment/gateway"
	"github.com/paymentsaga/payment-saga/internal/payment/metrics"
	"github.com/paymentsaga/payment-saga/internal/payment/repository"
	"github.com/paymentsaga/payment-saga/pkg/events"
	"github.com/paymentsaga/payment-saga/pkg/logger"
	"github.com/paymentsaga/payment-saga/pkg/retry"
)

// EventPublisher is the publishing surface the service needs
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, eventType events.EventType, sagaID string, payload interface{}) error
	PublishChained(ctx context.Context, topic string, eventType events.EventType, parent *events.Envelope, payload interface{}) error
}

// PaymentService charges approved sagas and refunds cancelled ones
type PaymentService interface {
	// Process charges the payment for an approved risk outcome and
	// emits PAYMENT_PROCESSED or PAYMENT_FAILED
	Process(ctx context.Context, parent *events.Envelope, payload *events.RiskCheckCompletedPayload) error
	// Refund compensates a completed transaction for a cancelled saga
	Refund(ctx context.Context, parent *events.Envelope, reason string) error
}

type paymentService struct {
	repo      repository.TransactionRepository
	gateway   gateway.PaymentGateway
	publisher EventPublisher
	retrier   *retry.Retrier
	log       *logger.Logger
}

// NewPaymentService creates a PaymentService. Gateway charges are
// retried with the gateway backoff policy; refunds are not retried
// inline.
func NewPaymentService(repo repository.TransactionRepository, gw gateway.PaymentGateway, publisher EventPublisher) PaymentService {
	return NewPaymentServiceWithRetry(repo, gw, publisher, retry.GatewayConfig())
}

// NewPaymentServiceWithRetry creates a PaymentService with a custom
// gateway retry policy
func NewPaymentServiceWithRetry(repo repository.TransactionRepository, gw gateway.PaymentGateway, publisher EventPublisher, retryCfg *retry.Config) PaymentService {
	return &paymentService{
		repo:      repo,
		gateway:   gw,
		publisher: publisher,
		retrier:   retry.New(retryCfg),
		log:       logger.Get().With("component", "payment-service"),
	}
}

// Process creates the transaction in PROCESSING, runs the gateway
// charge and persists the outcome. A gateway failure after retry
// exhaustion is a business outcome, not a handler error: the
// transaction goes FAILED and PAYMENT_FAILED is emitted. On duplicate
// delivery a settled transaction re-emits its stored outcome; a
// transaction still in PROCESSING (crash mid-charge) resumes the
// charge on the existing record.
func (s *paymentService) Process(ctx context.Context, parent *events.Envelope, payload *events.RiskCheckCompletedPayload) error {
	if !payload.Approved {
		return nil
	}

	txn := domain.NewPaymentTransaction(payload.OrderID, parent.SagaID, payload.Amount, payload.Currency)

	if err := s.repo.Create(ctx, txn); err != nil {
		if !errors.Is(err, domain.ErrTransactionAlreadyExists) {
			return fmt.Errorf("failed to persist payment transaction: %w", err)
		}

		existing, getErr := s.repo.GetBySagaID(ctx, parent.SagaID)
		if getErr != nil {
			return fmt.Errorf("failed to load existing payment transaction: %w", getErr)
		}

		switch existing.Status {
		case domain.StatusCompleted:
			s.log.Info("duplicate risk outcome, re-emitting stored result",
				"saga_id", parent.SagaID, "status", existing.Status)
			return s.emitProcessed(ctx, parent, existing)
		case domain.StatusFailed:
			s.log.Info("duplicate risk outcome, re-emitting stored result",
				"saga_id", parent.SagaID, "status", existing.Status)
			return s.emitFailed(ctx, parent, existing.OrderID, existing.ErrorMessage, "gateway_error")
		case domain.StatusRefunded:
			return nil
		default:
			// Crash between create and settle; resume the charge
			txn = existing
		}
	}

	return s.charge(ctx, parent, payload, txn)
}

func (s *paymentService) charge(ctx context.Context, parent *events.Envelope, payload *events.RiskCheckCompletedPayload, txn *domain.PaymentTransaction) error {
	req := &gateway.ChargeRequest{
		OrderID:  txn.OrderID,
		SagaID:   txn.SagaID,
		Amount:   txn.Amount,
		Currency: txn.Currency,
		Method:   payload.PaymentMethod,
	}

	var charge *gateway.ChargeResponse
	var lastCode string
	start := time.Now()

	result := s.retrier.DoWithCallback(ctx, func(ctx context.Context) error {
		resp, err := s.gateway.Charge(ctx, req)
		if err != nil {
			lastCode = "gateway_error"
			return err
		}
		if !resp.Success {
			lastCode = resp.FailureCode
			return fmt.Errorf("gateway declined: %s", resp.FailureReason)
		}
		charge = resp
		return nil
	}, func(attempt int, err error, next time.Duration) {
		s.log.Warn("gateway charge failed, retrying",
			"saga_id", txn.SagaID,
			"order_id", txn.OrderID,
			"gateway", s.gateway.Name(),
			"attempt", attempt,
			"next_interval", next,
			"error", err,
		)
	})
	latency := time.Since(start)

	if errors.Is(result.Err, retry.ErrContextCanceled) {
		// Shutdown mid-charge; leave the record in PROCESSING and let
		// redelivery resume it
		return result.Err
	}

	if result.Err != nil {
		msg := result.LastError.Error()
		if err := txn.Fail(msg); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, txn); err != nil {
			return fmt.Errorf("failed to persist failed transaction: %w", err)
		}

		s.log.Error("payment failed after retry exhaustion",
			"saga_id", txn.SagaID,
			"order_id", txn.OrderID,
			"gateway", s.gateway.Name(),
			"attempts", result.Attempts,
			"error", result.LastError,
		)
		metrics.RecordFailed(ctx, s.gateway.Name(), lastCode, latency)
		return s.emitFailed(ctx, parent, txn.OrderID, msg, lastCode)
	}

	if err := txn.Complete(charge.GatewayTransactionID, charge.AuthCode); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, txn); err != nil {
		return fmt.Errorf("failed to persist completed transaction: %w", err)
	}

	s.log.Info("payment processed",
		"saga_id", txn.SagaID,
		"order_id", txn.OrderID,
		"transaction_id", txn.TransactionID,
		"gateway", s.gateway.Name(),
		"gateway_transaction_id", charge.GatewayTransactionID,
		"amount", txn.Amount,
	)
	metrics.RecordProcessed(ctx, s.gateway.Name(), txn.Currency, txn.Amount, latency)
	return s.emitProcessed(ctx, parent, txn)
}

func (s *paymentService) emitProcessed(ctx context.Context, parent *events.Envelope, txn *domain.PaymentTransaction) error {
	payload := &events.PaymentProcessedPayload{
		OrderID:       txn.OrderID,
		TransactionID: txn.TransactionID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		ProcessedAt:   txn.UpdatedAt,
	}
	return s.publisher.PublishChained(ctx, events.TopicPaymentEvents, events.EventPaymentProcessed, parent, payload)
}

func (s *paymentService) emitFailed(ctx context.Context, parent *events.Envelope, orderID, reason, errorCode string) error {
	payload := &events.PaymentFailedPayload{
		OrderID:   orderID,
		Reason:    reason,
		ErrorCode: errorCode,
	}
	return s.publisher.PublishChained(ctx, events.TopicPaymentEvents, events.EventPaymentFailed, parent, payload)
}

// Refund reverses a completed charge. Only COMPLETED refunds: a
// transaction in PROCESSING or FAILED never moved money to completion
// and a REFUNDED one is already compensated. A gateway refund failure
// is not retried inline; the transaction stays COMPLETED and the
// failure is surfaced for manual intervention.
func (s *paymentService) Refund(ctx context.Context, parent *events.Envelope, reason string) error {
	txn, err := s.repo.GetBySagaID(ctx, parent.SagaID)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			s.log.Info("compensation without a payment transaction, nothing to refund",
				"saga_id", parent.SagaID,
			)
			return nil
		}
		return err
	}

	switch txn.Status {
	case domain.StatusRefunded:
		return nil
	case domain.StatusCompleted:
		// fall through to the refund below
	case domain.StatusPending, domain.StatusProcessing:
		// The charge outcome is unknown; refunding here could reverse a
		// charge that never settled. Left for reconciliation.
		s.log.Warn("compensation against an unsettled transaction, not refunding",
			"saga_id", parent.SagaID,
			"transaction_id", txn.TransactionID,
			"status", txn.Status,
		)
		return nil
	default:
		s.log.Debug("no refund needed",
			"saga_id", parent.SagaID,
			"status", txn.Status,
		)
		return nil
	}

	refundID, err := s.gateway.Refund(ctx, txn.GatewayTransactionID, txn.Amount)
	if err != nil {
		s.log.Error("refund failed, manual intervention required",
			"saga_id", txn.SagaID,
			"order_id", txn.OrderID,
			"transaction_id", txn.TransactionID,
			"gateway", s.gateway.Name(),
			"gateway_transaction_id", txn.GatewayTransactionID,
			"amount", txn.Amount,
			"error", err,
		)
		metrics.RecordRefundStuck(ctx, s.gateway.Name())
		return nil
	}

	if err := txn.MarkRefunded(refundID); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, txn); err != nil {
		return fmt.Errorf("failed to persist refunded transaction: %w", err)
	}

	payload := &events.PaymentRefundedPayload{
		OrderID:       txn.OrderID,
		TransactionID: txn.TransactionID,
		RefundID:      refundID,
		Amount:        txn.Amount,
		Reason:        reason,
	}
	if err := s.publisher.PublishChained(ctx, events.TopicSagaCompensation, events.EventPaymentRefunded, parent, payload); err != nil {
		return err
	}

	s.log.Info("payment refunded",
		"saga_id", txn.SagaID,
		"order_id", txn.OrderID,
		"transaction_id", txn.TransactionID,
		"refund_id", refundID,
		"amount", txn.Amount,
	)
	metrics.RecordRefunded(ctx, s.gateway.Name(), txn.Amount)
	return nil
}
