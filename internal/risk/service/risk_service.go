package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/paymentsaga/payment-saga/internal/risk/domain"
	"github.com/paymentsaga/payment-saga/internal/risk/repository"
	"github.com/paymentsaga/payment-saga/pkg/events"
	"github.com/paymentsaga/payment-saga/pkg/logger"
)

// EventPublisher is the publishing surface the service needs
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, eventType events.EventType, sagaID string, payload interface{}) error
	PublishChained(ctx context.Context, topic string, eventType events.EventType, parent *events.Envelope, payload interface{}) error
}

// RiskService assesses initiated payments and compensates on cancellation
type RiskService interface {
	// Assess scores the payment and emits the outcome on risk-events
	Assess(ctx context.Context, parent *events.Envelope, payload *events.PaymentInitiatedPayload) error
	// Rollback compensates the assessment for a cancelled saga
	Rollback(ctx context.Context, parent *events.Envelope, reason string) error
}

type riskService struct {
	repo      repository.AssessmentRepository
	publisher EventPublisher
	log       *logger.Logger
}

// NewRiskService creates a RiskService
func NewRiskService(repo repository.AssessmentRepository, publisher EventPublisher) RiskService {
	return &riskService{
		repo:      repo,
		publisher: publisher,
		log:       logger.Get().With("component", "risk-service"),
	}
}

// Assess runs the risk checks, persists the assessment and emits
// RISK_CHECK_COMPLETED. A decline is a business outcome, not an error:
// it still emits RISK_CHECK_COMPLETED with approved=false. On duplicate
// delivery the stored outcome is re-emitted so a crash between commit
// and acknowledgment cannot stall the saga.
func (s *riskService) Assess(ctx context.Context, parent *events.Envelope, payload *events.PaymentInitiatedPayload) error {
	assessment := domain.NewRiskAssessment(payload.OrderID, parent.SagaID, payload.UserID, payload.Amount)
	assessment.Currency = payload.Currency
	assessment.PaymentMethod = payload.PaymentMethod

	if err := s.repo.Create(ctx, assessment); err != nil {
		if errors.Is(err, domain.ErrAssessmentAlreadyExists) {
			existing, getErr := s.repo.GetBySagaID(ctx, parent.SagaID)
			if getErr != nil {
				return fmt.Errorf("failed to load existing assessment: %w", getErr)
			}
			s.log.Info("duplicate PAYMENT_INITIATED, re-emitting stored outcome",
				"saga_id", parent.SagaID,
				"approved", existing.Approved,
			)
			return s.emitCompleted(ctx, parent, existing)
		}
		return fmt.Errorf("failed to persist assessment: %w", err)
	}

	s.log.Info("risk assessment completed",
		"saga_id", parent.SagaID,
		"order_id", payload.OrderID,
		"risk_score", assessment.RiskScore,
		"approved", assessment.Approved,
	)
	return s.emitCompleted(ctx, parent, assessment)
}

func (s *riskService) emitCompleted(ctx context.Context, parent *events.Envelope, a *domain.RiskAssessment) error {
	outcome := &events.RiskCheckCompletedPayload{
		OrderID:   a.OrderID,
		RiskScore: a.RiskScore,
		Approved:  a.Approved,
		Checks: events.RiskChecks{
			FraudCheck:     a.FraudCheck,
			VelocityCheck:  a.VelocityCheck,
			BlacklistCheck: a.BlacklistCheck,
		},
		Amount:        a.Amount,
		Currency:      a.Currency,
		PaymentMethod: a.PaymentMethod,
	}
	return s.publisher.PublishChained(ctx, events.TopicRiskEvents, events.EventRiskCheckCompleted, parent, outcome)
}

// ReportFailure emits RISK_CHECK_FAILED for an assessment that could
// not run at all (e.g. an undecodable payload).
func ReportFailure(ctx context.Context, publisher EventPublisher, parent *events.Envelope, reason string) error {
	payload := &events.RiskCheckFailedPayload{
		Reason: reason,
	}
	return publisher.PublishChained(ctx, events.TopicRiskEvents, events.EventRiskCheckFailed, parent, payload)
}

// Rollback marks the assessment as rolled back and emits
// RISK_CHECK_ROLLBACK. A missing assessment means the compensation
// arrived before the forward step; it is acknowledged without effect
// because the late forward event will find the order already cancelled.
func (s *riskService) Rollback(ctx context.Context, parent *events.Envelope, reason string) error {
	assessment, err := s.repo.GetBySagaID(ctx, parent.SagaID)
	if err != nil {
		if errors.Is(err, domain.ErrAssessmentNotFound) {
			s.log.Info("compensation before assessment, nothing to roll back",
				"saga_id", parent.SagaID,
			)
			return nil
		}
		return err
	}

	if !assessment.Rollback() {
		// Already rolled back; duplicate compensation absorbed
		return nil
	}

	if err := s.repo.Update(ctx, assessment); err != nil {
		return err
	}

	payload := &events.RiskCheckRollbackPayload{
		OrderID: assessment.OrderID,
		Reason:  reason,
	}
	if err := s.publisher.PublishChained(ctx, events.TopicSagaCompensation, events.EventRiskCheckRollback, parent, payload); err != nil {
		return err
	}

	s.log.Info("risk assessment rolled back",
		"saga_id", parent.SagaID,
		"order_id", assessment.OrderID,
		"reason", reason,
	)
	return nil
}
