package repository

import (
	"context"

	"github.com/paymentsaga/payment-saga/internal/risk/domain"
)

// AssessmentRepository persists risk assessments
type AssessmentRepository interface {
	// Create inserts a new assessment; ErrAssessmentAlreadyExists on
	// duplicate sagaId
	Create(ctx context.Context, assessment *domain.RiskAssessment) error
	// GetBySagaID fetches the assessment for a saga instance
	GetBySagaID(ctx context.Context, sagaID string) (*domain.RiskAssessment, error)
	// Update persists a state change
	Update(ctx context.Context, assessment *domain.RiskAssessment) error
}
