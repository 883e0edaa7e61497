package repository

import (
	"context"
	"sync"

	"github.com/paymentsaga/payment-saga/internal/risk/domain"
)

// MemoryAssessmentRepository implements AssessmentRepository in memory.
// Used for local development and tests.
type MemoryAssessmentRepository struct {
	mu     sync.RWMutex
	bySaga map[string]*domain.RiskAssessment
}

// NewMemoryAssessmentRepository creates an in-memory assessment repository
func NewMemoryAssessmentRepository() *MemoryAssessmentRepository {
	return &MemoryAssessmentRepository{
		bySaga: make(map[string]*domain.RiskAssessment),
	}
}

// Create inserts a new assessment record
func (r *MemoryAssessmentRepository) Create(ctx context.Context, a *domain.RiskAssessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bySaga[a.SagaID]; ok {
		return domain.ErrAssessmentAlreadyExists
	}
	stored := *a
	r.bySaga[a.SagaID] = &stored
	return nil
}

// GetBySagaID retrieves the assessment for a saga instance
func (r *MemoryAssessmentRepository) GetBySagaID(ctx context.Context, sagaID string) (*domain.RiskAssessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.bySaga[sagaID]
	if !ok {
		return nil, domain.ErrAssessmentNotFound
	}
	copied := *a
	return &copied, nil
}

// Update persists a state change
func (r *MemoryAssessmentRepository) Update(ctx context.Context, a *domain.RiskAssessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bySaga[a.SagaID]; !ok {
		return domain.ErrAssessmentNotFound
	}
	stored := *a
	r.bySaga[a.SagaID] = &stored
	return nil
}
