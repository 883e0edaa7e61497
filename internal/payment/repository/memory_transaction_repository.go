package repository

import (
	"context"
	"sync"

	"github.com/paymentsaga/payment-saga/internal/payment/domain"
)

// MemoryTransactionRepository implements TransactionRepository in memory.
// Used for local development and tests.
type MemoryTransactionRepository struct {
	mu     sync.RWMutex
	bySaga map[string]*domain.PaymentTransaction
}

// NewMemoryTransactionRepository creates an in-memory transaction repository
func NewMemoryTransactionRepository() *MemoryTransactionRepository {
	return &MemoryTransactionRepository{
		bySaga: make(map[string]*domain.PaymentTransaction),
	}
}

// Create inserts a new transaction record
func (r *MemoryTransactionRepository) Create(ctx context.Context, t *domain.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bySaga[t.SagaID]; ok {
		return domain.ErrTransactionAlreadyExists
	}
	stored := *t
	r.bySaga[t.SagaID] = &stored
	return nil
}

// GetBySagaID retrieves the transaction for a saga instance
func (r *MemoryTransactionRepository) GetBySagaID(ctx context.Context, sagaID string) (*domain.PaymentTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.bySaga[sagaID]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	copied := *t
	return &copied, nil
}

// Update persists a state change
func (r *MemoryTransactionRepository) Update(ctx context.Context, t *domain.PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bySaga[t.SagaID]; !ok {
		return domain.ErrTransactionNotFound
	}
	stored := *t
	r.bySaga[t.SagaID] = &stored
	return nil
}
