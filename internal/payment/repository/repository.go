package repository

import (
	"context"

	"github.com/paymentsaga/payment-saga/internal/payment/domain"
)

// TransactionRepository defines persistence for payment transactions
type TransactionRepository interface {
	// Create inserts a new transaction record
	Create(ctx context.Context, t *domain.PaymentTransaction) error

	// GetBySagaID retrieves the transaction for a saga instance
	GetBySagaID(ctx context.Context, sagaID string) (*domain.PaymentTransaction, error)

	// Update persists a state change
	Update(ctx context.Context, t *domain.PaymentTransaction) error
}
