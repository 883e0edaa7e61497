package repository

import (
	"context"

	"github.com/paymentsaga/payment-saga/internal/order/domain"
)

// OrderRepository persists orders for the saga coordinator
type OrderRepository interface {
	// Create inserts a new order; ErrOrderAlreadyExists on duplicate sagaId
	Create(ctx context.Context, order *domain.Order) error
	// GetByOrderID fetches an order by its local primary key
	GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
	// GetBySagaID fetches the order owning a saga instance
	GetBySagaID(ctx context.Context, sagaID string) (*domain.Order, error)
	// Update persists a state change
	Update(ctx context.Context, order *domain.Order) error
}
