package repository

import (
	"context"
	"sync"

	"github.com/paymentsaga/payment-saga/internal/order/domain"
)

// MemoryOrderRepository implements OrderRepository in memory.
// Used for local development and tests.
type MemoryOrderRepository struct {
	mu      sync.RWMutex
	byOrder map[string]*domain.Order
	bySaga  map[string]string
}

// NewMemoryOrderRepository creates an in-memory order repository
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		byOrder: make(map[string]*domain.Order),
		bySaga:  make(map[string]string),
	}
}

// Create inserts a new order record
func (r *MemoryOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bySaga[order.SagaID]; ok {
		return domain.ErrOrderAlreadyExists
	}
	if _, ok := r.byOrder[order.OrderID]; ok {
		return domain.ErrOrderAlreadyExists
	}

	stored := *order
	r.byOrder[order.OrderID] = &stored
	r.bySaga[order.SagaID] = order.OrderID
	return nil
}

// GetByOrderID retrieves an order by its local primary key
func (r *MemoryOrderRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.byOrder[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

// GetBySagaID retrieves the order owning a saga instance
func (r *MemoryOrderRepository) GetBySagaID(ctx context.Context, sagaID string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderID, ok := r.bySaga[sagaID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := *r.byOrder[orderID]
	return &copied, nil
}

// Update persists a state change
func (r *MemoryOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byOrder[order.OrderID]; !ok {
		return domain.ErrOrderNotFound
	}
	stored := *order
	r.byOrder[order.OrderID] = &stored
	return nil
}
