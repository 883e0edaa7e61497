package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/paymentsaga/payment-saga/internal/order/domain"
	"github.com/paymentsaga/payment-saga/pkg/database"
)

// PostgreSQL error code for unique violation
const pgUniqueViolationCode = "23505"

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *database.PostgresDB
}

// NewPostgresOrderRepository creates a new PostgreSQL order repository
func NewPostgresOrderRepository(db *database.PostgresDB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

const orderColumns = `
	order_id, user_id, saga_id, amount, currency, status, payment_method,
	items, cancellation_reason, transaction_id, created_at, updated_at
`

// Create inserts a new order record
func (r *PostgresOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (
			order_id, user_id, saga_id, amount, currency, status, payment_method,
			items, cancellation_reason, transaction_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}

	_, err = r.db.Pool().Exec(ctx, query,
		order.OrderID,
		order.UserID,
		order.SagaID,
		order.Amount,
		order.Currency,
		string(order.Status),
		order.PaymentMethod,
		itemsJSON,
		nullString(order.CancellationReason),
		nullString(order.TransactionID),
		order.CreatedAt,
		order.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return domain.ErrOrderAlreadyExists
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// GetByOrderID retrieves an order by its local primary key
func (r *PostgresOrderRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`
	return r.scanOrder(r.db.Pool().QueryRow(ctx, query, orderID))
}

// GetBySagaID retrieves the order owning a saga instance
func (r *PostgresOrderRepository) GetBySagaID(ctx context.Context, sagaID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE saga_id = $1`
	return r.scanOrder(r.db.Pool().QueryRow(ctx, query, sagaID))
}

// Update persists a state change
func (r *PostgresOrderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET status = $2,
		    cancellation_reason = $3,
		    transaction_id = $4,
		    updated_at = $5
		WHERE order_id = $1`

	result, err := r.db.Pool().Exec(ctx, query,
		order.OrderID,
		string(order.Status),
		nullString(order.CancellationReason),
		nullString(order.TransactionID),
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

func (r *PostgresOrderRepository) scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	var status string
	var itemsJSON []byte
	var cancellationReason, transactionID *string

	err := row.Scan(
		&order.OrderID,
		&order.UserID,
		&order.SagaID,
		&order.Amount,
		&order.Currency,
		&status,
		&order.PaymentMethod,
		&itemsJSON,
		&cancellationReason,
		&transactionID,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	order.Status = domain.OrderStatus(status)
	if cancellationReason != nil {
		order.CancellationReason = *cancellationReason
	}
	if transactionID != nil {
		order.TransactionID = *transactionID
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
	}

	return &order, nil
}

// nullString returns nil if string is empty, otherwise returns pointer to string
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
