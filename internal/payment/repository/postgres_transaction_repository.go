package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/paymentsaga/payment-saga/internal/payment/domain"
	"github.com/paymentsaga/payment-saga/pkg/database"
)

const pgUniqueViolationCode = "23505"

// PostgresTransactionRepository implements TransactionRepository using PostgreSQL
type PostgresTransactionRepository struct {
	db *database.PostgresDB
}

// NewPostgresTransactionRepository creates a new PostgreSQL transaction repository
func NewPostgresTransactionRepository(db *database.PostgresDB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

const transactionColumns = `
	transaction_id, order_id, saga_id, amount, currency, status,
	gateway_transaction_id, auth_code, refund_id, error_message,
	created_at, updated_at
`

// Create inserts a new transaction record
func (r *PostgresTransactionRepository) Create(ctx context.Context, t *domain.PaymentTransaction) error {
	query := `
		INSERT INTO payment_transactions (
			transaction_id, order_id, saga_id, amount, currency, status,
			gateway_transaction_id, auth_code, refund_id, error_message,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Pool().Exec(ctx, query,
		t.TransactionID,
		t.OrderID,
		t.SagaID,
		t.Amount,
		t.Currency,
		string(t.Status),
		nullString(t.GatewayTransactionID),
		nullString(t.AuthCode),
		nullString(t.RefundID),
		nullString(t.ErrorMessage),
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return domain.ErrTransactionAlreadyExists
		}
		return fmt.Errorf("failed to create payment transaction: %w", err)
	}

	return nil
}

// GetBySagaID retrieves the transaction for a saga instance
func (r *PostgresTransactionRepository) GetBySagaID(ctx context.Context, sagaID string) (*domain.PaymentTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE saga_id = $1`

	var t domain.PaymentTransaction
	var status string
	var gatewayTxnID, authCode, refundID, errorMessage *string

	err := r.db.Pool().QueryRow(ctx, query, sagaID).Scan(
		&t.TransactionID,
		&t.OrderID,
		&t.SagaID,
		&t.Amount,
		&t.Currency,
		&status,
		&gatewayTxnID,
		&authCode,
		&refundID,
		&errorMessage,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to scan payment transaction: %w", err)
	}

	t.Status = domain.TransactionStatus(status)
	if gatewayTxnID != nil {
		t.GatewayTransactionID = *gatewayTxnID
	}
	if authCode != nil {
		t.AuthCode = *authCode
	}
	if refundID != nil {
		t.RefundID = *refundID
	}
	if errorMessage != nil {
		t.ErrorMessage = *errorMessage
	}

	return &t, nil
}

// Update persists a state change
func (r *PostgresTransactionRepository) Update(ctx context.Context, t *domain.PaymentTransaction) error {
	query := `
		UPDATE payment_transactions
		SET status = $2,
		    gateway_transaction_id = $3,
		    auth_code = $4,
		    refund_id = $5,
		    error_message = $6,
		    updated_at = $7
		WHERE transaction_id = $1`

	result, err := r.db.Pool().Exec(ctx, query,
		t.TransactionID,
		string(t.Status),
		nullString(t.GatewayTransactionID),
		nullString(t.AuthCode),
		nullString(t.RefundID),
		nullString(t.ErrorMessage),
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// nullString returns nil if string is empty, otherwise returns pointer to string
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
