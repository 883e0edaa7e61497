package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/paymentsaga/payment-saga/internal/risk/domain"
	"github.com/paymentsaga/payment-saga/pkg/database"
)

const pgUniqueViolationCode = "23505"

// PostgresAssessmentRepository implements AssessmentRepository using PostgreSQL
type PostgresAssessmentRepository struct {
	db *database.PostgresDB
}

// NewPostgresAssessmentRepository creates a new PostgreSQL assessment repository
func NewPostgresAssessmentRepository(db *database.PostgresDB) *PostgresAssessmentRepository {
	return &PostgresAssessmentRepository{db: db}
}

const assessmentColumns = `
	id, order_id, saga_id, user_id, amount, currency, payment_method,
	risk_score, approved, fraud_check, velocity_check, blacklist_check,
	rolled_back, created_at
`

// Create inserts a new assessment record
func (r *PostgresAssessmentRepository) Create(ctx context.Context, a *domain.RiskAssessment) error {
	query := `
		INSERT INTO risk_assessments (
			id, order_id, saga_id, user_id, amount, currency, payment_method,
			risk_score, approved, fraud_check, velocity_check, blacklist_check,
			rolled_back, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Pool().Exec(ctx, query,
		a.ID,
		a.OrderID,
		a.SagaID,
		a.UserID,
		a.Amount,
		a.Currency,
		a.PaymentMethod,
		a.RiskScore,
		a.Approved,
		a.FraudCheck,
		a.VelocityCheck,
		a.BlacklistCheck,
		a.RolledBack,
		a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return domain.ErrAssessmentAlreadyExists
		}
		return fmt.Errorf("failed to create risk assessment: %w", err)
	}

	return nil
}

// GetBySagaID retrieves the assessment for a saga instance
func (r *PostgresAssessmentRepository) GetBySagaID(ctx context.Context, sagaID string) (*domain.RiskAssessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM risk_assessments WHERE saga_id = $1`

	var a domain.RiskAssessment
	err := r.db.Pool().QueryRow(ctx, query, sagaID).Scan(
		&a.ID,
		&a.OrderID,
		&a.SagaID,
		&a.UserID,
		&a.Amount,
		&a.Currency,
		&a.PaymentMethod,
		&a.RiskScore,
		&a.Approved,
		&a.FraudCheck,
		&a.VelocityCheck,
		&a.BlacklistCheck,
		&a.RolledBack,
		&a.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to scan risk assessment: %w", err)
	}

	return &a, nil
}

// Update persists a state change
func (r *PostgresAssessmentRepository) Update(ctx context.Context, a *domain.RiskAssessment) error {
	query := `
		UPDATE risk_assessments
		SET rolled_back = $2
		WHERE id = $1`

	result, err := r.db.Pool().Exec(ctx, query, a.ID, a.RolledBack)
	if err != nil {
		return fmt.Errorf("failed to update risk assessment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrAssessmentNotFound
	}

	return nil
}
