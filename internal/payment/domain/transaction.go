package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrTransactionNotFound      = errors.New("payment transaction not found")
	ErrTransactionAlreadyExists = errors.New("payment transaction already exists for saga")
	ErrTerminalState            = errors.New("payment transaction is in a terminal state")
)

// TransactionStatus represents the payment transaction lifecycle state
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "PENDING"
	StatusProcessing TransactionStatus = "PROCESSING"
	StatusCompleted  TransactionStatus = "COMPLETED"
	StatusFailed     TransactionStatus = "FAILED"
	StatusRefunded   TransactionStatus = "REFUNDED"
)

// PaymentTransaction is the payment participant's local record for one
// saga. It is created when an approved risk outcome arrives and mutated
// only by the payment participant.
type PaymentTransaction struct {
	TransactionID        string            `json:"transactionId"`
	OrderID              string            `json:"orderId"`
	SagaID               string            `json:"sagaId"`
	Amount               float64           `json:"amount"`
	Currency             string            `json:"currency"`
	Status               TransactionStatus `json:"status"`
	GatewayTransactionID string            `json:"gatewayTransactionId,omitempty"`
	AuthCode             string            `json:"authCode,omitempty"`
	RefundID             string            `json:"refundId,omitempty"`
	ErrorMessage         string            `json:"errorMessage,omitempty"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

// NewPaymentTransaction creates a transaction in PROCESSING, ready for
// the gateway call.
func NewPaymentTransaction(orderID, sagaID string, amount float64, currency string) *PaymentTransaction {
	now := time.Now().UTC()
	return &PaymentTransaction{
		TransactionID: uuid.NewString(),
		OrderID:       orderID,
		SagaID:        sagaID,
		Amount:        amount,
		Currency:      currency,
		Status:        StatusProcessing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsTerminal reports whether no further forward transition is possible.
// COMPLETED is not terminal: it can still move to REFUNDED.
func (t *PaymentTransaction) IsTerminal() bool {
	return t.Status == StatusFailed || t.Status == StatusRefunded
}

// Complete records a successful gateway charge. Completing an already
// completed transaction is a no-op; any other state is rejected.
func (t *PaymentTransaction) Complete(gatewayTransactionID, authCode string) error {
	switch t.Status {
	case StatusCompleted:
		return nil
	case StatusPending, StatusProcessing:
		t.Status = StatusCompleted
		t.GatewayTransactionID = gatewayTransactionID
		t.AuthCode = authCode
		t.UpdatedAt = time.Now().UTC()
		return nil
	default:
		return ErrTerminalState
	}
}

// Fail records an exhausted or declined gateway charge. Failing an
// already failed transaction is a no-op.
func (t *PaymentTransaction) Fail(errorMessage string) error {
	switch t.Status {
	case StatusFailed:
		return nil
	case StatusPending, StatusProcessing:
		t.Status = StatusFailed
		t.ErrorMessage = errorMessage
		t.UpdatedAt = time.Now().UTC()
		return nil
	default:
		return ErrTerminalState
	}
}

// MarkRefunded records a completed compensation. Only a COMPLETED
// transaction can be refunded; refunding twice is a no-op.
func (t *PaymentTransaction) MarkRefunded(refundID string) error {
	switch t.Status {
	case StatusRefunded:
		return nil
	case StatusCompleted:
		t.Status = StatusRefunded
		t.RefundID = refundID
		t.UpdatedAt = time.Now().UTC()
		return nil
	default:
		return ErrTerminalState
	}
}
