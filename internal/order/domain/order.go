package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists for saga")
	ErrTerminalState      = errors.New("order is in a terminal state")
)

// OrderStatus represents the saga-visible status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusFailed     OrderStatus = "FAILED"
)

// OrderItem is a line item on an order
type OrderItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is the saga coordinator's local record. sagaId is the saga
// identity and is unique per order; orderId is the local primary key.
type Order struct {
	OrderID            string      `json:"orderId"`
	UserID             string      `json:"userId"`
	SagaID             string      `json:"sagaId"`
	Amount             float64     `json:"amount"`
	Currency           string      `json:"currency"`
	Status             OrderStatus `json:"status"`
	PaymentMethod      string      `json:"paymentMethod"`
	Items              []OrderItem `json:"items"`
	CancellationReason string      `json:"cancellationReason,omitempty"`
	TransactionID      string      `json:"transactionId,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// NewOrder creates a pending order with a fresh saga identity
func NewOrder(userID string, amount float64, currency, paymentMethod string, items []OrderItem) *Order {
	now := time.Now().UTC()
	return &Order{
		OrderID:       uuid.NewString(),
		UserID:        userID,
		SagaID:        uuid.NewString(),
		Amount:        amount,
		Currency:      currency,
		Status:        OrderStatusPending,
		PaymentMethod: paymentMethod,
		Items:         items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsTerminal reports whether the order can no longer change state
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusConfirmed ||
		o.Status == OrderStatusCancelled ||
		o.Status == OrderStatusFailed
}

// MarkProcessing advances PENDING to PROCESSING after risk approval.
// Already at or past PROCESSING is a no-op so redeliveries are absorbed.
func (o *Order) MarkProcessing() error {
	switch o.Status {
	case OrderStatusPending:
		o.Status = OrderStatusProcessing
		o.UpdatedAt = time.Now().UTC()
		return nil
	case OrderStatusProcessing, OrderStatusConfirmed:
		return nil
	default:
		return ErrTerminalState
	}
}

// Confirm records the completed payment and moves the order to its
// happy-path terminal state. Confirming an already confirmed order
// is a no-op.
func (o *Order) Confirm(transactionID string) error {
	switch o.Status {
	case OrderStatusPending, OrderStatusProcessing:
		o.Status = OrderStatusConfirmed
		o.TransactionID = transactionID
		o.UpdatedAt = time.Now().UTC()
		return nil
	case OrderStatusConfirmed:
		return nil
	default:
		return ErrTerminalState
	}
}

// Cancel moves the order to CANCELLED with a reason. Cancelling an
// already cancelled order is a no-op; cancelling a confirmed order is
// rejected (terminal states are monotonic).
func (o *Order) Cancel(reason string) error {
	switch o.Status {
	case OrderStatusCancelled:
		return nil
	case OrderStatusConfirmed:
		return ErrTerminalState
	default:
		o.Status = OrderStatusCancelled
		o.CancellationReason = reason
		o.UpdatedAt = time.Now().UTC()
		return nil
	}
}
