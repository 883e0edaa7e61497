package dto

import (
	"fmt"
	"time"

	"github.com/paymentsaga/payment-saga/internal/order/domain"
)

// OrderItemRequest is a line item in a payment initiation request
type OrderItemRequest struct {
	ProductID string  `json:"productId" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	Price     float64 `json:"price" binding:"required,gt=0"`
}

// InitiatePaymentRequest is the body of POST /api/v1/orders/payment
type InitiatePaymentRequest struct {
	UserID        string             `json:"userId" binding:"required"`
	Amount        float64            `json:"amount" binding:"required"`
	Currency      string             `json:"currency" binding:"required"`
	PaymentMethod string             `json:"paymentMethod" binding:"required"`
	Items         []OrderItemRequest `json:"items" binding:"required"`
}

// Validate applies the business validation rules beyond shape binding
func (r *InitiatePaymentRequest) Validate() error {
	if r.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if len(r.Currency) != 3 {
		return fmt.Errorf("currency must be a 3-letter code")
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("at least one item is required")
	}
	return nil
}

// ToItems converts request items to domain items
func (r *InitiatePaymentRequest) ToItems() []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, domain.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return items
}

// OrderResponse is the order snapshot returned by the REST surface
type OrderResponse struct {
	OrderID            string    `json:"orderId"`
	UserID             string    `json:"userId"`
	SagaID             string    `json:"sagaId"`
	Amount             float64   `json:"amount"`
	Currency           string    `json:"currency"`
	Status             string    `json:"status"`
	PaymentMethod      string    `json:"paymentMethod"`
	CancellationReason string    `json:"cancellationReason,omitempty"`
	TransactionID      string    `json:"transactionId,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// FromOrder builds a response snapshot from the domain order
func FromOrder(o *domain.Order) *OrderResponse {
	return &OrderResponse{
		OrderID:            o.OrderID,
		UserID:             o.UserID,
		SagaID:             o.SagaID,
		Amount:             o.Amount,
		Currency:           o.Currency,
		Status:             string(o.Status),
		PaymentMethod:      o.PaymentMethod,
		CancellationReason: o.CancellationReason,
		TransactionID:      o.TransactionID,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

// ErrorResponse is the error body for the REST surface
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
