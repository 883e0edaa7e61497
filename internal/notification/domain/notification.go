package domain

import "fmt"

// Category classifies a notification for deduplication. At most one
// notification per (orderId, category) is ever dispatched.
type Category string

const (
	CategorySuccess   Category = "SUCCESS"
	CategoryFailure   Category = "FAILURE"
	CategoryCancelled Category = "CANCELLED"
	CategoryRefund    Category = "REFUND"
)

// Notification is a user-facing message ready for dispatch
type Notification struct {
	OrderID  string
	Category Category
	Subject  string
	Body     string
}

// DedupKey is the composite at-most-once key for this notification
func (n *Notification) DedupKey() string {
	return fmt.Sprintf("%s:%s", n.OrderID, n.Category)
}

// NewSuccessNotification builds the payment confirmation message
func NewSuccessNotification(orderID, transactionID string, amount float64, currency string) *Notification {
	return &Notification{
		OrderID:  orderID,
		Category: CategorySuccess,
		Subject:  "Payment confirmed",
		Body: fmt.Sprintf("Your payment of %.2f %s for order %s was processed successfully (transaction %s).",
			amount, currency, orderID, transactionID),
	}
}

// NewFailureNotification builds the payment failure message
func NewFailureNotification(orderID, reason string) *Notification {
	return &Notification{
		OrderID:  orderID,
		Category: CategoryFailure,
		Subject:  "Payment failed",
		Body:     fmt.Sprintf("Your payment for order %s could not be processed: %s.", orderID, reason),
	}
}

// NewCancelledNotification builds the order cancellation message
func NewCancelledNotification(orderID, reason string) *Notification {
	return &Notification{
		OrderID:  orderID,
		Category: CategoryCancelled,
		Subject:  "Order cancelled",
		Body:     fmt.Sprintf("Your order %s has been cancelled: %s.", orderID, reason),
	}
}

// NewRefundNotification builds the refund confirmation message
func NewRefundNotification(orderID, refundID string, amount float64) *Notification {
	return &Notification{
		OrderID:  orderID,
		Category: CategoryRefund,
		Subject:  "Payment refunded",
		Body: fmt.Sprintf("A refund of %.2f for order %s has been issued (refund %s).",
			amount, orderID, refundID),
	}
}
