package events

import "time"

// OrderItem is a line item within a payment initiation
type OrderItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// PaymentInitiatedPayload starts a saga; emitted by Order on payment-saga
type PaymentInitiatedPayload struct {
	OrderID       string      `json:"orderId"`
	UserID        string      `json:"userId"`
	Amount        float64     `json:"amount"`
	Currency      string      `json:"currency"`
	PaymentMethod string      `json:"paymentMethod"`
	Items         []OrderItem `json:"items"`
}

// RiskChecks holds the individual risk check outcomes
type RiskChecks struct {
	FraudCheck     bool `json:"fraudCheck"`
	VelocityCheck  bool `json:"velocityCheck"`
	BlacklistCheck bool `json:"blacklistCheck"`
}

// RiskCheckCompletedPayload reports a finished assessment, approved or not.
// Charge parameters from the initiation are carried forward because the
// payment participant has no access to the order store.
type RiskCheckCompletedPayload struct {
	OrderID       string     `json:"orderId"`
	RiskScore     int        `json:"riskScore"`
	Approved      bool       `json:"approved"`
	Checks        RiskChecks `json:"checks"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	PaymentMethod string     `json:"paymentMethod"`
}

// RiskCheckFailedPayload reports an assessment that could not run
type RiskCheckFailedPayload struct {
	OrderID   string `json:"orderId"`
	Reason    string `json:"reason"`
	RiskScore int    `json:"riskScore"`
}

// RiskCheckRollbackPayload confirms a compensated assessment
type RiskCheckRollbackPayload struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason"`
}

// PaymentProcessedPayload reports a successful charge
type PaymentProcessedPayload struct {
	OrderID       string    `json:"orderId"`
	TransactionID string    `json:"transactionId"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	ProcessedAt   time.Time `json:"processedAt"`
}

// PaymentFailedPayload reports a declined or failed charge
type PaymentFailedPayload struct {
	OrderID   string `json:"orderId"`
	Reason    string `json:"reason"`
	ErrorCode string `json:"errorCode"`
}

// PaymentRefundedPayload confirms a compensating refund
type PaymentRefundedPayload struct {
	OrderID       string  `json:"orderId"`
	TransactionID string  `json:"transactionId"`
	RefundID      string  `json:"refundId"`
	Amount        float64 `json:"amount"`
	Reason        string  `json:"reason"`
}

// OrderCancelledPayload is the compensation fan-out trigger
type OrderCancelledPayload struct {
	OrderID     string    `json:"orderId"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelledAt"`
}
