package gateway

import "context"

// ChargeRequest carries everything a gateway needs to move money
type ChargeRequest struct {
	OrderID  string
	SagaID   string
	Amount   float64
	Currency string
	Method   string
	Metadata map[string]string
}

// ChargeResponse is the gateway's answer to a charge attempt. Success
// false with a populated FailureReason is a decline, not a transport
// error; transport errors are returned as Go errors.
type ChargeResponse struct {
	Success              bool
	GatewayTransactionID string
	AuthCode             string
	FailureReason        string
	FailureCode          string
}

// PaymentGateway abstracts the external payment processor
type PaymentGateway interface {
	// Charge attempts to capture the amount. A decline is reported in
	// the response; an error means the attempt itself could not run.
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error)

	// Refund reverses a completed charge and returns the refund id
	Refund(ctx context.Context, gatewayTransactionID string, amount float64) (string, error)

	// Name identifies the gateway in logs and metrics
	Name() string
}
