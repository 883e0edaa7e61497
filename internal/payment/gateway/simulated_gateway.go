package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SimulatedGateway implements PaymentGateway for local development and
// load testing. Charges succeed with a configurable probability and
// refunds are tracked against an in-memory transaction table.
type SimulatedGateway struct {
	config       *SimulatedGatewayConfig
	transactions sync.Map
	mu           sync.RWMutex
}

// SimulatedGatewayConfig holds configuration for the simulated gateway
type SimulatedGatewayConfig struct {
	// SuccessRate is the probability of a successful charge (0.0 to 1.0)
	SuccessRate float64

	// DelayMs is the simulated processing delay in milliseconds
	DelayMs int

	// FailureReasons is the pool of decline reasons to pick from
	FailureReasons []string
}

// DefaultSimulatedGatewayConfig returns default configuration
func DefaultSimulatedGatewayConfig() *SimulatedGatewayConfig {
	return &SimulatedGatewayConfig{
		SuccessRate: 0.95,
		DelayMs:     100,
		FailureReasons: []string{
			"insufficient_funds",
			"card_declined",
			"expired_card",
			"processing_error",
			"fraud_detected",
		},
	}
}

// NewSimulatedGateway creates a new simulated gateway
func NewSimulatedGateway(config *SimulatedGatewayConfig) *SimulatedGateway {
	if config == nil {
		config = DefaultSimulatedGatewayConfig()
	}

	if config.SuccessRate < 0 {
		config.SuccessRate = 0
	}
	if config.SuccessRate > 1 {
		config.SuccessRate = 1
	}

	return &SimulatedGateway{
		config: config,
	}
}

func (g *SimulatedGateway) delay(ctx context.Context) error {
	if g.config.DelayMs <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(g.config.DelayMs) * time.Millisecond):
		return nil
	}
}

// Charge processes a simulated charge
func (g *SimulatedGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("charge request is required")
	}
	if err := g.delay(ctx); err != nil {
		return nil, err
	}

	g.mu.RLock()
	successRate := g.config.SuccessRate
	g.mu.RUnlock()

	if rand.Float64() >= successRate {
		resp := &ChargeResponse{Success: false}
		if len(g.config.FailureReasons) > 0 {
			resp.FailureReason = g.config.FailureReasons[rand.Intn(len(g.config.FailureReasons))]
		} else {
			resp.FailureReason = "payment_failed"
		}
		resp.FailureCode = resp.FailureReason
		return resp, nil
	}

	gatewayTxnID := fmt.Sprintf("sim_txn_%s", uuid.New().String()[:8])
	authCode := strings.ToUpper(uuid.New().String()[:6])

	g.transactions.Store(gatewayTxnID, &simulatedTransaction{
		amount:   req.Amount,
		currency: req.Currency,
		status:   "completed",
	})

	return &ChargeResponse{
		Success:              true,
		GatewayTransactionID: gatewayTxnID,
		AuthCode:             authCode,
	}, nil
}

// Refund reverses a previously completed charge
func (g *SimulatedGateway) Refund(ctx context.Context, gatewayTransactionID string, amount float64) (string, error) {
	if gatewayTransactionID == "" {
		return "", fmt.Errorf("gateway transaction ID is required")
	}
	if err := g.delay(ctx); err != nil {
		return "", err
	}

	txn, ok := g.transactions.Load(gatewayTransactionID)
	if !ok {
		return "", fmt.Errorf("transaction not found: %s", gatewayTransactionID)
	}

	info := txn.(*simulatedTransaction)
	info.status = "refunded"
	g.transactions.Store(gatewayTransactionID, info)

	return fmt.Sprintf("sim_ref_%s", uuid.New().String()[:8]), nil
}

// Name returns the gateway name
func (g *SimulatedGateway) Name() string {
	return "simulated"
}

// SetSuccessRate updates the success rate (for testing)
func (g *SimulatedGateway) SetSuccessRate(rate float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	g.config.SuccessRate = rate
}

type simulatedTransaction struct {
	amount   float64
	currency string
	status   string
}
