package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrAssessmentNotFound      = errors.New("risk assessment not found")
	ErrAssessmentAlreadyExists = errors.New("risk assessment already exists for saga")
)

// Scoring weights. A saga is approved when the total stays below the
// approval threshold.
const (
	FraudWeight     = 40
	VelocityWeight  = 30
	BlacklistWeight = 30

	ApprovalThreshold = 50

	// FraudAmountLimit is the amount above which the fraud check fails
	FraudAmountLimit = 10000.0

	// BlacklistMarker flags a blocked user when present in the userId
	BlacklistMarker = "blocked"
)

// RiskAssessment is the risk participant's local record for one saga
type RiskAssessment struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"orderId"`
	SagaID         string    `json:"sagaId"`
	UserID         string    `json:"userId"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	PaymentMethod  string    `json:"paymentMethod"`
	RiskScore      int       `json:"riskScore"`
	Approved       bool      `json:"approved"`
	FraudCheck     bool      `json:"fraudCheck"`
	VelocityCheck  bool      `json:"velocityCheck"`
	BlacklistCheck bool      `json:"blacklistCheck"`
	RolledBack     bool      `json:"rolledBack"`
	CreatedAt      time.Time `json:"createdAt"`
}

// NewRiskAssessment scores a payment and builds the assessment record.
// Each failed check adds its weight to the risk score.
func NewRiskAssessment(orderID, sagaID, userID string, amount float64) *RiskAssessment {
	fraudCheck := amount <= FraudAmountLimit
	velocityCheck := true // velocity policy stub, always passes
	blacklistCheck := !strings.Contains(strings.ToLower(userID), BlacklistMarker)

	score := 0
	if !fraudCheck {
		score += FraudWeight
	}
	if !velocityCheck {
		score += VelocityWeight
	}
	if !blacklistCheck {
		score += BlacklistWeight
	}

	return &RiskAssessment{
		ID:             uuid.NewString(),
		OrderID:        orderID,
		SagaID:         sagaID,
		UserID:         userID,
		Amount:         amount,
		RiskScore:      score,
		Approved:       score < ApprovalThreshold,
		FraudCheck:     fraudCheck,
		VelocityCheck:  velocityCheck,
		BlacklistCheck: blacklistCheck,
		RolledBack:     false,
		CreatedAt:      time.Now().UTC(),
	}
}

// Rollback marks the assessment as compensated. Rolling back twice is
// a no-op; rolledBack never flips back to false.
func (a *RiskAssessment) Rollback() bool {
	if a.RolledBack {
		return false
	}
	a.RolledBack = true
	return true
}
