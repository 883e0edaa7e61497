package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/paymentsaga/payment-saga/internal/payment/domain"
	"github.com/paymentsaga/payment-saga/internal/payment/gateway"
	"github.com/paymentsaga/payment-saga/internal/payment/repository"
	"github.com/paymentsaga/payment-saga/pkg/events"
	"github.com/paymentsaga/payment-saga/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	Topic     string
	EventType events.EventType
	SagaID    string
	Payload   interface{}
}

type mockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (m *mockPublisher) PublishEvent(ctx context.Context, topic string, eventType events.EventType, sagaID string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{Topic: topic, EventType: eventType, SagaID: sagaID, Payload: payload})
	return nil
}

func (m *mockPublisher) PublishChained(ctx context.Context, topic string, eventType events.EventType, parent *events.Envelope, payload interface{}) error {
	return m.PublishEvent(ctx, topic, eventType, parent.SagaID, payload)
}

func (m *mockPublisher) published() []publishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]publishedEvent, len(m.events))
	copy(out, m.events)
	return out
}

// scriptedGateway declines the first failCharges attempts and succeeds
// afterwards
type scriptedGateway struct {
	mu          sync.Mutex
	failCharges int
	chargeCalls int
	refundCalls int
	refundErr   error
}

func (g *scriptedGateway) Charge(ctx context.Context, req *gateway.ChargeRequest) (*gateway.ChargeResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chargeCalls++
	if g.chargeCalls <= g.failCharges {
		return &gateway.ChargeResponse{
			Success:       false,
			FailureReason: "card_declined",
			FailureCode:   "card_declined",
		}, nil
	}
	return &gateway.ChargeResponse{
		Success:              true,
		GatewayTransactionID: fmt.Sprintf("gw_txn_%d", g.chargeCalls),
		AuthCode:             "AUTH01",
	}, nil
}

func (g *scriptedGateway) Refund(ctx context.Context, gatewayTransactionID string, amount float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls++
	if g.refundErr != nil {
		return "", g.refundErr
	}
	return "ref_1", nil
}

func (g *scriptedGateway) Name() string { return "scripted" }

var fastRetryConfig = &retry.Config{
	MaxRetries:      2,
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
	Multiplier:      2.0,
	JitterFactor:    0,
}

func riskOutcomeEnvelope(t *testing.T, sagaID string) *events.Envelope {
	t.Helper()
	env, err := events.New(events.EventRiskCheckCompleted, sagaID, "risk-service", nil)
	require.NoError(t, err)
	env.Enrich()
	return env
}

func approvedPayload(orderID string) *events.RiskCheckCompletedPayload {
	return &events.RiskCheckCompletedPayload{
		OrderID:       orderID,
		Approved:      true,
		Amount:        99.99,
		Currency:      "USD",
		PaymentMethod: "CREDIT_CARD",
	}
}

func TestProcess_SuccessfulCharge(t *testing.T) {
	repo := repository.NewMemoryTransactionRepository()
	gw := &scriptedGateway{}
	publisher := &mockPublisher{}
	svc := NewPaymentServiceWithRetry(repo, gw, publisher, fastRetryConfig)

	env := riskOutcomeEnvelope(t, "saga-1")
	require.NoError(t, svc.Process(context.Background(), env, approvedPayload("order-1")))

	txn, err := repo.GetBySagaID(context.Background(), "saga-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, txn.Status)
	assert.NotEmpty(t, txn.GatewayTransactionID)
	assert.NotEmpty(t, txn.AuthCode)

	published := publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.TopicPaymentEvents, published[0].Topic)
	assert.Equal(t, events.EventPaymentProcessed, published[0].EventType)

	outcome := published[0].Payload.(*events.PaymentProcessedPayload)
	assert.Equal(t, txn.TransactionID, outcome.TransactionID)
	assert.Equal(t, 99.99, outcome.Amount)
}

func TestProcess_TransientDeclineThenSuccess(t *testing.T) {
	repo := repository.NewMemoryTransactionRepository()
	gw := &scriptedGateway{failCharges: 1}
	publisher := &mockPublisher{}
	svc := NewPaymentServiceWithRetry(repo, gw, publisher, fastRetryConfig)

	env := riskOutcomeEnvelope(t, "saga-2")
	require.NoError(t, svc.Process(context.Background(), env, approvedPayload("order-2")))

	assert.Equal(t, 2, gw.chargeCalls)

	txn, err := repo.GetBySagaID(context.Background(), "saga-2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, txn.Status)
}

func TestProcess_RetryExhaustionFailsPayment(t *testing.T) {
	repo := repository.NewMemoryTransactionRepository()
	gw := &scriptedGateway{failCharges: 10}
	publisher := &mockPublisher{}
	svc := NewPaymentServiceWithRetry(repo, gw, publisher, fastRetryConfig)

	env := riskOutcomeEnvelope(t, "saga-3")

	// Exhaustion is a business outcome: the handler succeeds so the
	// delivery is acknowledged, and PAYMENT_FAILED carries the result
	require.NoError(t, svc.Process(context.Background(), env, approvedPayload("order-3")))

	// MaxRetries 2 means 3 attempts total
	assert.Equal(t, 3, gw.chargeCalls)

	txn, err := repo.GetBySagaID(context.Background(), "saga-3")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, txn.Status)
	assert.Contains(t, txn.ErrorMessage, "card_declined")

	published := publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.TopicPaymentEvents, published[0].Topic)
	assert.Equal(t, events.EventPaymentFailed, published[0].EventType)

	outcome := published[0].Payload.(*events.PaymentFailedPayload)
	assert.Equal(t, "card_declined", outcome.ErrorCode)
}

func TestProcess_NotApprovedIsNoOp(t *testing.T) {
	repo := repository.NewMemoryTransactionRepository()
	gw := &scriptedGateway{}
	publisher := &mockPublisher{}
	svc := NewPaymentServiceWithRetry(repo, gw, publisher, fastRetryConfig)

	env := riskOutcomeEnvelope(t, "saga-4")
	payload := approvedPayload("order-4")
	payload.Approved = false

	require.NoError(t, svc.Process(context.Background(), env, payload))

	assert.Equal(t, 0, gw.chargeCalls)
	_, err := repo.GetBySagaID(context.Background(), "saga-4")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
	assert.Empty(t, publisher.published())
}

func TestProcess_DuplicateDeliveryReEmitsStoredOutcome(t *testing.T) {
	repo := repository.NewMemoryTransactionRepository()
	gw := &scriptedGateway{}
	publisher := &mockPublisher{}
	svc := NewPaymentServiceWithRetry(repo, gw, publisher, fastRetryConfig)

	env := riskOutcomeEnvelope(t, "saga-5")
	require.NoError(t, svc.Process(context.Background(), env, approvedPayload("order-5")))
	require.NoError(t, svc.Process(context.Background(), env, approvedPayload("order-5")))

	// The gateway is not charged twice
	assert.Equal(t, 1, gw.chargeCalls)

	published := publisher.published()
	require.Len(t, published, 2)
	assert.Equal(t, events.EventPaymentProcessed, published[0].EventType)
	assert.Equal(t, events.EventPaymentProcessed, published[1].EventType)
}

func TestRefund_CompletedTransaction(t *testing.T) {
	repo := repository.NewMemoryTransactionRepository()
	gw := &scriptedGateway{}
	publisher := &mockPublisher{}
	svc := NewPaymentServiceWithRetry(repo, gw, publisher, fastRetryConfig)

	env := riskOutcomeEnvelope(t, "saga-6")
	require.NoError(t, svc.Process(context.Background(), env, approvedPayload("order-6")))

	compEnv, err := events.New(events.EventOrderCancelled, "saga-6", "order-service", nil)
	require.NoError(t, err)
	compEnv.Enrich()

	require.NoError(t, svc.Refund(context.Background(), compEnv, "cancelled by watchdog"))

	txn, err := repo.GetBySagaID(context.Background(), "saga-6")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, txn.Status)
	assert.Equal(t, "ref_1", txn.RefundID)

	published := publisher.published()
	require.Len(t, published, 2)
	refunded := published[1]
	assert.Equal(t, events.TopicSagaCompensation, refunded.Topic)
	assert.Equal(t, events.EventPaymentRefunded, refunded.EventType)

	outcome := refunded.Payload.(*events.PaymentRefundedPayload)
	assert.Equal(t, "ref_1", outcome.RefundID)
	assert.Equal(t, 99.99, outcome.Amount)
	assert.Equal(t, "cancelled by watchdog", outcome.Reason)
}

func TestRefund_FailedTransactionIsNoOp(t *testing.T) {
	repo := repository.NewMemoryTransactionRepository()
	gw := &scriptedGateway{failCharges: 10}
	publisher := &mockPublisher{}
	svc := NewPaymentServiceWithRetry(repo, gw, publisher, fastRetryConfig)

	env := riskOutcomeEnvelope(t, "saga-7")
	require.NoError(t, svc.Process(context.Background(), env, approvedPayload("order-7")))

	compEnv, _ := events.New(events.EventOrderCancelled, "saga-7", "order-service", nil)
	compEnv.Enrich()

	// No money moved to completion; nothing to reverse
	require.NoError(t, svc.Refund(context.Background(), compEnv, "cancelled"))

	assert.Equal(t, 0, gw.refundCalls)
	txn, _ := repo.GetBySagaID(context.Background(), "saga-7")
	assert.Equal(t, domain.StatusFailed, txn.Status)
}

func TestRefund_UnsettledTransactionIsNoOp(t *testing.T) {
	repo := repository.NewMemoryTransactionRepository()
	gw := &scriptedGateway{}
	publisher := &mockPublisher{}
	svc := NewPaymentServiceWithRetry(repo, gw, publisher, fastRetryConfig)

	// A record stuck in PROCESSING means the charge outcome is unknown
	txn := domain.NewPaymentTransaction("order-x", "saga-x", 50.00, "USD")
	require.NoError(t, repo.Create(context.Background(), txn))

	compEnv, _ := events.New(events.EventOrderCancelled, "saga-x", "order-service", nil)
	compEnv.Enrich()

	require.NoError(t, svc.Refund(context.Background(), compEnv, "cancelled"))

	assert.Equal(t, 0, gw.refundCalls)
	stored, _ := repo.GetBySagaID(context.Background(), "saga-x")
	assert.Equal(t, domain.StatusProcessing, stored.Status)
}

func TestRefund_MissingTransactionIsNoOp(t *testing.T) {
	repo := repository.NewMemoryTransactionRepository()
	gw := &scriptedGateway{}
	publisher := &mockPublisher{}
	svc := NewPaymentServiceWithRetry(repo, gw, publisher, fastRetryConfig)

	// Cancellation for a saga that never reached the payment step
	compEnv, _ := events.New(events.EventOrderCancelled, "saga-ghost", "order-service", nil)
	compEnv.Enrich()

	require.NoError(t, svc.Refund(context.Background(), compEnv, "risk declined"))
	assert.Equal(t, 0, gw.refundCalls)
	assert.Empty(t, publisher.published())
}

func TestRefund_DuplicateCompensationAbsorbed(t *testing.T) {
	repo := repository.NewMemoryTransactionRepository()
	gw := &scriptedGateway{}
	publisher := &mockPublisher{}
	svc := NewPaymentServiceWithRetry(repo, gw, publisher, fastRetryConfig)

	env := riskOutcomeEnvelope(t, "saga-8")
	require.NoError(t, svc.Process(context.Background(), env, approvedPayload("order-8")))

	compEnv, _ := events.New(events.EventOrderCancelled, "saga-8", "order-service", nil)
	compEnv.Enrich()

	require.NoError(t, svc.Refund(context.Background(), compEnv, "cancelled"))
	require.NoError(t, svc.Refund(context.Background(), compEnv, "cancelled"))

	assert.Equal(t, 1, gw.refundCalls, "duplicate compensation must not refund twice")
}

func TestRefund_GatewayFailureNeedsManualIntervention(t *testing.T) {
	repo := repository.NewMemoryTransactionRepository()
	gw := &scriptedGateway{refundErr: errors.New("gateway unreachable")}
	publisher := &mockPublisher{}
	svc := NewPaymentServiceWithRetry(repo, gw, publisher, fastRetryConfig)

	env := riskOutcomeEnvelope(t, "saga-9")
	require.NoError(t, svc.Process(context.Background(), env, approvedPayload("order-9")))

	compEnv, _ := events.New(events.EventOrderCancelled, "saga-9", "order-service", nil)
	compEnv.Enrich()

	// The failure is surfaced for an operator, not retried inline; the
	// delivery is still acknowledged
	require.NoError(t, svc.Refund(context.Background(), compEnv, "cancelled"))

	txn, _ := repo.GetBySagaID(context.Background(), "saga-9")
	assert.Equal(t, domain.StatusCompleted, txn.Status, "transaction must stay COMPLETED when the refund fails")
	assert.Empty(t, txn.RefundID)

	// Only the original PAYMENT_PROCESSED is on the bus
	published := publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventPaymentProcessed, published[0].EventType)
}
