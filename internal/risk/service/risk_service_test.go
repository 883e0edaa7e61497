package service

import (
	"context"
	"sync"
	"testing"

	"github.com/paymentsaga/payment-saga/internal/risk/repository"
	"github.com/paymentsaga/payment-saga/pkg/events"
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

func initiationEnvelope(t *testing.T, sagaID string) *events.Envelope {
	t.Helper()
	env, err := events.New(events.EventPaymentInitiated, sagaID, "order-service", nil)
	require.NoError(t, err)
	env.Enrich()
	return env
}

func TestAssess_ApprovedPayment(t *testing.T) {
	repo := repository.NewMemoryAssessmentRepository()
	publisher := &mockPublisher{}
	svc := NewRiskService(repo, publisher)

	env := initiationEnvelope(t, "saga-1")
	payload := &events.PaymentInitiatedPayload{OrderID: "order-1", UserID: "user-1", Amount: 250.00, Currency: "USD", PaymentMethod: "CREDIT_CARD"}

	require.NoError(t, svc.Assess(context.Background(), env, payload))

	stored, err := repo.GetBySagaID(context.Background(), "saga-1")
	require.NoError(t, err)
	assert.True(t, stored.Approved)
	assert.False(t, stored.RolledBack)

	published := publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.TopicRiskEvents, published[0].Topic)
	assert.Equal(t, events.EventRiskCheckCompleted, published[0].EventType)

	outcome := published[0].Payload.(*events.RiskCheckCompletedPayload)
	assert.True(t, outcome.Approved)
	assert.Equal(t, 0, outcome.RiskScore)

	// Charge parameters travel with the outcome for the payment step
	assert.Equal(t, 250.00, outcome.Amount)
	assert.Equal(t, "USD", outcome.Currency)
	assert.Equal(t, "CREDIT_CARD", outcome.PaymentMethod)
}

func TestAssess_DeclinedEmitsCompletedNotFailed(t *testing.T) {
	repo := repository.NewMemoryAssessmentRepository()
	publisher := &mockPublisher{}
	svc := NewRiskService(repo, publisher)

	env := initiationEnvelope(t, "saga-2")
	// High amount and blocked user: 40 + 30 = 70, over the threshold
	payload := &events.PaymentInitiatedPayload{OrderID: "order-2", UserID: "blocked-user", Amount: 20000.00}

	require.NoError(t, svc.Assess(context.Background(), env, payload))

	published := publisher.published()
	require.Len(t, published, 1)
	// A decline is a business outcome, carried by RISK_CHECK_COMPLETED
	assert.Equal(t, events.EventRiskCheckCompleted, published[0].EventType)

	outcome := published[0].Payload.(*events.RiskCheckCompletedPayload)
	assert.False(t, outcome.Approved)
	assert.Equal(t, 70, outcome.RiskScore)
	assert.False(t, outcome.Checks.FraudCheck)
	assert.False(t, outcome.Checks.BlacklistCheck)
}

func TestAssess_DuplicateDeliveryReEmitsStoredOutcome(t *testing.T) {
	repo := repository.NewMemoryAssessmentRepository()
	publisher := &mockPublisher{}
	svc := NewRiskService(repo, publisher)

	env := initiationEnvelope(t, "saga-3")
	payload := &events.PaymentInitiatedPayload{OrderID: "order-3", UserID: "user-1", Amount: 100.00}

	require.NoError(t, svc.Assess(context.Background(), env, payload))
	require.NoError(t, svc.Assess(context.Background(), env, payload))

	// Exactly one assessment persists (single local record per saga)
	stored, err := repo.GetBySagaID(context.Background(), "saga-3")
	require.NoError(t, err)
	assert.True(t, stored.Approved)

	// The outcome is re-emitted so the saga cannot stall on a crash
	// between commit and acknowledgment; downstream absorbs duplicates
	published := publisher.published()
	require.Len(t, published, 2)
	assert.Equal(t, published[0].EventType, published[1].EventType)
}

func TestRollback_MarksAndEmits(t *testing.T) {
	repo := repository.NewMemoryAssessmentRepository()
	publisher := &mockPublisher{}
	svc := NewRiskService(repo, publisher)

	env := initiationEnvelope(t, "saga-4")
	require.NoError(t, svc.Assess(context.Background(), env, &events.PaymentInitiatedPayload{OrderID: "order-4", UserID: "user-1", Amount: 100.00}))

	compEnv, err := events.New(events.EventOrderCancelled, "saga-4", "order-service", nil)
	require.NoError(t, err)
	compEnv.Enrich()

	require.NoError(t, svc.Rollback(context.Background(), compEnv, "payment failed"))

	stored, _ := repo.GetBySagaID(context.Background(), "saga-4")
	assert.True(t, stored.RolledBack)

	published := publisher.published()
	require.Len(t, published, 2)
	rollback := published[1]
	assert.Equal(t, events.TopicSagaCompensation, rollback.Topic)
	assert.Equal(t, events.EventRiskCheckRollback, rollback.EventType)
}

func TestRollback_DuplicateCompensationAbsorbed(t *testing.T) {
	repo := repository.NewMemoryAssessmentRepository()
	publisher := &mockPublisher{}
	svc := NewRiskService(repo, publisher)

	env := initiationEnvelope(t, "saga-5")
	require.NoError(t, svc.Assess(context.Background(), env, &events.PaymentInitiatedPayload{OrderID: "order-5", UserID: "user-1", Amount: 100.00}))

	compEnv, _ := events.New(events.EventOrderCancelled, "saga-5", "order-service", nil)
	compEnv.Enrich()

	require.NoError(t, svc.Rollback(context.Background(), compEnv, "cancelled"))
	countAfterFirst := len(publisher.published())

	require.NoError(t, svc.Rollback(context.Background(), compEnv, "cancelled"))

	assert.Equal(t, countAfterFirst, len(publisher.published()), "duplicate rollback must not re-emit")
}

func TestRollback_MissingAssessmentIsNoOp(t *testing.T) {
	repo := repository.NewMemoryAssessmentRepository()
	publisher := &mockPublisher{}
	svc := NewRiskService(repo, publisher)

	// Compensation arrived before the forward step
	compEnv, _ := events.New(events.EventOrderCancelled, "saga-ghost", "order-service", nil)
	compEnv.Enrich()

	require.NoError(t, svc.Rollback(context.Background(), compEnv, "cancelled"))
	assert.Empty(t, publisher.published())
}
