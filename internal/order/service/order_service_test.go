package service

import (
	"context"
	"sync"
	"testing"

	"github.com/paymentsaga/payment-saga/internal/order/domain"
	"github.com/paymentsaga/payment-saga/internal/order/dto"
	"github.com/paymentsaga/payment-saga/internal/order/repository"
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

func validRequest() *dto.InitiatePaymentRequest {
	return &dto.InitiatePaymentRequest{
		UserID:        "user-1",
		Amount:        250.00,
		Currency:      "USD",
		PaymentMethod: "CREDIT_CARD",
		Items: []dto.OrderItemRequest{
			{ProductID: "p1", Quantity: 2, Price: 125.00},
		},
	}
}

func newTestService() (OrderService, repository.OrderRepository, *mockPublisher) {
	repo := repository.NewMemoryOrderRepository()
	publisher := &mockPublisher{}
	return NewOrderService(repo, publisher), repo, publisher
}

func TestInitiatePayment_CreatesPendingOrderAndEmitsEvent(t *testing.T) {
	svc, repo, publisher := newTestService()

	order, err := svc.InitiatePayment(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.NotEmpty(t, order.SagaID)

	stored, err := repo.GetBySagaID(context.Background(), order.SagaID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)

	published := publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.TopicPaymentSaga, published[0].Topic)
	assert.Equal(t, events.EventPaymentInitiated, published[0].EventType)
	assert.Equal(t, order.SagaID, published[0].SagaID)

	payload := published[0].Payload.(*events.PaymentInitiatedPayload)
	assert.Equal(t, order.OrderID, payload.OrderID)
	assert.Equal(t, 250.00, payload.Amount)
	assert.Len(t, payload.Items, 1)
}

func TestInitiatePayment_Validation(t *testing.T) {
	svc, _, publisher := newTestService()

	tests := []struct {
		name   string
		mutate func(*dto.InitiatePaymentRequest)
	}{
		{"zero amount", func(r *dto.InitiatePaymentRequest) { r.Amount = 0 }},
		{"negative amount", func(r *dto.InitiatePaymentRequest) { r.Amount = -10 }},
		{"bad currency", func(r *dto.InitiatePaymentRequest) { r.Currency = "DOLLARS" }},
		{"no items", func(r *dto.InitiatePaymentRequest) { r.Items = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			_, err := svc.InitiatePayment(context.Background(), req)
			assert.Error(t, err)
		})
	}

	assert.Empty(t, publisher.published(), "validation failures must never become events")
}

func TestGetOrder_ScopedToUser(t *testing.T) {
	svc, _, _ := newTestService()

	order, err := svc.InitiatePayment(context.Background(), validRequest())
	require.NoError(t, err)

	got, err := svc.GetOrder(context.Background(), order.OrderID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, order.OrderID, got.OrderID)

	_, err = svc.GetOrder(context.Background(), order.OrderID, "someone-else")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = svc.GetOrder(context.Background(), "missing", "user-1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestMarkProcessing_AdvancesOrder(t *testing.T) {
	svc, repo, _ := newTestService()

	order, err := svc.InitiatePayment(context.Background(), validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.MarkProcessing(context.Background(), order.SagaID))

	stored, err := repo.GetBySagaID(context.Background(), order.SagaID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, stored.Status)
}

func TestConfirmOrder_HappyPath(t *testing.T) {
	svc, repo, _ := newTestService()

	order, err := svc.InitiatePayment(context.Background(), validRequest())
	require.NoError(t, err)
	require.NoError(t, svc.MarkProcessing(context.Background(), order.SagaID))

	require.NoError(t, svc.ConfirmOrder(context.Background(), order.SagaID, "txn-1"))

	stored, err := repo.GetBySagaID(context.Background(), order.SagaID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, stored.Status)
	assert.Equal(t, "txn-1", stored.TransactionID)
}

func TestConfirmOrder_DuplicateDeliveryIsNoOp(t *testing.T) {
	svc, repo, _ := newTestService()

	order, err := svc.InitiatePayment(context.Background(), validRequest())
	require.NoError(t, err)
	require.NoError(t, svc.MarkProcessing(context.Background(), order.SagaID))
	require.NoError(t, svc.ConfirmOrder(context.Background(), order.SagaID, "txn-1"))

	before, _ := repo.GetBySagaID(context.Background(), order.SagaID)

	// Redelivery of PAYMENT_PROCESSED is absorbed without side effects
	require.NoError(t, svc.ConfirmOrder(context.Background(), order.SagaID, "txn-1"))

	after, _ := repo.GetBySagaID(context.Background(), order.SagaID)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, domain.OrderStatusConfirmed, after.Status)
}

func TestConfirmOrder_AfterCancelIsIgnored(t *testing.T) {
	svc, repo, _ := newTestService()

	order, err := svc.InitiatePayment(context.Background(), validRequest())
	require.NoError(t, err)
	require.NoError(t, svc.CancelOrder(context.Background(), order.SagaID, "risk declined"))

	// Late payment success for a cancelled saga must not resurrect it
	require.NoError(t, svc.ConfirmOrder(context.Background(), order.SagaID, "txn-1"))

	stored, _ := repo.GetBySagaID(context.Background(), order.SagaID)
	assert.Equal(t, domain.OrderStatusCancelled, stored.Status)
	assert.Empty(t, stored.TransactionID)
}

func TestCancelOrder_EmitsCompensation(t *testing.T) {
	svc, repo, publisher := newTestService()

	order, err := svc.InitiatePayment(context.Background(), validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.CancelOrder(context.Background(), order.SagaID, "Payment failed: card declined"))

	stored, _ := repo.GetBySagaID(context.Background(), order.SagaID)
	assert.Equal(t, domain.OrderStatusCancelled, stored.Status)
	assert.Equal(t, "Payment failed: card declined", stored.CancellationReason)

	published := publisher.published()
	require.Len(t, published, 2)
	cancelled := published[1]
	assert.Equal(t, events.TopicSagaCompensation, cancelled.Topic)
	assert.Equal(t, events.EventOrderCancelled, cancelled.EventType)
	assert.Equal(t, order.SagaID, cancelled.SagaID)

	payload := cancelled.Payload.(*events.OrderCancelledPayload)
	assert.Equal(t, order.OrderID, payload.OrderID, "cancellation payload carries the orderId")
	assert.Equal(t, "Payment failed: card declined", payload.Reason)
}

func TestCancelOrder_IdempotentNoReEmit(t *testing.T) {
	svc, _, publisher := newTestService()

	order, err := svc.InitiatePayment(context.Background(), validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.CancelOrder(context.Background(), order.SagaID, "risk declined"))
	countAfterFirst := len(publisher.published())

	// Second cancellation trigger (e.g. PAYMENT_FAILED after RISK decline)
	require.NoError(t, svc.CancelOrder(context.Background(), order.SagaID, "payment failed"))

	assert.Equal(t, countAfterFirst, len(publisher.published()), "duplicate cancel must not re-emit ORDER_CANCELLED")
}

func TestCancelOrder_ConfirmedOrderRejected(t *testing.T) {
	svc, repo, publisher := newTestService()

	order, err := svc.InitiatePayment(context.Background(), validRequest())
	require.NoError(t, err)
	require.NoError(t, svc.MarkProcessing(context.Background(), order.SagaID))
	require.NoError(t, svc.ConfirmOrder(context.Background(), order.SagaID, "txn-1"))

	countBefore := len(publisher.published())
	require.NoError(t, svc.CancelOrder(context.Background(), order.SagaID, "too late"))

	stored, _ := repo.GetBySagaID(context.Background(), order.SagaID)
	assert.Equal(t, domain.OrderStatusConfirmed, stored.Status)
	assert.Equal(t, countBefore, len(publisher.published()))
}
