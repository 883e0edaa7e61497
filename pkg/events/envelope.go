package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Topic names for the saga bus
const (
	TopicPaymentSaga        = "payment-saga"
	TopicRiskEvents         = "risk-events"
	TopicPaymentEvents      = "payment-events"
	TopicSagaCompensation   = "saga-compensation"
	TopicNotificationEvents = "notification-events"
	TopicDeadLetter         = "dead-letter"
)

// EventType identifies the event variant carried in an envelope
type EventType string

const (
	EventPaymentInitiated EventType = "PAYMENT_INITIATED"
	EventOrderConfirmed   EventType = "ORDER_CONFIRMED"
	EventOrderCancelled   EventType = "ORDER_CANCELLED"

	EventRiskCheckStarted   EventType = "RISK_CHECK_STARTED"
	EventRiskCheckCompleted EventType = "RISK_CHECK_COMPLETED"
	EventRiskCheckFailed    EventType = "RISK_CHECK_FAILED"
	EventRiskCheckRollback  EventType = "RISK_CHECK_ROLLBACK"

	EventPaymentProcessing EventType = "PAYMENT_PROCESSING"
	EventPaymentProcessed  EventType = "PAYMENT_PROCESSED"
	EventPaymentFailed     EventType = "PAYMENT_FAILED"
	EventPaymentRefunded   EventType = "PAYMENT_REFUNDED"

	EventNotificationSent   EventType = "NOTIFICATION_SENT"
	EventNotificationFailed EventType = "NOTIFICATION_FAILED"

	EventSagaCompleted EventType = "SAGA_COMPLETED"
	EventSagaFailed    EventType = "SAGA_FAILED"
	EventSagaTimeout   EventType = "SAGA_TIMEOUT"
)

// SchemaVersion is the current envelope schema version
const SchemaVersion = "1.0"

// Defaults applied to envelope metadata
const (
	DefaultMaxRetries = 3
	DefaultTimeoutMs  = 15000
)

// Metadata carries delivery bookkeeping for an event
type Metadata struct {
	RetryCount     int               `json:"retryCount"`
	MaxRetries     int               `json:"maxRetries"`
	TimeoutMs      int64             `json:"timeoutMs"`
	Source         string            `json:"source"`
	AdditionalData map[string]string `json:"additionalData,omitempty"`
}

// Envelope is the wire format for every message on every saga topic.
// The eventType discriminator sits at the top level so the payload can
// be identified before decoding into its variant shape.
type Envelope struct {
	EventID       string          `json:"eventId"`
	EventType     EventType       `json:"eventType"`
	Timestamp     time.Time       `json:"timestamp"`
	SagaID        string          `json:"sagaId"`
	CorrelationID string          `json:"correlationId"`
	Version       string          `json:"version"`
	Metadata      Metadata        `json:"metadata"`
	Payload       json.RawMessage `json:"payload"`
}

// New builds an envelope for the given event type and payload.
// eventId, timestamp and correlationId are left for the publisher to
// enrich if empty.
func New(eventType EventType, sagaID string, source string, payload interface{}) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return &Envelope{
		EventType: eventType,
		SagaID:    sagaID,
		Version:   SchemaVersion,
		Metadata: Metadata{
			MaxRetries: DefaultMaxRetries,
			TimeoutMs:  DefaultTimeoutMs,
			Source:     source,
		},
		Payload: raw,
	}, nil
}

// Enrich fills in eventId, timestamp and correlationId if missing
func (e *Envelope) Enrich() {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.CorrelationID == "" {
		e.CorrelationID = e.EventID
	}
	if e.Version == "" {
		e.Version = SchemaVersion
	}
}

// Validate checks the envelope carries the fields every consumer relies on
func (e *Envelope) Validate() error {
	if e.EventType == "" {
		return fmt.Errorf("envelope missing eventType")
	}
	if e.SagaID == "" {
		return fmt.Errorf("envelope missing sagaId")
	}
	return nil
}

// Decode unmarshals the envelope from its wire form
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// DecodePayload unmarshals the envelope payload into the variant shape
func DecodePayload[T any](e *Envelope) (*T, error) {
	var payload T
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return nil, fmt.Errorf("malformed %s payload: %w", e.EventType, err)
	}
	return &payload, nil
}
