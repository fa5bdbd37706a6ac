package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topics the payment service publishes through the outbox relay. The topic
// is derived from the outbox row's event type, so the two sets match.
const (
	TopicPaymentCompleted = "payment.completed"
	TopicPaymentFailed    = "payment.failed"
)

// EventEnvelope is the wire shape of every relayed event. Consumers
// deduplicate by EventID or rely on the idempotent confirm/cancel paths.
type EventEnvelope struct {
	EventID     uuid.UUID       `json:"eventId"`
	EventType   string          `json:"eventType"`
	AggregateID uuid.UUID       `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   time.Time       `json:"timestamp"`
}

type PaymentCompletedPayload struct {
	PaymentID   uuid.UUID `json:"paymentId"`
	BookingID   uuid.UUID `json:"bookingId"`
	BuyerID     uuid.UUID `json:"buyerId"`
	AmountCents int64     `json:"amount"`
	Currency    string    `json:"currency"`
	ProviderRef string    `json:"providerReference"`
	CompletedAt time.Time `json:"completedAt"`
}

type PaymentFailedPayload struct {
	PaymentID    uuid.UUID `json:"paymentId"`
	BookingID    uuid.UUID `json:"bookingId"`
	BuyerID      uuid.UUID `json:"buyerId"`
	ErrorMessage string    `json:"errorMessage"`
	FailedAt     time.Time `json:"failedAt"`
}
