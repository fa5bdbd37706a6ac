package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxPublished OutboxStatus = "published"
	OutboxFailed    OutboxStatus = "failed"
)

// OutboxEvent is a durable at-least-once delivery record. It is written in
// the same local transaction as the domain state change it announces and
// mutated only by the relay afterwards.
type OutboxEvent struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	PayloadJSON   string
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

func NewOutboxEvent(aggregateType string, aggregateID uuid.UUID, eventType string, payload any, maxRetries int) (*OutboxEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, Fatalf("marshal outbox payload for %s: %v", eventType, err)
	}
	return &OutboxEvent{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		PayloadJSON:   string(body),
		Status:        OutboxPending,
		MaxRetries:    maxRetries,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (e *OutboxEvent) MarkPublished(now time.Time) {
	t := now.UTC()
	e.Status = OutboxPublished
	e.PublishedAt = &t
}

// RecordFailure bumps the retry count and parks the row as failed once the
// retry budget is spent; otherwise it stays pending for the next tick.
func (e *OutboxEvent) RecordFailure(err error) {
	e.RetryCount++
	e.LastError = err.Error()
	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxFailed
	}
}
