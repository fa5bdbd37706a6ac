package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SeatRepository owns seat rows. UpdateAllVersioned is the optimistic
// concurrency primitive: every row is written conditionally on the version
// it was loaded with, inside one transaction, and the whole batch fails
// with Conflict if any row lost a race. On success each seat's Version is
// advanced in place.
type SeatRepository interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Seat, error)
	InsertMany(ctx context.Context, seats []*Seat) error
	UpdateAllVersioned(ctx context.Context, seats []*Seat) error
}

type BookingRepository interface {
	Insert(ctx context.Context, b *Booking) error
	// GetByID fails with NotFound for unknown ids.
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	// Update is version-checked and fails with Conflict on a stale write.
	Update(ctx context.Context, b *Booking) error
	// ListByBuyer returns the buyer's bookings newest first.
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*Booking, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*Booking, error)
}

// PaymentStore persists payments. UpdateWithOutbox applies the payment
// mutation and appends the outbox row in one local transaction; that
// coupling is the correctness core of the outbox pattern, so it is part of
// the contract rather than left to callers.
type PaymentStore interface {
	Insert(ctx context.Context, p *Payment) error
	GetBySessionID(ctx context.Context, sessionID string) (*Payment, error)
	UpdateWithOutbox(ctx context.Context, p *Payment, ev *OutboxEvent) error
}

type OutboxRepository interface {
	Insert(ctx context.Context, ev *OutboxEvent) error
	// GetPendingBatch returns up to batchSize pending rows, oldest first.
	GetPendingBatch(ctx context.Context, batchSize int) ([]*OutboxEvent, error)
	Save(ctx context.Context, ev *OutboxEvent) error
}

// EventPublisher hands a relayed event to the stream under a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, body []byte) error
}

type PricedSeat struct {
	SeatID     uuid.UUID `json:"seatId"`
	PriceCents int64     `json:"priceCents"`
}

// InventoryGateway is the booking orchestrator's view of the seat
// inventory service, normally backed by the registry-routed RPC client.
type InventoryGateway interface {
	CheckAvailability(ctx context.Context, seatIDs []uuid.UUID) ([]PricedSeat, int64, error)
	Reserve(ctx context.Context, seatIDs []uuid.UUID, buyerID, bookingID uuid.UUID, deadline time.Time) ([]PricedSeat, int64, error)
	Confirm(ctx context.Context, seatIDs []uuid.UUID, buyerID, bookingID uuid.UUID) error
	Release(ctx context.Context, seatIDs []uuid.UUID, bookingID uuid.UUID) error
}

type PaymentSession struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
	ExpiresIn   int    `json:"expiresIn"`
}

type PaymentGateway interface {
	CreateSession(ctx context.Context, bookingID, buyerID uuid.UUID, amountCents int64, currency, description string) (*PaymentSession, error)
}
