package domain

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingExpired   BookingStatus = "expired"
)

// ReasonReservationElapsed is the system reason the reaper stamps on
// bookings whose reservation window lapsed without confirmation.
const ReasonReservationElapsed = "reservation window elapsed"

type BookingSeat struct {
	SeatID     uuid.UUID `json:"seatId"`
	PriceCents int64     `json:"priceCents"`
}

// Booking is one buyer's claim on a seat set. The seat set is immutable
// after creation and status only moves pending→confirmed or
// pending→cancelled; both end states are terminal.
type Booking struct {
	ID           uuid.UUID
	BuyerID      uuid.UUID
	EventID      uuid.UUID
	Seats        []BookingSeat
	TotalCents   int64
	Currency     string
	Status       BookingStatus
	ExpiresAt    time.Time
	PaymentRef   string
	CancelReason string
	ConfirmedAt  *time.Time
	CancelledAt  *time.Time
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewBooking(id, buyerID, eventID uuid.UUID, seats []BookingSeat, currency string, expiresAt time.Time) *Booking {
	var total int64
	for _, s := range seats {
		total += s.PriceCents
	}
	now := time.Now().UTC()
	return &Booking{
		ID:         id,
		BuyerID:    buyerID,
		EventID:    eventID,
		Seats:      seats,
		TotalCents: total,
		Currency:   currency,
		Status:     BookingPending,
		ExpiresAt:  expiresAt.UTC(),
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (b *Booking) SeatIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(b.Seats))
	for _, s := range b.Seats {
		ids = append(ids, s.SeatID)
	}
	return ids
}

func (b *Booking) Expired(now time.Time) bool {
	return now.After(b.ExpiresAt)
}

func (b *Booking) Confirm(paymentRef string, now time.Time) error {
	if b.Status != BookingPending {
		return InvalidStatef("booking %s is %s, cannot confirm", b.ID, b.Status)
	}
	t := now.UTC()
	b.Status = BookingConfirmed
	b.PaymentRef = paymentRef
	b.ConfirmedAt = &t
	b.UpdatedAt = t
	return nil
}

func (b *Booking) Cancel(reason string, now time.Time) error {
	if b.Status != BookingPending {
		return InvalidStatef("booking %s is %s, cannot cancel", b.ID, b.Status)
	}
	t := now.UTC()
	b.Status = BookingCancelled
	b.CancelReason = reason
	b.CancelledAt = &t
	b.UpdatedAt = t
	return nil
}
