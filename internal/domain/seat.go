package domain

import (
	"time"

	"github.com/google/uuid"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatReserved  SeatStatus = "reserved"
	SeatSold      SeatStatus = "sold"
	SeatBlocked   SeatStatus = "blocked"
)

// Seat is one sellable unit of one event. Status only ever moves
// available→reserved→sold, or reserved→available on release. Version is
// bumped by the repository on every successful write; a write carrying a
// stale version is rejected atomically.
type Seat struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	PriceCents    int64
	Status        SeatStatus
	ReservedBy    uuid.UUID
	BookingID     uuid.UUID
	ReservedUntil *time.Time
	SoldTo        uuid.UUID
	Version       int64
	UpdatedAt     time.Time
}

func NewSeat(eventID uuid.UUID, priceCents int64) *Seat {
	return &Seat{
		ID:         uuid.New(),
		EventID:    eventID,
		PriceCents: priceCents,
		Status:     SeatAvailable,
		Version:    1,
		UpdatedAt:  time.Now().UTC(),
	}
}

func (s *Seat) Reserve(buyerID, bookingID uuid.UUID, until time.Time) error {
	if s.Status != SeatAvailable {
		return Conflictf("seat %s is %s", s.ID, s.Status)
	}
	s.Status = SeatReserved
	s.ReservedBy = buyerID
	s.BookingID = bookingID
	u := until.UTC()
	s.ReservedUntil = &u
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// ConfirmSale moves a seat reserved by this buyer to sold. A seat already
// sold through the same booking is a no-op so redelivered confirmations
// succeed.
func (s *Seat) ConfirmSale(buyerID, bookingID uuid.UUID) error {
	if s.Status == SeatSold {
		if s.SoldTo == buyerID && s.BookingID == bookingID {
			return nil
		}
		return Conflictf("seat %s already sold to another buyer", s.ID)
	}
	if s.Status != SeatReserved {
		return InvalidStatef("seat %s is %s, cannot confirm", s.ID, s.Status)
	}
	if s.ReservedBy != buyerID || s.BookingID != bookingID {
		return Conflictf("seat %s is reserved by another booking", s.ID)
	}
	s.Status = SeatSold
	s.SoldTo = buyerID
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Release returns a reserved seat to the pool regardless of who holds it.
// Releasing an already-available seat is a no-op; sold seats never revert.
func (s *Seat) Release() {
	if s.Status != SeatReserved {
		return
	}
	s.Status = SeatAvailable
	s.ReservedBy = uuid.Nil
	s.BookingID = uuid.Nil
	s.ReservedUntil = nil
	s.UpdatedAt = time.Now().UTC()
}
