package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSeatReserveAndRelease(t *testing.T) {
	seat := NewSeat(uuid.New(), 10000)
	buyer, booking := uuid.New(), uuid.New()
	until := time.Now().Add(15 * time.Minute)

	if err := seat.Reserve(buyer, booking, until); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if seat.Status != SeatReserved || seat.ReservedBy != buyer {
		t.Fatalf("got status=%s reservedBy=%s", seat.Status, seat.ReservedBy)
	}

	if err := seat.Reserve(uuid.New(), uuid.New(), until); !IsKind(err, KindConflict) {
		t.Fatalf("double Reserve = %v, want conflict", err)
	}

	seat.Release()
	if seat.Status != SeatAvailable || seat.ReservedUntil != nil {
		t.Fatalf("after Release got status=%s", seat.Status)
	}
	// Releasing an available seat is a no-op.
	seat.Release()
	if seat.Status != SeatAvailable {
		t.Fatalf("second Release changed status to %s", seat.Status)
	}
}

func TestSeatConfirmSale(t *testing.T) {
	seat := NewSeat(uuid.New(), 10000)
	buyer, booking := uuid.New(), uuid.New()

	if err := seat.ConfirmSale(buyer, booking); !IsKind(err, KindInvalidState) {
		t.Fatalf("confirm without reservation = %v, want invalid_state", err)
	}

	if err := seat.Reserve(buyer, booking, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := seat.ConfirmSale(uuid.New(), uuid.New()); !IsKind(err, KindConflict) {
		t.Fatalf("confirm by another booking = %v, want conflict", err)
	}
	if err := seat.ConfirmSale(buyer, booking); err != nil {
		t.Fatalf("ConfirmSale: %v", err)
	}
	if seat.Status != SeatSold || seat.SoldTo != buyer {
		t.Fatalf("got status=%s soldTo=%s", seat.Status, seat.SoldTo)
	}

	// Redelivered confirmation for the same booking succeeds.
	if err := seat.ConfirmSale(buyer, booking); err != nil {
		t.Fatalf("repeated ConfirmSale: %v", err)
	}
	if err := seat.ConfirmSale(uuid.New(), booking); !IsKind(err, KindConflict) {
		t.Fatalf("confirm sold seat for another buyer = %v, want conflict", err)
	}
}
