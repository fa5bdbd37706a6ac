package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestBooking(expiresAt time.Time) *Booking {
	seats := []BookingSeat{
		{SeatID: uuid.New(), PriceCents: 10000},
		{SeatID: uuid.New(), PriceCents: 15000},
	}
	return NewBooking(uuid.New(), uuid.New(), uuid.New(), seats, "USD", expiresAt)
}

func TestNewBookingComputesTotal(t *testing.T) {
	b := newTestBooking(time.Now().Add(15 * time.Minute))

	if b.TotalCents != 25000 {
		t.Fatalf("TotalCents = %d, want 25000", b.TotalCents)
	}
	if b.Status != BookingPending {
		t.Fatalf("Status = %s, want pending", b.Status)
	}
	if got := len(b.SeatIDs()); got != 2 {
		t.Fatalf("SeatIDs() len = %d, want 2", got)
	}
}

func TestBookingConfirm(t *testing.T) {
	b := newTestBooking(time.Now().Add(15 * time.Minute))
	now := time.Now()

	if err := b.Confirm("ch_123", now); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if b.Status != BookingConfirmed || b.PaymentRef != "ch_123" {
		t.Fatalf("got status=%s ref=%s", b.Status, b.PaymentRef)
	}
	if b.ConfirmedAt == nil {
		t.Fatal("ConfirmedAt not set")
	}

	if err := b.Confirm("ch_456", now); !IsKind(err, KindInvalidState) {
		t.Fatalf("second Confirm = %v, want invalid_state", err)
	}
}

func TestBookingCancel(t *testing.T) {
	b := newTestBooking(time.Now().Add(15 * time.Minute))

	if err := b.Cancel("changed my mind", time.Now()); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if b.Status != BookingCancelled || b.CancelReason != "changed my mind" {
		t.Fatalf("got status=%s reason=%q", b.Status, b.CancelReason)
	}

	if err := b.Confirm("ch_123", time.Now()); !IsKind(err, KindInvalidState) {
		t.Fatalf("Confirm after cancel = %v, want invalid_state", err)
	}
	if err := b.Cancel("again", time.Now()); !IsKind(err, KindInvalidState) {
		t.Fatalf("Cancel after cancel = %v, want invalid_state", err)
	}
}

func TestBookingExpired(t *testing.T) {
	expiresAt := time.Now()
	b := newTestBooking(expiresAt)

	if b.Expired(expiresAt.Add(-time.Second)) {
		t.Fatal("not yet expired")
	}
	if b.Expired(expiresAt) {
		t.Fatal("deadline itself is still inside the window")
	}
	if !b.Expired(expiresAt.Add(time.Second)) {
		t.Fatal("past the deadline should be expired")
	}
}
