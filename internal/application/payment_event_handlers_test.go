package application

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seatlock/ticketing-go/internal/domain"
)

func envelopeFor(t *testing.T, eventType string, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	body, err := json.Marshal(domain.EventEnvelope{
		EventID:   uuid.New(),
		EventType: eventType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return body
}

func TestPaymentCompletedHandlerConfirmsBooking(t *testing.T) {
	f := newBookingFixture(t)
	summary := f.create(t)
	handler := NewPaymentCompletedHandler(f.svc, zap.NewNop())

	body := envelopeFor(t, domain.TopicPaymentCompleted, domain.PaymentCompletedPayload{
		BookingID:   summary.BookingID,
		ProviderRef: "ch_123",
	})
	if err := handler.Handle(context.Background(), body); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	booking, err := f.svc.GetBooking(context.Background(), summary.BookingID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if booking.Status != domain.BookingConfirmed {
		t.Fatalf("Status = %s, want confirmed", booking.Status)
	}

	// Redelivery acks cleanly.
	if err := handler.Handle(context.Background(), body); err != nil {
		t.Fatalf("redelivered Handle: %v", err)
	}
}

func TestPaymentFailedHandlerCancelsBooking(t *testing.T) {
	f := newBookingFixture(t)
	summary := f.create(t)
	handler := NewPaymentFailedHandler(f.svc, zap.NewNop())

	body := envelopeFor(t, domain.TopicPaymentFailed, domain.PaymentFailedPayload{
		BookingID:    summary.BookingID,
		ErrorMessage: "card declined",
	})
	if err := handler.Handle(context.Background(), body); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	booking, err := f.svc.GetBooking(context.Background(), summary.BookingID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if booking.Status != domain.BookingCancelled {
		t.Fatalf("Status = %s, want cancelled", booking.Status)
	}
	if _, _, err := f.inventory.CheckAvailability(context.Background(), f.seatIDs); err != nil {
		t.Fatalf("seats not released: %v", err)
	}
}

func TestPaymentHandlersTolerateGarbage(t *testing.T) {
	f := newBookingFixture(t)
	completed := NewPaymentCompletedHandler(f.svc, zap.NewNop())
	failed := NewPaymentFailedHandler(f.svc, zap.NewNop())

	// Undecodable bodies must be acked, not requeued forever.
	if err := completed.Handle(context.Background(), []byte("{not json")); err != nil {
		t.Fatalf("completed Handle: %v", err)
	}
	if err := failed.Handle(context.Background(), []byte("{not json")); err != nil {
		t.Fatalf("failed Handle: %v", err)
	}

	// Unknown booking ids are late or foreign events, also acked.
	body := envelopeFor(t, domain.TopicPaymentCompleted, domain.PaymentCompletedPayload{
		BookingID:   uuid.New(),
		ProviderRef: "ch_123",
	})
	if err := completed.Handle(context.Background(), body); err != nil {
		t.Fatalf("unknown booking Handle: %v", err)
	}
}
