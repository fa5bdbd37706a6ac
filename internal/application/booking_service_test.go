package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seatlock/ticketing-go/internal/domain"
	"github.com/seatlock/ticketing-go/internal/infrastructure/memory"
)

// localInventoryGateway runs the inventory service in-process, standing in
// for the rpc hop.
type localInventoryGateway struct {
	svc        *InventoryService
	releaseErr error
}

func (g *localInventoryGateway) CheckAvailability(ctx context.Context, seatIDs []uuid.UUID) ([]domain.PricedSeat, int64, error) {
	res, err := g.svc.CheckAvailability(ctx, seatIDs)
	if err != nil {
		return nil, 0, err
	}
	return res.Seats, res.TotalCents, nil
}

func (g *localInventoryGateway) Reserve(ctx context.Context, seatIDs []uuid.UUID, buyerID, bookingID uuid.UUID, deadline time.Time) ([]domain.PricedSeat, int64, error) {
	res, err := g.svc.Reserve(ctx, ReserveInput{SeatIDs: seatIDs, BuyerID: buyerID, BookingID: bookingID, Deadline: deadline})
	if err != nil {
		return nil, 0, err
	}
	return res.Seats, res.TotalCents, nil
}

func (g *localInventoryGateway) Confirm(ctx context.Context, seatIDs []uuid.UUID, buyerID, bookingID uuid.UUID) error {
	return g.svc.Confirm(ctx, seatIDs, buyerID, bookingID)
}

func (g *localInventoryGateway) Release(ctx context.Context, seatIDs []uuid.UUID, bookingID uuid.UUID) error {
	if g.releaseErr != nil {
		return g.releaseErr
	}
	return g.svc.Release(ctx, seatIDs, bookingID)
}

type stubPaymentGateway struct {
	err   error
	calls int
}

func (g *stubPaymentGateway) CreateSession(ctx context.Context, bookingID, buyerID uuid.UUID, amountCents int64, currency, description string) (*domain.PaymentSession, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &domain.PaymentSession{
		SessionID:   "sess-" + bookingID.String(),
		CheckoutURL: "https://pay.localhost/checkout/sess-" + bookingID.String(),
		ExpiresIn:   900,
	}, nil
}

type bookingFixture struct {
	svc       *BookingService
	inventory *localInventoryGateway
	payments  *stubPaymentGateway
	seatIDs   []uuid.UUID
	buyerID   uuid.UUID
	eventID   uuid.UUID
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	invSvc := NewInventoryService(memory.NewSeatRepository(), zap.NewNop())

	eventID := uuid.New()
	seats, err := invSvc.SeedSeats(context.Background(), eventID, []int64{10000, 15000})
	if err != nil {
		t.Fatalf("SeedSeats: %v", err)
	}
	ids := make([]uuid.UUID, 0, len(seats))
	for _, s := range seats {
		ids = append(ids, s.ID)
	}

	inventory := &localInventoryGateway{svc: invSvc}
	payments := &stubPaymentGateway{}
	svc := NewBookingService(memory.NewBookingRepository(), inventory, payments, 15*time.Minute, "USD", zap.NewNop())

	return &bookingFixture{
		svc:       svc,
		inventory: inventory,
		payments:  payments,
		seatIDs:   ids,
		buyerID:   uuid.New(),
		eventID:   eventID,
	}
}

func (f *bookingFixture) create(t *testing.T) *BookingSummary {
	t.Helper()
	summary, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		BuyerID: f.buyerID,
		EventID: f.eventID,
		SeatIDs: f.seatIDs,
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	return summary
}

func TestCreateBookingHappyPath(t *testing.T) {
	f := newBookingFixture(t)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return start }

	summary := f.create(t)

	if summary.TotalCents != 25000 || summary.Currency != "USD" {
		t.Fatalf("got total=%d currency=%s", summary.TotalCents, summary.Currency)
	}
	if summary.Status != domain.BookingPending {
		t.Fatalf("Status = %s, want pending", summary.Status)
	}
	if !summary.ExpiresAt.Equal(start.Add(15 * time.Minute)) {
		t.Fatalf("ExpiresAt = %v, want %v", summary.ExpiresAt, start.Add(15*time.Minute))
	}
	if summary.SessionID == "" || summary.CheckoutURL == "" || summary.ExpiresIn != 900 {
		t.Fatalf("incomplete session: %+v", summary)
	}

	// Seats are held, a second booking over the same set loses.
	_, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		BuyerID: uuid.New(),
		EventID: f.eventID,
		SeatIDs: f.seatIDs,
	})
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("second CreateBooking = %v, want conflict", err)
	}
}

func TestCreateBookingReserveConflictLeavesNoBooking(t *testing.T) {
	f := newBookingFixture(t)
	f.create(t)

	other := uuid.New()
	_, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		BuyerID: other,
		EventID: f.eventID,
		SeatIDs: f.seatIDs,
	})
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("CreateBooking = %v, want conflict", err)
	}
	if f.payments.calls != 1 {
		t.Fatalf("payment gateway called %d times, want 1 (for the first booking only)", f.payments.calls)
	}

	bookings, err := f.svc.ListBookingsForBuyer(context.Background(), other)
	if err != nil {
		t.Fatalf("ListBookingsForBuyer: %v", err)
	}
	if len(bookings) != 0 {
		t.Fatalf("loser has %d bookings, want 0", len(bookings))
	}
}

func TestCreateBookingCompensatesOnPaymentFailure(t *testing.T) {
	f := newBookingFixture(t)
	f.payments.err = domain.Unavailablef("payment service down")

	_, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		BuyerID: f.buyerID,
		EventID: f.eventID,
		SeatIDs: f.seatIDs,
	})
	if !domain.IsKind(err, domain.KindUnavailable) {
		t.Fatalf("CreateBooking = %v, want unavailable", err)
	}

	// Seats are back in the pool.
	if _, _, err := f.inventory.CheckAvailability(context.Background(), f.seatIDs); err != nil {
		t.Fatalf("seats not released: %v", err)
	}

	bookings, err := f.svc.ListBookingsForBuyer(context.Background(), f.buyerID)
	if err != nil {
		t.Fatalf("ListBookingsForBuyer: %v", err)
	}
	if len(bookings) != 1 || bookings[0].Status != domain.BookingCancelled {
		t.Fatalf("compensated booking not cancelled: %+v", bookings)
	}
}

func TestConfirmBookingIsIdempotent(t *testing.T) {
	f := newBookingFixture(t)
	summary := f.create(t)

	if err := f.svc.ConfirmBooking(context.Background(), summary.BookingID, "ch_123"); err != nil {
		t.Fatalf("ConfirmBooking: %v", err)
	}
	// Redelivery with the same reference succeeds without a second write.
	if err := f.svc.ConfirmBooking(context.Background(), summary.BookingID, "ch_123"); err != nil {
		t.Fatalf("repeated ConfirmBooking: %v", err)
	}
	// A different reference against a confirmed booking is an inconsistency.
	err := f.svc.ConfirmBooking(context.Background(), summary.BookingID, "ch_999")
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("conflicting ConfirmBooking = %v, want conflict", err)
	}

	booking, err := f.svc.GetBooking(context.Background(), summary.BookingID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if booking.Status != domain.BookingConfirmed || booking.PaymentRef != "ch_123" {
		t.Fatalf("got status=%s ref=%s", booking.Status, booking.PaymentRef)
	}
}

func TestConfirmBookingAfterExpiry(t *testing.T) {
	f := newBookingFixture(t)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return start }
	summary := f.create(t)

	f.svc.now = func() time.Time { return start.Add(16 * time.Minute) }
	err := f.svc.ConfirmBooking(context.Background(), summary.BookingID, "ch_123")
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("late ConfirmBooking = %v, want conflict", err)
	}

	// The sweep owns the terminal state; the booking stays pending here.
	booking, err := f.svc.GetBooking(context.Background(), summary.BookingID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if booking.Status != domain.BookingPending {
		t.Fatalf("Status = %s, want pending", booking.Status)
	}
}

func TestCancelBooking(t *testing.T) {
	f := newBookingFixture(t)
	summary := f.create(t)

	if err := f.svc.CancelBooking(context.Background(), summary.BookingID, "changed my mind", "manual"); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if _, _, err := f.inventory.CheckAvailability(context.Background(), f.seatIDs); err != nil {
		t.Fatalf("seats not released: %v", err)
	}
	// Cancelling again succeeds without touching anything.
	if err := f.svc.CancelBooking(context.Background(), summary.BookingID, "again", "manual"); err != nil {
		t.Fatalf("repeated CancelBooking: %v", err)
	}
}

func TestCancelConfirmedBookingRejected(t *testing.T) {
	f := newBookingFixture(t)
	summary := f.create(t)

	if err := f.svc.ConfirmBooking(context.Background(), summary.BookingID, "ch_123"); err != nil {
		t.Fatalf("ConfirmBooking: %v", err)
	}
	err := f.svc.CancelBooking(context.Background(), summary.BookingID, "too late", "manual")
	if !domain.IsKind(err, domain.KindInvalidState) {
		t.Fatalf("CancelBooking on confirmed = %v, want invalid_state", err)
	}
}
