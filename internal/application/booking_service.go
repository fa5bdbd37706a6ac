package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seatlock/ticketing-go/internal/domain"
	"github.com/seatlock/ticketing-go/internal/metrics"
)

// BookingService drives the seat→booking→payment saga. It owns booking
// lifecycle state; seats are only ever touched through the inventory
// gateway, payments through the payment gateway.
type BookingService struct {
	bookings  domain.BookingRepository
	inventory domain.InventoryGateway
	payments  domain.PaymentGateway
	window    time.Duration
	currency  string
	log       *zap.Logger
	now       func() time.Time
}

func NewBookingService(
	bookings domain.BookingRepository,
	inventory domain.InventoryGateway,
	payments domain.PaymentGateway,
	window time.Duration,
	currency string,
	log *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings:  bookings,
		inventory: inventory,
		payments:  payments,
		window:    window,
		currency:  currency,
		log:       log,
		now:       time.Now,
	}
}

type CreateBookingInput struct {
	BuyerID uuid.UUID
	EventID uuid.UUID
	SeatIDs []uuid.UUID
}

type BookingSummary struct {
	BookingID   uuid.UUID            `json:"bookingId"`
	EventID     uuid.UUID            `json:"eventId"`
	Seats       []domain.BookingSeat `json:"seats"`
	TotalCents  int64                `json:"totalCents"`
	Currency    string               `json:"currency"`
	Status      domain.BookingStatus `json:"status"`
	ExpiresAt   time.Time            `json:"expiresAt"`
	SessionID   string               `json:"sessionId"`
	CheckoutURL string               `json:"checkoutUrl"`
	ExpiresIn   int                  `json:"expiresIn"`
}

// CreateBooking reserves the seats first, so a booking row only ever
// exists for seats that were actually held. If the payment session cannot
// be created the seats are released and the booking is cancelled right
// away; the reaper remains the safety net if the process dies in between.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*BookingSummary, error) {
	if in.BuyerID == uuid.Nil || in.EventID == uuid.Nil {
		return nil, domain.Validationf("buyerId and eventId are required")
	}
	if len(in.SeatIDs) == 0 {
		return nil, domain.Validationf("at least one seat id is required")
	}

	bookingID := uuid.New()
	expiresAt := s.now().UTC().Add(s.window)

	priced, _, err := s.inventory.Reserve(ctx, in.SeatIDs, in.BuyerID, bookingID, expiresAt)
	if err != nil {
		// Reservation failed, nothing was held and nothing is persisted.
		return nil, err
	}

	seats := make([]domain.BookingSeat, 0, len(priced))
	for _, p := range priced {
		seats = append(seats, domain.BookingSeat{SeatID: p.SeatID, PriceCents: p.PriceCents})
	}
	booking := domain.NewBooking(bookingID, in.BuyerID, in.EventID, seats, s.currency, expiresAt)

	if err := s.bookings.Insert(ctx, booking); err != nil {
		s.compensate(ctx, booking, "booking persistence failed")
		return nil, domain.Fatalf("persist booking %s: %v", bookingID, err)
	}
	metrics.BookingsCreated.Inc()

	session, err := s.payments.CreateSession(ctx, bookingID, in.BuyerID, booking.TotalCents, booking.Currency, sessionDescription(len(seats)))
	if err != nil {
		s.log.Warn("payment session creation failed, compensating",
			zap.String("booking_id", bookingID.String()), zap.Error(err))
		s.compensate(ctx, booking, "payment session creation failed")
		return nil, err
	}

	s.log.Info("booking created",
		zap.String("booking_id", bookingID.String()),
		zap.String("buyer_id", in.BuyerID.String()),
		zap.Int64("total_cents", booking.TotalCents),
		zap.Time("expires_at", expiresAt))

	return &BookingSummary{
		BookingID:   booking.ID,
		EventID:     booking.EventID,
		Seats:       booking.Seats,
		TotalCents:  booking.TotalCents,
		Currency:    booking.Currency,
		Status:      booking.Status,
		ExpiresAt:   booking.ExpiresAt,
		SessionID:   session.SessionID,
		CheckoutURL: session.CheckoutURL,
		ExpiresIn:   session.ExpiresIn,
	}, nil
}

// compensate undoes a partially-built booking: release the seats, then
// eagerly cancel the row if it was already persisted. A failed release is a
// stuck-inventory condition, not a no-op, so it is logged at error severity
// and counted; the expiry sweep retries the same release path later.
func (s *BookingService) compensate(ctx context.Context, booking *domain.Booking, reason string) {
	if err := s.inventory.Release(ctx, booking.SeatIDs(), booking.ID); err != nil {
		metrics.CompensationFailures.Inc()
		s.log.Error("compensating seat release failed, inventory may be stuck",
			zap.String("booking_id", booking.ID.String()), zap.Error(err))
		return
	}
	if booking.Status != domain.BookingPending {
		return
	}
	if err := booking.Cancel(reason, s.now()); err != nil {
		return
	}
	if err := s.bookings.Update(ctx, booking); err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			// The row never made it to storage; released seats are enough.
			return
		}
		s.log.Error("cancelling compensated booking failed, reaper will retry",
			zap.String("booking_id", booking.ID.String()), zap.Error(err))
		return
	}
	metrics.BookingsCancelled.WithLabelValues("compensation").Inc()
}

// ConfirmBooking applies a payment outcome to a pending booking. Duplicate
// deliveries of the same payment reference succeed; a different reference
// against a confirmed booking is a data inconsistency and fails with
// Conflict rather than silently overwriting.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID uuid.UUID, paymentRef string) error {
	if paymentRef == "" {
		return domain.Validationf("payment reference is required")
	}
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	switch booking.Status {
	case domain.BookingConfirmed:
		if booking.PaymentRef == paymentRef {
			return nil
		}
		return domain.Conflictf("booking %s already confirmed with a different payment reference", bookingID)
	case domain.BookingPending:
		// fall through
	default:
		return domain.InvalidStatef("booking %s is %s, cannot confirm", bookingID, booking.Status)
	}

	now := s.now()
	if booking.Expired(now) {
		// The reaper (or a racing cancel) owns this booking's terminal state.
		return domain.Conflictf("booking %s reservation window elapsed", bookingID)
	}

	if err := s.inventory.Confirm(ctx, booking.SeatIDs(), booking.BuyerID, booking.ID); err != nil {
		return err
	}
	if err := booking.Confirm(paymentRef, now); err != nil {
		return err
	}
	if err := s.bookings.Update(ctx, booking); err != nil {
		return err
	}

	metrics.BookingsConfirmed.Inc()
	s.log.Info("booking confirmed",
		zap.String("booking_id", bookingID.String()),
		zap.String("payment_ref", paymentRef))
	return nil
}

// CancelBooking releases the booking's seats and marks it cancelled.
// Cancelling an already-cancelled booking succeeds; a confirmed sale
// cannot be cancelled through this path.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID, reason, origin string) error {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	switch booking.Status {
	case domain.BookingCancelled:
		return nil
	case domain.BookingConfirmed:
		return domain.InvalidStatef("booking %s is confirmed, a completed sale cannot be cancelled", bookingID)
	}

	if err := s.inventory.Release(ctx, booking.SeatIDs(), booking.ID); err != nil {
		return err
	}
	if err := booking.Cancel(reason, s.now()); err != nil {
		return err
	}
	if err := s.bookings.Update(ctx, booking); err != nil {
		return err
	}

	metrics.BookingsCancelled.WithLabelValues(origin).Inc()
	s.log.Info("booking cancelled",
		zap.String("booking_id", bookingID.String()),
		zap.String("reason", reason))
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

func (s *BookingService) ListBookingsForBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Booking, error) {
	if buyerID == uuid.Nil {
		return nil, domain.Validationf("buyerId is required")
	}
	return s.bookings.ListByBuyer(ctx, buyerID)
}

func sessionDescription(seatCount int) string {
	if seatCount == 1 {
		return "Event tickets - 1 seat"
	}
	return fmt.Sprintf("Event tickets - %d seats", seatCount)
}
