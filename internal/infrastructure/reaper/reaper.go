// Package reaper reconciles abandoned reservations: pending bookings whose
// window lapsed are forced down the same cancel/release path a manual
// cancellation takes.
package reaper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/seatlock/ticketing-go/internal/application"
	"github.com/seatlock/ticketing-go/internal/domain"
	"github.com/seatlock/ticketing-go/internal/metrics"
)

type Reaper struct {
	bookings  domain.BookingRepository
	service   *application.BookingService
	batchSize int
	log       *zap.Logger
	now       func() time.Time
}

func New(bookings domain.BookingRepository, service *application.BookingService, batchSize int, log *zap.Logger) *Reaper {
	return &Reaper{
		bookings:  bookings,
		service:   service,
		batchSize: batchSize,
		log:       log,
		now:       time.Now,
	}
}

// SweepOnce cancels every expired pending booking it can. One booking's
// failure never aborts the rest: it is logged, counted, and retried on the
// next pass since the booking stays pending.
func (r *Reaper) SweepOnce(ctx context.Context) (int, error) {
	expired, err := r.bookings.ListExpiredPending(ctx, r.now(), r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	r.log.Info("expired pending bookings found", zap.Int("count", len(expired)))

	cancelled := 0
	for _, booking := range expired {
		err := r.service.CancelBooking(ctx, booking.ID, domain.ReasonReservationElapsed, "reaper")
		if err != nil {
			// A racing confirm may have won; anything terminal is fine.
			if domain.IsKind(err, domain.KindInvalidState) || domain.IsKind(err, domain.KindConflict) {
				r.log.Info("expired booking already resolved",
					zap.String("booking_id", booking.ID.String()), zap.Error(err))
				continue
			}
			metrics.ReaperFailures.Inc()
			r.log.Error("expired booking cancellation failed",
				zap.String("booking_id", booking.ID.String()), zap.Error(err))
			continue
		}
		cancelled++
		metrics.ReaperCancelled.Inc()
	}

	return cancelled, nil
}
