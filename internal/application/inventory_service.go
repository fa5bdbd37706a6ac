package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seatlock/ticketing-go/internal/domain"
	"github.com/seatlock/ticketing-go/internal/metrics"
)

// InventoryService is the sole writer of seat rows. All multi-seat
// mutations go through SeatRepository.UpdateAllVersioned, so a reservation
// is either applied to every seat or to none.
type InventoryService struct {
	seats domain.SeatRepository
	log   *zap.Logger
}

func NewInventoryService(seats domain.SeatRepository, log *zap.Logger) *InventoryService {
	return &InventoryService{seats: seats, log: log}
}

type AvailabilityResult struct {
	Seats      []domain.PricedSeat
	TotalCents int64
}

func (s *InventoryService) CheckAvailability(ctx context.Context, seatIDs []uuid.UUID) (*AvailabilityResult, error) {
	seats, err := s.loadAll(ctx, seatIDs)
	if err != nil {
		return nil, err
	}
	for _, seat := range seats {
		if seat.Status != domain.SeatAvailable {
			return nil, domain.Conflictf("seat %s is %s", seat.ID, seat.Status)
		}
	}
	return priceSeats(seats), nil
}

type ReserveInput struct {
	SeatIDs   []uuid.UUID
	BuyerID   uuid.UUID
	BookingID uuid.UUID
	Deadline  time.Time
}

// Reserve moves every named seat to reserved in one transaction. Concurrent
// reservations over overlapping seat sets resolve through the version
// check: at most one caller wins any contested seat, the rest get Conflict
// with nothing applied.
func (s *InventoryService) Reserve(ctx context.Context, in ReserveInput) (*AvailabilityResult, error) {
	if in.BuyerID == uuid.Nil || in.BookingID == uuid.Nil {
		return nil, domain.Validationf("buyerId and bookingId are required")
	}
	if in.Deadline.IsZero() {
		return nil, domain.Validationf("reservation deadline is required")
	}

	seats, err := s.loadAll(ctx, in.SeatIDs)
	if err != nil {
		return nil, err
	}
	for _, seat := range seats {
		if err := seat.Reserve(in.BuyerID, in.BookingID, in.Deadline); err != nil {
			metrics.ReserveConflicts.Inc()
			return nil, err
		}
	}
	if err := s.seats.UpdateAllVersioned(ctx, seats); err != nil {
		if domain.IsKind(err, domain.KindConflict) {
			metrics.ReserveConflicts.Inc()
		}
		return nil, err
	}

	metrics.SeatsReserved.Add(float64(len(seats)))
	s.log.Info("seats reserved",
		zap.String("booking_id", in.BookingID.String()),
		zap.Int("seats", len(seats)))
	return priceSeats(seats), nil
}

// Confirm finalizes reserved→sold for seats held by this booking. Seats
// already sold through the same booking are skipped, so redelivered
// payment events succeed without touching storage.
func (s *InventoryService) Confirm(ctx context.Context, seatIDs []uuid.UUID, buyerID, bookingID uuid.UUID) error {
	if buyerID == uuid.Nil || bookingID == uuid.Nil {
		return domain.Validationf("buyerId and bookingId are required")
	}
	seats, err := s.loadAll(ctx, seatIDs)
	if err != nil {
		return err
	}

	changed := make([]*domain.Seat, 0, len(seats))
	for _, seat := range seats {
		if seat.Status == domain.SeatSold && seat.SoldTo == buyerID && seat.BookingID == bookingID {
			continue
		}
		if err := seat.ConfirmSale(buyerID, bookingID); err != nil {
			return err
		}
		changed = append(changed, seat)
	}
	if len(changed) == 0 {
		return nil
	}
	if err := s.seats.UpdateAllVersioned(ctx, changed); err != nil {
		return err
	}
	s.log.Info("seats sold",
		zap.String("booking_id", bookingID.String()),
		zap.Int("seats", len(changed)))
	return nil
}

// Release returns reserved seats to the pool regardless of the reserving
// party; it serves explicit cancellation and reaper-driven expiry alike and
// is a no-op for seats already available.
func (s *InventoryService) Release(ctx context.Context, seatIDs []uuid.UUID, bookingID uuid.UUID) error {
	seats, err := s.loadAll(ctx, seatIDs)
	if err != nil {
		return err
	}

	changed := make([]*domain.Seat, 0, len(seats))
	for _, seat := range seats {
		if seat.Status != domain.SeatReserved {
			continue
		}
		seat.Release()
		changed = append(changed, seat)
	}
	if len(changed) == 0 {
		return nil
	}
	if err := s.seats.UpdateAllVersioned(ctx, changed); err != nil {
		return err
	}
	s.log.Info("seats released",
		zap.String("booking_id", bookingID.String()),
		zap.Int("seats", len(changed)))
	return nil
}

// SeedSeats materializes an event's seat map in bulk. Seat creation sits
// outside the booking saga; this exists for operational setup and tests.
func (s *InventoryService) SeedSeats(ctx context.Context, eventID uuid.UUID, priceCents []int64) ([]*domain.Seat, error) {
	if eventID == uuid.Nil {
		return nil, domain.Validationf("eventId is required")
	}
	if len(priceCents) == 0 {
		return nil, domain.Validationf("at least one seat price is required")
	}
	seats := make([]*domain.Seat, 0, len(priceCents))
	for _, price := range priceCents {
		if price <= 0 {
			return nil, domain.Validationf("seat price must be positive")
		}
		seats = append(seats, domain.NewSeat(eventID, price))
	}
	if err := s.seats.InsertMany(ctx, seats); err != nil {
		return nil, err
	}
	s.log.Info("seat map seeded",
		zap.String("event_id", eventID.String()),
		zap.Int("seats", len(seats)))
	return seats, nil
}

func (s *InventoryService) GetSeat(ctx context.Context, id uuid.UUID) (*domain.Seat, error) {
	seats, err := s.loadAll(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	return seats[0], nil
}

func (s *InventoryService) loadAll(ctx context.Context, ids []uuid.UUID) ([]*domain.Seat, error) {
	if len(ids) == 0 {
		return nil, domain.Validationf("at least one seat id is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			return nil, domain.Validationf("seat id must not be empty")
		}
		if _, dup := seen[id]; dup {
			return nil, domain.Validationf("duplicate seat id %s", id)
		}
		seen[id] = struct{}{}
	}

	seats, err := s.seats.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(seats) != len(ids) {
		found := make(map[uuid.UUID]struct{}, len(seats))
		for _, seat := range seats {
			found[seat.ID] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				return nil, domain.NotFoundf("seat %s not found", id)
			}
		}
	}
	return seats, nil
}

func priceSeats(seats []*domain.Seat) *AvailabilityResult {
	res := &AvailabilityResult{Seats: make([]domain.PricedSeat, 0, len(seats))}
	for _, seat := range seats {
		res.Seats = append(res.Seats, domain.PricedSeat{SeatID: seat.ID, PriceCents: seat.PriceCents})
		res.TotalCents += seat.PriceCents
	}
	return res
}
