package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seatlock/ticketing-go/internal/domain"
)

type BookingRepository struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*domain.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{bookings: make(map[uuid.UUID]*domain.Booking)}
}

func (r *BookingRepository) Insert(ctx context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bookings[b.ID]; exists {
		return domain.Conflictf("booking %s already exists", b.ID)
	}
	r.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.NotFoundf("booking %s not found", id)
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bookings[b.ID]
	if !ok {
		return domain.NotFoundf("booking %s not found", b.ID)
	}
	if stored.Version != b.Version {
		return domain.Conflictf("booking %s version changed concurrently", b.ID)
	}
	b.Version++
	r.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (r *BookingRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Booking
	for _, b := range r.bookings {
		if b.BuyerID == buyerID {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *BookingRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Booking
	for _, b := range r.bookings {
		if b.Status == domain.BookingPending && now.After(b.ExpiresAt) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneBooking(b *domain.Booking) *domain.Booking {
	c := *b
	c.Seats = append([]domain.BookingSeat(nil), b.Seats...)
	if b.ConfirmedAt != nil {
		t := *b.ConfirmedAt
		c.ConfirmedAt = &t
	}
	if b.CancelledAt != nil {
		t := *b.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}
