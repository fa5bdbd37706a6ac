// Package memory holds mutex-guarded in-memory implementations of the
// storage ports. They back the unit tests and storage-free local runs; the
// version-check semantics match the postgres repositories exactly.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/seatlock/ticketing-go/internal/domain"
)

type SeatRepository struct {
	mu    sync.Mutex
	seats map[uuid.UUID]*domain.Seat
}

func NewSeatRepository() *SeatRepository {
	return &SeatRepository{seats: make(map[uuid.UUID]*domain.Seat)}
}

func (r *SeatRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Seat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.Seat, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.seats[id]; ok {
			out = append(out, cloneSeat(s))
		}
	}
	return out, nil
}

func (r *SeatRepository) InsertMany(ctx context.Context, seats []*domain.Seat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range seats {
		if _, exists := r.seats[s.ID]; exists {
			return domain.Conflictf("seat %s already exists", s.ID)
		}
	}
	for _, s := range seats {
		r.seats[s.ID] = cloneSeat(s)
	}
	return nil
}

// UpdateAllVersioned applies the whole batch or none of it: every incoming
// seat must still carry the stored version, otherwise the write is rejected
// with Conflict and no row changes.
func (r *SeatRepository) UpdateAllVersioned(ctx context.Context, seats []*domain.Seat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range seats {
		stored, ok := r.seats[s.ID]
		if !ok {
			return domain.NotFoundf("seat %s not found", s.ID)
		}
		if stored.Version != s.Version {
			return domain.Conflictf("seat %s version changed concurrently", s.ID)
		}
	}
	for _, s := range seats {
		s.Version++
		r.seats[s.ID] = cloneSeat(s)
	}
	return nil
}

func cloneSeat(s *domain.Seat) *domain.Seat {
	c := *s
	if s.ReservedUntil != nil {
		t := *s.ReservedUntil
		c.ReservedUntil = &t
	}
	return &c
}
