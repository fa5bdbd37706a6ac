package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/seatlock/ticketing-go/internal/domain"
)

type OutboxRepository struct {
	mu     sync.Mutex
	events map[uuid.UUID]*domain.OutboxEvent
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{events: make(map[uuid.UUID]*domain.OutboxEvent)}
}

func (r *OutboxRepository) Insert(ctx context.Context, ev *domain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(ev)
}

func (r *OutboxRepository) insertLocked(ev *domain.OutboxEvent) error {
	if _, exists := r.events[ev.ID]; exists {
		return domain.Conflictf("outbox event %s already exists", ev.ID)
	}
	r.events[ev.ID] = cloneOutbox(ev)
	return nil
}

func (r *OutboxRepository) GetPendingBatch(ctx context.Context, batchSize int) ([]*domain.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.OutboxEvent
	for _, ev := range r.events {
		if ev.Status == domain.OutboxPending {
			out = append(out, cloneOutbox(ev))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if batchSize > 0 && len(out) > batchSize {
		out = out[:batchSize]
	}
	return out, nil
}

func (r *OutboxRepository) Save(ctx context.Context, ev *domain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[ev.ID]; !ok {
		return domain.NotFoundf("outbox event %s not found", ev.ID)
	}
	r.events[ev.ID] = cloneOutbox(ev)
	return nil
}

// Get returns one event by id; test helper.
func (r *OutboxRepository) Get(id uuid.UUID) (*domain.OutboxEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[id]
	if !ok {
		return nil, false
	}
	return cloneOutbox(ev), true
}

// All returns every stored event, oldest first; test helper.
func (r *OutboxRepository) All() []*domain.OutboxEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.OutboxEvent, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, cloneOutbox(ev))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func cloneOutbox(ev *domain.OutboxEvent) *domain.OutboxEvent {
	c := *ev
	if ev.PublishedAt != nil {
		t := *ev.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}
