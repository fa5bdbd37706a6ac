package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/seatlock/ticketing-go/internal/domain"
)

// PaymentStore keeps payments and their outbox rows behind one mutex so
// UpdateWithOutbox has the same all-or-nothing behavior as the postgres
// transaction.
type PaymentStore struct {
	mu        sync.Mutex
	payments  map[uuid.UUID]*domain.Payment
	bySession map[string]uuid.UUID
	outbox    *OutboxRepository
}

func NewPaymentStore(outbox *OutboxRepository) *PaymentStore {
	return &PaymentStore{
		payments:  make(map[uuid.UUID]*domain.Payment),
		bySession: make(map[string]uuid.UUID),
		outbox:    outbox,
	}
}

func (s *PaymentStore) Insert(ctx context.Context, p *domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[p.ID]; exists {
		return domain.Conflictf("payment %s already exists", p.ID)
	}
	s.payments[p.ID] = clonePayment(p)
	s.bySession[p.SessionID] = p.ID
	return nil
}

func (s *PaymentStore) GetBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.bySession[sessionID]
	if !ok {
		return nil, domain.NotFoundf("payment session %s not found", sessionID)
	}
	return clonePayment(s.payments[id]), nil
}

func (s *PaymentStore) UpdateWithOutbox(ctx context.Context, p *domain.Payment, ev *domain.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[p.ID]; !ok {
		return domain.NotFoundf("payment %s not found", p.ID)
	}
	if err := s.outbox.insertLocked(ev); err != nil {
		return err
	}
	s.payments[p.ID] = clonePayment(p)
	return nil
}

func clonePayment(p *domain.Payment) *domain.Payment {
	c := *p
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
