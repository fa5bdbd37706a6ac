package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seatlock/ticketing-go/internal/domain"
	"github.com/seatlock/ticketing-go/internal/infrastructure/memory"
)

type capturePublisher struct {
	mu     sync.Mutex
	err    error
	topics []string
	bodies [][]byte
}

func (p *capturePublisher) Publish(ctx context.Context, topic string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.bodies = append(p.bodies, body)
	return nil
}

func insertEvent(t *testing.T, repo *memory.OutboxRepository, maxRetries int) *domain.OutboxEvent {
	t.Helper()
	ev, err := domain.NewOutboxEvent("payment", uuid.New(), domain.TopicPaymentCompleted,
		domain.PaymentCompletedPayload{PaymentID: uuid.New(), ProviderRef: "ch_123"}, maxRetries)
	if err != nil {
		t.Fatalf("NewOutboxEvent: %v", err)
	}
	if err := repo.Insert(context.Background(), ev); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return ev
}

func TestDispatchOncePublishesEnvelope(t *testing.T) {
	repo := memory.NewOutboxRepository()
	pub := &capturePublisher{}
	d := NewDispatcher(repo, pub, 100, zap.NewNop())

	ev := insertEvent(t, repo, 3)

	n, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("DispatchOnce: %v", err)
	}
	if n != 1 {
		t.Fatalf("published = %d, want 1", n)
	}
	if len(pub.topics) != 1 || pub.topics[0] != domain.TopicPaymentCompleted {
		t.Fatalf("topics = %v", pub.topics)
	}

	var envelope domain.EventEnvelope
	if err := json.Unmarshal(pub.bodies[0], &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.EventID != ev.ID || envelope.EventType != ev.EventType {
		t.Fatalf("envelope = %+v", envelope)
	}

	stored, ok := repo.Get(ev.ID)
	if !ok || stored.Status != domain.OutboxPublished || stored.PublishedAt == nil {
		t.Fatalf("stored = %+v", stored)
	}

	// A published row never goes out again.
	if n, err := d.DispatchOnce(context.Background()); err != nil || n != 0 {
		t.Fatalf("second DispatchOnce = (%d, %v), want (0, nil)", n, err)
	}
}

func TestDispatchOnceRetriesUntilBudgetSpent(t *testing.T) {
	repo := memory.NewOutboxRepository()
	pub := &capturePublisher{err: errors.New("broker down")}
	d := NewDispatcher(repo, pub, 100, zap.NewNop())

	ev := insertEvent(t, repo, 3)

	for attempt := 1; attempt <= 2; attempt++ {
		if _, err := d.DispatchOnce(context.Background()); err != nil {
			t.Fatalf("DispatchOnce: %v", err)
		}
		stored, _ := repo.Get(ev.ID)
		if stored.Status != domain.OutboxPending || stored.RetryCount != attempt {
			t.Fatalf("after attempt %d: status=%s retries=%d", attempt, stored.Status, stored.RetryCount)
		}
	}

	// Third failure exhausts the budget and parks the row.
	if _, err := d.DispatchOnce(context.Background()); err != nil {
		t.Fatalf("DispatchOnce: %v", err)
	}
	stored, _ := repo.Get(ev.ID)
	if stored.Status != domain.OutboxFailed || stored.LastError == "" {
		t.Fatalf("stored = %+v", stored)
	}

	// Failed rows leave the pending batch.
	pub.err = nil
	if n, err := d.DispatchOnce(context.Background()); err != nil || n != 0 {
		t.Fatalf("DispatchOnce after park = (%d, %v), want (0, nil)", n, err)
	}
}

func TestDispatchOnceRecoversMidBatch(t *testing.T) {
	repo := memory.NewOutboxRepository()
	pub := &capturePublisher{}
	d := NewDispatcher(repo, pub, 100, zap.NewNop())

	first := insertEvent(t, repo, 3)
	second := insertEvent(t, repo, 3)

	pub.err = errors.New("broker down")
	if _, err := d.DispatchOnce(context.Background()); err != nil {
		t.Fatalf("DispatchOnce: %v", err)
	}

	pub.err = nil
	n, err := d.DispatchOnce(context.Background())
	if err != nil {
		t.Fatalf("DispatchOnce: %v", err)
	}
	if n != 2 {
		t.Fatalf("published = %d, want 2", n)
	}
	for _, ev := range []*domain.OutboxEvent{first, second} {
		stored, _ := repo.Get(ev.ID)
		if stored.Status != domain.OutboxPublished {
			t.Fatalf("event %s status = %s", ev.ID, stored.Status)
		}
	}
}
