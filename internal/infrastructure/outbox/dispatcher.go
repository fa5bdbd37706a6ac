// Package outbox relays durably-recorded events to the stream. Delivery is
// at-least-once: a crash between publish and the status write redelivers,
// and consumers are expected to deduplicate or be idempotent.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/seatlock/ticketing-go/internal/domain"
	"github.com/seatlock/ticketing-go/internal/metrics"
)

type Dispatcher struct {
	repo      domain.OutboxRepository
	publisher domain.EventPublisher
	batchSize int
	log       *zap.Logger
}

func NewDispatcher(
	repo domain.OutboxRepository,
	publisher domain.EventPublisher,
	batchSize int,
	log *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		publisher: publisher,
		batchSize: batchSize,
		log:       log,
	}
}

// DispatchOnce drains one batch of pending rows, oldest first. A publish
// failure bumps the row's retry count and leaves it pending for the next
// tick until the retry budget is spent, at which point it is parked as
// failed for operator attention.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	events, err := d.repo.GetPendingBatch(ctx, d.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	published := 0
	for _, ev := range events {
		envelope := domain.EventEnvelope{
			EventID:     ev.ID,
			EventType:   ev.EventType,
			AggregateID: ev.AggregateID,
			Payload:     json.RawMessage(ev.PayloadJSON),
			Timestamp:   ev.CreatedAt,
		}
		body, err := json.Marshal(envelope)
		if err != nil {
			// Undecodable rows burn retries like any other failure so they
			// cannot clog the batch forever.
			ev.RecordFailure(err)
			d.saveStatus(ctx, ev)
			continue
		}

		if err := d.publisher.Publish(ctx, ev.EventType, body); err != nil {
			d.log.Warn("outbox publish failed",
				zap.String("event_id", ev.ID.String()),
				zap.String("event_type", ev.EventType),
				zap.Int("retry_count", ev.RetryCount+1),
				zap.Error(err))
			ev.RecordFailure(err)
			if ev.Status == domain.OutboxFailed {
				metrics.OutboxFailed.Inc()
				d.log.Error("outbox event exhausted retries",
					zap.String("event_id", ev.ID.String()),
					zap.String("event_type", ev.EventType))
			}
		} else {
			ev.MarkPublished(time.Now())
			published++
			metrics.OutboxPublished.Inc()
		}
		d.saveStatus(ctx, ev)
	}

	return published, nil
}

func (d *Dispatcher) saveStatus(ctx context.Context, ev *domain.OutboxEvent) {
	if err := d.repo.Save(ctx, ev); err != nil {
		d.log.Error("outbox status save failed",
			zap.String("event_id", ev.ID.String()), zap.Error(err))
	}
}
