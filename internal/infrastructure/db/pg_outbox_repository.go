package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/seatlock/ticketing-go/internal/domain"
)

type PgOutboxRepository struct {
	db *sql.DB
}

func NewPgOutboxRepository(db *sql.DB) *PgOutboxRepository {
	return &PgOutboxRepository{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertOutbox is shared with the payment store so the row can ride the
// payment's transaction.
func insertOutbox(ctx context.Context, ex execer, ev *domain.OutboxEvent) error {
	q := `
        insert into outbox_events
        (id, aggregate_type, aggregate_id, event_type, payload, status,
         retry_count, max_retries, last_error, created_at_utc, published_at_utc)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    `
	_, err := ex.ExecContext(
		ctx, q,
		ev.ID,
		ev.AggregateType,
		ev.AggregateID,
		ev.EventType,
		ev.PayloadJSON,
		string(ev.Status),
		ev.RetryCount,
		ev.MaxRetries,
		ev.LastError,
		ev.CreatedAt,
		nullTime(ev.PublishedAt),
	)
	return err
}

func (r *PgOutboxRepository) Insert(ctx context.Context, ev *domain.OutboxEvent) error {
	if ev.ID == uuid.Nil {
		return errors.New("outbox event id is empty")
	}
	return insertOutbox(ctx, r.db, ev)
}

func (r *PgOutboxRepository) GetPendingBatch(
	ctx context.Context,
	batchSize int,
) ([]*domain.OutboxEvent, error) {
	q := `
        select id, aggregate_type, aggregate_id, event_type, payload, status,
               retry_count, max_retries, last_error, created_at_utc, published_at_utc
        from outbox_events
        where status = $1
        order by created_at_utc asc
        limit $2
    `
	rows, err := r.db.QueryContext(ctx, q, string(domain.OutboxPending), batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.OutboxEvent
	for rows.Next() {
		var (
			ev          domain.OutboxEvent
			status      string
			publishedAt sql.NullTime
		)
		if err := rows.Scan(
			&ev.ID,
			&ev.AggregateType,
			&ev.AggregateID,
			&ev.EventType,
			&ev.PayloadJSON,
			&status,
			&ev.RetryCount,
			&ev.MaxRetries,
			&ev.LastError,
			&ev.CreatedAt,
			&publishedAt,
		); err != nil {
			return nil, err
		}
		ev.Status = domain.OutboxStatus(status)
		if publishedAt.Valid {
			t := publishedAt.Time.UTC()
			ev.PublishedAt = &t
		}
		result = append(result, &ev)
	}
	return result, rows.Err()
}

func (r *PgOutboxRepository) Save(ctx context.Context, ev *domain.OutboxEvent) error {
	if ev.ID == uuid.Nil {
		return errors.New("outbox event id is empty")
	}

	q := `
        update outbox_events
        set status = $2,
            retry_count = $3,
            last_error = $4,
            published_at_utc = $5
        where id = $1
    `
	_, err := r.db.ExecContext(
		ctx, q,
		ev.ID,
		string(ev.Status),
		ev.RetryCount,
		ev.LastError,
		nullTime(ev.PublishedAt),
	)
	return err
}
