package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/seatlock/ticketing-go/internal/domain"
)

type PgPaymentStore struct {
	db *sql.DB
}

func NewPgPaymentStore(db *sql.DB) *PgPaymentStore {
	return &PgPaymentStore{db: db}
}

func (s *PgPaymentStore) Insert(ctx context.Context, p *domain.Payment) error {
	q := `
        insert into payments
        (id, booking_id, buyer_id, amount_cents, currency, status,
         session_id, checkout_url, description, provider_ref, error_message,
         created_at_utc, completed_at_utc)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    `
	_, err := s.db.ExecContext(
		ctx, q,
		p.ID,
		p.BookingID,
		p.BuyerID,
		p.AmountCents,
		p.Currency,
		string(p.Status),
		p.SessionID,
		p.CheckoutURL,
		p.Description,
		p.ProviderRef,
		p.ErrorMessage,
		p.CreatedAt,
		nullTime(p.CompletedAt),
	)
	return err
}

func (s *PgPaymentStore) GetBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	q := `
        select id, booking_id, buyer_id, amount_cents, currency, status,
               session_id, checkout_url, description, provider_ref, error_message,
               created_at_utc, completed_at_utc
        from payments
        where session_id = $1
    `
	row := s.db.QueryRowContext(ctx, q, sessionID)

	var (
		p           domain.Payment
		status      string
		completedAt sql.NullTime
	)
	if err := row.Scan(
		&p.ID,
		&p.BookingID,
		&p.BuyerID,
		&p.AmountCents,
		&p.Currency,
		&status,
		&p.SessionID,
		&p.CheckoutURL,
		&p.Description,
		&p.ProviderRef,
		&p.ErrorMessage,
		&p.CreatedAt,
		&completedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("payment session %s not found", sessionID)
		}
		return nil, err
	}
	p.Status = domain.PaymentStatus(status)
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		p.CompletedAt = &t
	}
	return &p, nil
}

// UpdateWithOutbox commits the payment mutation and its outbox row in one
// transaction: no state change without a matching outbox row, no outbox
// row without the matching state change.
func (s *PgPaymentStore) UpdateWithOutbox(ctx context.Context, p *domain.Payment, ev *domain.OutboxEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q := `
        update payments
        set status = $2,
            provider_ref = $3,
            error_message = $4,
            completed_at_utc = $5
        where id = $1
    `
	res, err := tx.ExecContext(
		ctx, q,
		p.ID,
		string(p.Status),
		p.ProviderRef,
		p.ErrorMessage,
		nullTime(p.CompletedAt),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return domain.NotFoundf("payment %s not found", p.ID)
	}

	if err := insertOutbox(ctx, tx, ev); err != nil {
		return err
	}

	return tx.Commit()
}
