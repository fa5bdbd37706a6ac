package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/seatlock/ticketing-go/internal/domain"
)

type PgBookingRepository struct {
	db *sql.DB
}

func NewPgBookingRepository(db *sql.DB) *PgBookingRepository {
	return &PgBookingRepository{db: db}
}

func (r *PgBookingRepository) Insert(ctx context.Context, b *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q := `
        insert into bookings
        (id, buyer_id, event_id, total_cents, currency, status, expires_at_utc,
         payment_ref, cancel_reason, confirmed_at_utc, cancelled_at_utc,
         version, created_at_utc, updated_at_utc)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    `
	if _, err := tx.ExecContext(
		ctx, q,
		b.ID,
		b.BuyerID,
		b.EventID,
		b.TotalCents,
		b.Currency,
		string(b.Status),
		b.ExpiresAt,
		b.PaymentRef,
		b.CancelReason,
		nullTime(b.ConfirmedAt),
		nullTime(b.CancelledAt),
		b.Version,
		b.CreatedAt,
		b.UpdatedAt,
	); err != nil {
		return err
	}

	sq := `
        insert into booking_seats (booking_id, seat_id, price_cents)
        values ($1,$2,$3)
    `
	for _, seat := range b.Seats {
		if _, err := tx.ExecContext(ctx, sq, b.ID, seat.SeatID, seat.PriceCents); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PgBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	q := bookingSelect + ` where id = $1`
	row := r.db.QueryRowContext(ctx, q, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("booking %s not found", id)
		}
		return nil, err
	}
	if err := r.loadSeats(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Update is conditional on the version the booking was loaded with, so a
// racing confirm/cancel loses cleanly with Conflict instead of overwriting
// a terminal state.
func (r *PgBookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	q := `
        update bookings
        set status = $2,
            payment_ref = $3,
            cancel_reason = $4,
            confirmed_at_utc = $5,
            cancelled_at_utc = $6,
            version = version + 1,
            updated_at_utc = $7
        where id = $1 and version = $8
    `
	res, err := r.db.ExecContext(
		ctx, q,
		b.ID,
		string(b.Status),
		b.PaymentRef,
		b.CancelReason,
		nullTime(b.ConfirmedAt),
		nullTime(b.CancelledAt),
		b.UpdatedAt,
		b.Version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return domain.Conflictf("booking %s version changed concurrently", b.ID)
	}
	b.Version++
	return nil
}

func (r *PgBookingRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Booking, error) {
	q := bookingSelect + ` where buyer_id = $1 order by created_at_utc desc`
	return r.queryBookings(ctx, q, buyerID)
}

func (r *PgBookingRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Booking, error) {
	q := bookingSelect + `
        where status = $1 and expires_at_utc < $2
        order by expires_at_utc asc
        limit $3
    `
	return r.queryBookings(ctx, q, string(domain.BookingPending), now.UTC(), limit)
}

const bookingSelect = `
        select id, buyer_id, event_id, total_cents, currency, status,
               expires_at_utc, payment_ref, cancel_reason,
               confirmed_at_utc, cancelled_at_utc,
               version, created_at_utc, updated_at_utc
        from bookings
`

func (r *PgBookingRepository) queryBookings(ctx context.Context, q string, args ...any) ([]*domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, b := range result {
		if err := r.loadSeats(ctx, b); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *PgBookingRepository) loadSeats(ctx context.Context, b *domain.Booking) error {
	q := `
        select seat_id, price_cents
        from booking_seats
        where booking_id = $1
    `
	rows, err := r.db.QueryContext(ctx, q, b.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	seats := []domain.BookingSeat{}
	for rows.Next() {
		var s domain.BookingSeat
		if err := rows.Scan(&s.SeatID, &s.PriceCents); err != nil {
			return err
		}
		seats = append(seats, s)
	}
	b.Seats = seats
	return rows.Err()
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var (
		b           domain.Booking
		status      string
		confirmedAt sql.NullTime
		cancelledAt sql.NullTime
	)
	if err := row.Scan(
		&b.ID,
		&b.BuyerID,
		&b.EventID,
		&b.TotalCents,
		&b.Currency,
		&status,
		&b.ExpiresAt,
		&b.PaymentRef,
		&b.CancelReason,
		&confirmedAt,
		&cancelledAt,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.Status = domain.BookingStatus(status)
	if confirmedAt.Valid {
		t := confirmedAt.Time.UTC()
		b.ConfirmedAt = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time.UTC()
		b.CancelledAt = &t
	}
	return &b, nil
}
