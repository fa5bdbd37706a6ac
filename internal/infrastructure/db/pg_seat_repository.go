package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/seatlock/ticketing-go/internal/domain"
)

type PgSeatRepository struct {
	db *sql.DB
}

func NewPgSeatRepository(db *sql.DB) *PgSeatRepository {
	return &PgSeatRepository{db: db}
}

func (r *PgSeatRepository) GetByIDs(
	ctx context.Context,
	ids []uuid.UUID,
) ([]*domain.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
        select id, event_id, price_cents, status,
               reserved_by, booking_id, reserved_until, sold_to,
               version, updated_at_utc
        from seats
        where id = any($1)
    `
	rows, err := r.db.QueryContext(ctx, query, uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Seat
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, seat)
	}

	// missing ids are simply absent
	return result, rows.Err()
}

func (r *PgSeatRepository) InsertMany(
	ctx context.Context,
	seats []*domain.Seat,
) error {
	if len(seats) == 0 {
		return nil
	}

	query := `
        insert into seats
        (id, event_id, price_cents, status, reserved_by, booking_id, reserved_until, sold_to, version, updated_at_utc)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, seat := range seats {
		if _, err := stmt.ExecContext(
			ctx,
			seat.ID,
			seat.EventID,
			seat.PriceCents,
			string(seat.Status),
			nullUUID(seat.ReservedBy),
			nullUUID(seat.BookingID),
			seat.ReservedUntil,
			nullUUID(seat.SoldTo),
			seat.Version,
			seat.UpdatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpdateAllVersioned writes the batch in one transaction, each row
// conditional on the version the seat was loaded with. Any row that lost a
// concurrent race aborts the whole batch with Conflict; on commit the
// in-memory versions advance to match storage.
func (r *PgSeatRepository) UpdateAllVersioned(
	ctx context.Context,
	seats []*domain.Seat,
) error {
	if len(seats) == 0 {
		return nil
	}

	query := `
        update seats
        set status = $2,
            reserved_by = $3,
            booking_id = $4,
            reserved_until = $5,
            sold_to = $6,
            version = version + 1,
            updated_at_utc = $7
        where id = $1 and version = $8
    `
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, seat := range seats {
		res, err := stmt.ExecContext(
			ctx,
			seat.ID,
			string(seat.Status),
			nullUUID(seat.ReservedBy),
			nullUUID(seat.BookingID),
			seat.ReservedUntil,
			nullUUID(seat.SoldTo),
			seat.UpdatedAt,
			seat.Version,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return domain.Conflictf("seat %s version changed concurrently", seat.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	for _, seat := range seats {
		seat.Version++
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeat(row rowScanner) (*domain.Seat, error) {
	var (
		seat          domain.Seat
		status        string
		reservedBy    sql.NullString
		bookingID     sql.NullString
		reservedUntil sql.NullTime
		soldTo        sql.NullString
	)
	if err := row.Scan(
		&seat.ID,
		&seat.EventID,
		&seat.PriceCents,
		&status,
		&reservedBy,
		&bookingID,
		&reservedUntil,
		&soldTo,
		&seat.Version,
		&seat.UpdatedAt,
	); err != nil {
		return nil, err
	}
	seat.Status = domain.SeatStatus(status)
	seat.ReservedBy = parseNullUUID(reservedBy)
	seat.BookingID = parseNullUUID(bookingID)
	seat.SoldTo = parseNullUUID(soldTo)
	if reservedUntil.Valid {
		t := reservedUntil.Time.UTC()
		seat.ReservedUntil = &t
	}
	return &seat, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func parseNullUUID(v sql.NullString) uuid.UUID {
	if !v.Valid {
		return uuid.Nil
	}
	id, err := uuid.Parse(v.String)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
