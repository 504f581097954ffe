package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/busgo/internal/domain"
	"github.com/kirinyoku/busgo/internal/repository"
)

type TicketRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TicketRepo) With(db DB) *TicketRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TicketRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// BookSeat reserves a seat on a trip and issues the ticket in one
// transaction. The seat add is a single conditional update guarded on the
// seat being absent, so of two racing bookings exactly one wins.
//
// Returns:
//   - *domain.Ticket: the issued ticket when successful.
//   - error: repository.ErrNotFound if the trip does not exist.
//   - error: repository.ErrTripNotActive if the trip is not active.
//   - error: repository.ErrSeatOutOfRange if the seat exceeds bus capacity.
//   - error: repository.ErrSeatTaken if the seat is already booked.
func (r *TicketRepo) BookSeat(
	ctx context.Context,
	tripID, userID uuid.UUID,
	seat int,
) (*domain.Ticket, error) {
	const op = "postgres.TicketRepo.BookSeat"

	if r.db != nil {
		t, err := r.bookSeatCore(ctx, r.db, tripID, userID, seat)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		return t, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer tx.Rollback(ctx)

	ticket, err := r.bookSeatCore(ctx, tx, tripID, userID, seat)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return ticket, nil
}

// Cancel marks a ticket canceled and releases its seat back to the trip.
// The release happens regardless of trip status.
//
// Returns:
//   - *domain.Ticket: the canceled ticket.
//   - error: repository.ErrNotFound if the ticket does not exist.
func (r *TicketRepo) Cancel(ctx context.Context, ticketID uuid.UUID) (*domain.Ticket, error) {
	const op = "postgres.TicketRepo.Cancel"

	if r.db != nil {
		t, err := r.cancelCore(ctx, r.db, ticketID)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		return t, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer tx.Rollback(ctx)

	ticket, err := r.cancelCore(ctx, tx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return ticket, nil
}

// Get retrieves a ticket by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the ticket is not found.
func (r *TicketRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	const op = "postgres.TicketRepo.Get"

	db := r.handle()

	var t domain.Ticket
	err := db.QueryRow(ctx,
		`SELECT id, trip_id, user_id, seat, status, price_cents, created_at, updated_at
		 FROM tickets WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.TripID, &t.UserID, &t.Seat, &t.Status, &t.PriceCents, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &t, nil
}

// List lists tickets, newest first. tripID narrows to a single trip when
// not uuid.Nil.
func (r *TicketRepo) List(
	ctx context.Context,
	tripID uuid.UUID,
	limit, offset int,
) ([]domain.Ticket, error) {
	const op = "postgres.TicketRepo.List"

	db := r.handle()

	var rows pgx.Rows
	var err error

	if tripID != uuid.Nil {
		rows, err = db.Query(ctx,
			`SELECT id, trip_id, user_id, seat, status, price_cents, created_at, updated_at
			 FROM tickets
			 WHERE trip_id = $1
			 ORDER BY created_at DESC
			 LIMIT $2 OFFSET $3`,
			tripID, limit, offset,
		)
	} else {
		rows, err = db.Query(ctx,
			`SELECT id, trip_id, user_id, seat, status, price_cents, created_at, updated_at
			 FROM tickets
			 ORDER BY created_at DESC
			 LIMIT $1 OFFSET $2`,
			limit, offset,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(
			&t.ID, &t.TripID, &t.UserID, &t.Seat,
			&t.Status, &t.PriceCents, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ExpireByTrip flips all of a trip's active tickets to expired.
//
// Returns:
//   - int64: the number of tickets expired.
func (r *TicketRepo) ExpireByTrip(ctx context.Context, tripID uuid.UUID) (int64, error) {
	const op = "postgres.TicketRepo.ExpireByTrip"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE tickets
		 SET status = $2, updated_at = now()
		 WHERE trip_id = $1 AND status = $3`,
		tripID, domain.TicketExpired, domain.TicketActive,
	)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

// DeleteByTrip removes every ticket referencing a trip; used by the trip
// deletion cascade. Deleting zero rows is not an error.
func (r *TicketRepo) DeleteByTrip(ctx context.Context, tripID uuid.UUID) (int64, error) {
	const op = "postgres.TicketRepo.DeleteByTrip"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM tickets WHERE trip_id = $1`, tripID)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

// Delete removes a single ticket without releasing its seat.
//
// Returns:
//   - error: repository.ErrNotFound if no row was deleted.
func (r *TicketRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.TicketRepo.Delete"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// DeleteAll wipes the tickets table. Admin operation.
func (r *TicketRepo) DeleteAll(ctx context.Context) (int64, error) {
	const op = "postgres.TicketRepo.DeleteAll"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM tickets`)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

func (r *TicketRepo) bookSeatCore(
	ctx context.Context,
	db DB,
	tripID, userID uuid.UUID,
	seat int,
) (*domain.Ticket, error) {
	const op = "postgres.TicketRepo.bookSeatCore"

	var status domain.TripStatus
	var priceCents, capacity int

	err := db.QueryRow(ctx,
		`SELECT t.status, t.price_cents, b.capacity
		 FROM trips t
		 JOIN buses b ON b.id = t.bus_id
		 WHERE t.id = $1`,
		tripID,
	).Scan(&status, &priceCents, &capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if status != domain.TripActive {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrTripNotActive)
	}

	if seat < 1 || seat > capacity {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrSeatOutOfRange)
	}

	// Check-and-set in one statement: the seat is appended only if absent
	// and the trip is still active.
	tag, err := db.Exec(ctx,
		`UPDATE trips
		 SET booked_seats = array_append(booked_seats, $2), updated_at = now()
		 WHERE id = $1
		   AND status = $3
		   AND NOT (booked_seats @> ARRAY[$2]::int[])`,
		tripID, seat, domain.TripActive,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%s:%w", op, repository.ErrSeatTaken)
	}

	ticket := &domain.Ticket{
		ID:         uuid.New(),
		TripID:     tripID,
		UserID:     userID,
		Seat:       seat,
		Status:     domain.TicketActive,
		PriceCents: priceCents,
	}

	if err := db.QueryRow(ctx,
		`INSERT INTO tickets(id, trip_id, user_id, seat, status, price_cents)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at`,
		ticket.ID, ticket.TripID, ticket.UserID, ticket.Seat, ticket.Status, ticket.PriceCents,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return ticket, nil
}

func (r *TicketRepo) cancelCore(
	ctx context.Context,
	db DB,
	ticketID uuid.UUID,
) (*domain.Ticket, error) {
	const op = "postgres.TicketRepo.cancelCore"

	var t domain.Ticket
	err := db.QueryRow(ctx,
		`UPDATE tickets
		 SET status = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING id, trip_id, user_id, seat, status, price_cents, created_at, updated_at`,
		ticketID, domain.TicketCanceled,
	).Scan(&t.ID, &t.TripID, &t.UserID, &t.Seat, &t.Status, &t.PriceCents, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s:%w", op, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if _, err := db.Exec(ctx,
		`UPDATE trips
		 SET booked_seats = array_remove(booked_seats, $2), updated_at = now()
		 WHERE id = $1`,
		t.TripID, t.Seat,
	); err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &t, nil
}
