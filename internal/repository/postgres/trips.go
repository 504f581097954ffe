package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/busgo/internal/domain"
	"github.com/kirinyoku/busgo/internal/repository"
)

type TripRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TripRepo) With(db DB) *TripRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TripRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create persists a new trip. The caller is expected to have validated
// timings and bus availability; duration must already be recomputed.
//
// Returns:
//   - error: repository.ErrNotFound if the referenced bus or city is absent.
func (r *TripRepo) Create(ctx context.Context, t *domain.Trip) error {
	const op = "postgres.TripRepo.Create"

	db := r.handle()

	err := db.QueryRow(ctx,
		`INSERT INTO trips(
			id, departure_city_id, arrival_city_id, bus_id,
			departure_at, arrival_at, duration, price_cents,
			rating, status, booked_seats
		 )
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, '{}')
		 RETURNING created_at, updated_at`,
		t.ID, t.DepartureCityID, t.ArrivalCityID, t.BusID,
		t.DepartureAt, t.ArrivalAt, t.Duration, t.PriceCents, t.Status,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// Get retrieves a trip by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the trip is not found.
func (r *TripRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	const op = "postgres.TripRepo.Get"

	db := r.handle()

	var t domain.Trip
	err := db.QueryRow(ctx,
		`SELECT id, departure_city_id, arrival_city_id, bus_id,
		        departure_at, arrival_at, duration, price_cents,
		        rating, status, booked_seats, created_at, updated_at
		 FROM trips WHERE id = $1`,
		id,
	).Scan(
		&t.ID, &t.DepartureCityID, &t.ArrivalCityID, &t.BusID,
		&t.DepartureAt, &t.ArrivalAt, &t.Duration, &t.PriceCents,
		&t.Rating, &t.Status, &t.BookedSeats, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return &t, nil
}

// List lists trips matching the filter, newest departures first.
func (r *TripRepo) List(
	ctx context.Context,
	f domain.TripFilter,
	limit, offset int,
) ([]domain.Trip, error) {
	const op = "postgres.TripRepo.List"

	db := r.handle()

	q := `SELECT id, departure_city_id, arrival_city_id, bus_id,
	             departure_at, arrival_at, duration, price_cents,
	             rating, status, booked_seats, created_at, updated_at
	      FROM trips WHERE true`
	args := []any{}

	if f.DepartureCityID != nil {
		args = append(args, *f.DepartureCityID)
		q += fmt.Sprintf(" AND departure_city_id = $%d", len(args))
	}
	if f.ArrivalCityID != nil {
		args = append(args, *f.ArrivalCityID)
		q += fmt.Sprintf(" AND arrival_city_id = $%d", len(args))
	}
	if f.BusID != nil {
		args = append(args, *f.BusID)
		q += fmt.Sprintf(" AND bus_id = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		q += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Date != nil {
		day := f.Date.UTC().Truncate(24 * time.Hour)
		args = append(args, day, day.Add(24*time.Hour))
		q += fmt.Sprintf(" AND departure_at >= $%d AND departure_at < $%d", len(args)-1, len(args))
	}

	args = append(args, limit, offset)
	q += fmt.Sprintf(" ORDER BY departure_at LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.Trip
	for rows.Next() {
		var t domain.Trip
		if err := rows.Scan(
			&t.ID, &t.DepartureCityID, &t.ArrivalCityID, &t.BusID,
			&t.DepartureAt, &t.ArrivalAt, &t.Duration, &t.PriceCents,
			&t.Rating, &t.Status, &t.BookedSeats, &t.CreatedAt, &t.UpdatedAt,
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

// Update rewrites the schedule-relevant fields of a trip. Status, rating and
// booked seats are never touched here.
//
// Returns:
//   - error: repository.ErrNotFound if the trip is not found.
func (r *TripRepo) Update(ctx context.Context, t *domain.Trip) error {
	const op = "postgres.TripRepo.Update"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE trips
		 SET departure_city_id = $2,
		     arrival_city_id = $3,
		     bus_id = $4,
		     departure_at = $5,
		     arrival_at = $6,
		     duration = $7,
		     price_cents = $8,
		     updated_at = now()
		 WHERE id = $1`,
		t.ID, t.DepartureCityID, t.ArrivalCityID, t.BusID,
		t.DepartureAt, t.ArrivalAt, t.Duration, t.PriceCents,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// Delete removes a trip row.
//
// Returns:
//   - error: repository.ErrNotFound if no row was deleted.
func (r *TripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.TripRepo.Delete"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// CompleteActive flips an active trip to completed. Canceled and completed
// trips are left untouched.
//
// Returns:
//   - bool: whether a transition happened.
func (r *TripRepo) CompleteActive(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "postgres.TripRepo.CompleteActive"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE trips
		 SET status = $2, updated_at = now()
		 WHERE id = $1 AND status = $3`,
		id, domain.TripCompleted, domain.TripActive,
	)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected() > 0, nil
}

// HasBusConflict reports whether any active trip of the bus overlaps the
// candidate [departure, arrival) interval. Two intervals [d1,a1) and [d2,a2)
// overlap iff d1 < a2 && d2 < a1. excludeTripID removes a trip's own row
// from the scan when editing; pass uuid.Nil otherwise.
func (r *TripRepo) HasBusConflict(
	ctx context.Context,
	busID uuid.UUID,
	departureAt, arrivalAt time.Time,
	excludeTripID uuid.UUID,
) (bool, error) {
	const op = "postgres.TripRepo.HasBusConflict"

	db := r.handle()

	var conflict bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM trips
			WHERE bus_id = $1
			  AND status = $2
			  AND id <> $3
			  AND departure_at < $5
			  AND $4 < arrival_at
		 )`,
		busID, domain.TripActive, excludeTripID, departureAt, arrivalAt,
	).Scan(&conflict)
	if err != nil {
		return false, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return conflict, nil
}
