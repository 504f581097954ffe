package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/busgo/internal/domain"
	"github.com/kirinyoku/busgo/internal/repository"
)

type ReviewRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ReviewRepo) With(db DB) *ReviewRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReviewRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Create inserts a review and recomputes the parent trip's rating in the
// same transaction.
func (r *ReviewRepo) Create(ctx context.Context, rv *domain.Review) error {
	const op = "postgres.ReviewRepo.Create"

	if r.db != nil {
		return wrapDBErr(op, r.createCore(ctx, r.db, rv))
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return wrapDBErr(op, err)
	}

	defer tx.Rollback(ctx)

	if err := r.createCore(ctx, tx, rv); err != nil {
		return wrapDBErr(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Delete removes a review and recomputes the trip's rating transactionally.
//
// Returns:
//   - uuid.UUID: the trip the review belonged to.
//   - error: repository.ErrNotFound if the review does not exist.
func (r *ReviewRepo) Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	const op = "postgres.ReviewRepo.Delete"

	if r.db != nil {
		tripID, err := r.deleteCore(ctx, r.db, id)
		return tripID, wrapDBErr(op, err)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return uuid.Nil, wrapDBErr(op, err)
	}

	defer tx.Rollback(ctx)

	tripID, err := r.deleteCore(ctx, tx, id)
	if err != nil {
		return uuid.Nil, wrapDBErr(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, wrapDBErr(op, err)
	}

	return tripID, nil
}

func (r *ReviewRepo) ListByTrip(
	ctx context.Context,
	tripID uuid.UUID,
	limit, offset int,
) ([]domain.Review, error) {
	const op = "postgres.ReviewRepo.ListByTrip"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, trip_id, user_id, rating, comment, created_at, updated_at
		 FROM reviews
		 WHERE trip_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		tripID, limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID, &rv.TripID, &rv.UserID, &rv.Rating,
			&rv.Comment, &rv.CreatedAt, &rv.UpdatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *ReviewRepo) createCore(ctx context.Context, db DB, rv *domain.Review) error {
	if err := db.QueryRow(ctx,
		`INSERT INTO reviews(id, trip_id, user_id, rating, comment)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`,
		rv.ID, rv.TripID, rv.UserID, rv.Rating, rv.Comment,
	).Scan(&rv.CreatedAt, &rv.UpdatedAt); err != nil {
		return err
	}

	return r.recomputeRating(ctx, db, rv.TripID)
}

func (r *ReviewRepo) deleteCore(ctx context.Context, db DB, id uuid.UUID) (uuid.UUID, error) {
	var tripID uuid.UUID
	if err := db.QueryRow(ctx,
		`DELETE FROM reviews WHERE id = $1 RETURNING trip_id`, id,
	).Scan(&tripID); err != nil {
		if err == pgx.ErrNoRows {
			return uuid.Nil, repository.ErrNotFound
		}
		return uuid.Nil, err
	}

	return tripID, r.recomputeRating(ctx, db, tripID)
}

func (r *ReviewRepo) recomputeRating(ctx context.Context, db DB, tripID uuid.UUID) error {
	rows, err := db.Query(ctx,
		`SELECT rating FROM reviews WHERE trip_id = $1`, tripID,
	)
	if err != nil {
		return err
	}

	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return err
		}
		ratings = append(ratings, v)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = db.Exec(ctx,
		`UPDATE trips SET rating = $2, updated_at = now() WHERE id = $1`,
		tripID, domain.AverageRating(ratings),
	)

	return err
}
