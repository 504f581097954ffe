package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/busgo/internal/domain"
)

// JobRepo persists scheduled status-transition jobs. Rows are keyed
// (job_name, trip_id) so a trip never accumulates competing jobs of the
// same kind; rescheduling upserts over the previous row.
type JobRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *JobRepo) With(db DB) *JobRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *JobRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Upsert enqueues a job or moves an existing one to a new fire time. A
// previously failed row is revived as pending.
func (r *JobRepo) Upsert(
	ctx context.Context,
	name string,
	tripID uuid.UUID,
	runAt time.Time,
) error {
	const op = "postgres.JobRepo.Upsert"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO scheduled_jobs(id, job_name, trip_id, run_at, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (job_name, trip_id) DO UPDATE
		 SET run_at = EXCLUDED.run_at,
		     status = EXCLUDED.status,
		     last_error = NULL,
		     updated_at = now()`,
		uuid.New(), name, tripID, runAt, domain.JobPending,
	)
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// Replace cancels every job of the trip and re-enqueues the given kinds at
// runAt, all inside one transaction so no job can fire between the cancel
// and the reschedule with a stale time.
func (r *JobRepo) Replace(
	ctx context.Context,
	tripID uuid.UUID,
	runAt time.Time,
	names ...string,
) error {
	const op = "postgres.JobRepo.Replace"

	if r.db != nil {
		if err := r.replaceCore(ctx, r.db, tripID, runAt, names); err != nil {
			return fmt.Errorf("%s:%w", op, translateDBErr(err))
		}
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer tx.Rollback(ctx)

	if err := r.replaceCore(ctx, tx, tripID, runAt, names); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// DeleteByTrip cancels every outstanding job of a trip. Zero matches is a
// successful no-op.
func (r *JobRepo) DeleteByTrip(ctx context.Context, tripID uuid.UUID) (int64, error) {
	const op = "postgres.JobRepo.DeleteByTrip"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM scheduled_jobs WHERE trip_id = $1`, tripID)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return tag.RowsAffected(), nil
}

// ClaimDue locks and returns up to limit pending jobs whose fire time has
// passed. Must run inside a transaction; SKIP LOCKED keeps concurrent
// workers from claiming the same rows.
func (r *JobRepo) ClaimDue(ctx context.Context, limit int) ([]domain.ScheduledJob, error) {
	const op = "postgres.JobRepo.ClaimDue"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, job_name, trip_id, run_at, status, COALESCE(last_error, ''), created_at, updated_at
		 FROM scheduled_jobs
		 WHERE status = $1 AND run_at <= now()
		 ORDER BY run_at
		 LIMIT $2
		 FOR UPDATE SKIP LOCKED`,
		domain.JobPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	defer rows.Close()

	var out []domain.ScheduledJob
	for rows.Next() {
		var j domain.ScheduledJob
		if err := rows.Scan(
			&j.ID, &j.Name, &j.TripID, &j.RunAt,
			&j.Status, &j.LastError, &j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s:%w", op, translateDBErr(err))
		}

		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Delete removes a fired job instance so it cannot re-fire.
func (r *JobRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.JobRepo.Delete"

	db := r.handle()

	if _, err := db.Exec(ctx, `DELETE FROM scheduled_jobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

// MarkFailed records a handler failure. The row stays terminal for this
// instance but does not block future schedule calls for the trip.
func (r *JobRepo) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	const op = "postgres.JobRepo.MarkFailed"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`UPDATE scheduled_jobs
		 SET status = $2, last_error = $3, updated_at = now()
		 WHERE id = $1`,
		id, domain.JobFailed, cause,
	); err != nil {
		return fmt.Errorf("%s:%w", op, translateDBErr(err))
	}

	return nil
}

func (r *JobRepo) replaceCore(
	ctx context.Context,
	db DB,
	tripID uuid.UUID,
	runAt time.Time,
	names []string,
) error {
	if _, err := db.Exec(ctx,
		`DELETE FROM scheduled_jobs WHERE trip_id = $1`, tripID,
	); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, name := range names {
		batch.Queue(
			`INSERT INTO scheduled_jobs(id, job_name, trip_id, run_at, status)
			 VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), name, tripID, runAt, domain.JobPending,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	return nil
}
