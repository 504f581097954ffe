package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/busgo/internal/domain"
	"github.com/kirinyoku/busgo/internal/repository"
)

// CatalogRepo holds the reference entities trips point at: buses and cities.
type CatalogRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *CatalogRepo) CreateBus(ctx context.Context, b *domain.Bus) error {
	const op = "postgres.CatalogRepo.CreateBus"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO buses(id, plate, model, capacity)
		 VALUES ($1, $2, $3, $4)`,
		b.ID, b.Plate, b.Model, b.Capacity,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CatalogRepo) GetBus(ctx context.Context, id uuid.UUID) (*domain.Bus, error) {
	const op = "postgres.CatalogRepo.GetBus"

	db := r.handle()

	var b domain.Bus
	err := db.QueryRow(ctx,
		`SELECT id, plate, model, capacity FROM buses WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.Plate, &b.Model, &b.Capacity)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &b, nil
}

func (r *CatalogRepo) ListBuses(ctx context.Context, limit, offset int) ([]domain.Bus, error) {
	const op = "postgres.CatalogRepo.ListBuses"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, plate, model, capacity
		 FROM buses
		 ORDER BY plate
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Bus
	for rows.Next() {
		var b domain.Bus
		if err := rows.Scan(&b.ID, &b.Plate, &b.Model, &b.Capacity); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CatalogRepo) UpdateBus(ctx context.Context, b *domain.Bus) error {
	const op = "postgres.CatalogRepo.UpdateBus"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE buses SET plate = $2, model = $3, capacity = $4 WHERE id = $1`,
		b.ID, b.Plate, b.Model, b.Capacity,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *CatalogRepo) DeleteBus(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.CatalogRepo.DeleteBus"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM buses WHERE id = $1`, id)
	if err != nil {
		if isFKViolation(err) {
			return wrapDBErr(op, repository.ErrConflict)
		}
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}

func (r *CatalogRepo) CreateCity(ctx context.Context, c *domain.City) error {
	const op = "postgres.CatalogRepo.CreateCity"

	db := r.handle()

	if _, err := db.Exec(ctx,
		`INSERT INTO cities(id, name) VALUES ($1, $2)`,
		c.ID, c.Name,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CatalogRepo) GetCity(ctx context.Context, id uuid.UUID) (*domain.City, error) {
	const op = "postgres.CatalogRepo.GetCity"

	db := r.handle()

	var c domain.City
	err := db.QueryRow(ctx, `SELECT id, name FROM cities WHERE id = $1`, id).
		Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &c, nil
}

func (r *CatalogRepo) ListCities(ctx context.Context, limit, offset int) ([]domain.City, error) {
	const op = "postgres.CatalogRepo.ListCities"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, name FROM cities ORDER BY name LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.City
	for rows.Next() {
		var c domain.City
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, wrapDBErr(op, err)
		}

		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *CatalogRepo) DeleteCity(ctx context.Context, id uuid.UUID) error {
	const op = "postgres.CatalogRepo.DeleteCity"

	db := r.handle()

	tag, err := db.Exec(ctx, `DELETE FROM cities WHERE id = $1`, id)
	if err != nil {
		if isFKViolation(err) {
			return wrapDBErr(op, repository.ErrConflict)
		}
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return wrapDBErr(op, repository.ErrNotFound)
	}

	return nil
}
