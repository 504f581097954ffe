package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kirinyoku/busgo/internal/domain"
	"github.com/kirinyoku/busgo/internal/repository"
)

// Store persists buses and cities.
type Store interface {
	CreateBus(ctx context.Context, b *domain.Bus) error
	GetBus(ctx context.Context, id uuid.UUID) (*domain.Bus, error)
	ListBuses(ctx context.Context, limit, offset int) ([]domain.Bus, error)
	UpdateBus(ctx context.Context, b *domain.Bus) error
	DeleteBus(ctx context.Context, id uuid.UUID) error

	CreateCity(ctx context.Context, c *domain.City) error
	GetCity(ctx context.Context, id uuid.UUID) (*domain.City, error)
	ListCities(ctx context.Context, limit, offset int) ([]domain.City, error)
	DeleteCity(ctx context.Context, id uuid.UUID) error
}

// Service manages the reference data trips are built from.
type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// CreateBus registers a new bus.
//
// Returns:
//   - error: catalog.ErrDuplicatePlate if the plate is already registered.
func (s *Service) CreateBus(ctx context.Context, plate, model string, capacity int) (*domain.Bus, error) {
	const op = "service.catalog.CreateBus"

	b := &domain.Bus{
		ID:       uuid.New(),
		Plate:    plate,
		Model:    model,
		Capacity: capacity,
	}

	if err := s.store.CreateBus(ctx, b); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, ErrDuplicatePlate)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return b, nil
}

func (s *Service) GetBus(ctx context.Context, id uuid.UUID) (*domain.Bus, error) {
	const op = "service.catalog.GetBus"

	b, err := s.store.GetBus(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBusNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return b, nil
}

func (s *Service) ListBuses(ctx context.Context, limit, offset int) ([]domain.Bus, error) {
	const op = "service.catalog.ListBuses"

	out, err := s.store.ListBuses(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// UpdateBus replaces a bus's plate, model and capacity.
func (s *Service) UpdateBus(ctx context.Context, b *domain.Bus) error {
	const op = "service.catalog.UpdateBus"

	if err := s.store.UpdateBus(ctx, b); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%s:%w", op, ErrBusNotFound)
		case errors.Is(err, repository.ErrConflict):
			return fmt.Errorf("%s:%w", op, ErrDuplicatePlate)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// DeleteBus removes a bus. Buses referenced by trips cannot be deleted.
func (s *Service) DeleteBus(ctx context.Context, id uuid.UUID) error {
	const op = "service.catalog.DeleteBus"

	if err := s.store.DeleteBus(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%s:%w", op, ErrBusNotFound)
		case errors.Is(err, repository.ErrConflict):
			return fmt.Errorf("%s:%w", op, ErrBusInUse)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// CreateCity registers a new city.
//
// Returns:
//   - error: catalog.ErrDuplicateCity if the name is already registered.
func (s *Service) CreateCity(ctx context.Context, name string) (*domain.City, error) {
	const op = "service.catalog.CreateCity"

	c := &domain.City{
		ID:   uuid.New(),
		Name: name,
	}

	if err := s.store.CreateCity(ctx, c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, ErrDuplicateCity)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return c, nil
}

func (s *Service) GetCity(ctx context.Context, id uuid.UUID) (*domain.City, error) {
	const op = "service.catalog.GetCity"

	c, err := s.store.GetCity(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrCityNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return c, nil
}

func (s *Service) ListCities(ctx context.Context, limit, offset int) ([]domain.City, error) {
	const op = "service.catalog.ListCities"

	out, err := s.store.ListCities(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// DeleteCity removes a city. Cities referenced by trips cannot be deleted.
func (s *Service) DeleteCity(ctx context.Context, id uuid.UUID) error {
	const op = "service.catalog.DeleteCity"

	if err := s.store.DeleteCity(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("%s:%w", op, ErrCityNotFound)
		case errors.Is(err, repository.ErrConflict):
			return fmt.Errorf("%s:%w", op, ErrCityInUse)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
