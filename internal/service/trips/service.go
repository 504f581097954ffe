package trips

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/busgo/internal/domain"
	redisx "github.com/kirinyoku/busgo/internal/redis"
	"github.com/kirinyoku/busgo/internal/repository"
	redisrepo "github.com/kirinyoku/busgo/internal/repository/redis"
)

// TripStore is the persistence surface the coordinator needs.
type TripStore interface {
	Create(ctx context.Context, t *domain.Trip) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Trip, error)
	List(ctx context.Context, f domain.TripFilter, limit, offset int) ([]domain.Trip, error)
	Update(ctx context.Context, t *domain.Trip) error
	Delete(ctx context.Context, id uuid.UUID) error
	CompleteActive(ctx context.Context, id uuid.UUID) (bool, error)
	HasBusConflict(ctx context.Context, busID uuid.UUID, departureAt, arrivalAt time.Time, excludeTripID uuid.UUID) (bool, error)
}

type TicketStore interface {
	DeleteByTrip(ctx context.Context, tripID uuid.UUID) (int64, error)
}

type Catalog interface {
	GetBus(ctx context.Context, id uuid.UUID) (*domain.Bus, error)
	GetCity(ctx context.Context, id uuid.UUID) (*domain.City, error)
}

// Scheduler owns the deferred status-transition jobs for a trip.
type Scheduler interface {
	ScheduleStatusUpdate(ctx context.Context, tripID uuid.UUID, arrivalAt time.Time) error
	UpdateScheduledTime(ctx context.Context, tripID uuid.UUID, newArrivalAt time.Time) error
	CancelScheduledTime(ctx context.Context, tripID uuid.UUID) error
}

type Config struct {
	TripSummaryTTL time.Duration
	Now            func() time.Time
}

// Service coordinates trip, ticket and scheduled-job state across the trip
// lifecycle.
type Service struct {
	store     TripStore
	tickets   TicketStore
	catalog   Catalog
	scheduler Scheduler
	cache     *redisrepo.Cache
	pubsub    *redisx.TripsPubSub
	logger    *slog.Logger
	cfg       Config
}

func New(
	store TripStore,
	tickets TicketStore,
	catalog Catalog,
	scheduler Scheduler,
	cache *redisrepo.Cache,
	pubsub *redisx.TripsPubSub,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.TripSummaryTTL <= 0 {
		cfg.TripSummaryTTL = 60 * time.Second
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		store:     store,
		tickets:   tickets,
		catalog:   catalog,
		scheduler: scheduler,
		cache:     cache,
		pubsub:    pubsub,
		logger:    logger,
		cfg:       cfg,
	}
}

type CreateTripInput struct {
	DepartureCityID uuid.UUID
	ArrivalCityID   uuid.UUID
	BusID           uuid.UUID
	DepartureAt     time.Time
	ArrivalAt       time.Time
	PriceCents      int
}

type UpdateTripInput struct {
	DepartureCityID *uuid.UUID
	ArrivalCityID   *uuid.UUID
	BusID           *uuid.UUID
	DepartureAt     *time.Time
	ArrivalAt       *time.Time
	PriceCents      *int
}

// Create validates timings and bus availability, persists the trip and only
// then schedules the status-transition jobs, so a job never references a
// trip that failed to persist.
//
// Returns:
//   - *domain.Trip: the created trip.
//   - error: *ValidationError on bad timings.
//   - error: trips.ErrCityNotFound / trips.ErrBusNotFound on dangling refs.
//   - error: trips.ErrBusUnavailable on a schedule overlap.
func (s *Service) Create(ctx context.Context, in CreateTripInput) (*domain.Trip, error) {
	const op = "service.trips.Create"

	if err := ValidateTimings(in.DepartureAt, in.ArrivalAt, s.cfg.Now()); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	for _, cityID := range []uuid.UUID{in.DepartureCityID, in.ArrivalCityID} {
		if _, err := s.catalog.GetCity(ctx, cityID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%s:%w", op, ErrCityNotFound)
			}
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	if _, err := s.catalog.GetBus(ctx, in.BusID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBusNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	conflict, err := s.store.HasBusConflict(ctx, in.BusID, in.DepartureAt, in.ArrivalAt, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if conflict {
		return nil, fmt.Errorf("%s:%w", op, ErrBusUnavailable)
	}

	trip := &domain.Trip{
		ID:              uuid.New(),
		DepartureCityID: in.DepartureCityID,
		ArrivalCityID:   in.ArrivalCityID,
		BusID:           in.BusID,
		DepartureAt:     in.DepartureAt,
		ArrivalAt:       in.ArrivalAt,
		Duration:        domain.FormatDuration(in.DepartureAt, in.ArrivalAt),
		PriceCents:      in.PriceCents,
		Status:          domain.TripActive,
	}

	if err := s.store.Create(ctx, trip); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := s.scheduler.ScheduleStatusUpdate(ctx, trip.ID, trip.ArrivalAt); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.invalidate(ctx, trip.ID)

	return trip, nil
}

// Get retrieves a trip, through the cache when one is configured.
//
// Returns:
//   - error: trips.ErrTripNotFound if the trip does not exist.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	const op = "service.trips.Get"

	load := func(ctx context.Context) (domain.Trip, error) {
		t, err := s.store.Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.Trip{}, ErrTripNotFound
			}
			return domain.Trip{}, err
		}
		return *t, nil
	}

	if s.cache == nil {
		t, err := load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		return &t, nil
	}

	t, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyTripSummary(id), s.cfg.TripSummaryTTL, load)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &t, nil
}

// List lists trips matching the filter.
func (s *Service) List(
	ctx context.Context,
	f domain.TripFilter,
	limit, offset int,
) ([]domain.Trip, error) {
	const op = "service.trips.List"

	out, err := s.store.List(ctx, f, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Update applies a patch to a trip. Completed trips are immutable; changed
// timings are re-validated with the trip's own row excluded from the bus
// conflict scan; a persisted arrival change moves the scheduled jobs.
//
// Returns:
//   - error: trips.ErrTripNotFound if the trip does not exist.
//   - error: trips.ErrTripCompleted for a terminal trip.
//   - error: *ValidationError / trips.ErrBusUnavailable as on create.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateTripInput) (*domain.Trip, error) {
	const op = "service.trips.Update"

	trip, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrTripNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if trip.Status == domain.TripCompleted {
		return nil, fmt.Errorf("%s:%w", op, ErrTripCompleted)
	}

	prevArrival := trip.ArrivalAt

	if in.DepartureCityID != nil {
		if _, err := s.catalog.GetCity(ctx, *in.DepartureCityID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%s:%w", op, ErrCityNotFound)
			}
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		trip.DepartureCityID = *in.DepartureCityID
	}

	if in.ArrivalCityID != nil {
		if _, err := s.catalog.GetCity(ctx, *in.ArrivalCityID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%s:%w", op, ErrCityNotFound)
			}
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		trip.ArrivalCityID = *in.ArrivalCityID
	}

	if in.BusID != nil {
		if _, err := s.catalog.GetBus(ctx, *in.BusID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%s:%w", op, ErrBusNotFound)
			}
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		trip.BusID = *in.BusID
	}

	timingsChanged := in.DepartureAt != nil || in.ArrivalAt != nil
	if in.DepartureAt != nil {
		trip.DepartureAt = *in.DepartureAt
	}
	if in.ArrivalAt != nil {
		trip.ArrivalAt = *in.ArrivalAt
	}
	if in.PriceCents != nil {
		trip.PriceCents = *in.PriceCents
	}

	if timingsChanged {
		if err := ValidateTimings(trip.DepartureAt, trip.ArrivalAt, s.cfg.Now()); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	if timingsChanged || in.BusID != nil {
		conflict, err := s.store.HasBusConflict(ctx, trip.BusID, trip.DepartureAt, trip.ArrivalAt, trip.ID)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if conflict {
			return nil, fmt.Errorf("%s:%w", op, ErrBusUnavailable)
		}
	}

	// Duration is always recomputed before persistence.
	trip.Duration = domain.FormatDuration(trip.DepartureAt, trip.ArrivalAt)

	if err := s.store.Update(ctx, trip); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrTripNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if !trip.ArrivalAt.Equal(prevArrival) {
		if err := s.scheduler.UpdateScheduledTime(ctx, trip.ID, trip.ArrivalAt); err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	s.invalidate(ctx, trip.ID)

	return trip, nil
}

// Delete removes a trip, then cascades: dependent tickets first, scheduled
// jobs second. Each step is idempotent so an interrupted cascade can be
// re-driven.
//
// Returns:
//   - error: trips.ErrTripNotFound if no record was deleted.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "service.trips.Delete"

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrTripNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	if _, err := s.tickets.DeleteByTrip(ctx, id); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := s.scheduler.CancelScheduledTime(ctx, id); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.invalidate(ctx, id)

	return nil
}

// Complete is the tripStatusJob handler: an active trip becomes completed,
// canceled stays canceled, and a trip deleted since scheduling is a no-op.
func (s *Service) Complete(ctx context.Context, tripID uuid.UUID) error {
	const op = "service.trips.Complete"

	trip, err := s.store.Get(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	if trip.Status != domain.TripActive {
		return nil
	}

	if _, err := s.store.CompleteActive(ctx, tripID); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *Service) invalidate(ctx context.Context, tripID uuid.UUID) {
	if s.cache != nil {
		_ = s.cache.InvalidateTrip(ctx, tripID)
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishTripChanged(ctx, tripID)
	}
}
