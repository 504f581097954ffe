package trips

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/busgo/internal/domain"
	"github.com/kirinyoku/busgo/internal/repository"
)

type fakeTripStore struct {
	trips     map[uuid.UUID]*domain.Trip
	createErr error
	conflict  bool
	calls     []string
}

func newFakeTripStore() *fakeTripStore {
	return &fakeTripStore{trips: make(map[uuid.UUID]*domain.Trip)}
}

func (s *fakeTripStore) Create(ctx context.Context, t *domain.Trip) error {
	s.calls = append(s.calls, "create")
	if s.createErr != nil {
		return s.createErr
	}
	cp := *t
	s.trips[t.ID] = &cp
	return nil
}

func (s *fakeTripStore) Get(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	t, ok := s.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *fakeTripStore) List(ctx context.Context, f domain.TripFilter, limit, offset int) ([]domain.Trip, error) {
	var out []domain.Trip
	for _, t := range s.trips {
		out = append(out, *t)
	}
	return out, nil
}

func (s *fakeTripStore) Update(ctx context.Context, t *domain.Trip) error {
	s.calls = append(s.calls, "update")
	if _, ok := s.trips[t.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *t
	s.trips[t.ID] = &cp
	return nil
}

func (s *fakeTripStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.calls = append(s.calls, "delete")
	if _, ok := s.trips[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.trips, id)
	return nil
}

func (s *fakeTripStore) CompleteActive(ctx context.Context, id uuid.UUID) (bool, error) {
	s.calls = append(s.calls, "completeActive")
	t, ok := s.trips[id]
	if !ok || t.Status != domain.TripActive {
		return false, nil
	}
	t.Status = domain.TripCompleted
	return true, nil
}

func (s *fakeTripStore) HasBusConflict(ctx context.Context, busID uuid.UUID, departureAt, arrivalAt time.Time, excludeTripID uuid.UUID) (bool, error) {
	return s.conflict, nil
}

type fakeTicketStore struct {
	calls   *[]string
	deleted map[uuid.UUID]bool
}

func (s *fakeTicketStore) DeleteByTrip(ctx context.Context, tripID uuid.UUID) (int64, error) {
	*s.calls = append(*s.calls, "tickets.deleteByTrip")
	s.deleted[tripID] = true
	return 3, nil
}

type fakeCatalog struct {
	missingBus  bool
	missingCity bool
}

func (c *fakeCatalog) GetBus(ctx context.Context, id uuid.UUID) (*domain.Bus, error) {
	if c.missingBus {
		return nil, repository.ErrNotFound
	}
	return &domain.Bus{ID: id, Capacity: 40}, nil
}

func (c *fakeCatalog) GetCity(ctx context.Context, id uuid.UUID) (*domain.City, error) {
	if c.missingCity {
		return nil, repository.ErrNotFound
	}
	return &domain.City{ID: id, Name: "city"}, nil
}

type fakeScheduler struct {
	calls       *[]string
	scheduled   map[uuid.UUID]time.Time
	canceled    map[uuid.UUID]int
	rescheduled map[uuid.UUID]time.Time
}

func newFakeScheduler(calls *[]string) *fakeScheduler {
	return &fakeScheduler{
		calls:       calls,
		scheduled:   make(map[uuid.UUID]time.Time),
		canceled:    make(map[uuid.UUID]int),
		rescheduled: make(map[uuid.UUID]time.Time),
	}
}

func (s *fakeScheduler) ScheduleStatusUpdate(ctx context.Context, tripID uuid.UUID, arrivalAt time.Time) error {
	*s.calls = append(*s.calls, "scheduler.schedule")
	s.scheduled[tripID] = arrivalAt
	return nil
}

func (s *fakeScheduler) UpdateScheduledTime(ctx context.Context, tripID uuid.UUID, newArrivalAt time.Time) error {
	*s.calls = append(*s.calls, "scheduler.update")
	s.rescheduled[tripID] = newArrivalAt
	return nil
}

func (s *fakeScheduler) CancelScheduledTime(ctx context.Context, tripID uuid.UUID) error {
	*s.calls = append(*s.calls, "scheduler.cancel")
	s.canceled[tripID]++
	return nil
}

type tripFixture struct {
	svc   *Service
	store *fakeTripStore
	sched *fakeScheduler
	cat   *fakeCatalog
	calls []string
	now   time.Time
}

func newTripFixture(t *testing.T) *tripFixture {
	t.Helper()

	f := &tripFixture{
		store: newFakeTripStore(),
		cat:   &fakeCatalog{},
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.sched = newFakeScheduler(&f.calls)
	f.store.calls = nil

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tickets := &fakeTicketStore{calls: &f.calls, deleted: make(map[uuid.UUID]bool)}

	f.svc = New(f.store, tickets, f.cat, f.sched, nil, nil, logger, Config{
		Now: func() time.Time { return f.now },
	})

	return f
}

func (f *tripFixture) validInput() CreateTripInput {
	return CreateTripInput{
		DepartureCityID: uuid.New(),
		ArrivalCityID:   uuid.New(),
		BusID:           uuid.New(),
		DepartureAt:     f.now.Add(2 * time.Hour),
		ArrivalAt:       f.now.Add(10 * time.Hour),
		PriceCents:      4200,
	}
}

func TestCreateSchedulesAfterPersist(t *testing.T) {
	f := newTripFixture(t)

	trip, err := f.svc.Create(context.Background(), f.validInput())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}

	if trip.Status != domain.TripActive {
		t.Fatalf("status = %q, want active", trip.Status)
	}
	if trip.Duration != "8h 0min" {
		t.Fatalf("duration = %q, want 8h 0min", trip.Duration)
	}

	at, ok := f.sched.scheduled[trip.ID]
	if !ok {
		t.Fatal("status update was not scheduled")
	}
	if !at.Equal(trip.ArrivalAt) {
		t.Fatalf("scheduled at %v, want %v", at, trip.ArrivalAt)
	}
}

func TestCreatePersistFailureSkipsScheduling(t *testing.T) {
	f := newTripFixture(t)
	f.store.createErr = errors.New("boom")

	if _, err := f.svc.Create(context.Background(), f.validInput()); err == nil {
		t.Fatal("Create() = nil, want error")
	}

	if len(f.sched.scheduled) != 0 {
		t.Fatal("scheduler was called although the trip never persisted")
	}
}

func TestCreateBusConflict(t *testing.T) {
	f := newTripFixture(t)
	f.store.conflict = true

	_, err := f.svc.Create(context.Background(), f.validInput())
	if !errors.Is(err, ErrBusUnavailable) {
		t.Fatalf("Create() = %v, want ErrBusUnavailable", err)
	}

	if len(f.store.trips) != 0 {
		t.Fatal("conflicting trip was persisted")
	}
}

func TestCreateDanglingRefs(t *testing.T) {
	f := newTripFixture(t)
	f.cat.missingCity = true

	if _, err := f.svc.Create(context.Background(), f.validInput()); !errors.Is(err, ErrCityNotFound) {
		t.Fatalf("Create() = %v, want ErrCityNotFound", err)
	}

	f = newTripFixture(t)
	f.cat.missingBus = true

	if _, err := f.svc.Create(context.Background(), f.validInput()); !errors.Is(err, ErrBusNotFound) {
		t.Fatalf("Create() = %v, want ErrBusNotFound", err)
	}
}

func TestUpdateCompletedTripRejected(t *testing.T) {
	f := newTripFixture(t)

	trip, err := f.svc.Create(context.Background(), f.validInput())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	f.store.trips[trip.ID].Status = domain.TripCompleted

	price := 9900
	_, err = f.svc.Update(context.Background(), trip.ID, UpdateTripInput{PriceCents: &price})
	if !errors.Is(err, ErrTripCompleted) {
		t.Fatalf("Update() = %v, want ErrTripCompleted", err)
	}
}

func TestUpdateArrivalChangeReschedules(t *testing.T) {
	f := newTripFixture(t)

	trip, err := f.svc.Create(context.Background(), f.validInput())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}

	newArrival := trip.ArrivalAt.Add(2 * time.Hour)
	updated, err := f.svc.Update(context.Background(), trip.ID, UpdateTripInput{ArrivalAt: &newArrival})
	if err != nil {
		t.Fatalf("Update() = %v", err)
	}

	at, ok := f.sched.rescheduled[trip.ID]
	if !ok {
		t.Fatal("arrival change did not reschedule the jobs")
	}
	if !at.Equal(newArrival) {
		t.Fatalf("rescheduled at %v, want %v", at, newArrival)
	}
	if updated.Duration != "10h 0min" {
		t.Fatalf("duration = %q, want recomputed 10h 0min", updated.Duration)
	}
}

func TestUpdatePriceOnlyDoesNotReschedule(t *testing.T) {
	f := newTripFixture(t)

	trip, err := f.svc.Create(context.Background(), f.validInput())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}

	price := 5000
	if _, err := f.svc.Update(context.Background(), trip.ID, UpdateTripInput{PriceCents: &price}); err != nil {
		t.Fatalf("Update() = %v", err)
	}

	if len(f.sched.rescheduled) != 0 {
		t.Fatal("price-only patch moved the scheduled jobs")
	}
}

func TestDeleteCascadesTicketsThenJobs(t *testing.T) {
	f := newTripFixture(t)

	trip, err := f.svc.Create(context.Background(), f.validInput())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}

	f.calls = nil
	if err := f.svc.Delete(context.Background(), trip.ID); err != nil {
		t.Fatalf("Delete() = %v", err)
	}

	want := []string{"tickets.deleteByTrip", "scheduler.cancel"}
	if len(f.calls) != len(want) {
		t.Fatalf("cascade calls = %v, want %v", f.calls, want)
	}
	for i := range want {
		if f.calls[i] != want[i] {
			t.Fatalf("cascade calls = %v, want %v", f.calls, want)
		}
	}

	if _, ok := f.store.trips[trip.ID]; ok {
		t.Fatal("trip still present after delete")
	}

	if err := f.svc.Delete(context.Background(), trip.ID); !errors.Is(err, ErrTripNotFound) {
		t.Fatalf("second Delete() = %v, want ErrTripNotFound", err)
	}
}

func TestCompleteTransitionsOnlyActiveTrips(t *testing.T) {
	f := newTripFixture(t)

	trip, err := f.svc.Create(context.Background(), f.validInput())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}

	if err := f.svc.Complete(context.Background(), trip.ID); err != nil {
		t.Fatalf("Complete() = %v", err)
	}
	if got := f.store.trips[trip.ID].Status; got != domain.TripCompleted {
		t.Fatalf("status = %q, want completed", got)
	}

	// canceled stays canceled
	f.store.trips[trip.ID].Status = domain.TripCanceled
	if err := f.svc.Complete(context.Background(), trip.ID); err != nil {
		t.Fatalf("Complete() on canceled = %v", err)
	}
	if got := f.store.trips[trip.ID].Status; got != domain.TripCanceled {
		t.Fatalf("status = %q, want canceled untouched", got)
	}

	// a trip deleted since scheduling is a no-op
	if err := f.svc.Complete(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Complete() on missing trip = %v", err)
	}
}
