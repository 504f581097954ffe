package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/busgo/internal/domain"
)

type jobKey struct {
	name   string
	tripID uuid.UUID
}

type fakeJobStore struct {
	jobs       map[jobKey]time.Time
	upsertErr  error
	replaceErr error
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[jobKey]time.Time)}
}

func (s *fakeJobStore) Upsert(ctx context.Context, name string, tripID uuid.UUID, runAt time.Time) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.jobs[jobKey{name, tripID}] = runAt
	return nil
}

func (s *fakeJobStore) Replace(ctx context.Context, tripID uuid.UUID, runAt time.Time, names ...string) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	for k := range s.jobs {
		if k.tripID == tripID {
			delete(s.jobs, k)
		}
	}
	for _, name := range names {
		s.jobs[jobKey{name, tripID}] = runAt
	}
	return nil
}

func (s *fakeJobStore) DeleteByTrip(ctx context.Context, tripID uuid.UUID) (int64, error) {
	var n int64
	for k := range s.jobs {
		if k.tripID == tripID {
			delete(s.jobs, k)
			n++
		}
	}
	return n, nil
}

func newSchedulerService(store *fakeJobStore) *Service {
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestScheduleStatusUpdateEnqueuesBothKinds(t *testing.T) {
	store := newFakeJobStore()
	svc := newSchedulerService(store)

	tripID := uuid.New()
	arrival := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	if err := svc.ScheduleStatusUpdate(context.Background(), tripID, arrival); err != nil {
		t.Fatalf("ScheduleStatusUpdate() = %v", err)
	}

	for _, kind := range []string{domain.JobTripStatus, domain.JobTicketStatus} {
		at, ok := store.jobs[jobKey{kind, tripID}]
		if !ok {
			t.Fatalf("job %q not scheduled", kind)
		}
		if !at.Equal(arrival) {
			t.Fatalf("job %q scheduled at %v, want %v", kind, at, arrival)
		}
	}
}

func TestScheduleStatusUpdateIsIdempotent(t *testing.T) {
	store := newFakeJobStore()
	svc := newSchedulerService(store)

	tripID := uuid.New()
	first := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	second := first.Add(3 * time.Hour)

	if err := svc.ScheduleStatusUpdate(context.Background(), tripID, first); err != nil {
		t.Fatalf("ScheduleStatusUpdate() = %v", err)
	}
	if err := svc.ScheduleStatusUpdate(context.Background(), tripID, second); err != nil {
		t.Fatalf("second ScheduleStatusUpdate() = %v", err)
	}

	if len(store.jobs) != 2 {
		t.Fatalf("job count = %d, want 2 (one per kind)", len(store.jobs))
	}
	if at := store.jobs[jobKey{domain.JobTripStatus, tripID}]; !at.Equal(second) {
		t.Fatalf("run at %v, want moved to %v", at, second)
	}
}

func TestUpdateScheduledTimeReplacesBothKinds(t *testing.T) {
	store := newFakeJobStore()
	svc := newSchedulerService(store)

	tripID := uuid.New()
	old := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	if err := svc.ScheduleStatusUpdate(context.Background(), tripID, old); err != nil {
		t.Fatalf("ScheduleStatusUpdate() = %v", err)
	}

	moved := old.Add(6 * time.Hour)
	if err := svc.UpdateScheduledTime(context.Background(), tripID, moved); err != nil {
		t.Fatalf("UpdateScheduledTime() = %v", err)
	}

	if len(store.jobs) != 2 {
		t.Fatalf("job count = %d, want 2", len(store.jobs))
	}
	for _, kind := range []string{domain.JobTripStatus, domain.JobTicketStatus} {
		if at := store.jobs[jobKey{kind, tripID}]; !at.Equal(moved) {
			t.Fatalf("job %q at %v, want %v", kind, at, moved)
		}
	}
}

func TestCancelScheduledTimeIsIdempotent(t *testing.T) {
	store := newFakeJobStore()
	svc := newSchedulerService(store)

	tripID := uuid.New()
	if err := svc.ScheduleStatusUpdate(context.Background(), tripID,
		time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("ScheduleStatusUpdate() = %v", err)
	}

	if err := svc.CancelScheduledTime(context.Background(), tripID); err != nil {
		t.Fatalf("first CancelScheduledTime() = %v", err)
	}
	if err := svc.CancelScheduledTime(context.Background(), tripID); err != nil {
		t.Fatalf("second CancelScheduledTime() = %v", err)
	}

	if len(store.jobs) != 0 {
		t.Fatalf("job count = %d, want 0", len(store.jobs))
	}
}

func TestScheduleStatusUpdatePropagatesStoreErrors(t *testing.T) {
	store := newFakeJobStore()
	store.upsertErr = errors.New("db down")
	svc := newSchedulerService(store)

	if err := svc.ScheduleStatusUpdate(context.Background(), uuid.New(), time.Now()); err == nil {
		t.Fatal("ScheduleStatusUpdate() = nil, want error")
	}
}
