package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/busgo/internal/domain"
)

// JobStore is the durable backing of the scheduler: one row per
// (job kind, trip), replaced on reschedule, removed on cancel.
type JobStore interface {
	Upsert(ctx context.Context, name string, tripID uuid.UUID, runAt time.Time) error
	Replace(ctx context.Context, tripID uuid.UUID, runAt time.Time, names ...string) error
	DeleteByTrip(ctx context.Context, tripID uuid.UUID) (int64, error)
}

// jobKinds scheduled for every trip, both firing at its arrival time.
var jobKinds = []string{domain.JobTripStatus, domain.JobTicketStatus}

// Service owns the deferred status-transition jobs and guarantees they
// reflect the trip's persisted arrival time.
type Service struct {
	jobs   JobStore
	logger *slog.Logger
}

func New(jobs JobStore, logger *slog.Logger) *Service {
	return &Service{
		jobs:   jobs,
		logger: logger,
	}
}

// ScheduleStatusUpdate enqueues a tripStatusJob and a ticketStatusJob, both
// firing at arrivalAt. Upsert semantics make a retry of the same call
// idempotent: there is never more than one outstanding job per kind.
func (s *Service) ScheduleStatusUpdate(ctx context.Context, tripID uuid.UUID, arrivalAt time.Time) error {
	const op = "service.scheduler.ScheduleStatusUpdate"

	for _, kind := range jobKinds {
		if err := s.jobs.Upsert(ctx, kind, tripID, arrivalAt); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	if s.logger != nil {
		s.logger.Info("status jobs scheduled", "trip_id", tripID, "run_at", arrivalAt)
	}

	return nil
}

// UpdateScheduledTime cancels the trip's jobs and reschedules both kinds at
// newArrivalAt. Cancel and reschedule run sequentially inside one store
// transaction so no job fires in between with a stale time.
func (s *Service) UpdateScheduledTime(ctx context.Context, tripID uuid.UUID, newArrivalAt time.Time) error {
	const op = "service.scheduler.UpdateScheduledTime"

	if err := s.jobs.Replace(ctx, tripID, newArrivalAt, jobKinds...); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if s.logger != nil {
		s.logger.Info("status jobs rescheduled", "trip_id", tripID, "run_at", newArrivalAt)
	}

	return nil
}

// CancelScheduledTime cancels both job kinds for the trip; used on trip
// deletion. Canceling with nothing outstanding succeeds.
func (s *Service) CancelScheduledTime(ctx context.Context, tripID uuid.UUID) error {
	const op = "service.scheduler.CancelScheduledTime"

	if _, err := s.jobs.DeleteByTrip(ctx, tripID); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
