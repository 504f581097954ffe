package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	redisx "github.com/kirinyoku/busgo/internal/redis"
	postgresrepo "github.com/kirinyoku/busgo/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/busgo/internal/repository/redis"
	"github.com/kirinyoku/busgo/internal/uow"
)

// Handler executes one fired job for a trip.
type Handler func(ctx context.Context, tripID uuid.UUID) error

type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// Worker drives the durable job table: it claims due pending jobs, invokes
// the handler registered for each kind, removes the instance on success and
// marks it failed otherwise. Claims use row locks with SKIP LOCKED, so
// multiple workers never double-fire a job.
type Worker struct {
	store    *postgresrepo.Store
	uow      *uow.UoW
	cache    *redisrepo.Cache
	pubsub   *redisx.TripsPubSub
	logger   *slog.Logger
	cfg      WorkerConfig
	handlers map[string]Handler
}

func NewWorker(
	store *postgresrepo.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.TripsPubSub,
	logger *slog.Logger,
	cfg WorkerConfig,
) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}

	return &Worker{
		store:    store,
		uow:      uow.NewUoW(store),
		cache:    cache,
		pubsub:   pubsub,
		logger:   logger,
		cfg:      cfg,
		handlers: make(map[string]Handler),
	}
}

// Define registers the handler invoked when jobs of the given kind fire.
func (w *Worker) Define(name string, h Handler) {
	w.handlers[name] = h
}

// Run polls until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n, err := w.runOnce(ctx); err != nil {
				w.logger.Error("scheduler poll failed", "error", err)
			} else if n > 0 {
				w.logger.Info("scheduler fired jobs", "count", n)
			}
		}
	}
}

// runOnce claims one batch of due jobs and dispatches them. Cache
// invalidation and change notifications run only after the claim
// transaction commits.
func (w *Worker) runOnce(ctx context.Context) (int, error) {
	fired := 0

	err := w.uow.Do(ctx, func(
		ctx context.Context,
		tx postgresrepo.DB,
		after func(uow.AfterCommit),
	) error {
		jobs, err := w.store.Jobs().With(tx).ClaimDue(ctx, w.cfg.BatchSize)
		if err != nil {
			return err
		}

		for _, job := range jobs {
			h, ok := w.handlers[job.Name]
			if !ok {
				w.logger.Error("no handler for job", "job", job.Name, "trip_id", job.TripID)
				if err := w.store.Jobs().With(tx).MarkFailed(ctx, job.ID, "no handler registered"); err != nil {
					return err
				}
				continue
			}

			if err := h(ctx, job.TripID); err != nil {
				// Failure is terminal for this instance; it never blocks a
				// future schedule call for the same trip.
				w.logger.Error("job handler failed",
					"job", job.Name, "trip_id", job.TripID, "error", err)
				if err := w.store.Jobs().With(tx).MarkFailed(ctx, job.ID, err.Error()); err != nil {
					return err
				}
				continue
			}

			if err := w.store.Jobs().With(tx).Delete(ctx, job.ID); err != nil {
				return err
			}

			fired++
			tripID := job.TripID
			after(func(ctx context.Context) {
				if w.cache != nil {
					_ = w.cache.InvalidateTrip(ctx, tripID)
				}
				if w.pubsub != nil {
					_ = w.pubsub.PublishTripChanged(ctx, tripID)
				}
			})
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return fired, nil
}
