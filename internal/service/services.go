package service

import (
	"log/slog"

	redisx "github.com/kirinyoku/busgo/internal/redis"
	postgres "github.com/kirinyoku/busgo/internal/repository/postgres"
	redis "github.com/kirinyoku/busgo/internal/repository/redis"
	"github.com/kirinyoku/busgo/internal/service/catalog"
	"github.com/kirinyoku/busgo/internal/service/reviews"
	"github.com/kirinyoku/busgo/internal/service/scheduler"
	"github.com/kirinyoku/busgo/internal/service/tickets"
	"github.com/kirinyoku/busgo/internal/service/trips"
)

type Services struct {
	Trips     *trips.Service
	Tickets   *tickets.Service
	Scheduler *scheduler.Service
	Catalog   *catalog.Service
	Reviews   *reviews.Service
}

type Config struct {
	Trips trips.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redisx.TripsPubSub,
	limiter *redis.SlidingWindowLimiter,
	logger *slog.Logger,
	cfg Config,
) *Services {
	sched := scheduler.New(store.Jobs(), logger)

	return &Services{
		Trips:     trips.New(store.Trips(), store.Tickets(), store.Catalog(), sched, cache, pubsub, logger, cfg.Trips),
		Tickets:   tickets.New(store.Tickets(), cache, pubsub, limiter, logger),
		Scheduler: sched,
		Catalog:   catalog.New(store.Catalog()),
		Reviews:   reviews.New(store.Reviews(), store.Trips(), cache, pubsub),
	}
}
