package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kirinyoku/busgo/internal/domain"
	redisx "github.com/kirinyoku/busgo/internal/redis"
	"github.com/kirinyoku/busgo/internal/repository"
	redisrepo "github.com/kirinyoku/busgo/internal/repository/redis"
)

// TicketStore persists tickets and owns the seat-reservation write. BookSeat
// must be atomic at the store level: the seat check-and-add is a single
// conditional update, never read-then-write.
type TicketStore interface {
	BookSeat(ctx context.Context, tripID, userID uuid.UUID, seat int) (*domain.Ticket, error)
	Cancel(ctx context.Context, ticketID uuid.UUID) (*domain.Ticket, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)
	List(ctx context.Context, tripID uuid.UUID, limit, offset int) ([]domain.Ticket, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) (int64, error)
	ExpireByTrip(ctx context.Context, tripID uuid.UUID) (int64, error)
}

type Service struct {
	store   TicketStore
	cache   *redisrepo.Cache
	pubsub  *redisx.TripsPubSub
	limiter *redisrepo.SlidingWindowLimiter
	logger  *slog.Logger
}

func New(
	store TicketStore,
	cache *redisrepo.Cache,
	pubsub *redisx.TripsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:   store,
		cache:   cache,
		pubsub:  pubsub,
		limiter: limiter,
		logger:  logger,
	}
}

// Book reserves a seat on an active trip and issues a ticket. Of two racing
// requests for the same seat exactly one wins; the loser gets ErrSeatTaken.
//
// Returns:
//   - *domain.Ticket: the issued ticket.
//   - error: tickets.ErrTripNotFound / ErrTripNotActive / ErrSeatOutOfRange /
//     ErrSeatTaken, or *RateLimitedError when throttled.
func (s *Service) Book(
	ctx context.Context,
	tripID, userID uuid.UUID,
	seat int,
	rlKey string,
) (*domain.Ticket, error) {
	const op = "service.tickets.Book"

	if s.limiter != nil && rlKey != "" {
		ok, _, retry, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		if !ok {
			return nil, fmt.Errorf("%s:%w", op, &RateLimitedError{RetryAfter: retry})
		}
	}

	ticket, err := s.store.BookSeat(ctx, tripID, userID, seat)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("%s:%w", op, ErrTripNotFound)
		case errors.Is(err, repository.ErrTripNotActive):
			return nil, fmt.Errorf("%s:%w", op, ErrTripNotActive)
		case errors.Is(err, repository.ErrSeatOutOfRange):
			return nil, fmt.Errorf("%s:%w", op, ErrSeatOutOfRange)
		case errors.Is(err, repository.ErrSeatTaken):
			return nil, fmt.Errorf("%s:%w", op, ErrSeatTaken)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.invalidate(ctx, tripID)

	return ticket, nil
}

// Cancel releases a ticket's seat back to its trip and marks the ticket
// canceled, independent of the trip's status.
//
// Returns:
//   - error: tickets.ErrTicketNotFound if the ticket does not exist.
func (s *Service) Cancel(ctx context.Context, ticketID uuid.UUID) (*domain.Ticket, error) {
	const op = "service.tickets.Cancel"

	ticket, err := s.store.Cancel(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrTicketNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.invalidate(ctx, ticket.TripID)

	return ticket, nil
}

// Get retrieves a ticket by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	const op = "service.tickets.Get"

	ticket, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrTicketNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return ticket, nil
}

// List lists tickets, optionally scoped to one trip via a non-nil tripID.
func (s *Service) List(
	ctx context.Context,
	tripID uuid.UUID,
	limit, offset int,
) ([]domain.Ticket, error) {
	const op = "service.tickets.List"

	out, err := s.store.List(ctx, tripID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Delete removes a single ticket record without releasing its seat; admin
// cleanup, not cancellation.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "service.tickets.Delete"

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrTicketNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// DeleteAll wipes every ticket. Admin operation.
func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	const op = "service.tickets.DeleteAll"

	n, err := s.store.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s:%w", op, err)
	}

	return n, nil
}

// ExpireForTrip is the ticketStatusJob handler: every active ticket of the
// trip flips to expired. Canceled tickets are untouched.
func (s *Service) ExpireForTrip(ctx context.Context, tripID uuid.UUID) error {
	const op = "service.tickets.ExpireForTrip"

	n, err := s.store.ExpireByTrip(ctx, tripID)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if s.logger != nil && n > 0 {
		s.logger.Info("tickets expired", "trip_id", tripID, "count", n)
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
