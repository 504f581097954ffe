package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kirinyoku/busgo/internal/domain"
	redisx "github.com/kirinyoku/busgo/internal/redis"
	"github.com/kirinyoku/busgo/internal/repository"
	redisrepo "github.com/kirinyoku/busgo/internal/repository/redis"
)

// ReviewStore persists reviews; every mutation recomputes the parent trip's
// rating in the same transaction.
type ReviewStore interface {
	Create(ctx context.Context, rv *domain.Review) error
	Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ListByTrip(ctx context.Context, tripID uuid.UUID, limit, offset int) ([]domain.Review, error)
}

type TripGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Trip, error)
}

type Service struct {
	store  ReviewStore
	trips  TripGetter
	cache  *redisrepo.Cache
	pubsub *redisx.TripsPubSub
}

func New(
	store ReviewStore,
	trips TripGetter,
	cache *redisrepo.Cache,
	pubsub *redisx.TripsPubSub,
) *Service {
	return &Service{
		store:  store,
		trips:  trips,
		cache:  cache,
		pubsub: pubsub,
	}
}

// Create adds a review for a trip. The trip's rating becomes the mean of
// its review ratings, rounded to one decimal.
//
// Returns:
//   - error: reviews.ErrInvalidRating for a rating outside 1..5.
//   - error: reviews.ErrTripNotFound if the trip does not exist.
func (s *Service) Create(
	ctx context.Context,
	tripID, userID uuid.UUID,
	rating int,
	comment string,
) (*domain.Review, error) {
	const op = "service.reviews.Create"

	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidRating)
	}

	if _, err := s.trips.Get(ctx, tripID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrTripNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	rv := &domain.Review{
		ID:      uuid.New(),
		TripID:  tripID,
		UserID:  userID,
		Rating:  rating,
		Comment: comment,
	}

	if err := s.store.Create(ctx, rv); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.invalidate(ctx, tripID)

	return rv, nil
}

// Delete removes a review and refreshes the trip's rating.
//
// Returns:
//   - error: reviews.ErrReviewNotFound if the review does not exist.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "service.reviews.Delete"

	tripID, err := s.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s:%w", op, ErrReviewNotFound)
		}
		return fmt.Errorf("%s:%w", op, err)
	}

	s.invalidate(ctx, tripID)

	return nil
}

// ListByTrip lists a trip's reviews, newest first.
func (s *Service) ListByTrip(
	ctx context.Context,
	tripID uuid.UUID,
	limit, offset int,
) ([]domain.Review, error) {
	const op = "service.reviews.ListByTrip"

	out, err := s.store.ListByTrip(ctx, tripID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) invalidate(ctx context.Context, tripID uuid.UUID) {
	if s.cache != nil {
		_ = s.cache.InvalidateTrip(ctx, tripID)
	}
	if s.pubsub != nil {
		_ = s.pubsub.PublishTripChanged(ctx, tripID)
	}
}
