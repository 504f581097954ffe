package reviews

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/kirinyoku/busgo/internal/domain"
	"github.com/kirinyoku/busgo/internal/repository"
)

type fakeReviewStore struct {
	reviews map[uuid.UUID]*domain.Review
}

func newFakeReviewStore() *fakeReviewStore {
	return &fakeReviewStore{reviews: make(map[uuid.UUID]*domain.Review)}
}

func (s *fakeReviewStore) Create(ctx context.Context, rv *domain.Review) error {
	cp := *rv
	s.reviews[rv.ID] = &cp
	return nil
}

func (s *fakeReviewStore) Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	rv, ok := s.reviews[id]
	if !ok {
		return uuid.Nil, repository.ErrNotFound
	}
	delete(s.reviews, id)
	return rv.TripID, nil
}

func (s *fakeReviewStore) ListByTrip(ctx context.Context, tripID uuid.UUID, limit, offset int) ([]domain.Review, error) {
	var out []domain.Review
	for _, rv := range s.reviews {
		if rv.TripID == tripID {
			out = append(out, *rv)
		}
	}
	return out, nil
}

type fakeTripGetter struct {
	known map[uuid.UUID]bool
}

func (g *fakeTripGetter) Get(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	if !g.known[id] {
		return nil, repository.ErrNotFound
	}
	return &domain.Trip{ID: id}, nil
}

func newReviewFixture() (*Service, *fakeReviewStore, uuid.UUID) {
	store := newFakeReviewStore()
	tripID := uuid.New()
	trips := &fakeTripGetter{known: map[uuid.UUID]bool{tripID: true}}
	return New(store, trips, nil, nil), store, tripID
}

func TestCreateReview(t *testing.T) {
	svc, store, tripID := newReviewFixture()

	rv, err := svc.Create(context.Background(), tripID, uuid.New(), 4, "smooth ride")
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	if _, ok := store.reviews[rv.ID]; !ok {
		t.Fatal("review not persisted")
	}
}

func TestCreateReviewRejectsBadRating(t *testing.T) {
	svc, _, tripID := newReviewFixture()

	for _, rating := range []int{0, -1, 6} {
		if _, err := svc.Create(context.Background(), tripID, uuid.New(), rating, ""); !errors.Is(err, ErrInvalidRating) {
			t.Fatalf("Create(rating=%d) = %v, want ErrInvalidRating", rating, err)
		}
	}
}

func TestCreateReviewMissingTrip(t *testing.T) {
	svc, _, _ := newReviewFixture()

	if _, err := svc.Create(context.Background(), uuid.New(), uuid.New(), 5, ""); !errors.Is(err, ErrTripNotFound) {
		t.Fatalf("Create() = %v, want ErrTripNotFound", err)
	}
}

func TestDeleteReview(t *testing.T) {
	svc, store, tripID := newReviewFixture()

	rv, err := svc.Create(context.Background(), tripID, uuid.New(), 3, "")
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}

	if err := svc.Delete(context.Background(), rv.ID); err != nil {
		t.Fatalf("Delete() = %v", err)
	}
	if len(store.reviews) != 0 {
		t.Fatal("review still present after delete")
	}

	if err := svc.Delete(context.Background(), rv.ID); !errors.Is(err, ErrReviewNotFound) {
		t.Fatalf("second Delete() = %v, want ErrReviewNotFound", err)
	}
}
