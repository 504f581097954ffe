package tickets

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/kirinyoku/busgo/internal/domain"
	"github.com/kirinyoku/busgo/internal/repository"
)

// fakeTicketStore enforces the exactly-one-wins contract for a seat the
// same way the conditional database update does.
type fakeTicketStore struct {
	trips   map[uuid.UUID]*fakeTrip
	tickets map[uuid.UUID]*domain.Ticket
}

type fakeTrip struct {
	status   domain.TripStatus
	capacity int
	seats    map[int]bool
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{
		trips:   make(map[uuid.UUID]*fakeTrip),
		tickets: make(map[uuid.UUID]*domain.Ticket),
	}
}

func (s *fakeTicketStore) addTrip(status domain.TripStatus, capacity int) uuid.UUID {
	id := uuid.New()
	s.trips[id] = &fakeTrip{status: status, capacity: capacity, seats: make(map[int]bool)}
	return id
}

func (s *fakeTicketStore) BookSeat(ctx context.Context, tripID, userID uuid.UUID, seat int) (*domain.Ticket, error) {
	trip, ok := s.trips[tripID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if trip.status != domain.TripActive {
		return nil, repository.ErrTripNotActive
	}
	if seat < 1 || seat > trip.capacity {
		return nil, repository.ErrSeatOutOfRange
	}
	if trip.seats[seat] {
		return nil, repository.ErrSeatTaken
	}
	trip.seats[seat] = true

	ticket := &domain.Ticket{
		ID:     uuid.New(),
		TripID: tripID,
		UserID: userID,
		Seat:   seat,
		Status: domain.TicketActive,
	}
	s.tickets[ticket.ID] = ticket
	return ticket, nil
}

func (s *fakeTicketStore) Cancel(ctx context.Context, ticketID uuid.UUID) (*domain.Ticket, error) {
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ticket.Status = domain.TicketCanceled
	delete(s.trips[ticket.TripID].seats, ticket.Seat)
	return ticket, nil
}

func (s *fakeTicketStore) Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return ticket, nil
}

func (s *fakeTicketStore) List(ctx context.Context, tripID uuid.UUID, limit, offset int) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, ticket := range s.tickets {
		if tripID != uuid.Nil && ticket.TripID != tripID {
			continue
		}
		out = append(out, *ticket)
	}
	return out, nil
}

func (s *fakeTicketStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.tickets, id)
	return nil
}

func (s *fakeTicketStore) DeleteAll(ctx context.Context) (int64, error) {
	n := int64(len(s.tickets))
	s.tickets = make(map[uuid.UUID]*domain.Ticket)
	return n, nil
}

func (s *fakeTicketStore) ExpireByTrip(ctx context.Context, tripID uuid.UUID) (int64, error) {
	var n int64
	for _, ticket := range s.tickets {
		if ticket.TripID == tripID && ticket.Status == domain.TicketActive {
			ticket.Status = domain.TicketExpired
			n++
		}
	}
	return n, nil
}

func newTicketService(store *fakeTicketStore) *Service {
	return New(store, nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBookSecondBookingOfSameSeatFails(t *testing.T) {
	store := newFakeTicketStore()
	svc := newTicketService(store)
	tripID := store.addTrip(domain.TripActive, 40)

	first, err := svc.Book(context.Background(), tripID, uuid.New(), 7, "")
	if err != nil {
		t.Fatalf("first Book() = %v", err)
	}
	if first.Seat != 7 || first.Status != domain.TicketActive {
		t.Fatalf("ticket = %+v, want active seat 7", first)
	}

	if _, err := svc.Book(context.Background(), tripID, uuid.New(), 7, ""); !errors.Is(err, ErrSeatTaken) {
		t.Fatalf("second Book() = %v, want ErrSeatTaken", err)
	}
}

func TestBookErrorMapping(t *testing.T) {
	store := newFakeTicketStore()
	svc := newTicketService(store)

	activeTrip := store.addTrip(domain.TripActive, 10)
	completedTrip := store.addTrip(domain.TripCompleted, 10)

	cases := []struct {
		name    string
		tripID  uuid.UUID
		seat    int
		wantErr error
	}{
		{"missing trip", uuid.New(), 1, ErrTripNotFound},
		{"trip not active", completedTrip, 1, ErrTripNotActive},
		{"seat above capacity", activeTrip, 11, ErrSeatOutOfRange},
		{"seat zero", activeTrip, 0, ErrSeatOutOfRange},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Book(context.Background(), tc.tripID, uuid.New(), tc.seat, ""); !errors.Is(err, tc.wantErr) {
				t.Fatalf("Book() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCancelReleasesSeatForRebooking(t *testing.T) {
	store := newFakeTicketStore()
	svc := newTicketService(store)
	tripID := store.addTrip(domain.TripActive, 40)

	ticket, err := svc.Book(context.Background(), tripID, uuid.New(), 12, "")
	if err != nil {
		t.Fatalf("Book() = %v", err)
	}

	canceled, err := svc.Cancel(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("Cancel() = %v", err)
	}
	if canceled.Status != domain.TicketCanceled {
		t.Fatalf("status = %q, want canceled", canceled.Status)
	}

	if _, err := svc.Book(context.Background(), tripID, uuid.New(), 12, ""); err != nil {
		t.Fatalf("rebooking released seat failed: %v", err)
	}
}

func TestCancelMissingTicket(t *testing.T) {
	svc := newTicketService(newFakeTicketStore())

	if _, err := svc.Cancel(context.Background(), uuid.New()); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("Cancel() = %v, want ErrTicketNotFound", err)
	}
}

func TestExpireForTripSkipsCanceledTickets(t *testing.T) {
	store := newFakeTicketStore()
	svc := newTicketService(store)
	tripID := store.addTrip(domain.TripActive, 40)

	kept, err := svc.Book(context.Background(), tripID, uuid.New(), 1, "")
	if err != nil {
		t.Fatalf("Book() = %v", err)
	}
	dropped, err := svc.Book(context.Background(), tripID, uuid.New(), 2, "")
	if err != nil {
		t.Fatalf("Book() = %v", err)
	}
	if _, err := svc.Cancel(context.Background(), dropped.ID); err != nil {
		t.Fatalf("Cancel() = %v", err)
	}

	if err := svc.ExpireForTrip(context.Background(), tripID); err != nil {
		t.Fatalf("ExpireForTrip() = %v", err)
	}

	if got := store.tickets[kept.ID].Status; got != domain.TicketExpired {
		t.Fatalf("active ticket status = %q, want expired", got)
	}
	if got := store.tickets[dropped.ID].Status; got != domain.TicketCanceled {
		t.Fatalf("canceled ticket status = %q, want untouched canceled", got)
	}
}

func TestDeleteKeepsSeatBooked(t *testing.T) {
	store := newFakeTicketStore()
	svc := newTicketService(store)
	tripID := store.addTrip(domain.TripActive, 40)

	ticket, err := svc.Book(context.Background(), tripID, uuid.New(), 5, "")
	if err != nil {
		t.Fatalf("Book() = %v", err)
	}

	if err := svc.Delete(context.Background(), ticket.ID); err != nil {
		t.Fatalf("Delete() = %v", err)
	}

	// Deletion is record cleanup, not cancellation: the seat stays taken.
	if _, err := svc.Book(context.Background(), tripID, uuid.New(), 5, ""); !errors.Is(err, ErrSeatTaken) {
		t.Fatalf("Book() after Delete() = %v, want ErrSeatTaken", err)
	}

	if err := svc.Delete(context.Background(), ticket.ID); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("second Delete() = %v, want ErrTicketNotFound", err)
	}
}

func TestDeleteAllReportsCount(t *testing.T) {
	store := newFakeTicketStore()
	svc := newTicketService(store)
	tripID := store.addTrip(domain.TripActive, 40)

	for seat := 1; seat <= 3; seat++ {
		if _, err := svc.Book(context.Background(), tripID, uuid.New(), seat, ""); err != nil {
			t.Fatalf("Book() = %v", err)
		}
	}

	n, err := svc.DeleteAll(context.Background())
	if err != nil {
		t.Fatalf("DeleteAll() = %v", err)
	}
	if n != 3 {
		t.Fatalf("deleted = %d, want 3", n)
	}
}
