package httpgin

import (
	"time"

	"github.com/kirinyoku/busgo/internal/domain"
)

type CreateTripRequest struct {
	DepartureCityID string `json:"departure_city_id" binding:"required,uuid"`
	ArrivalCityID   string `json:"arrival_city_id" binding:"required,uuid"`
	BusID           string `json:"bus_id" binding:"required,uuid"`
	DepartureAt     string `json:"departure_at" binding:"required"`
	ArrivalAt       string `json:"arrival_at" binding:"required"`
	PriceCents      int    `json:"price_cents" binding:"required,gt=0"`
}

// UpdateTripRequest is a partial patch; absent fields keep their value.
type UpdateTripRequest struct {
	DepartureCityID *string `json:"departure_city_id"`
	ArrivalCityID   *string `json:"arrival_city_id"`
	BusID           *string `json:"bus_id"`
	DepartureAt     *string `json:"departure_at"`
	ArrivalAt       *string `json:"arrival_at"`
	PriceCents      *int    `json:"price_cents"`
}

type CreateBusRequest struct {
	Plate    string `json:"plate" binding:"required"`
	Model    string `json:"model" binding:"required"`
	Capacity int    `json:"capacity" binding:"required,gt=0"`
}

type UpdateBusRequest struct {
	Plate    *string `json:"plate"`
	Model    *string `json:"model"`
	Capacity *int    `json:"capacity"`
}

type CreateCityRequest struct {
	Name string `json:"name" binding:"required"`
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

type CreatedResponse struct {
	ID string `json:"id"`
}

type DeletedResponse struct {
	Deleted int64 `json:"deleted"`
}

type TripResponse struct {
	ID              string    `json:"id"`
	DepartureCityID string    `json:"departure_city_id"`
	ArrivalCityID   string    `json:"arrival_city_id"`
	BusID           string    `json:"bus_id"`
	DepartureAt     time.Time `json:"departure_at"`
	ArrivalAt       time.Time `json:"arrival_at"`
	Duration        string    `json:"duration"`
	PriceCents      int       `json:"price_cents"`
	Rating          float64   `json:"rating"`
	Status          string    `json:"status"`
	BookedSeats     []int     `json:"booked_seats"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type TicketResponse struct {
	ID         string    `json:"id"`
	TripID     string    `json:"trip_id"`
	UserID     string    `json:"user_id"`
	Seat       int       `json:"seat"`
	Status     string    `json:"status"`
	PriceCents int       `json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type BusResponse struct {
	ID       string `json:"id"`
	Plate    string `json:"plate"`
	Model    string `json:"model"`
	Capacity int    `json:"capacity"`
}

type CityResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ReviewResponse struct {
	ID        string    `json:"id"`
	TripID    string    `json:"trip_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func toTripResponse(t *domain.Trip) TripResponse {
	seats := t.BookedSeats
	if seats == nil {
		seats = []int{}
	}

	return TripResponse{
		ID:              t.ID.String(),
		DepartureCityID: t.DepartureCityID.String(),
		ArrivalCityID:   t.ArrivalCityID.String(),
		BusID:           t.BusID.String(),
		DepartureAt:     t.DepartureAt,
		ArrivalAt:       t.ArrivalAt,
		Duration:        t.Duration,
		PriceCents:      t.PriceCents,
		Rating:          t.Rating,
		Status:          string(t.Status),
		BookedSeats:     seats,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func toTripResponses(ts []domain.Trip) []TripResponse {
	out := make([]TripResponse, 0, len(ts))
	for i := range ts {
		out = append(out, toTripResponse(&ts[i]))
	}
	return out
}

func toTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:         t.ID.String(),
		TripID:     t.TripID.String(),
		UserID:     t.UserID.String(),
		Seat:       t.Seat,
		Status:     string(t.Status),
		PriceCents: t.PriceCents,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func toTicketResponses(ts []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(ts))
	for i := range ts {
		out = append(out, toTicketResponse(&ts[i]))
	}
	return out
}

func toBusResponse(b *domain.Bus) BusResponse {
	return BusResponse{
		ID:       b.ID.String(),
		Plate:    b.Plate,
		Model:    b.Model,
		Capacity: b.Capacity,
	}
}

func toCityResponse(c *domain.City) CityResponse {
	return CityResponse{ID: c.ID.String(), Name: c.Name}
}

func toReviewResponse(rv *domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:        rv.ID.String(),
		TripID:    rv.TripID.String(),
		UserID:    rv.UserID.String(),
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		CreatedAt: rv.CreatedAt,
	}
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
