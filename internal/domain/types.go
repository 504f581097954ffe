package domain

import (
	"time"

	"github.com/google/uuid"
)

type TripStatus string

const (
	TripActive    TripStatus = "active"
	TripCompleted TripStatus = "completed"
	TripCanceled  TripStatus = "canceled"
)

type TicketStatus string

const (
	TicketActive   TicketStatus = "active"
	TicketCanceled TicketStatus = "canceled"
	TicketExpired  TicketStatus = "expired"
)

// Scheduled job kinds. At most one row of each kind is outstanding per trip.
const (
	JobTripStatus   = "tripStatusJob"
	JobTicketStatus = "ticketStatusJob"
)

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobFailed  JobStatus = "failed"
)

// PermissionFlag values are combined bitwise in the auth token.
type PermissionFlag int

const (
	PermRegistered PermissionFlag = 1 << iota
	PermTripGuide
	PermAdmin
)

type City struct {
	ID   uuid.UUID
	Name string
}

type Bus struct {
	ID       uuid.UUID
	Plate    string
	Model    string
	Capacity int
}

type Trip struct {
	ID              uuid.UUID
	DepartureCityID uuid.UUID
	ArrivalCityID   uuid.UUID
	BusID           uuid.UUID
	DepartureAt     time.Time
	ArrivalAt       time.Time
	Duration        string // derived, see FormatDuration
	PriceCents      int
	Rating          float64
	Status          TripStatus
	BookedSeats     []int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Ticket struct {
	ID         uuid.UUID
	TripID     uuid.UUID
	UserID     uuid.UUID
	Seat       int
	Status     TicketStatus
	PriceCents int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Review struct {
	ID        uuid.UUID
	TripID    uuid.UUID
	UserID    uuid.UUID
	Rating    int
	Comment   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ScheduledJob struct {
	ID        uuid.UUID
	Name      string
	TripID    uuid.UUID
	RunAt     time.Time
	Status    JobStatus
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TripFilter narrows trip listings. Nil fields match everything.
type TripFilter struct {
	DepartureCityID *uuid.UUID
	ArrivalCityID   *uuid.UUID
	BusID           *uuid.UUID
	Status          *TripStatus
	Date            *time.Time // trips departing on this calendar day, UTC
}
