package repository

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrSeatTaken      = errors.New("seat already booked")
	ErrSeatOutOfRange = errors.New("seat outside bus capacity")
	ErrTripNotActive  = errors.New("trip is not active")
)
