package tickets

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrTripNotFound   = errors.New("trip not found")
	ErrTicketNotFound = errors.New("ticket not found")
	ErrTripNotActive  = errors.New("trip is not open for booking")
	ErrSeatTaken      = errors.New("seat already booked")
	ErrSeatOutOfRange = errors.New("seat outside bus capacity")
)

// RateLimitedError tells the client when to retry.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}
