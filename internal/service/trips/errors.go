package trips

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTripNotFound   = errors.New("trip not found")
	ErrTripCompleted  = errors.New("trip is completed and immutable")
	ErrBusUnavailable = errors.New("bus already scheduled for an overlapping interval")
	ErrBusNotFound    = errors.New("bus not found")
	ErrCityNotFound   = errors.New("city not found")
)

// ValidationError reports malformed input, including attempts to mutate
// server-derived fields.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Reason, strings.Join(e.Fields, ", "))
}
