package trips

import (
	"encoding/json"
	"sort"
	"time"
)

// MaxTripSpan caps how long a single trip may run.
const MaxTripSpan = 48 * time.Hour

// protectedFields are server-derived and may never appear in a patch body.
// Both snake_case and the legacy camelCase spellings are rejected.
var protectedFields = map[string]struct{}{
	"duration":     {},
	"rating":       {},
	"ratings":      {},
	"booked_seats": {},
	"bookedSeats":  {},
	"status":       {},
}

// ValidateTimings checks a trip's departure/arrival pair against now.
// Pure, no I/O; any violation is reported as a *ValidationError.
func ValidateTimings(departureAt, arrivalAt time.Time, now time.Time) error {
	var missing []string
	if departureAt.IsZero() {
		missing = append(missing, "departure_at")
	}
	if arrivalAt.IsZero() {
		missing = append(missing, "arrival_at")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing, Reason: "missing timestamp"}
	}

	if departureAt.Before(now) {
		return &ValidationError{Fields: []string{"departure_at"}, Reason: "must not be in the past"}
	}
	if arrivalAt.Before(now) {
		return &ValidationError{Fields: []string{"arrival_at"}, Reason: "must not be in the past"}
	}

	if !arrivalAt.After(departureAt) {
		return &ValidationError{
			Fields: []string{"arrival_at"},
			Reason: "must be after departure",
		}
	}

	if arrivalAt.Sub(departureAt) > MaxTripSpan {
		return &ValidationError{
			Fields: []string{"arrival_at"},
			Reason: "trip must not span more than 48h",
		}
	}

	return nil
}

// CheckProtectedFields rejects a raw patch body that names any
// server-derived field, listing every offending key.
func CheckProtectedFields(raw []byte) error {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return &ValidationError{Reason: "malformed JSON body"}
	}

	var offending []string
	for k := range body {
		if _, ok := protectedFields[k]; ok {
			offending = append(offending, k)
		}
	}

	if len(offending) > 0 {
		sort.Strings(offending)
		return &ValidationError{Fields: offending, Reason: "field is server-derived"}
	}

	return nil
}

// Overlaps reports whether [d1,a1) and [d2,a2) intersect.
func Overlaps(d1, a1, d2, a2 time.Time) bool {
	return d1.Before(a2) && d2.Before(a1)
}
