package domain

import (
	"fmt"
	"math"
	"time"
)

// FormatDuration renders the span between departure and arrival as
// "8h 30min". Minutes are floored, so partial minutes never round a trip up.
func FormatDuration(departure, arrival time.Time) string {
	mins := int(arrival.Sub(departure).Minutes())
	if mins < 0 {
		mins = 0
	}
	return fmt.Sprintf("%dh %dmin", mins/60, mins%60)
}

// AverageRating is the arithmetic mean of review ratings rounded to one
// decimal, or 0 when there are no reviews.
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}

	var sum int
	for _, r := range ratings {
		sum += r
	}

	avg := float64(sum) / float64(len(ratings))

	return math.Round(avg*10) / 10
}
