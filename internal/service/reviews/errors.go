package reviews

import "errors"

var (
	ErrTripNotFound   = errors.New("trip not found")
	ErrReviewNotFound = errors.New("review not found")
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
)
