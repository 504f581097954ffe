package httpgin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/busgo/internal/service/catalog"
	"github.com/kirinyoku/busgo/internal/service/reviews"
	"github.com/kirinyoku/busgo/internal/service/tickets"
	"github.com/kirinyoku/busgo/internal/service/trips"
)

func TestRespondErrStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"trip not found", trips.ErrTripNotFound, http.StatusNotFound},
		{"completed trip immutable", trips.ErrTripCompleted, http.StatusBadRequest},
		{"bus overlap", trips.ErrBusUnavailable, http.StatusConflict},
		{"bus missing", trips.ErrBusNotFound, http.StatusNotFound},
		{"city missing", trips.ErrCityNotFound, http.StatusNotFound},
		{"seat taken", tickets.ErrSeatTaken, http.StatusConflict},
		{"seat out of range", tickets.ErrSeatOutOfRange, http.StatusBadRequest},
		{"trip closed for booking", tickets.ErrTripNotActive, http.StatusBadRequest},
		{"ticket missing", tickets.ErrTicketNotFound, http.StatusNotFound},
		{"review missing", reviews.ErrReviewNotFound, http.StatusNotFound},
		{"bad rating", reviews.ErrInvalidRating, http.StatusBadRequest},
		{"duplicate plate", catalog.ErrDuplicatePlate, http.StatusConflict},
		{"duplicate city", catalog.ErrDuplicateCity, http.StatusConflict},
		{"bus in use", catalog.ErrBusInUse, http.StatusConflict},
		{"city in use", catalog.ErrCityInUse, http.StatusConflict},
		{"unclassified", errors.New("disk on fire"), http.StatusInternalServerError},
		{"wrapped sentinel", fmt.Errorf("service.trips.Get:%w", trips.ErrTripNotFound), http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondErr(c, tc.err)

			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestRespondErrValidationErrorListsFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondErr(c, &trips.ValidationError{
		Fields: []string{"booked_seats", "status"},
		Reason: "field is server-derived",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if len(resp.Fields) != 2 || resp.Fields[0] != "booked_seats" || resp.Fields[1] != "status" {
		t.Fatalf("fields = %v, want [booked_seats status]", resp.Fields)
	}
}

func TestRespondErrRateLimitedSetsRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondErr(c, &tickets.RateLimitedError{RetryAfter: 42 * time.Second})

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "42" {
		t.Fatalf("Retry-After = %q, want 42", got)
	}
}
