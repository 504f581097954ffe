package trips

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestValidateTimings(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		departure  time.Time
		arrival    time.Time
		wantErr    bool
		wantFields []string
	}{
		{
			name:      "valid",
			departure: now.Add(1 * time.Hour),
			arrival:   now.Add(9 * time.Hour),
		},
		{
			name:       "missing both",
			wantErr:    true,
			wantFields: []string{"departure_at", "arrival_at"},
		},
		{
			name:       "missing arrival",
			departure:  now.Add(1 * time.Hour),
			wantErr:    true,
			wantFields: []string{"arrival_at"},
		},
		{
			name:       "departure in the past",
			departure:  now.Add(-1 * time.Minute),
			arrival:    now.Add(8 * time.Hour),
			wantErr:    true,
			wantFields: []string{"departure_at"},
		},
		{
			name:       "arrival equals departure",
			departure:  now.Add(2 * time.Hour),
			arrival:    now.Add(2 * time.Hour),
			wantErr:    true,
			wantFields: []string{"arrival_at"},
		},
		{
			name:       "arrival before departure",
			departure:  now.Add(5 * time.Hour),
			arrival:    now.Add(3 * time.Hour),
			wantErr:    true,
			wantFields: []string{"arrival_at"},
		},
		{
			name:       "span longer than 48h",
			departure:  now.Add(1 * time.Hour),
			arrival:    now.Add(1*time.Hour + MaxTripSpan + time.Minute),
			wantErr:    true,
			wantFields: []string{"arrival_at"},
		},
		{
			name:      "span exactly 48h",
			departure: now.Add(1 * time.Hour),
			arrival:   now.Add(1*time.Hour + MaxTripSpan),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTimings(tc.departure, tc.arrival, now)
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("ValidateTimings() = %v, want nil", err)
				}
				return
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("ValidateTimings() = %v, want *ValidationError", err)
			}
			if !reflect.DeepEqual(vErr.Fields, tc.wantFields) {
				t.Fatalf("fields = %v, want %v", vErr.Fields, tc.wantFields)
			}
		})
	}
}

func TestCheckProtectedFields(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantErr    bool
		wantFields []string
	}{
		{
			name: "clean patch",
			body: `{"price_cents": 4200, "arrival_at": "2026-03-01T20:00:00Z"}`,
		},
		{
			name:       "duration rejected",
			body:       `{"duration": "8h 0min"}`,
			wantErr:    true,
			wantFields: []string{"duration"},
		},
		{
			name:       "multiple derived fields listed sorted",
			body:       `{"status": "completed", "rating": 5, "booked_seats": [1]}`,
			wantErr:    true,
			wantFields: []string{"booked_seats", "rating", "status"},
		},
		{
			name:       "camelCase spelling rejected",
			body:       `{"bookedSeats": [2]}`,
			wantErr:    true,
			wantFields: []string{"bookedSeats"},
		},
		{
			name:    "malformed body",
			body:    `{"price_cents":`,
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckProtectedFields([]byte(tc.body))
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("CheckProtectedFields() = %v, want nil", err)
				}
				return
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("CheckProtectedFields() = %v, want *ValidationError", err)
			}
			if tc.wantFields != nil && !reflect.DeepEqual(vErr.Fields, tc.wantFields) {
				t.Fatalf("fields = %v, want %v", vErr.Fields, tc.wantFields)
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	cases := []struct {
		name           string
		d1, a1, d2, a2 time.Time
		want           bool
	}{
		{"identical", at(0), at(4), at(0), at(4), true},
		{"contained", at(0), at(10), at(2), at(4), true},
		{"partial overlap", at(0), at(4), at(2), at(6), true},
		{"disjoint", at(0), at(2), at(4), at(6), false},
		{"touching is not overlap", at(0), at(4), at(4), at(8), false},
		{"touching reversed", at(4), at(8), at(0), at(4), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.d1, tc.a1, tc.d2, tc.a2); got != tc.want {
				t.Fatalf("Overlaps() = %v, want %v", got, tc.want)
			}
		})
	}
}
