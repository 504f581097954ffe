package domain

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		arrival time.Time
		want    string
	}{
		{"eight hours", base.Add(8 * time.Hour), "8h 0min"},
		{"hours and minutes", base.Add(3*time.Hour + 45*time.Minute), "3h 45min"},
		{"under an hour", base.Add(25 * time.Minute), "0h 25min"},
		{"partial minute floored", base.Add(2*time.Hour + 59*time.Minute + 59*time.Second), "2h 59min"},
		{"zero", base, "0h 0min"},
		{"negative clamped", base.Add(-time.Hour), "0h 0min"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FormatDuration(base, tc.arrival)
			if got != tc.want {
				t.Fatalf("FormatDuration = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAverageRating(t *testing.T) {
	cases := []struct {
		name    string
		ratings []int
		want    float64
	}{
		{"empty", nil, 0},
		{"single", []int{4}, 4},
		{"mean", []int{5, 4}, 4.5},
		{"rounded down", []int{5, 4, 4}, 4.3},
		{"rounded up", []int{5, 5, 4}, 4.7},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AverageRating(tc.ratings)
			if got != tc.want {
				t.Fatalf("AverageRating(%v) = %v, want %v", tc.ratings, got, tc.want)
			}
		})
	}
}
