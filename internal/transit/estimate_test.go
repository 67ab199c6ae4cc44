package transit

import (
	"testing"

	"github.com/randytsao24/moim/internal/models"
)

func TestEstimateMinutes(t *testing.T) {
	tests := []struct {
		name string
		km   float64
		want int
	}{
		{"same place floors at 10", 0, 10},
		{"1 km", 1, 12},
		{"exactly 5 km uses short wait", 5, 22},
		{"just over 5 km uses long wait", 5.01, 27},
		{"20 km", 20, 63},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := EstimateMinutes(tc.km); got != tc.want {
				t.Errorf("EstimateMinutes(%v) = %d, want %d", tc.km, got, tc.want)
			}
		})
	}
}

func TestEstimateShape(t *testing.T) {
	route := Estimate(
		models.Coordinate{Lat: 37.4979, Lng: 127.0276},
		models.Coordinate{Lat: 37.5563, Lng: 126.9226},
	)

	if route.Kind != models.KindUnknown {
		t.Errorf("Kind = %q, want unknown", route.Kind)
	}
	if route.TransferCount != 0 || len(route.Legs) != 0 {
		t.Errorf("estimate should have no transfers or legs: %+v", route)
	}
	if !route.Estimated {
		t.Error("Estimated should be true")
	}
	// ~11.3 km: round(27.1)=27 + 15
	if route.TotalDurationMinutes != 42 {
		t.Errorf("TotalDurationMinutes = %d, want 42", route.TotalDurationMinutes)
	}
}
