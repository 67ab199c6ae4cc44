package transit

import (
	"math"

	"github.com/randytsao24/moim/internal/location"
	"github.com/randytsao24/moim/internal/models"
)

const (
	estimateSpeedKmh     = 25.0
	longTripKm           = 5.0
	shortTripWaitMinutes = 10
	longTripWaitMinutes  = 15
	minEstimateMinutes   = 10
)

// Estimate returns a straight-line travel estimate: distance at 25 km/h
// plus a wait penalty (15 min beyond 5 km, else 10), never under 10 min
func Estimate(origin, destination models.Coordinate) models.TransitRoute {
	return models.TransitRoute{
		TotalDurationMinutes: EstimateMinutes(location.DistanceKm(origin, destination)),
		TransferCount:        0,
		Kind:                 models.KindUnknown,
		Legs:                 []models.RouteLeg{},
		Estimated:            true,
	}
}

// EstimateMinutes converts a straight-line distance into minutes
func EstimateMinutes(distanceKm float64) int {
	ride := int(math.Round(distanceKm / estimateSpeedKmh * 60))

	wait := shortTripWaitMinutes
	if distanceKm > longTripKm {
		wait = longTripWaitMinutes
	}

	return max(ride+wait, minEstimateMinutes)
}
