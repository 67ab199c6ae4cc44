package handlers

import (
	"context"

	"github.com/randytsao24/moim/internal/cache"
	"github.com/randytsao24/moim/internal/models"
	"github.com/randytsao24/moim/internal/recommend"
	"github.com/randytsao24/moim/internal/transit"
)

// Recommender abstracts the recommendation engine for testability
type Recommender interface {
	RecommendDetailed(ctx context.Context, members []models.MemberLocation, filters models.SearchFilters, count int) recommend.Recommendation
	EstimateRoute(ctx context.Context, origin, destination models.Coordinate) models.TransitRoute
	VenueTravel(ctx context.Context, name string, members []models.MemberLocation) (models.ScoredCandidate, bool)
}

// VenueCatalog abstracts the venue lookup table
type VenueCatalog interface {
	Count() int
	Filter(f models.SearchFilters) []models.Venue
	FindByName(name string) (models.Venue, bool)
	Regions() []string
	Categories() []string
	Nearest(center models.Coordinate, opts recommend.NearestOptions) []models.VenueWithDistance
}

// LocationResolver turns free text into a coordinate and names its source
type LocationResolver interface {
	Resolve(ctx context.Context, text string) (models.Coordinate, string)
}

// ReverseGeocoder turns a coordinate into an address
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, coord models.Coordinate) (string, error)
}

// AlertProvider abstracts the service alerts data source
type AlertProvider interface {
	Enabled() bool
	GetAlerts(ctx context.Context, routes []string) ([]transit.ServiceAlert, error)
}

// CacheStatsProvider exposes route cache counters
type CacheStatsProvider interface {
	CacheStats() cache.Stats
}
