// Package models defines shared data types
package models

import "fmt"

// Coordinate is a WGS84 point
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// LegMode is the transport mode of a single route leg
type LegMode string

const (
	ModeWalk   LegMode = "walk"
	ModeSubway LegMode = "subway"
	ModeBus    LegMode = "bus"
)

// RouteKind summarizes which transit modes an itinerary uses
type RouteKind string

const (
	KindSubway    RouteKind = "subway"
	KindBus       RouteKind = "bus"
	KindSubwayBus RouteKind = "subway+bus"
	KindUnknown   RouteKind = "unknown"
)

// RouteLeg is one segment of a transit itinerary
type RouteLeg struct {
	Mode            LegMode      `json:"mode"`
	StartLabel      string       `json:"start_label,omitempty"`
	EndLabel        string       `json:"end_label,omitempty"`
	LineLabel       string       `json:"line_label,omitempty"`
	DurationMinutes int          `json:"duration_minutes"`
	StopCount       int          `json:"stop_count,omitempty"`
	PathPoints      []Coordinate `json:"path_points,omitempty"`
}

// TransitRoute is a resolved (or estimated) trip between two coordinates
type TransitRoute struct {
	TotalDurationMinutes int        `json:"total_duration_minutes"`
	TransferCount        int        `json:"transfer_count"`
	WalkMinutes          int        `json:"walk_minutes"`
	FareAmount           int        `json:"fare_amount"`
	Kind                 RouteKind  `json:"route_kind"`
	Legs                 []RouteLeg `json:"legs"`
	Estimated            bool       `json:"estimated"`
}

// Clone returns a deep copy so cached routes never share slices with callers
func (r TransitRoute) Clone() TransitRoute {
	out := r
	if r.Legs != nil {
		out.Legs = make([]RouteLeg, len(r.Legs))
		for i, leg := range r.Legs {
			out.Legs[i] = leg
			if leg.PathPoints != nil {
				out.Legs[i].PathPoints = append([]Coordinate(nil), leg.PathPoints...)
			}
		}
	}
	return out
}

// LineLabels returns the distinct line labels of the transit legs in order
func (r TransitRoute) LineLabels() []string {
	var labels []string
	seen := make(map[string]bool)
	for _, leg := range r.Legs {
		if leg.Mode == ModeWalk || leg.LineLabel == "" || seen[leg.LineLabel] {
			continue
		}
		seen[leg.LineLabel] = true
		labels = append(labels, leg.LineLabel)
	}
	return labels
}

// TravelSummary is one member's trip to one candidate venue
type TravelSummary struct {
	MemberID        string      `json:"member_id"`
	DurationMinutes int         `json:"duration_minutes"`
	TransferCount   int         `json:"transfer_count"`
	WalkMinutes     int         `json:"walk_minutes"`
	Kind            RouteKind   `json:"route_kind"`
	FareAmount      int         `json:"fare_amount"`
	Legs            []RouteLeg  `json:"legs,omitempty"`
	Origin          *Coordinate `json:"origin,omitempty"`
	Estimated       bool        `json:"estimated"`
}

// SummaryFromRoute builds a TravelSummary from a resolved route
func SummaryFromRoute(memberID string, origin *Coordinate, route TransitRoute) TravelSummary {
	return TravelSummary{
		MemberID:        memberID,
		DurationMinutes: route.TotalDurationMinutes,
		TransferCount:   route.TransferCount,
		WalkMinutes:     route.WalkMinutes,
		Kind:            route.Kind,
		FareAmount:      route.FareAmount,
		Legs:            route.Legs,
		Origin:          origin,
		Estimated:       route.Estimated,
	}
}

// Venue is a read-only catalog entry that can be recommended
type Venue struct {
	Name            string     `json:"name" yaml:"name"`
	Address         string     `json:"address" yaml:"address"`
	Region          string     `json:"region" yaml:"region"`
	Category        string     `json:"category" yaml:"category"`
	Tags            []string   `json:"tags,omitempty" yaml:"tags"`
	PopularityCount int        `json:"review_count" yaml:"review_count"`
	Location        Coordinate `json:"location" yaml:"location"`
	Description     string     `json:"description,omitempty" yaml:"description"`
	ImageURL        string     `json:"image_url,omitempty" yaml:"image_url"`
	PriceRange      string     `json:"price_range,omitempty" yaml:"price_range"`
	Convenience     string     `json:"convenience,omitempty" yaml:"convenience"`
}

// VenueWithDistance is a Venue with distance from a reference point
type VenueWithDistance struct {
	Venue
	DistanceMeters float64 `json:"distance_meters"`
}

// Advisory is an active transit service alert affecting a recommended route
type Advisory struct {
	ID     string   `json:"id"`
	Lines  []string `json:"lines"`
	Header string   `json:"header"`
}

// ScoredCandidate is a venue with its travel summaries and scores
type ScoredCandidate struct {
	Venue
	TravelSummaries        []TravelSummary `json:"travel_summaries"`
	AverageDurationMinutes float64         `json:"average_duration_minutes"`
	TravelStdDev           float64         `json:"travel_std_dev"`
	PopularityScore        float64         `json:"popularity_score"`
	EqualityScore          float64         `json:"equality_score"`
	TotalScore             float64         `json:"total_score"`
	Advisories             []Advisory      `json:"advisories,omitempty"`
}

// MemberLocation is a group member's starting point
type MemberLocation struct {
	ID           string      `json:"id" validate:"required"`
	Nickname     string      `json:"nickname,omitempty"`
	Coordinate   *Coordinate `json:"coordinate,omitempty"`
	LocationText string      `json:"location_text,omitempty"`
}

// SearchFilters narrows the candidate venue set
type SearchFilters struct {
	Region   string `json:"region,omitempty"`
	Category string `json:"category,omitempty"`
	Keyword  string `json:"keyword,omitempty"`
	Purpose  string `json:"purpose,omitempty"`
}
