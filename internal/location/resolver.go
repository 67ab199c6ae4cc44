package location

import (
	"strings"
	"unicode"

	"github.com/randytsao24/moim/internal/logging"
	"github.com/randytsao24/moim/internal/models"
)

// CityCenter is Seoul City Hall, used when nothing else matches
var CityCenter = models.Coordinate{Lat: 37.5665, Lng: 126.978}

// Stage names reported by ResolveStage
const (
	StageExact      = "exact"
	StageSubstring  = "substring"
	StageNormalized = "normalized"
	StageDefault    = "default"
)

// MatchStage is one named rule in the resolver's lookup order
type MatchStage struct {
	Name  string
	Match func(places []Place, input string) (models.Coordinate, bool)
}

// Resolver maps free-text place names to coordinates. It never fails
type Resolver struct {
	gazetteer *Gazetteer
	stages    []MatchStage
	fallback  models.Coordinate
}

// NewResolver creates a resolver with the default stage order:
// exact, substring, normalized
func NewResolver(g *Gazetteer) *Resolver {
	return &Resolver{
		gazetteer: g,
		stages: []MatchStage{
			{Name: StageExact, Match: matchExact},
			{Name: StageSubstring, Match: matchSubstring},
			{Name: StageNormalized, Match: matchNormalized},
		},
		fallback: CityCenter,
	}
}

// Resolve returns the coordinate for text, or CityCenter if nothing matches
func (r *Resolver) Resolve(text string) models.Coordinate {
	c, _ := r.ResolveStage(text)
	return c
}

// ResolveStage is Resolve that also reports which stage matched
func (r *Resolver) ResolveStage(text string) (models.Coordinate, string) {
	input := strings.TrimSpace(text)
	if input == "" {
		return r.fallback, StageDefault
	}

	places := r.gazetteer.Places()
	for _, stage := range r.stages {
		if c, ok := stage.Match(places, input); ok {
			return c, stage.Name
		}
	}

	logging.Debug().Str("location", input).Msg("no gazetteer match, using city center")
	return r.fallback, StageDefault
}

func matchExact(places []Place, input string) (models.Coordinate, bool) {
	for _, p := range places {
		if p.Name == input {
			return p.Coordinate(), true
		}
	}
	return models.Coordinate{}, false
}

func matchSubstring(places []Place, input string) (models.Coordinate, bool) {
	for _, p := range places {
		if strings.Contains(input, p.Name) || strings.Contains(p.Name, input) {
			return p.Coordinate(), true
		}
	}
	return models.Coordinate{}, false
}

func matchNormalized(places []Place, input string) (models.Coordinate, bool) {
	in := Normalize(input)
	if in == "" {
		return models.Coordinate{}, false
	}
	for _, p := range places {
		key := Normalize(p.Name)
		if key == "" {
			continue
		}
		if strings.Contains(in, key) || strings.Contains(key, in) {
			return p.Coordinate(), true
		}
	}
	return models.Coordinate{}, false
}

// Normalize strips whitespace and the administrative suffixes 시, 구, 동, 역
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		switch r {
		case '시', '구', '동', '역':
			return -1
		}
		return r
	}, s)
}
