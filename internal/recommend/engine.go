package recommend

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/randytsao24/moim/internal/logging"
	"github.com/randytsao24/moim/internal/metrics"
	"github.com/randytsao24/moim/internal/models"
)

const (
	DefaultCount          = 4
	DefaultMaxCount       = 10
	DefaultCandidateLimit = 10
)

// Locator turns member and venue locations into coordinates
type Locator interface {
	Resolve(ctx context.Context, text string) (models.Coordinate, string)
	ResolveMember(ctx context.Context, m models.MemberLocation) *models.Coordinate
}

// AdvisorySource reports active service alerts for transit lines
type AdvisorySource interface {
	Advisories(ctx context.Context, lines []string) []models.Advisory
}

// Config tunes the engine
type Config struct {
	DefaultCount   int
	MaxCount       int
	CandidateLimit int
	SampleSize     int
	Weights        Weights
	FanOut         FanOutConfig
}

// Engine runs the recommendation pipeline: search, fan-out, score, rank
type Engine struct {
	catalog    *Catalog
	locator    Locator
	routes     RouteResolver
	advisories AdvisorySource
	fanout     *FanOut
	cfg        Config
}

// NewEngine creates an engine. advisories may be nil
func NewEngine(catalog *Catalog, locator Locator, routes RouteResolver, advisories AdvisorySource, cfg Config) *Engine {
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = DefaultCount
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = DefaultMaxCount
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = DefaultCandidateLimit
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = DefaultSampleSize
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	return &Engine{
		catalog:    catalog,
		locator:    locator,
		routes:     routes,
		advisories: advisories,
		fanout:     NewFanOut(routes, cfg.FanOut),
		cfg:        cfg,
	}
}

// Recommendation is the ranked result of one request
type Recommendation struct {
	Candidates  []models.ScoredCandidate `json:"candidates"`
	SearchStage string                   `json:"search_stage"`
	Explanation string                   `json:"explanation,omitempty"`
	Members     []models.MemberLocation  `json:"members"`
}

// Recommend returns the top count venues for the group. An empty result
// means the catalog has nothing to offer
func (e *Engine) Recommend(ctx context.Context, members []models.MemberLocation, filters models.SearchFilters, count int) []models.ScoredCandidate {
	return e.RecommendDetailed(ctx, members, filters, count).Candidates
}

// RecommendDetailed is Recommend with the search stage, explanation and
// resolved member coordinates
func (e *Engine) RecommendDetailed(ctx context.Context, members []models.MemberLocation, filters models.SearchFilters, count int) Recommendation {
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	log := logging.Ctx(ctx)
	count = e.clampCount(count)

	venues, stage := e.catalog.Search(filters, e.cfg.SampleSize)
	metrics.Recommendations.WithLabelValues(stage).Inc()
	if len(venues) > e.cfg.CandidateLimit {
		venues = venues[:e.cfg.CandidateLimit]
	}

	resolved := e.resolveMembers(ctx, members)
	rec := Recommendation{SearchStage: stage, Members: resolved, Candidates: []models.ScoredCandidate{}}
	if len(venues) == 0 {
		log.Warn().Str("region", filters.Region).Str("category", filters.Category).Msg("catalog returned no venues")
		return rec
	}

	candidates := e.score(ctx, resolved, venues)
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	e.attachAdvisories(ctx, candidates)

	rec.Candidates = candidates
	rec.Explanation = Explain(resolved, candidates)

	log.Info().
		Str("search_stage", stage).
		Int("members", len(resolved)).
		Int("candidates", len(venues)).
		Int("returned", len(candidates)).
		Msg("recommendation complete")
	return rec
}

// EstimateRoute resolves a single origin/destination pair
func (e *Engine) EstimateRoute(ctx context.Context, origin, destination models.Coordinate) models.TransitRoute {
	return e.routes.Resolve(ctx, origin, destination)
}

// VenueTravel scores one named venue for the group
func (e *Engine) VenueTravel(ctx context.Context, name string, members []models.MemberLocation) (models.ScoredCandidate, bool) {
	venue, ok := e.catalog.FindByName(name)
	if !ok {
		return models.ScoredCandidate{}, false
	}
	candidates := e.score(ctx, e.resolveMembers(ctx, members), []models.Venue{venue})
	e.attachAdvisories(ctx, candidates)
	return candidates[0], true
}

func (e *Engine) clampCount(count int) int {
	if count <= 0 {
		return e.cfg.DefaultCount
	}
	if count > e.cfg.MaxCount {
		return e.cfg.MaxCount
	}
	return count
}

// resolveMembers fills in coordinates from location text. Members that
// gave neither keep a nil coordinate
func (e *Engine) resolveMembers(ctx context.Context, members []models.MemberLocation) []models.MemberLocation {
	out := make([]models.MemberLocation, len(members))
	for i, m := range members {
		out[i] = m
		out[i].Coordinate = e.locator.ResolveMember(ctx, m)
		if out[i].Coordinate == nil {
			logging.Ctx(ctx).Debug().Str("member", m.ID).Msg("member has no location, using placeholder")
		}
	}
	return out
}

// score fans out routes for every venue and returns the ranked candidates
func (e *Engine) score(ctx context.Context, members []models.MemberLocation, venues []models.Venue) []models.ScoredCandidate {
	located := make([]models.Venue, len(venues))
	for i, v := range venues {
		located[i] = v
		if v.Location == (models.Coordinate{}) {
			text := v.Region
			if text == "" {
				text = v.Address
			}
			located[i].Location, _ = e.locator.Resolve(ctx, text)
		}
	}

	summaries := e.fanout.ResolveAll(ctx, members, located)

	candidates := make([]models.ScoredCandidate, len(located))
	for i, v := range located {
		candidates[i] = models.ScoredCandidate{Venue: v, TravelSummaries: summaries[i]}
		e.cfg.Weights.ScoreCandidate(&candidates[i])
	}
	Rank(candidates)
	return candidates
}

func (e *Engine) attachAdvisories(ctx context.Context, candidates []models.ScoredCandidate) {
	if e.advisories == nil {
		return
	}
	for i := range candidates {
		var lines []string
		seen := make(map[string]bool)
		for _, s := range candidates[i].TravelSummaries {
			for _, l := range (models.TransitRoute{Legs: s.Legs}).LineLabels() {
				if !seen[l] {
					seen[l] = true
					lines = append(lines, l)
				}
			}
		}
		if len(lines) > 0 {
			candidates[i].Advisories = e.advisories.Advisories(ctx, lines)
		}
	}
}

// Phrases used by Explain
const (
	reasonEquality   = "멤버들의 이동시간이 비슷한 곳(편차 약 %d분)"
	reasonPopularity = "리뷰가 많은 인기 있는 곳"
	secondaryMin     = 20
)

// Explain describes the top candidate: each member's travel time and
// which score dominated. Returns "" for no candidates
func Explain(members []models.MemberLocation, candidates []models.ScoredCandidate) string {
	if len(candidates) == 0 {
		return ""
	}
	top := candidates[0]

	var travel []string
	for i, m := range members {
		name := m.Nickname
		if name == "" {
			name = m.ID
		}
		minutes := 0
		if i < len(top.TravelSummaries) {
			minutes = top.TravelSummaries[i].DurationMinutes
		}
		travel = append(travel, fmt.Sprintf("%s은 약 %d분", name, minutes))
	}

	equality := math.Round(top.EqualityScore)
	popularity := math.Round(top.PopularityScore)
	spread := fmt.Sprintf(reasonEquality, int(math.Round(top.TravelStdDev)))

	var priorities []string
	if equality >= popularity {
		priorities = append(priorities, spread)
		if popularity > secondaryMin {
			priorities = append(priorities, reasonPopularity)
		}
	} else {
		priorities = append(priorities, reasonPopularity)
		if equality > secondaryMin {
			priorities = append(priorities, spread)
		}
	}

	var b strings.Builder
	if len(travel) > 0 {
		fmt.Fprintf(&b, "예상 이동 시간: %s 정도 걸려\n\n", strings.Join(travel, ", "))
	}
	fmt.Fprintf(&b, "추천 기준: %s 순으로 선정했어", strings.Join(priorities, " > "))
	return b.String()
}
