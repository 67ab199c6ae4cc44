package recommend

import (
	"math"
	"sort"

	"github.com/randytsao24/moim/internal/models"
)

// Weights are the scoring normalization constants
type Weights struct {
	// PopularityCeiling is the review count at which popularity saturates
	PopularityCeiling float64 `koanf:"popularity_ceiling" validate:"gt=0"`
	// PopularityMax is the popularity score at saturation
	PopularityMax float64 `koanf:"popularity_max" validate:"gte=0"`
	// StdDevCeiling is the travel spread, in minutes, that scores zero equality
	StdDevCeiling float64 `koanf:"stddev_ceiling" validate:"gt=0"`
	// EqualityMax is the equality score for a zero spread
	EqualityMax float64 `koanf:"equality_max" validate:"gte=0"`
}

// DefaultWeights returns the stock constants: 50000 reviews, 30 minutes, 50/50 split
func DefaultWeights() Weights {
	return Weights{
		PopularityCeiling: 50000,
		PopularityMax:     50,
		StdDevCeiling:     30,
		EqualityMax:       50,
	}
}

// MaxScore is the upper bound of a total score
const MaxScore = 100

// Score is one candidate's scoring breakdown
type Score struct {
	Popularity float64
	Equality   float64
	Total      float64
	StdDev     float64
	Average    float64
}

// StdDev returns the population standard deviation of durations: 0 for a
// single value and +Inf for none
func StdDev(durations []float64) float64 {
	switch len(durations) {
	case 0:
		return math.Inf(1)
	case 1:
		return 0
	}

	mean := Mean(durations)
	var sum float64
	for _, d := range durations {
		sum += (d - mean) * (d - mean)
	}
	return math.Sqrt(sum / float64(len(durations)))
}

// Mean returns the average of durations, 0 for none
func Mean(durations []float64) float64 {
	if len(durations) == 0 {
		return 0
	}
	var sum float64
	for _, d := range durations {
		sum += d
	}
	return sum / float64(len(durations))
}

// Popularity scores a review count linearly up to the ceiling
func (w Weights) Popularity(count int) float64 {
	if count <= 0 {
		return 0
	}
	return math.Min(float64(count)/w.PopularityCeiling, 1) * w.PopularityMax
}

// Equality scores a travel spread; zero spread earns the full EqualityMax
func (w Weights) Equality(stdDev float64) float64 {
	return math.Max(0, w.EqualityMax-stdDev/w.StdDevCeiling*w.EqualityMax)
}

// Score combines popularity and travel equality. An empty duration list
// scores zero equality and reports a zero spread
func (w Weights) Score(popularityCount int, durations []float64) Score {
	s := Score{
		Popularity: w.Popularity(popularityCount),
		Average:    Mean(durations),
	}
	if len(durations) > 0 {
		s.StdDev = StdDev(durations)
		s.Equality = w.Equality(s.StdDev)
	}
	s.Total = math.Min(math.Max(s.Popularity+s.Equality, 0), MaxScore)
	return s
}

// ScoreCandidate fills in the scores of c from its travel summaries
func (w Weights) ScoreCandidate(c *models.ScoredCandidate) {
	durations := make([]float64, len(c.TravelSummaries))
	for i, t := range c.TravelSummaries {
		durations[i] = float64(t.DurationMinutes)
	}
	s := w.Score(c.PopularityCount, durations)
	c.PopularityScore = s.Popularity
	c.EqualityScore = s.Equality
	c.TotalScore = s.Total
	c.TravelStdDev = s.StdDev
	c.AverageDurationMinutes = s.Average
}

// Rank sorts candidates by total score, highest first. Ties keep their
// incoming order
func Rank(candidates []models.ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].TotalScore > candidates[j].TotalScore
	})
}
