package recommend

import (
	"strings"

	"github.com/randytsao24/moim/internal/models"
)

// Search stages, in the order Search tries them
const (
	StageFiltered       = "filtered"
	StageRegion         = "region"
	StageCategorySample = "category-sample"
	StageSample         = "sample"
)

// DefaultSampleSize is how many venues a random-sample stage draws
const DefaultSampleSize = 10

// searchStage returns venues for the filters, or nil to defer to the next stage
type searchStage struct {
	name string
	run  func(c *Catalog, f models.SearchFilters, sampleSize int) []models.Venue
}

// searchStages broadens from the full filter set to an unfiltered sample.
// The last stage only comes back empty when the catalog is empty
var searchStages = []searchStage{
	{StageFiltered, func(c *Catalog, f models.SearchFilters, _ int) []models.Venue {
		if isRandomRegion(f.Region) {
			return nil
		}
		return c.Filter(f)
	}},
	{StageRegion, func(c *Catalog, f models.SearchFilters, _ int) []models.Venue {
		if isRandomRegion(f.Region) {
			return nil
		}
		return c.Filter(models.SearchFilters{Region: f.Region})
	}},
	{StageCategorySample, func(c *Catalog, f models.SearchFilters, n int) []models.Venue {
		if !isRandomRegion(f.Region) || strings.TrimSpace(f.Category) == "" {
			return nil
		}
		return c.Sample(n, f.Category)
	}},
	{StageSample, func(c *Catalog, _ models.SearchFilters, n int) []models.Venue {
		return c.Sample(n, "")
	}},
}

// Search finds candidate venues, broadening the filters until something
// matches. It reports which stage produced the result
func (c *Catalog) Search(f models.SearchFilters, sampleSize int) ([]models.Venue, string) {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	for _, stage := range searchStages {
		if venues := stage.run(c, f, sampleSize); len(venues) > 0 {
			return venues, stage.name
		}
	}
	return nil, StageSample
}

func isRandomRegion(region string) bool {
	region = strings.TrimSpace(region)
	return region == "" || strings.EqualFold(region, RandomRegion)
}
