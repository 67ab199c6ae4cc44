// Package recommend searches the venue catalog and ranks candidates by
// popularity and travel-time fairness across a group
package recommend

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/randytsao24/moim/internal/location"
	"github.com/randytsao24/moim/internal/models"
)

// RandomRegion asks for a sample of the whole city instead of a region
const RandomRegion = "random"

// DefaultNearestLimit is the number of venues Nearest returns when no limit is given
const DefaultNearestLimit = 4

// ErrUnsupportedFormat is returned for catalog files that are not JSON, YAML or CSV
var ErrUnsupportedFormat = errors.New("unsupported catalog format")

// venueRecord is the on-disk venue format: flat coordinates and a
// "#tag #tag" string
type venueRecord struct {
	Name        string  `json:"name" yaml:"name"`
	Category    string  `json:"category" yaml:"category"`
	Address     string  `json:"address" yaml:"address"`
	Latitude    float64 `json:"latitude" yaml:"latitude"`
	Longitude   float64 `json:"longitude" yaml:"longitude"`
	Description string  `json:"description" yaml:"description"`
	Tags        string  `json:"tags" yaml:"tags"`
	ImageURL    string  `json:"image_url" yaml:"image_url"`
	ReviewCount int     `json:"review_count" yaml:"review_count"`
	Region      string  `json:"region" yaml:"region"`
	PriceRange  string  `json:"price_range" yaml:"price_range"`
	Convenience string  `json:"convenience" yaml:"convenience"`
}

func (r venueRecord) venue() models.Venue {
	region := r.Region
	if region == "" {
		region = RegionForAddress(r.Address)
	}
	return models.Venue{
		Name:            strings.TrimSpace(r.Name),
		Address:         r.Address,
		Region:          region,
		Category:        r.Category,
		Tags:            ParseTags(r.Tags),
		PopularityCount: r.ReviewCount,
		Location:        models.Coordinate{Lat: r.Latitude, Lng: r.Longitude},
		Description:     r.Description,
		ImageURL:        r.ImageURL,
		PriceRange:      r.PriceRange,
		Convenience:     r.Convenience,
	}
}

// districtRegions maps an address district to its catalog region.
// Checked in order; the first district found in the address wins
var districtRegions = []struct {
	district string
	region   string
}{
	{"강남구", "강남"},
	{"서초구", "강남"},
	{"마포구", "홍대/연남"},
	{"성동구", "성수"},
	{"종로구", "종로/을지로"},
	{"중구", "종로/을지로"},
	{"용산구", "이태원/한남"},
	{"송파구", "잠실/송리단길"},
	{"영등포구", "여의도"},
	{"서대문구", "신촌"},
	{"광진구", "건대/광진"},
}

// OtherRegion is assigned to venues outside the mapped districts
const OtherRegion = "기타"

// RegionForAddress derives a catalog region from a street address
func RegionForAddress(address string) string {
	for _, d := range districtRegions {
		if strings.Contains(address, d.district) {
			return d.region
		}
	}
	return OtherRegion
}

// ParseTags splits a "#a #b" tag string into tags without the '#'
func ParseTags(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '#' || r == ',' || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Catalog is the read-only venue lookup table
type Catalog struct {
	venues []models.Venue
	mu     sync.RWMutex
	loaded bool

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewCatalog creates a catalog holding venues in the given order
func NewCatalog(venues []models.Venue) *Catalog {
	c := &Catalog{}
	c.venues = append([]models.Venue(nil), venues...)
	return c
}

// SetRand makes random sampling reproducible. A nil source restores the
// global generator
func (c *Catalog) SetRand(r *rand.Rand) {
	c.rngMu.Lock()
	c.rng = r
	c.rngMu.Unlock()
}

// Load replaces the catalog with venues read from a .json, .yaml/.yml or .csv file
func (c *Catalog) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening catalog file: %w", err)
	}
	defer file.Close()

	var venues []models.Venue
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		venues, err = DecodeJSON(file)
	case ".yaml", ".yml":
		venues, err = DecodeYAML(file)
	case ".csv":
		venues, err = DecodeCSV(file)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return err
	}
	if len(venues) == 0 {
		return fmt.Errorf("catalog file %s has no venues", path)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.venues = venues
	c.loaded = true
	return nil
}

// DecodeJSON reads a JSON array of venue records
func DecodeJSON(r io.Reader) ([]models.Venue, error) {
	var records []venueRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("parsing catalog JSON: %w", err)
	}
	return toVenues(records), nil
}

// DecodeYAML reads a YAML sequence of venue records
func DecodeYAML(r io.Reader) ([]models.Venue, error) {
	var records []venueRecord
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}
	return toVenues(records), nil
}

// DecodeCSV reads a venue CSV export with a header row. Columns are
// matched by name; region is derived from the address when absent
func DecodeCSV(r io.Reader) ([]models.Venue, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("catalog CSV has no data rows")
	}

	cols := make(map[string]int)
	for i, h := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, fmt.Errorf("catalog CSV missing name column")
	}
	field := func(row []string, names ...string) string {
		for _, n := range names {
			if i, ok := cols[n]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
		}
		return ""
	}

	var out []venueRecord
	for _, row := range records[1:] {
		name := field(row, "name")
		if name == "" {
			continue
		}
		lat, _ := strconv.ParseFloat(field(row, "latitude", "lat"), 64)
		lng, _ := strconv.ParseFloat(field(row, "longitude", "lng"), 64)
		reviews, _ := strconv.Atoi(strings.ReplaceAll(field(row, "review_count", "total_review_count"), ",", ""))

		out = append(out, venueRecord{
			Name:        name,
			Category:    field(row, "category"),
			Address:     field(row, "address"),
			Latitude:    lat,
			Longitude:   lng,
			Description: field(row, "description"),
			Tags:        field(row, "tags"),
			ImageURL:    field(row, "image_url"),
			ReviewCount: reviews,
			Region:      field(row, "region"),
			PriceRange:  field(row, "price_range"),
			Convenience: field(row, "convenience"),
		})
	}
	return toVenues(out), nil
}

func toVenues(records []venueRecord) []models.Venue {
	venues := make([]models.Venue, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		venues = append(venues, r.venue())
	}
	return venues
}

// Count returns the number of venues
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.venues)
}

// IsLoaded returns true if venues were loaded from a file
func (c *Catalog) IsLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// All returns every venue in catalog order
func (c *Catalog) All() []models.Venue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Venue(nil), c.venues...)
}

// Filter applies every non-empty filter and sorts the matches by
// popularity, most popular first. Ties keep catalog order
func (c *Catalog) Filter(f models.SearchFilters) []models.Venue {
	region := lower(f.Region)
	category := lower(f.Category)
	purpose := lower(f.Purpose)
	keyword := lower(f.Keyword)

	c.mu.RLock()
	var results []models.Venue
	for _, v := range c.venues {
		if region != "" && !matchRegion(v, region) {
			continue
		}
		if category != "" && !containsEither(lower(v.Category), category) {
			continue
		}
		if purpose != "" && !strings.Contains(tagText(v), purpose) {
			continue
		}
		if keyword != "" && !matchKeyword(v, keyword) {
			continue
		}
		results = append(results, v)
	}
	c.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].PopularityCount > results[j].PopularityCount
	})
	return results
}

// Sample returns up to n venues in random order, optionally limited to a category
func (c *Catalog) Sample(n int, category string) []models.Venue {
	category = lower(category)

	c.mu.RLock()
	pool := make([]models.Venue, 0, len(c.venues))
	for _, v := range c.venues {
		if category != "" && !strings.Contains(lower(v.Category), category) {
			continue
		}
		pool = append(pool, v)
	}
	c.mu.RUnlock()

	swap := func(i, j int) { pool[i], pool[j] = pool[j], pool[i] }
	c.rngMu.Lock()
	if c.rng != nil {
		c.rng.Shuffle(len(pool), swap)
	} else {
		rand.Shuffle(len(pool), swap)
	}
	c.rngMu.Unlock()

	if n >= 0 && len(pool) > n {
		pool = pool[:n]
	}
	return pool
}

// FindByName returns the venue whose name matches exactly (case-insensitive),
// else the first whose name contains or is contained by the query
func (c *Catalog) FindByName(name string) (models.Venue, bool) {
	query := lower(name)
	if query == "" {
		return models.Venue{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, v := range c.venues {
		if lower(v.Name) == query {
			return v, true
		}
	}
	for _, v := range c.venues {
		if containsEither(lower(v.Name), query) {
			return v, true
		}
	}
	return models.Venue{}, false
}

// Regions returns the distinct regions in catalog order
func (c *Catalog) Regions() []string {
	return c.distinct(func(v models.Venue) string { return v.Region })
}

// Categories returns the distinct categories in catalog order
func (c *Catalog) Categories() []string {
	return c.distinct(func(v models.Venue) string { return v.Category })
}

func (c *Catalog) distinct(field func(models.Venue) string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	out := []string{}
	for _, v := range c.venues {
		s := field(v)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// NearestOptions narrows a nearest-venue lookup
type NearestOptions struct {
	Category string
	Purpose  string
	Limit    int
}

// Nearest returns venues closest to center, nearest first
func (c *Catalog) Nearest(center models.Coordinate, opts NearestOptions) []models.VenueWithDistance {
	category := lower(opts.Category)
	purpose := lower(opts.Purpose)
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultNearestLimit
	}

	c.mu.RLock()
	var results []models.VenueWithDistance
	for _, v := range c.venues {
		if category != "" && !strings.Contains(lower(v.Category), category) {
			continue
		}
		if purpose != "" && !strings.Contains(tagText(v), purpose) {
			continue
		}
		results = append(results, models.VenueWithDistance{
			Venue:          v,
			DistanceMeters: location.DistanceMeters(center, v.Location),
		})
	}
	c.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceMeters < results[j].DistanceMeters
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func matchRegion(v models.Venue, region string) bool {
	return containsEither(lower(v.Region), region) || strings.Contains(lower(v.Address), region)
}

func matchKeyword(v models.Venue, keyword string) bool {
	return strings.Contains(lower(v.Name), keyword) ||
		strings.Contains(lower(v.Category), keyword) ||
		strings.Contains(lower(v.Description), keyword) ||
		strings.Contains(tagText(v), keyword)
}

// containsEither reports whether either string contains the other.
// An empty field never matches a non-empty filter
func containsEither(field, filter string) bool {
	if field == "" {
		return false
	}
	return strings.Contains(field, filter) || strings.Contains(filter, field)
}

func tagText(v models.Venue) string {
	return lower(strings.Join(v.Tags, " "))
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
