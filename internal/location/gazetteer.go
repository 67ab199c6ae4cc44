// Package location resolves free-text place names to coordinates
package location

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/randytsao24/moim/internal/models"
)

// Place is a named gazetteer entry
type Place struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Coordinate returns the place's point
func (p Place) Coordinate() models.Coordinate {
	return models.Coordinate{Lat: p.Lat, Lng: p.Lng}
}

// defaultPlaces is the built-in gazetteer. Order matters: substring
// matching walks this slice and returns the first hit
var defaultPlaces = []Place{
	// Seoul
	{"강남", 37.4979, 127.0276},
	{"강남역", 37.4979, 127.0276},
	{"홍대", 37.5563, 126.9226},
	{"홍대입구", 37.5563, 126.9226},
	{"홍대/연남", 37.5563, 126.9226},
	{"연남동", 37.5663, 126.9244},
	{"연남", 37.5663, 126.9244},
	{"성수", 37.5445, 127.0557},
	{"성수동", 37.5445, 127.0557},
	{"종로", 37.5704, 126.9922},
	{"종로/을지로", 37.5704, 126.9922},
	{"을지로", 37.5662, 126.9916},
	{"을지로/충무로", 37.5662, 126.9916},
	{"충무로", 37.5612, 126.9944},
	{"이태원", 37.5347, 126.9945},
	{"이태원/한남", 37.5347, 126.9945},
	{"한남", 37.5347, 127.0063},
	{"한남동", 37.5347, 127.0063},
	{"신촌", 37.5596, 126.9428},
	{"이대", 37.5569, 126.9462},
	{"신사", 37.5163, 127.0204},
	{"압구정/신사", 37.5217, 127.0245},
	{"압구정", 37.5271, 127.0286},
	{"청담", 37.5199, 127.0472},
	{"삼성", 37.5089, 127.0634},
	{"삼성역", 37.5089, 127.0634},
	{"잠실", 37.5133, 127.1001},
	{"잠실/송리단길", 37.5133, 127.1001},
	{"송리단길", 37.5056, 127.1123},
	{"건대", 37.5404, 127.0696},
	{"건대입구", 37.5404, 127.0696},
	{"왕십리", 37.5615, 127.0378},
	{"명동", 37.5636, 126.9869},
	{"동대문", 37.5712, 127.0095},
	{"혜화", 37.5822, 127.0011},
	{"대학로", 37.5822, 127.0011},
	{"서울역", 37.5547, 126.9706},
	{"용산", 37.5299, 126.9645},
	{"여의도", 37.5219, 126.9245},
	{"영등포", 37.5156, 126.9078},
	{"마포", 37.5538, 126.9515},
	{"합정", 37.5495, 126.9137},
	{"망원", 37.5563, 126.9105},
	{"망원/합정", 37.5529, 126.9121},
	{"상수", 37.5478, 126.9227},
	{"광화문", 37.5759, 126.9769},
	{"서촌/광화문", 37.5778, 126.9741},
	{"북촌", 37.5826, 126.9831},
	{"서촌", 37.5796, 126.9712},
	{"익선동", 37.5743, 126.9887},
	{"인사동", 37.5743, 126.985},

	// Gyeonggi
	{"수원", 37.2636, 127.0286},
	{"수원역", 37.2658, 127.0014},
	{"용인", 37.2411, 127.1776},
	{"성남", 37.4201, 127.1265},
	{"분당", 37.3825, 127.1193},
	{"판교", 37.3947, 127.1112},
	{"일산", 37.6593, 126.7699},
	{"고양", 37.6584, 126.832},
	{"부천", 37.5035, 126.766},
	{"안양", 37.3943, 126.9568},
	{"평촌", 37.3894, 126.9512},
	{"광명", 37.4786, 126.8644},
	{"안산", 37.3219, 126.8309},
	{"의정부", 37.7381, 127.0337},
	{"남양주", 37.636, 127.2165},
	{"화성", 37.1997, 126.8313},
	{"동탄", 37.2005, 127.0969},
	{"파주", 37.7126, 126.7616},
	{"김포", 37.6152, 126.7156},
	{"광주", 37.4295, 127.2551}, // Gwangju, Gyeonggi
	{"하남", 37.5393, 127.2148},
	{"구리", 37.5944, 127.1297},
	{"오산", 37.1499, 127.0773},
	{"시흥", 37.38, 126.8031},
	{"군포", 37.3616, 126.9352},
	{"의왕", 37.3448, 126.9682},
	{"과천", 37.4292, 126.9876},

	// Incheon
	{"인천", 37.4563, 126.7052},
	{"부평", 37.5074, 126.7218},
	{"송도", 37.3833, 126.6572},
}

// Gazetteer is an ordered table of named places
type Gazetteer struct {
	places []Place
	index  map[string]int
	mu     sync.RWMutex
	loaded bool
}

// NewGazetteer creates a gazetteer seeded with the built-in places
func NewGazetteer() *Gazetteer {
	g := &Gazetteer{}
	g.replace(defaultPlaces)
	return g
}

// NewGazetteerFromPlaces creates a gazetteer with the given places in order
func NewGazetteerFromPlaces(places []Place) *Gazetteer {
	g := &Gazetteer{}
	g.replace(places)
	return g
}

// Load replaces the gazetteer with places read from a file: a JSON
// array of places, or a GTFS stops.txt (.txt or .csv)
func (g *Gazetteer) Load(path string) error {
	var places []Place
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".csv":
		places, err = readGTFSStopsFile(path)
	default:
		places, err = readPlacesJSON(path)
	}
	if err != nil {
		return err
	}
	if len(places) == 0 {
		return fmt.Errorf("gazetteer file %s has no places", path)
	}

	g.replace(places)

	g.mu.Lock()
	g.loaded = true
	g.mu.Unlock()
	return nil
}

func readPlacesJSON(path string) ([]Place, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading gazetteer file: %w", err)
	}

	var places []Place
	if err := json.Unmarshal(data, &places); err != nil {
		return nil, fmt.Errorf("parsing gazetteer JSON: %w", err)
	}
	return places, nil
}

func (g *Gazetteer) replace(places []Place) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.places = make([]Place, 0, len(places))
	g.index = make(map[string]int, len(places))
	for _, p := range places {
		if _, dup := g.index[p.Name]; dup {
			continue
		}
		g.index[p.Name] = len(g.places)
		g.places = append(g.places, p)
	}
}

// Get returns a place by exact name
func (g *Gazetteer) Get(name string) (Place, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	i, ok := g.index[name]
	if !ok {
		return Place{}, false
	}
	return g.places[i], true
}

// Places returns all places in declaration order
func (g *Gazetteer) Places() []Place {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Place, len(g.places))
	copy(out, g.places)
	return out
}

// Count returns the number of places
func (g *Gazetteer) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.places)
}

// IsLoaded returns true if places were loaded from a file
func (g *Gazetteer) IsLoaded() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.loaded
}
