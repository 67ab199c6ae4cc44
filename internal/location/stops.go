package location

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// GTFS location_type values for stops.txt
const (
	gtfsStopOrPlatform = 0
	gtfsStation        = 1
)

const stationSuffix = "역"

// ReadGTFSStops turns a GTFS stops.txt into gazetteer places. When the
// feed has parent stations only those are kept, so each station appears
// once instead of once per platform. Every station is also listed under
// its "…역" name
func ReadGTFSStops(r io.Reader) ([]Place, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("stops file is empty")
		}
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")] = i
	}
	for _, required := range []string{"stop_name", "stop_lat", "stop_lon"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("stops file missing %s column", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var stations, stops []Place
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}

		name := field(record, "stop_name")
		lat, latErr := strconv.ParseFloat(field(record, "stop_lat"), 64)
		lng, lngErr := strconv.ParseFloat(field(record, "stop_lon"), 64)
		if name == "" || latErr != nil || lngErr != nil {
			continue
		}

		locationType, _ := strconv.Atoi(field(record, "location_type"))
		place := Place{Name: name, Lat: lat, Lng: lng}
		switch locationType {
		case gtfsStation:
			stations = append(stations, place)
		case gtfsStopOrPlatform:
			stops = append(stops, place)
		}
	}

	places := stations
	if len(places) == 0 {
		places = stops
	}
	return withStationAliases(places), nil
}

// withStationAliases adds "강남역" after "강남" and "강남" after "강남역"
func withStationAliases(places []Place) []Place {
	out := make([]Place, 0, len(places)*2)
	for _, p := range places {
		out = append(out, p)
		alias := p
		if base, ok := strings.CutSuffix(p.Name, stationSuffix); ok {
			if base == "" {
				continue
			}
			alias.Name = base
		} else {
			alias.Name = p.Name + stationSuffix
		}
		out = append(out, alias)
	}
	return out
}

func readGTFSStopsFile(path string) ([]Place, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stops file: %w", err)
	}
	defer file.Close()
	return ReadGTFSStops(file)
}
