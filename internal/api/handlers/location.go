package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/randytsao24/moim/internal/location"
	"github.com/randytsao24/moim/internal/models"
)

type LocationHandler struct {
	resolver LocationResolver
	reverse  ReverseGeocoder
}

// NewLocationHandler creates a location handler. reverse may be nil
func NewLocationHandler(resolver LocationResolver, reverse ReverseGeocoder) *LocationHandler {
	return &LocationHandler{
		resolver: resolver,
		reverse:  reverse,
	}
}

// Geocode resolves free text to a coordinate. It always answers; the
// source says whether the geocoder, a gazetteer stage or the city-centre
// default produced it
func (h *LocationHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required", "")
		return
	}

	coord, source := h.resolver.Resolve(r.Context(), query)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"query":      query,
		"coordinate": coord,
		"source":     source,
	})
}

// ReverseGeocode returns the address at a coordinate
func (h *LocationHandler) ReverseGeocode(w http.ResponseWriter, r *http.Request) {
	lat, err := parseFloatParam(r, "lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid coordinates", err.Error())
		return
	}
	lng, err := parseFloatParam(r, "lng")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid coordinates", err.Error())
		return
	}

	if h.reverse == nil {
		writeError(w, http.StatusServiceUnavailable, "Reverse geocoding not configured", "")
		return
	}

	coord := models.Coordinate{Lat: lat, Lng: lng}
	address, err := h.reverse.ReverseGeocode(r.Context(), coord)
	switch {
	case errors.Is(err, location.ErrNoAPIKey):
		writeError(w, http.StatusServiceUnavailable, "Reverse geocoding not configured", "")
		return
	case errors.Is(err, location.ErrNoResult):
		writeError(w, http.StatusNotFound, "No address found", "")
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, "Reverse geocoding failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"coordinate": coord,
		"address":    address,
	})
}
