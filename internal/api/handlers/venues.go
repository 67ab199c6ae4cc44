package handlers

import (
	"net/http"
	"strings"

	"github.com/randytsao24/moim/internal/models"
	"github.com/randytsao24/moim/internal/recommend"
)

const (
	defaultVenueLimit = 20
	maxVenueLimit     = 100
	maxNearestLimit   = 20
)

type VenueHandler struct {
	catalog  VenueCatalog
	resolver LocationResolver
}

func NewVenueHandler(catalog VenueCatalog, resolver LocationResolver) *VenueHandler {
	return &VenueHandler{
		catalog:  catalog,
		resolver: resolver,
	}
}

// List returns venues matching the query filters, most popular first
func (h *VenueHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := models.SearchFilters{
		Region:   q.Get("region"),
		Category: q.Get("category"),
		Keyword:  q.Get("keyword"),
		Purpose:  q.Get("purpose"),
	}
	limit := parseIntParam(r, "limit", defaultVenueLimit, 1, maxVenueLimit)

	venues := h.catalog.Filter(filters)
	total := len(venues)
	if len(venues) > limit {
		venues = venues[:limit]
	}
	if venues == nil {
		venues = []models.Venue{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(venues),
		"total":   total,
		"venues":  venues,
	})
}

// Regions returns all catalog regions
func (h *VenueHandler) Regions(w http.ResponseWriter, r *http.Request) {
	regions := h.catalog.Regions()

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(regions),
		"regions": regions,
	})
}

// Categories returns all catalog categories
func (h *VenueHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories := h.catalog.Categories()

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"count":      len(categories),
		"categories": categories,
	})
}

// Nearest returns venues closest to lat/lng, or to a place named by location
func (h *VenueHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var center models.Coordinate
	if text := strings.TrimSpace(q.Get("location")); text != "" {
		center, _ = h.resolver.Resolve(r.Context(), text)
	} else {
		lat, err := parseFloatParam(r, "lat")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid coordinates", "Provide lat and lng, or location")
			return
		}
		lng, err := parseFloatParam(r, "lng")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid coordinates", "Provide lat and lng, or location")
			return
		}
		center = models.Coordinate{Lat: lat, Lng: lng}
	}

	venues := h.catalog.Nearest(center, recommend.NearestOptions{
		Category: q.Get("category"),
		Purpose:  q.Get("purpose"),
		Limit:    parseIntParam(r, "limit", recommend.DefaultNearestLimit, 1, maxNearestLimit),
	})
	if venues == nil {
		venues = []models.VenueWithDistance{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"center":  center,
		"count":   len(venues),
		"venues":  venues,
	})
}

// Get looks a venue up by name
func (h *VenueHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	venue, found := h.catalog.FindByName(name)
	if !found {
		writeError(w, http.StatusNotFound, "Venue not found", "No venue matches "+name)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"venue":   venue,
	})
}
