package handlers

import (
	"net/http"
	"strings"

	"github.com/randytsao24/moim/internal/models"
)

type TransitHandler struct {
	routes   Recommender
	resolver LocationResolver
	alerts   AlertProvider
	cache    CacheStatsProvider
}

// NewTransitHandler creates a transit handler. alerts and cache may be nil
func NewTransitHandler(routes Recommender, resolver LocationResolver, alerts AlertProvider, cache CacheStatsProvider) *TransitHandler {
	return &TransitHandler{
		routes:   routes,
		resolver: resolver,
		alerts:   alerts,
		cache:    cache,
	}
}

// GetRoute returns the transit route between two points. Each end is
// given either as from/to text or as origin_lat/origin_lng and
// dest_lat/dest_lng
func (h *TransitHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	origin, ok := h.endpoint(w, r, "from", "origin_lat", "origin_lng")
	if !ok {
		return
	}
	destination, ok := h.endpoint(w, r, "to", "dest_lat", "dest_lng")
	if !ok {
		return
	}

	route := h.routes.EstimateRoute(r.Context(), origin, destination)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"origin":      origin,
		"destination": destination,
		"route":       route,
	})
}

func (h *TransitHandler) endpoint(w http.ResponseWriter, r *http.Request, textParam, latParam, lngParam string) (models.Coordinate, bool) {
	if text := strings.TrimSpace(r.URL.Query().Get(textParam)); text != "" {
		coord, _ := h.resolver.Resolve(r.Context(), text)
		return coord, true
	}

	lat, err := parseFloatParam(r, latParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid coordinates", err.Error())
		return models.Coordinate{}, false
	}
	lng, err := parseFloatParam(r, lngParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid coordinates", err.Error())
		return models.Coordinate{}, false
	}
	return models.Coordinate{Lat: lat, Lng: lng}, true
}

// GetServiceAlerts returns active service alerts, optionally filtered by route
func (h *TransitHandler) GetServiceAlerts(w http.ResponseWriter, r *http.Request) {
	if h.alerts == nil || !h.alerts.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "Service alerts unavailable", "ALERTS_FEED_URL not configured")
		return
	}

	routesParam := r.URL.Query().Get("routes")
	var routes []string
	if routesParam != "" {
		routes = strings.Split(routesParam, ",")
	}

	alerts, err := h.alerts.GetAlerts(r.Context(), routes)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to fetch service alerts", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"alerts":  alerts,
		"count":   len(alerts),
	})
}

// GetCacheStats returns route cache counters
func (h *TransitHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "Route cache unavailable", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"cache":   h.cache.CacheStats(),
	})
}
