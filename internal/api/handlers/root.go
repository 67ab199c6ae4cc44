package handlers

import (
	"net/http"
)

type RootHandler struct{}

func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

func (h *RootHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "moim",
		"description": "Meeting-place recommendations ranked by popularity and travel-time fairness",
		"version":     "1.0.0",
		"endpoints": map[string]string{
			"GET /":                          "API information",
			"GET /health":                    "Health check",
			"POST /api/recommend":            "Recommend venues for a group",
			"GET /api/route":                 "Transit route between two points",
			"GET /api/geocode":               "Resolve a place name to coordinates",
			"GET /api/reverse-geocode":       "Address at a coordinate",
			"GET /api/venues":                "Search the venue catalog",
			"GET /api/venues/regions":        "Catalog regions",
			"GET /api/venues/categories":     "Catalog categories",
			"GET /api/venues/nearest":        "Venues closest to a point",
			"GET /api/venues/{name}":         "Venue detail",
			"POST /api/venues/{name}/travel": "Per-member travel to a venue",
			"GET /api/alerts":                "Active transit service alerts",
			"GET /api/cache/stats":           "Route cache counters",
			"GET /metrics":                   "Prometheus metrics",
		},
	})
}

func (h *RootHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":   "Route not found",
		"message": "Check the root endpoint (/) for available routes",
	})
}

func (h *RootHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
		"error":   "Method not allowed",
		"message": r.Method + " is not supported for " + r.URL.Path,
	})
}
