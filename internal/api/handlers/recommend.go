package handlers

import (
	"net/http"
	"strings"

	"github.com/randytsao24/moim/internal/logging"
	"github.com/randytsao24/moim/internal/models"
)

type RecommendHandler struct {
	engine Recommender
}

func NewRecommendHandler(engine Recommender) *RecommendHandler {
	return &RecommendHandler{engine: engine}
}

type memberInput struct {
	ID        string   `json:"id" validate:"required"`
	Nickname  string   `json:"nickname"`
	Latitude  *float64 `json:"latitude" validate:"required_with=Longitude,omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"required_with=Latitude,omitempty,longitude"`
	Location  string   `json:"location"`
}

func (m memberInput) toModel() models.MemberLocation {
	out := models.MemberLocation{
		ID:           m.ID,
		Nickname:     m.Nickname,
		LocationText: strings.TrimSpace(m.Location),
	}
	if m.Latitude != nil && m.Longitude != nil {
		out.Coordinate = &models.Coordinate{Lat: *m.Latitude, Lng: *m.Longitude}
	}
	return out
}

func toMembers(in []memberInput) []models.MemberLocation {
	out := make([]models.MemberLocation, len(in))
	for i, m := range in {
		out[i] = m.toModel()
	}
	return out
}

type recommendRequest struct {
	Members  []memberInput `json:"members" validate:"required,min=1,max=20,dive"`
	Region   string        `json:"region"`
	Category string        `json:"category"`
	Keyword  string        `json:"keyword"`
	Purpose  string        `json:"purpose"`
	Count    int           `json:"count" validate:"gte=0"`
}

// Recommend ranks venues for a group
func (h *RecommendHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	filters := models.SearchFilters{
		Region:   req.Region,
		Category: req.Category,
		Keyword:  req.Keyword,
		Purpose:  req.Purpose,
	}
	rec := h.engine.RecommendDetailed(r.Context(), toMembers(req.Members), filters, req.Count)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"search_stage": rec.SearchStage,
		"explanation":  rec.Explanation,
		"members":      rec.Members,
		"candidates":   rec.Candidates,
		"metadata": map[string]any{
			"count": len(rec.Candidates),
		},
	})
}

type venueTravelRequest struct {
	Members []memberInput `json:"members" validate:"required,min=1,max=20,dive"`
}

// VenueTravel returns every member's trip to one named venue
func (h *RecommendHandler) VenueTravel(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "Venue name is required", "")
		return
	}

	var req venueTravelRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	candidate, ok := h.engine.VenueTravel(r.Context(), name, toMembers(req.Members))
	if !ok {
		writeError(w, http.StatusNotFound, "Venue not found", "No venue matches "+name)
		return
	}

	logging.Ctx(r.Context()).Debug().Str("venue", candidate.Name).Msg("venue travel resolved")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"venue":   candidate,
	})
}
