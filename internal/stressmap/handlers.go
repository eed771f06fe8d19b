package stressmap

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mindbloom/mindbloom-backend/internal/assessment"
	"github.com/mindbloom/mindbloom-backend/internal/utils"
)

type Handler struct {
	Service *Service
}

type locateRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (h *Handler) Locate(w http.ResponseWriter, r *http.Request) {
	var req locateRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		utils.WriteJSONStatus(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Latitude and longitude required",
		})
		return
	}
	lat, lng := *req.Latitude, *req.Longitude

	region, err := h.Service.Locate(r.Context(), lat, lng)
	var nf *utils.NotFoundError
	switch {
	case errors.As(err, &nf):
		utils.WriteJSONStatus(w, http.StatusNotFound, map[string]any{
			"success":     false,
			"message":     "No pincode found for this location. Please enter manually.",
			"coordinates": map[string]float64{"lat": lat, "lng": lng},
		})
		return
	case err != nil:
		utils.WriteError(w, r, err)
		return
	}

	utils.WriteJSON(w, map[string]any{
		"success":     true,
		"pincode":     region.Pincode,
		"office_name": region.OfficeName,
		"division":    region.Division,
		"region":      region.Region,
		"circle":      region.Circle,
	})
}

func (h *Handler) GetBoundary(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.Boundary(r.Context(), chi.URLParam(r, "pincode"))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	f, err := BoundaryFeature(*b)
	if err != nil {
		utils.WriteError(w, r, utils.Store("render boundary", err))
		return
	}
	utils.AddCacheHeaders(w, 300)
	utils.WriteJSON(w, f)
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func (h *Handler) ListBoundaries(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", DefaultPageLimit)
	if err != nil {
		utils.WriteError(w, r, utils.Invalid("limit", "Invalid pagination parameters"))
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		utils.WriteError(w, r, utils.Invalid("offset", "Invalid pagination parameters"))
		return
	}
	filter := BoundaryFilter{
		Region: strings.TrimSpace(r.URL.Query().Get("region")),
		Circle: strings.TrimSpace(r.URL.Query().Get("circle")),
	}

	page, err := h.Service.ListBoundaries(r.Context(), filter, limit, offset)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	features := boundaryFeatures(page.Boundaries)
	utils.AddCacheHeaders(w, 300)
	utils.WriteJSON(w, map[string]any{
		"type":     "FeatureCollection",
		"features": features,
		"count":    len(features),
		"total":    page.Total,
		"offset":   page.Offset,
		"limit":    page.Limit,
	})
}

func (h *Handler) MapData(w http.ResponseWriter, r *http.Request) {
	minAssessments, err := queryInt(r, "min_assessments", 1)
	if err != nil {
		utils.WriteError(w, r, utils.Invalid("min_assessments", "Invalid filter parameters"))
		return
	}
	q := r.URL.Query()
	filter := MapFilter{
		MinAssessments: minAssessments,
		StressLevel:    assessment.Level(strings.ToLower(strings.TrimSpace(q.Get("stress_level")))),
		Region:         strings.TrimSpace(q.Get("region")),
	}

	regions, err := h.Service.MapData(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	features := mapFeatures(regions)
	utils.AddCacheHeaders(w, 60)
	utils.WriteJSON(w, map[string]any{
		"type":     "FeatureCollection",
		"features": features,
		"count":    len(features),
		"filters": map[string]any{
			"min_assessments": filter.MinAssessments,
			"stress_level":    nullable(string(filter.StressLevel)),
			"region":          nullable(filter.Region),
		},
	})
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
