package assessment

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mindbloom/mindbloom-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	Service *Service
}

type eligibilityRequest struct {
	Fingerprint string `json:"fingerprint"`
}

func (h *Handler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	var req eligibilityRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	fp := strings.TrimSpace(req.Fingerprint)
	if fp == "" {
		utils.WriteError(w, r, utils.Invalid("", "Fingerprint required"))
		return
	}

	elig, err := h.Service.CheckEligibility(r.Context(), HashValue(fp), HashValue(utils.ClientIP(r)))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	msg := "You are eligible to take the assessment."
	if !elig.Allowed {
		unit := "days"
		if elig.DaysRemaining == 1 {
			unit = "day"
		}
		msg = fmt.Sprintf("Please wait %d more %s before taking the assessment again.", elig.DaysRemaining, unit)
	}
	utils.WriteJSON(w, map[string]any{
		"can_submit":     elig.Allowed,
		"days_remaining": elig.DaysRemaining,
		"message":        msg,
	})
}

type submitRequest struct {
	Pincode     string   `json:"pincode"`
	Score       *float64 `json:"score"`
	MaxScore    *float64 `json:"max_score"`
	Fingerprint string   `json:"fingerprint"`
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	in := SubmitRequest{
		Pincode:     strings.TrimSpace(req.Pincode),
		Fingerprint: strings.TrimSpace(req.Fingerprint),
		MaxScore:    ReferenceMaxScore,
		IP:          utils.ClientIP(r),
		UserAgent:   r.UserAgent(),
	}
	if req.Score == nil {
		in.Score = math.NaN() // rejected as an invalid score
	} else {
		in.Score = *req.Score
	}
	if req.MaxScore != nil {
		in.MaxScore = *req.MaxScore
	}

	res, err := h.Service.Submit(r.Context(), in)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	level, color := res.Aggregate.StressLevel()
	utils.WriteJSON(w, map[string]any{
		"success":           true,
		"message":           "Assessment submitted successfully",
		"pincode":           res.Submission.Pincode,
		"total_assessments": res.Aggregate.TotalAssessments,
		"average_score":     Round2(res.Aggregate.AverageScore),
		"stress_level":      level,
		"color":             color,
		"assessment_id":     res.Submission.ID,
	})
}

func (h *Handler) GetRegionStats(w http.ResponseWriter, r *http.Request) {
	pincode := chi.URLParam(r, "pincode")

	agg, err := h.Service.RegionStats(r.Context(), pincode)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if agg == nil {
		utils.WriteJSON(w, map[string]any{
			"pincode":           pincode,
			"total_assessments": 0,
			"average_score":     0,
			"stress_level":      LevelNoData,
			"message":           "No assessments found for this pincode yet",
		})
		return
	}

	level, color := agg.StressLevel()
	utils.AddCacheHeaders(w, 60)
	utils.WriteJSON(w, map[string]any{
		"success":           true,
		"pincode":           agg.Pincode,
		"total_assessments": agg.TotalAssessments,
		"average_score":     Round2(agg.AverageScore),
		"stress_level":      level,
		"color":             color,
		"distribution": map[string]int{
			"excellent":  agg.ExcellentCount,
			"good":       agg.GoodCount,
			"moderate":   agg.ModerateCount,
			"concerning": agg.ConcerningCount,
		},
		"last_updated": agg.LastUpdated.Format(time.RFC3339),
	})
}

type statsRow struct {
	Pincode          string  `json:"pincode"`
	TotalAssessments int     `json:"total_assessments"`
	AverageScore     float64 `json:"average_score"`
	StressLevel      Level   `json:"stress_level"`
	Color            string  `json:"color"`
	LastUpdated      string  `json:"last_updated"`
}

func (h *Handler) ListRegionStats(w http.ResponseWriter, r *http.Request) {
	minAssessments := 0
	if v := r.URL.Query().Get("min_assessments"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			utils.WriteError(w, r, utils.Invalid("min_assessments", "Invalid filter parameters"))
			return
		}
		minAssessments = n
	}
	level := Level(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("stress_level"))))

	aggs, err := h.Service.ListStats(r.Context(), minAssessments, level)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	data := make([]statsRow, 0, len(aggs))
	for _, a := range aggs {
		l, c := a.StressLevel()
		data = append(data, statsRow{
			Pincode:          a.Pincode,
			TotalAssessments: a.TotalAssessments,
			AverageScore:     Round2(a.AverageScore),
			StressLevel:      l,
			Color:            c,
			LastUpdated:      a.LastUpdated.Format(time.RFC3339),
		})
	}

	utils.AddCacheHeaders(w, 60)
	utils.WriteJSON(w, map[string]any{
		"success":        true,
		"data":           data,
		"total_pincodes": len(data),
	})
}

func (h *Handler) RecomputeRegion(w http.ResponseWriter, r *http.Request) {
	agg, err := h.Service.Recompute(r.Context(), chi.URLParam(r, "pincode"))
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	level, color := agg.StressLevel()
	utils.WriteJSON(w, map[string]any{
		"success":           true,
		"pincode":           agg.Pincode,
		"total_assessments": agg.TotalAssessments,
		"average_score":     Round2(agg.AverageScore),
		"stress_level":      level,
		"color":             color,
	})
}

func (h *Handler) RecomputeAll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	n, err := h.Service.RecomputeAll(r.Context())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"regions":  n,
		"duration": time.Since(start).String(),
	}).Info("recomputed region aggregates")
	utils.WriteJSON(w, map[string]any{
		"success":    true,
		"message":    "Successfully recalculated statistics for " + strconv.Itoa(n) + " pincodes.",
		"recomputed": n,
	})
}
