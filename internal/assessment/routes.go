package assessment

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mindbloom/mindbloom-backend/internal/middleware"
)

func SetupRoutes(svc *Service, guards middleware.Guards) http.Handler {
	r := chi.NewRouter()
	h := &Handler{Service: svc}

	r.Post("/eligibility", h.CheckEligibility)
	r.With(guards.Limit).Post("/submit", h.Submit)
	r.Get("/stats", h.ListRegionStats)
	r.Get("/stats/{pincode}", h.GetRegionStats)

	r.Group(func(r chi.Router) {
		r.Use(guards.Admin)

		r.Post("/stats/recompute", h.RecomputeAll)
		r.Post("/stats/{pincode}/recompute", h.RecomputeRegion)
	})

	return r
}
