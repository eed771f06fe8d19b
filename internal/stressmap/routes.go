package stressmap

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(svc *Service) http.Handler {
	r := chi.NewRouter()
	h := &Handler{Service: svc}

	r.Post("/locate", h.Locate)
	r.Get("/boundaries", h.ListBoundaries)
	r.Get("/boundaries/{pincode}", h.GetBoundary)
	r.Get("/map-data", h.MapData)

	return r
}
