package questionnaire

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mindbloom/mindbloom-backend/internal/middleware"
)

func SetupRoutes(gen *Generator, guards middleware.Guards) http.Handler {
	r := chi.NewRouter()
	h := &Handler{Generator: gen}

	r.With(guards.Limit).Post("/next-question", h.NextQuestion)
	r.With(guards.Admin).Get("/connection", h.Connection)

	return r
}
