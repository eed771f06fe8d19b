package doctors

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mindbloom/mindbloom-backend/internal/middleware"
)

func SetupRoutes(guards middleware.Guards) http.Handler {
	r := chi.NewRouter()

	r.Get("/", ListDoctors)
	r.Get("/{specialist}", DoctorsBySpecialist)

	r.With(guards.Admin).Post("/", CreateDoctor)

	return r
}
