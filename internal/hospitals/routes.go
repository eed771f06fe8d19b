package hospitals

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mindbloom/mindbloom-backend/internal/middleware"
)

func SetupRoutes(guards middleware.Guards) http.Handler {
	r := chi.NewRouter()

	r.Get("/", ListHospitals)
	r.With(guards.Admin).Post("/", CreateHospital)

	return r
}
