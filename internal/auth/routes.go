package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mindbloom/mindbloom-backend/internal/middleware"
)

// SetupRoutes mounts the account endpoints. secureCookies marks the session
// cookie Secure with SameSite=None for cross-site frontends.
func SetupRoutes(guards middleware.Guards, secureCookies bool) http.Handler {
	r := chi.NewRouter()
	h := &handler{secureCookies: secureCookies}
	sessionFetcher := SessionInfo{}

	r.Post("/register", h.Register)
	r.With(guards.Limit).Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessionFetcher))

		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
		r.Post("/update-password", h.UpdatePassword)
	})

	r.With(guards.Admin).Get("/admin/dashboard", h.AdminDashboard)

	return r
}
