package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/hushkey/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the full route tree.
func NewRouter(service Credentials, cookies *CookieBinder, logger logging.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(Recovery(logger))
	r.Use(RequestLogging(logger))
	r.Use(Metrics)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	handler := NewAuthHandler(service, cookies, logger)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/signup", handler.Signup)
		r.Post("/login", handler.Login)
		r.Post("/refresh", handler.Refresh)
		r.Post("/logout", handler.Logout)
	})

	r.With(Authenticate(service.ParseAccessToken)).
		Get("/api/v1/auth/profile", handler.Profile)

	return r
}
