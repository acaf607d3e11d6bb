package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"tileforge/internal/http/handlers"
	"tileforge/internal/middleware"
)

// NewRouter assembles the API surface with the shared middleware stack.
func NewRouter(app *handlers.App, country middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Country(country),
		middleware.Logger(app.Logger),
		middleware.CORS(app.Config.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/textures", func(r chi.Router) {
		r.With(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute)).
			Post("/", app.GenerateTexture)
		r.With(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute)).
			Post("/bundle", app.BundleTexture)
		r.Get("/history", app.TextureHistory)
	})

	// The endpoint contract promises 405 for any non-POST verb on the
	// generation path.
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"error":"method not allowed"}`))
	})

	return r
}
