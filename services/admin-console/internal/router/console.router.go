package router

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/admin-console/internal/handler"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/auth/middleware"
)

type RateLimit struct {
	Limit  int
	Window time.Duration
	Block  time.Duration
}

// SetupRoutes wires the composer API. rdb may be nil, which disables rate
// limiting.
func SetupRoutes(r chi.Router, h *handler.ComposerHandler, auth *middleware.AuthMiddleware, rdb redis.UniversalClient, rl RateLimit) chi.Router {
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
		},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api/v1/composer", func(r chi.Router) {
		r.Use(auth.Middleware)
		if rdb != nil {
			r.Use(middleware.RateLimiter(rdb, rl.Limit, rl.Window, rl.Block, "composer"))
		}

		r.Get("/templates", h.ListTemplates)

		r.Post("/sessions", h.OpenSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.CloseSession)
			r.Put("/filter", h.SetFilter)
			r.Post("/refresh", h.Refresh)
			r.Post("/recipients/toggle", h.Toggle)
			r.Post("/recipients/select-visible", h.SelectVisible)
			r.Post("/recipients/deselect-visible", h.DeselectVisible)
			r.Put("/template", h.SetTemplate)
			r.Put("/params/{index}", h.SetParam)
			r.Get("/preview", h.Preview)
			r.Post("/send", h.Send)
		})
	})
	return r
}
