package router

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/broadcast-service/internal/handler"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/auth/middleware"
)

// SendRoles are the token roles allowed to start a broadcast.
var SendRoles = []string{"authenticated", "service_role"}

type RateLimit struct {
	Limit  int
	Window time.Duration
	Block  time.Duration
}

// SetupRoutes wires the broadcast API. rdb may be nil, which disables rate
// limiting.
func SetupRoutes(r chi.Router, h *handler.BroadcastHandler, auth *middleware.AuthMiddleware, rdb redis.UniversalClient, rl RateLimit) chi.Router {
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
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware)
		if rdb != nil {
			r.Use(middleware.RateLimiter(rdb, rl.Limit, rl.Window, rl.Block, "broadcast"))
		}

		r.Get("/customers/list", h.ListCustomers)

		r.Route("/broadcast", func(r chi.Router) {
			r.Get("/templates", h.ListTemplates)
			r.With(auth.RequireRoles(SendRoles...)).Post("/send-template", h.SendTemplate)
		})
	})
	return r
}
