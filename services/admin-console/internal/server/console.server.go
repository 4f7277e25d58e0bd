package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/admin-console/internal/apiclient"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/admin-console/internal/composer"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/admin-console/internal/config"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/admin-console/internal/handler"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/admin-console/internal/router"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/admin-console/internal/session"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/auth/middleware"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/auth/pkg/jwtutil"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
)

type Server struct {
	http     *http.Server
	sessions *session.Store
	sweep    time.Duration
	rdb      redis.UniversalClient
	logger   *zap.Logger
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) (*Server, error) {
	// --- Auth ---
	verifier, err := jwtutil.LoadAndBuild(cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("jwt verifier: %w", err)
	}
	auth := middleware.NewAuthMiddleware(verifier, logger)

	// --- Redis (optional) ---
	var rdb redis.UniversalClient
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       0,
		})
	}

	// --- Backend client + sessions ---
	backend := apiclient.New(cfg.BackendURL, apiclient.ForwardedToken{}, cfg.BackendTimeout)
	catalog := broadcast.DefaultCatalog()
	sessions := session.NewStore(cfg.SessionTTL, func() *composer.Composer {
		return composer.New(backend, catalog, logger)
	}, logger)

	h := handler.NewComposerHandler(sessions, catalog, cfg.BackendTimeout, logger)
	r := router.SetupRoutes(chi.NewRouter(), h, auth, rdb, router.RateLimit{
		Limit:  cfg.RateLimit,
		Window: cfg.RateLimitWindow,
		Block:  cfg.RateLimitBlock,
	})

	return &Server{
		http: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		sessions: sessions,
		sweep:    cfg.SweepInterval,
		rdb:      rdb,
		logger:   logger,
	}, nil
}

// Run serves and sweeps idle sessions until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("admin console listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		s.sessions.Run(ctx, s.sweep)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("admin console shutting down")
		return s.http.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	return err
}
