package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/broadcast-service/internal/config"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/broadcast-service/internal/handler"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/broadcast-service/internal/repository"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/broadcast-service/internal/router"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/broadcast-service/internal/usecase"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/broadcast-service/pkg/whatsapp"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/auth/middleware"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/auth/pkg/jwtutil"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/events"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/cache"
)

type Server struct {
	http      *http.Server
	db        *pgxpool.Pool
	rdb       redis.UniversalClient
	publisher events.Publisher
	logger    *zap.Logger
}

func NewServer(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Server, error) {
	// --- DB connection ---
	db, err := config.ConnectDB(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// --- Redis (optional) ---
	var (
		rdb           redis.UniversalClient
		customerCache *cache.Cache
	)
	if len(cfg.RedisAddrs) > 0 {
		customerCache = cache.NewCache(cfg.RedisAddrs, cfg.RedisPass, cfg.RedisCluster)
		rdb = customerCache.Client()
	} else {
		logger.Warn("REDIS_ADDR not set, rate limiting and customer cache disabled")
	}

	// --- Events ---
	publisher, err := events.New(cfg.Events)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("events publisher: %w", err)
	}

	// --- Auth ---
	verifier, err := jwtutil.LoadAndBuild(cfg.JWT)
	if err != nil {
		db.Close()
		_ = publisher.Close()
		return nil, fmt.Errorf("jwt verifier: %w", err)
	}
	auth := middleware.NewAuthMiddleware(verifier, logger)

	// --- Repositories, clients, usecases ---
	customerRepo := repository.NewCustomerRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	wa := whatsapp.NewClient(cfg.WhatsApp.APIURL, cfg.WhatsApp.APIVersion, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.AccessToken)

	broadcastUC := usecase.NewBroadcastUsecase(wa, quoteRepo, publisher, logger)
	customerUC := usecase.NewCustomerUsecase(customerRepo, customerCache, cfg.CustomerCacheTTL, logger)

	h := handler.NewBroadcastHandler(broadcastUC, customerUC, broadcast.DefaultCatalog(), logger)

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
		db:        db,
		rdb:       rdb,
		publisher: publisher,
		logger:    logger,
	}, nil
}

// Run serves until ctx is cancelled, then shuts down and releases
// connections.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("broadcast service listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("broadcast service shutting down")
		return s.http.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.close()
	return err
}

func (s *Server) close() {
	if err := s.publisher.Close(); err != nil {
		s.logger.Warn("close publisher", zap.Error(err))
	}
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	s.db.Close()
}
