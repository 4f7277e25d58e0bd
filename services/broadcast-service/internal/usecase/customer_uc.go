package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/broadcast-service/internal/repository"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/cache"
)

const (
	customerCacheNamespace = "customers"
	customerListLimit      = 100
)

var customerCacheLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "customer_cache_lookups_total",
		Help: "Customer list cache lookups by result",
	},
	[]string{"result"},
)

type CustomerUsecase struct {
	repo   repository.CustomerRepository
	cache  *cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCustomerUsecase builds the customer listing use case. c may be nil, in
// which case every call reads the database.
func NewCustomerUsecase(repo repository.CustomerRepository, c *cache.Cache, ttl time.Duration, logger *zap.Logger) *CustomerUsecase {
	return &CustomerUsecase{repo: repo, cache: c, ttl: ttl, logger: logger}
}

func (uc *CustomerUsecase) List(ctx context.Context, filter broadcast.CustomerFilter) ([]broadcast.Customer, error) {
	filter.Q = strings.TrimSpace(filter.Q)
	filter.Status = strings.TrimSpace(filter.Status)
	key := filter.Q + "|" + filter.Status

	if uc.cache != nil {
		var cached []broadcast.Customer
		err := uc.cache.GetJSON(ctx, customerCacheNamespace, key, &cached)
		switch {
		case err == nil:
			customerCacheLookups.WithLabelValues("hit").Inc()
			return cached, nil
		case errors.Is(err, redis.Nil):
			customerCacheLookups.WithLabelValues("miss").Inc()
		default:
			customerCacheLookups.WithLabelValues("error").Inc()
			uc.logger.Warn("customer cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	customers, err := uc.repo.List(ctx, filter, customerListLimit)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.SetJSON(ctx, customerCacheNamespace, key, customers, uc.ttl); err != nil {
			uc.logger.Warn("customer cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return customers, nil
}
