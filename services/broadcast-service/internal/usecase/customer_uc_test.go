package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/cache"
)

type fakeCustomerRepo struct {
	customers []broadcast.Customer
	err       error
	filters   []broadcast.CustomerFilter
	limit     int
}

func (f *fakeCustomerRepo) List(_ context.Context, filter broadcast.CustomerFilter, limit int) ([]broadcast.Customer, error) {
	f.filters = append(f.filters, filter)
	f.limit = limit
	return f.customers, f.err
}

func TestCustomerListWithoutCache(t *testing.T) {
	repo := &fakeCustomerRepo{customers: []broadcast.Customer{
		{PhoneNumber: "584121234567", FullName: "Ana", Status: broadcast.StatusApproved},
	}}
	uc := NewCustomerUsecase(repo, nil, time.Minute, zap.NewNop())

	got, err := uc.List(context.Background(), broadcast.CustomerFilter{Q: "  ana ", Status: "approved"})
	require.NoError(t, err)
	assert.Equal(t, repo.customers, got)
	assert.Equal(t, broadcast.CustomerFilter{Q: "ana", Status: "approved"}, repo.filters[0])
	assert.Equal(t, customerListLimit, repo.limit)
}

func TestCustomerListPropagatesRepoError(t *testing.T) {
	uc := NewCustomerUsecase(&fakeCustomerRepo{err: errors.New("db down")}, nil, time.Minute, zap.NewNop())
	_, err := uc.List(context.Background(), broadcast.CustomerFilter{})
	assert.EqualError(t, err, "db down")
}

func TestCustomerListFallsThroughWhenRedisIsDown(t *testing.T) {
	// nothing listens on this port; cache errors must not fail the call
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	c := cache.NewFromClient(rdb)
	defer c.Close()

	repo := &fakeCustomerRepo{customers: []broadcast.Customer{{PhoneNumber: "1", FullName: "X"}}}
	uc := NewCustomerUsecase(repo, c, time.Minute, zap.NewNop())
	errorsBefore := testutil.ToFloat64(customerCacheLookups.WithLabelValues("error"))

	got, err := uc.List(context.Background(), broadcast.CustomerFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Len(t, repo.filters, 1)
	assert.Equal(t, errorsBefore+1, testutil.ToFloat64(customerCacheLookups.WithLabelValues("error")))
}
