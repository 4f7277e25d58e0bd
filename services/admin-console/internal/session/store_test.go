package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/admin-console/internal/composer"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/broadcast"
	xerrors "github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/errors"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/id"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type nopBackend struct{}

func (nopBackend) ListCustomers(context.Context, broadcast.CustomerFilter) ([]broadcast.Customer, error) {
	return nil, nil
}

func (nopBackend) SendTemplate(context.Context, broadcast.SendTemplateRequest) (*broadcast.SendResponse, error) {
	return &broadcast.SendResponse{Status: "completed"}, nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore(ttl time.Duration) (*Store, *clock) {
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(ttl, func() *composer.Composer {
		return composer.New(nopBackend{}, broadcast.DefaultCatalog(), zap.NewNop())
	}, zap.NewNop())
	s.now = clk.Now
	return s, clk
}

func TestCreateAndGet(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	sid, c := s.Create("op-1")
	assert.True(t, id.Valid("cmp", sid))

	got, err := s.Get(sid, "op-1")
	require.NoError(t, err)
	assert.Same(t, c, got)

	_, err = s.Get(sid, "op-2")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
	_, err = s.Get("cmp_missing", "op-1")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestGetExpiresIdleSession(t *testing.T) {
	s, clk := newTestStore(time.Minute)
	sid, _ := s.Create("op-1")

	clk.Advance(30 * time.Second)
	_, err := s.Get(sid, "op-1")
	require.NoError(t, err)

	clk.Advance(61 * time.Second)
	_, err = s.Get(sid, "op-1")
	assert.ErrorIs(t, err, xerrors.ErrSessionExpired)
	assert.Zero(t, s.Len())
}

func TestDeleteClosesComposer(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	sid, c := s.Create("op-1")
	c.Open(context.Background(), []composer.InitialEntry{{Phone: "111"}})

	assert.ErrorIs(t, s.Delete(sid, "op-2"), xerrors.ErrNotFound)
	require.NoError(t, s.Delete(sid, "op-1"))
	assert.Equal(t, composer.StateClosed, c.Snapshot().State)
	assert.Empty(t, c.Snapshot().Selected)
}

func TestSweep(t *testing.T) {
	s, clk := newTestStore(time.Minute)
	s.Create("op-1")
	clk.Advance(2 * time.Minute)
	s.Create("op-2")

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	<-done
}
