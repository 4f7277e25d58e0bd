// Package session keeps one composer per open broadcast session, owned by
// the operator who opened it.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/services/admin-console/internal/composer"
	xerrors "github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/errors"
	"github.com/luiggiberaldi/sistema-cotizaciones-whatsapp/shared/utils/id"
)

const idPrefix = "cmp"

type entry struct {
	owner    string
	composer *composer.Composer
	lastUsed time.Time
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	factory  func() *composer.Composer
	logger   *zap.Logger
	now      func() time.Time
}

func NewStore(ttl time.Duration, factory func() *composer.Composer, logger *zap.Logger) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		factory:  factory,
		logger:   logger,
		now:      time.Now,
	}
}

// Create registers a new closed composer for owner and returns its id.
func (s *Store) Create(owner string) (string, *composer.Composer) {
	sid := id.GenerateULID(idPrefix)
	c := s.factory()

	s.mu.Lock()
	s.sessions[sid] = &entry{owner: owner, composer: c, lastUsed: s.now()}
	s.mu.Unlock()
	return sid, c
}

// Get returns owner's composer. Unknown ids and ids owned by someone else
// both report xerrors.ErrNotFound; idle sessions report ErrSessionExpired.
func (s *Store) Get(sid, owner string) (*composer.Composer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sid]
	if !ok || e.owner != owner {
		return nil, xerrors.ErrNotFound
	}
	now := s.now()
	if s.expired(e, now) {
		delete(s.sessions, sid)
		e.composer.Close()
		return nil, xerrors.ErrSessionExpired
	}
	e.lastUsed = now
	return e.composer, nil
}

// Delete closes and forgets the session.
func (s *Store) Delete(sid, owner string) error {
	s.mu.Lock()
	e, ok := s.sessions[sid]
	if !ok || e.owner != owner {
		s.mu.Unlock()
		return xerrors.ErrNotFound
	}
	delete(s.sessions, sid)
	s.mu.Unlock()

	e.composer.Close()
	return nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes every idle session and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	now := s.now()
	var stale []*entry
	for sid, e := range s.sessions {
		if s.expired(e, now) {
			stale = append(stale, e)
			delete(s.sessions, sid)
		}
	}
	s.mu.Unlock()

	for _, e := range stale {
		e.composer.Close()
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done. A non-positive interval
// disables sweeping; Get still expires idle sessions.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("expired composer sessions", zap.Int("count", n))
			}
		}
	}
}

func (s *Store) expired(e *entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastUsed) > s.ttl
}
