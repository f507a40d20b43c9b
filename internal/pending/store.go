// Package pending holds validated registration payloads between the
// Register call and OTP verification.
//
// The TTL (15 min) deliberately exceeds the OTP TTL (5 min) with slack:
// a user can let one code expire, request another, and still find their
// form data waiting. A re-register for the same email replaces the old
// payload outright.
package pending

import (
	"context"
	"sync"
	"time"

	"github.com/techxelarate/backend/internal/models"
)

// TTL is how long a pending payload survives without verification.
const TTL = 15 * time.Minute

type item struct {
	req       models.RegisterRequest
	expiresAt time.Time
}

// Store maps lowercased leader email → pending payload.
type Store struct {
	mu    sync.Mutex
	items map[string]item
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		items: make(map[string]item),
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Put stores (or replaces) the payload for email.
func (s *Store) Put(email string, req models.RegisterRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[email] = item{req: req, expiresAt: s.now().Add(TTL)}
}

// Take atomically reads and removes the payload for email. Between two
// concurrent verifications of the same email exactly one caller gets
// ok=true; the other sees an absent entry.
func (s *Store) Take(email string) (models.RegisterRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[email]
	if !ok {
		return models.RegisterRequest{}, false
	}
	delete(s.items, email)
	if !s.now().Before(it.expiresAt) {
		return models.RegisterRequest{}, false
	}
	return it.req, true
}

// Drop removes the payload for email without returning it.
func (s *Store) Drop(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, email)
}

// Len reports the number of live payloads.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep removes expired payloads.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for email, it := range s.items {
		if !now.Before(it.expiresAt) {
			delete(s.items, email)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep()
			}
		}
	}()
}
