// Package otp holds the in-memory one-time-password state for the
// two-phase registration flow.
//
// The store enforces two independent per-email windows:
//   - issuance: at most 3 codes per trailing minute, so the mailer
//     cannot be used as a spam cannon;
//   - verification: at most 3 failed attempts per trailing 15 minutes,
//     so a 6-digit code cannot be brute-forced.
//
// Everything lives behind one mutex; at event scale (≤10k teams) there
// is no contention worth sharding for. The clock is injectable so tests
// can move time instead of sleeping.
package otp

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/techxelarate/backend/internal/mint"
)

// Result classifies the outcome of a Verify call.
type Result int

const (
	// Ok means the code matched; the entry has been consumed.
	Ok Result = iota
	// Invalid means the code did not match a live entry.
	Invalid
	// Expired means no live entry exists for the email (never issued,
	// already consumed, or past its TTL).
	Expired
	// RateLimited means the verify-attempt window is exhausted. The
	// store does not reveal whether the code would have matched.
	RateLimited
)

const (
	// CodeTTL is how long an issued code stays valid.
	CodeTTL = 5 * time.Minute

	maxIssues     = 3
	issueWindow   = time.Minute
	maxAttempts   = 3
	attemptWindow = 15 * time.Minute
)

type entry struct {
	code            string
	expiresAt       time.Time
	attempts        int
	attemptsResetAt time.Time
}

type issueWindowState struct {
	count   int
	resetAt time.Time
}

// Store is the in-memory OTP state. The zero value is not usable; use New.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	issues  map[string]*issueWindowState

	now func() time.Time
	gen func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithGenerator replaces the code generator, for tests.
func WithGenerator(gen func() string) Option {
	return func(s *Store) { s.gen = gen }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		issues:  make(map[string]*issueWindowState),
		now:     time.Now,
		gen:     mint.OTP,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Issue mints and stores a fresh code for email, replacing any previous
// one and resetting the verify-attempt counter. It returns the code and
// its TTL, or ok=false with a retry hint when the issuance window is
// exhausted.
func (s *Store) Issue(email string) (code string, ttl time.Duration, retryAfter time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w := s.issues[email]
	if w == nil || now.After(w.resetAt) || now.Equal(w.resetAt) {
		w = &issueWindowState{resetAt: now.Add(issueWindow)}
		s.issues[email] = w
	}
	if w.count >= maxIssues {
		return "", 0, w.resetAt.Sub(now), false
	}
	w.count++

	code = s.gen()
	s.entries[email] = &entry{
		code:      code,
		expiresAt: now.Add(CodeTTL),
	}
	return code, CodeTTL, 0, true
}

// Verify checks submitted against the live entry for email.
//
// Order matters: expiry is checked first (a dead entry is purged on
// detection), then the attempt window — so a rate-limited caller learns
// nothing about whether their code would have matched — and only then
// the code itself, with a constant-time compare.
func (s *Store) Verify(email, submitted string) (Result, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e := s.entries[email]
	if e == nil || !now.Before(e.expiresAt) {
		delete(s.entries, email)
		return Expired, 0
	}

	if e.attempts >= maxAttempts && now.Before(e.attemptsResetAt) {
		return RateLimited, e.attemptsResetAt.Sub(now)
	}
	if !now.Before(e.attemptsResetAt) {
		e.attempts = 0
	}

	if subtle.ConstantTimeCompare([]byte(e.code), []byte(submitted)) != 1 {
		e.attempts++
		e.attemptsResetAt = now.Add(attemptWindow)
		return Invalid, 0
	}

	delete(s.entries, email)
	return Ok, 0
}

// Drop discards any state for email. Called after a successful commit
// as belt and braces.
func (s *Store) Drop(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, email)
	delete(s.issues, email)
}

// Len reports the number of live entries. Used by tests and stats.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes expired entries and stale issue windows.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for email, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, email)
			removed++
		}
	}
	for email, w := range s.issues {
		if now.After(w.resetAt) {
			delete(s.issues, email)
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
