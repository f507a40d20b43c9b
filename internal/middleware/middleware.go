// Package middleware provides HTTP middleware for the registration
// server: CORS, admin authentication, request logging, and a per-IP
// rate limit on the registration endpoints.
package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/techxelarate/backend/internal/auth"
)

// Authenticate is a middleware factory: it returns a middleware
// configured with the JWT secret, so the secret is passed once at
// startup rather than on every request. Missing or invalid tokens get
// a 401 and the handler never runs.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, `{"error":"missing or invalid Authorization header"}`, http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimPrefix(header, "Bearer ")
			if _, err := auth.ParseAdminToken(tokenStr, secret); err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS adds permissive CORS headers so the registration SPA can call
// the API from a different origin. The OPTIONS preflight gets a 204 so
// the real request is allowed to proceed.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Log records one line per request with a correlation id, method, path,
// status, and latency.
func Log(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Info("request",
				"id", uuid.NewString(),
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).Round(time.Millisecond).String(),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// RateLimiter throttles requests per client IP with a fixed window.
// Meant for the registration endpoints, where each request can trigger
// an outbound email.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	max     int
	per     time.Duration
	now     func() time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter allows max requests per IP per the given duration.
func NewRateLimiter(max int, per time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		max:     max,
		per:     per,
		now:     time.Now,
	}
}

// SetClock replaces the wall clock, for tests.
func (rl *RateLimiter) SetClock(now func() time.Time) { rl.now = now }

// Allow reports whether ip may proceed, and the wait when it may not.
func (rl *RateLimiter) Allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w := rl.windows[ip]
	if w == nil || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(rl.per)}
		rl.windows[ip] = w
	}
	if w.count >= rl.max {
		return false, w.resetAt.Sub(now)
	}
	w.count++
	return true, 0
}

// Middleware wraps next with the limiter, answering 429 when a client
// is over budget.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ok, wait := rl.Allow(ip); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", wait.Round(time.Second).String())
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too many requests, slow down"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr. X-Forwarded-For is
// deliberately ignored: this server terminates its own connections at
// event venues, and trusting the header would let anyone reset their
// own limit.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
