package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/techxelarate/backend/internal/auth"
)

const secret = "middleware-test-secret"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate(t *testing.T) {
	wrapped := Authenticate(secret)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/teams", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no header: got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/teams", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: got %d", rec.Code)
	}

	token, err := auth.GenerateAdminToken(secret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/admin/teams", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("good token: got %d", rec.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	wrapped := CORS(okHandler())
	req := httptest.NewRequest(http.MethodOptions, "/api/register", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight: got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("allow-origin missing")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	rl.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if ok, _ := rl.Allow("10.0.0.1"); !ok {
			t.Fatalf("request %d refused", i)
		}
	}
	ok, wait := rl.Allow("10.0.0.1")
	if ok {
		t.Fatal("fourth request allowed")
	}
	if wait <= 0 || wait > time.Minute {
		t.Fatalf("wait: got %v", wait)
	}

	// Independent per IP.
	if ok, _ := rl.Allow("10.0.0.2"); !ok {
		t.Fatal("other ip blocked")
	}

	now = now.Add(61 * time.Second)
	if ok, _ := rl.Allow("10.0.0.1"); !ok {
		t.Fatal("refused after window reset")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	wrapped := rl.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/register", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first: got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
}

func TestLog_PassesThrough(t *testing.T) {
	wrapped := Log(slog.New(slog.DiscardHandler))(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
}
