package otp

import (
	"fmt"
	"testing"
	"time"
)

// testClock is a movable clock for driving TTLs without sleeping.
type testClock struct{ t time.Time }

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}
func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(code string) (*Store, *testClock) {
	clock := newTestClock()
	s := New(WithClock(clock.now), WithGenerator(func() string { return code }))
	return s, clock
}

func TestIssueAndVerify(t *testing.T) {
	s, _ := newTestStore("123456")

	code, ttl, _, ok := s.Issue("lead@example.com")
	if !ok {
		t.Fatal("Issue refused")
	}
	if code != "123456" {
		t.Fatalf("code: got %q", code)
	}
	if ttl != CodeTTL {
		t.Fatalf("ttl: got %v", ttl)
	}

	if result, _ := s.Verify("lead@example.com", "123456"); result != Ok {
		t.Fatalf("verify: got %v", result)
	}
}

func TestVerify_ConsumedExactlyOnce(t *testing.T) {
	s, _ := newTestStore("123456")
	s.Issue("lead@example.com")

	if result, _ := s.Verify("lead@example.com", "123456"); result != Ok {
		t.Fatalf("first verify: got %v", result)
	}
	// The code is gone; replaying it must not work.
	if result, _ := s.Verify("lead@example.com", "123456"); result != Expired {
		t.Fatalf("replay: got %v", result)
	}
}

func TestVerify_Expired(t *testing.T) {
	s, clock := newTestStore("123456")
	s.Issue("lead@example.com")

	clock.advance(CodeTTL + time.Second)
	if result, _ := s.Verify("lead@example.com", "123456"); result != Expired {
		t.Fatalf("got %v, want Expired", result)
	}
	if s.Len() != 0 {
		t.Error("expired entry not purged")
	}
}

func TestVerify_WrongCode(t *testing.T) {
	s, _ := newTestStore("123456")
	s.Issue("lead@example.com")

	if result, _ := s.Verify("lead@example.com", "654321"); result != Invalid {
		t.Fatalf("got %v, want Invalid", result)
	}
	// A wrong guess must not consume the real code.
	if result, _ := s.Verify("lead@example.com", "123456"); result != Ok {
		t.Fatalf("correct code after miss: got %v", result)
	}
}

func TestVerify_AttemptLimit(t *testing.T) {
	s, clock := newTestStore("123456")
	s.Issue("lead@example.com")

	for i := 0; i < 3; i++ {
		if result, _ := s.Verify("lead@example.com", "000000"); result != Invalid {
			t.Fatalf("attempt %d: got %v", i, result)
		}
	}

	// Fourth attempt is refused even with the right code, and the store
	// must not leak whether it would have matched.
	result, retryAfter := s.Verify("lead@example.com", "123456")
	if result != RateLimited {
		t.Fatalf("got %v, want RateLimited", result)
	}
	if retryAfter <= 0 || retryAfter > 15*time.Minute {
		t.Fatalf("retryAfter: got %v", retryAfter)
	}

	// After the window passes the counter resets... but by then the
	// code itself has expired (5 min TTL < 15 min window).
	clock.advance(16 * time.Minute)
	if result, _ := s.Verify("lead@example.com", "123456"); result != Expired {
		t.Fatalf("after window: got %v", result)
	}
}

func TestIssue_ResetsAttempts(t *testing.T) {
	s, _ := newTestStore("123456")
	s.Issue("lead@example.com")
	for i := 0; i < 3; i++ {
		s.Verify("lead@example.com", "000000")
	}

	// A fresh code restarts the verification budget.
	if _, _, _, ok := s.Issue("lead@example.com"); !ok {
		t.Fatal("reissue refused")
	}
	if result, _ := s.Verify("lead@example.com", "123456"); result != Ok {
		t.Fatalf("after reissue: got %v", result)
	}
}

func TestIssue_RateLimit(t *testing.T) {
	s, clock := newTestStore("123456")

	for i := 0; i < 3; i++ {
		if _, _, _, ok := s.Issue("lead@example.com"); !ok {
			t.Fatalf("issue %d refused", i)
		}
	}
	_, _, retryAfter, ok := s.Issue("lead@example.com")
	if ok {
		t.Fatal("fourth issue allowed inside window")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Fatalf("retryAfter: got %v", retryAfter)
	}

	// Limits are per email.
	if _, _, _, ok := s.Issue("other@example.com"); !ok {
		t.Fatal("other email blocked")
	}

	clock.advance(61 * time.Second)
	if _, _, _, ok := s.Issue("lead@example.com"); !ok {
		t.Fatal("issue refused after window reset")
	}
}

func TestSweep(t *testing.T) {
	s, clock := newTestStore("123456")
	for i := 0; i < 5; i++ {
		s.Issue(fmt.Sprintf("u%d@example.com", i))
	}
	clock.advance(CodeTTL + time.Second)
	s.Issue("fresh@example.com")

	if removed := s.Sweep(); removed != 5 {
		t.Fatalf("swept %d, want 5", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("len: got %d", s.Len())
	}
}

func TestDrop(t *testing.T) {
	s, _ := newTestStore("123456")
	s.Issue("lead@example.com")
	s.Drop("lead@example.com")
	if result, _ := s.Verify("lead@example.com", "123456"); result != Expired {
		t.Fatalf("after drop: got %v", result)
	}
	// Drop also clears the issuance window.
	for i := 0; i < 3; i++ {
		if _, _, _, ok := s.Issue("lead@example.com"); !ok {
			t.Fatalf("issue %d refused after drop", i)
		}
	}
}
