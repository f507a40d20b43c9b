package mint

import (
	"regexp"
	"strings"
	"testing"
)

func TestTeamID_Format(t *testing.T) {
	cases := []struct {
		seq  int
		want string
	}{
		{1, "HACK2026-001"},
		{42, "HACK2026-042"},
		{999, "HACK2026-999"},
		{1000, "HACK2026-1000"}, // padding widens, never truncates
	}
	for _, c := range cases {
		if got := TeamID("HACK2026", c.seq); got != c.want {
			t.Errorf("TeamID(%d): got %q, want %q", c.seq, got, c.want)
		}
	}
}

func TestTeamCode_Format(t *testing.T) {
	re := regexp.MustCompile(`^TEAM-[A-Z0-9]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		code := TeamCode()
		if !re.MatchString(code) {
			t.Fatalf("bad team code %q", code)
		}
		seen[code] = true
	}
	// 1000 draws from a 36^6 space should essentially never collide.
	if len(seen) < 990 {
		t.Errorf("suspiciously many collisions: %d unique of 1000", len(seen))
	}
}

func TestParticipantID_Format(t *testing.T) {
	if got := ParticipantID("TEAM-K9X2V5", 0); got != "TEAM-K9X2V5-000" {
		t.Errorf("leader id: got %q", got)
	}
	if got := ParticipantID("TEAM-K9X2V5", 7); got != "TEAM-K9X2V5-007" {
		t.Errorf("member id: got %q", got)
	}
}

func TestAccessKey(t *testing.T) {
	key := AccessKey(AccessKeyLen)
	if len(key) != AccessKeyLen {
		t.Fatalf("length: got %d", len(key))
	}
	for _, r := range key {
		if !strings.ContainsRune(accessKeyAlphabet, r) {
			t.Errorf("unexpected rune %q", r)
		}
	}
}

func TestOTP_Format(t *testing.T) {
	re := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 200; i++ {
		if code := OTP(); !re.MatchString(code) {
			t.Fatalf("bad otp %q", code)
		}
	}
}
