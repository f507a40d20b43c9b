package mailer

import (
	"errors"
	"testing"
)

func TestNewSMTP_Unconfigured(t *testing.T) {
	cases := []struct{ host, user string }{
		{"", ""},
		{"smtp.example.com", ""},
		{"", "sender@example.com"},
	}
	for _, c := range cases {
		if _, err := NewSMTP(c.host, 587, c.user, "pw", "", "TechXelarate 2026"); !errors.Is(err, ErrUnconfigured) {
			t.Errorf("host=%q user=%q: got %v, want ErrUnconfigured", c.host, c.user, err)
		}
	}
}

func TestNewSMTP_DefaultsFromToUser(t *testing.T) {
	m, err := NewSMTP("smtp.example.com", 587, "sender@example.com", "pw", "", "TechXelarate 2026")
	if err != nil {
		t.Fatalf("NewSMTP: %v", err)
	}
	if m.from != "sender@example.com" {
		t.Errorf("from: %q", m.from)
	}
}

func TestTransportError_Unwraps(t *testing.T) {
	inner := errors.New("connection refused")
	err := &TransportError{Err: inner}
	if !errors.Is(err, inner) {
		t.Error("TransportError does not unwrap")
	}
}
