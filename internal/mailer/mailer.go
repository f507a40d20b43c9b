// Package mailer sends the two registration emails: the OTP challenge
// and the confirmation with the ID-card PDF attached.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/techxelarate/backend/internal/models"
)

// ErrUnconfigured is returned when SMTP settings are absent. Callers
// treat it as "dev mode": registration proceeds and the OTP is echoed
// in the API response instead of mailed.
var ErrUnconfigured = errors.New("mailer: smtp not configured")

// TransportError wraps a delivery failure worth retrying (connection,
// timeout, greylisting). Permanent rejections come back unwrapped.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "mailer: transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// SendTimeout bounds a confirmation send end to end.
const SendTimeout = 20 * time.Second

// Mailer delivers registration email. Implementations must be safe for
// concurrent use.
type Mailer interface {
	// SendOTP delivers the verification code to addr.
	SendOTP(ctx context.Context, addr, code string, ttl time.Duration) error
	// SendConfirmation delivers the welcome mail with the card PDF
	// attached.
	SendConfirmation(ctx context.Context, team *models.Team, pdfPath string) error
}

// SMTP is the production Mailer, speaking SMTP with STARTTLS.
type SMTP struct {
	client *mail.Client
	from   string
	event  string
}

// NewSMTP validates the settings eagerly: an empty host or user returns
// ErrUnconfigured so the caller can fall back to dev mode at startup
// rather than on the first registration.
func NewSMTP(host string, port int, username, password, from, event string) (*SMTP, error) {
	if host == "" || username == "" {
		return nil, ErrUnconfigured
	}
	if from == "" {
		from = username
	}
	client, err := mail.NewClient(host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(username),
		mail.WithPassword(password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(SendTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("mailer: client: %w", err)
	}
	return &SMTP{client: client, from: from, event: event}, nil
}

func (s *SMTP) SendOTP(ctx context.Context, addr, code string, ttl time.Duration) error {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("mailer: from: %w", err)
	}
	if err := m.To(addr); err != nil {
		return fmt.Errorf("mailer: to: %w", err)
	}
	m.Subject(s.event + " - Your Verification Code")
	m.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"Your %s verification code is: %s\n\nIt expires in %d minutes. If you did not request this, ignore this email.\n",
		s.event, code, int(ttl.Minutes())))
	return s.send(ctx, m)
}

func (s *SMTP) SendConfirmation(ctx context.Context, team *models.Team, pdfPath string) error {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("mailer: from: %w", err)
	}
	if err := m.To(team.LeaderEmail); err != nil {
		return fmt.Errorf("mailer: to: %w", err)
	}
	m.Subject(fmt.Sprintf("%s - Registration Confirmed (%s)", s.event, team.TeamID))

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", team.LeaderName)
	fmt.Fprintf(&b, "Team %q is registered for %s.\n\n", team.TeamName, s.event)
	fmt.Fprintf(&b, "Team ID:   %s\n", team.TeamID)
	fmt.Fprintf(&b, "Team Code: %s\n\n", team.TeamCode)
	b.WriteString("Your ID cards are attached. Each member should carry their card (printed or on a phone) for check-in at the venue.\n\nSee you there!\n")
	m.SetBodyString(mail.TypeTextPlain, b.String())

	if pdfPath != "" {
		m.AttachFile(pdfPath, mail.WithFileName(team.TeamID+"_id_cards.pdf"))
	}
	return s.send(ctx, m)
}

func (s *SMTP) send(ctx context.Context, m *mail.Msg) error {
	err := s.client.DialAndSendWithContext(ctx, m)
	if err == nil {
		return nil
	}
	var sendErr *mail.SendError
	if errors.As(err, &sendErr) && !sendErr.IsTemp() {
		return fmt.Errorf("mailer: rejected: %w", err)
	}
	return &TransportError{Err: err}
}
