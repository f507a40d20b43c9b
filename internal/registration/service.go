// Package registration orchestrates the two-phase flow: Register
// validates and parks the payload behind an emailed OTP; VerifyOTP
// commits the team, mints its credentials, renders the ID cards, and
// mails the confirmation.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/techxelarate/backend/internal/mailer"
	"github.com/techxelarate/backend/internal/mint"
	"github.com/techxelarate/backend/internal/models"
	"github.com/techxelarate/backend/internal/otp"
	"github.com/techxelarate/backend/internal/pending"
	"github.com/techxelarate/backend/internal/store"
)

// Tagged errors for the HTTP layer to map onto status codes.
var (
	// ErrEmailAlreadyRegistered: the leader email owns a committed team.
	ErrEmailAlreadyRegistered = errors.New("a team is already registered with this email")
	// ErrOTPInvalid: the submitted code did not match.
	ErrOTPInvalid = errors.New("invalid verification code")
	// ErrOTPExpired: no live code exists for the email.
	ErrOTPExpired = errors.New("verification code expired, register again to get a new one")
	// ErrRegistrationExpired: the code matched but the parked form data
	// aged out. The user must re-submit the form.
	ErrRegistrationExpired = errors.New("registration session expired, please register again")
)

// ValidationError carries per-field problems from a rejected payload.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, reason := range e.Fields {
		parts = append(parts, f+": "+reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// RateLimitedError tells the client how long to wait.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many requests, retry in %s", e.RetryAfter.Round(time.Second))
}

// otpMailBudget bounds how long Register waits on the OTP email before
// answering. The send keeps running in the background past the budget;
// only the HTTP response stops waiting.
const otpMailBudget = 2 * time.Second

// CardGenerator renders and bundles a committed team's ID cards.
type CardGenerator interface {
	Generate(team *models.Team, now time.Time) (string, error)
}

// Service wires the flow together. All dependencies are interfaces or
// injectable funcs so tests run without SMTP, fonts, or wall-clock
// sleeps.
type Service struct {
	store   *store.Store
	otp     *otp.Store
	pending *pending.Store
	cards   CardGenerator
	mail    mailer.Mailer // nil in dev mode: OTPs echo in the response
	log     *slog.Logger

	prefix     string
	maxMembers int

	now      func() time.Time
	mintCode func() string
	mintKey  func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCodeMinter replaces the team-code generator, for tests.
func WithCodeMinter(gen func() string) Option {
	return func(s *Service) { s.mintCode = gen }
}

// WithKeyMinter replaces the access-key generator, for tests.
func WithKeyMinter(gen func() string) Option {
	return func(s *Service) { s.mintKey = gen }
}

// New builds a Service. m may be nil when SMTP is unconfigured.
func New(st *store.Store, otps *otp.Store, pend *pending.Store, cards CardGenerator,
	m mailer.Mailer, log *slog.Logger, prefix string, maxMembers int, opts ...Option) *Service {
	s := &Service{
		store:      st,
		otp:        otps,
		pending:    pend,
		cards:      cards,
		mail:       m,
		log:        log,
		prefix:     prefix,
		maxMembers: maxMembers,
		now:        time.Now,
		mintCode:   mint.TeamCode,
		mintKey:    func() string { return mint.AccessKey(mint.AccessKeyLen) },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register validates req, parks it, and issues an OTP. Nothing durable
// is written. In dev mode (no mailer) the response echoes the code.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	req.Normalize()
	if problems := req.Validate(s.maxMembers); len(problems) > 0 {
		return nil, &ValidationError{Fields: problems}
	}

	taken, err := s.store.HasLeaderEmail(ctx, req.LeaderEmail)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailAlreadyRegistered
	}

	// Park the payload first: if the code email never arrives the user
	// can request a fresh code without losing their form data.
	s.pending.Put(req.LeaderEmail, req)

	code, ttl, retryAfter, ok := s.otp.Issue(req.LeaderEmail)
	if !ok {
		return nil, &RateLimitedError{RetryAfter: retryAfter}
	}

	resp := &models.RegisterResponse{
		Status:       "otp_sent",
		Message:      "Verification code sent to " + req.LeaderEmail,
		ExpiresInSec: int(ttl.Seconds()),
	}
	if s.mail == nil {
		resp.Message = "SMTP not configured; verification code returned inline"
		resp.OTP = code
		return resp, nil
	}

	// Bounded wait: the email keeps sending in the background, only the
	// response stops waiting. A slow relay must not stall registration.
	done := make(chan error, 1)
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), mailer.SendTimeout)
		defer cancel()
		done <- s.mail.SendOTP(sendCtx, req.LeaderEmail, code, ttl)
	}()
	select {
	case err := <-done:
		if err != nil {
			s.log.Error("otp mail failed", "email", req.LeaderEmail, "err", err)
			return nil, fmt.Errorf("could not send verification email: %w", err)
		}
	case <-time.After(otpMailBudget):
		go func() {
			if err := <-done; err != nil {
				s.log.Error("otp mail failed after response", "email", req.LeaderEmail, "err", err)
			}
		}()
	}
	return resp, nil
}

// VerifyOTP checks the code, commits the team, and kicks off artifact
// generation and delivery. A commit followed by an artifact failure
// still succeeds: the team view carries a warning and the row is marked
// for the operator retry queue.
func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*models.TeamView, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	switch result, retryAfter := s.otp.Verify(email, code); result {
	case otp.Ok:
	case otp.Invalid:
		return nil, ErrOTPInvalid
	case otp.Expired:
		return nil, ErrOTPExpired
	case otp.RateLimited:
		return nil, &RateLimitedError{RetryAfter: retryAfter}
	}

	req, ok := s.pending.Take(email)
	if !ok {
		return nil, ErrRegistrationExpired
	}

	team, err := s.commit(ctx, req)
	if err != nil {
		return nil, err
	}
	s.otp.Drop(email)

	view := &models.TeamView{Team: *team, AccessKey: team.AccessKey}
	if warn := s.deliverArtifacts(team); warn != "" {
		view.Warning = warn
	}
	view.Members = team.Members
	return view, nil
}

// commit mints credentials and inserts the team, retrying fresh codes
// on the (vanishingly rare) uniqueness collisions.
func (s *Service) commit(ctx context.Context, req models.RegisterRequest) (*models.Team, error) {
	var lastErr error
	for attempt := 0; attempt < mint.CodeRetryBudget; attempt++ {
		teamCode := s.mintCode()
		team := &models.Team{
			TeamCode:    teamCode,
			TeamName:    req.TeamName,
			LeaderName:  req.LeaderName,
			LeaderEmail: req.LeaderEmail,
			LeaderPhone: req.LeaderPhone,
			CollegeName: req.CollegeName,
			Year:        req.Year,
			Domain:      req.Domain,
			AccessKey:   s.mintKey(),
		}
		members := make([]models.Member, len(req.TeamMembers))
		for i, m := range req.TeamMembers {
			members[i] = models.Member{
				Index:         i,
				Name:          m.Name,
				Email:         m.Email,
				Phone:         m.Phone,
				ParticipantID: mint.ParticipantID(teamCode, i),
				IsTeamLeader:  i == 0,
			}
		}

		err := s.store.InsertTeam(ctx, s.prefix, team, members)
		switch {
		case err == nil:
			return team, nil
		case errors.Is(err, store.ErrDuplicateEmail):
			// Committed by a parallel verification between Take and here.
			return nil, ErrEmailAlreadyRegistered
		case errors.Is(err, store.ErrDuplicateCode), errors.Is(err, store.ErrDuplicateTeamID):
			lastErr = err
			continue
		default:
			return nil, err
		}
	}
	return nil, fmt.Errorf("could not allocate team identifiers after %d attempts: %w",
		mint.CodeRetryBudget, lastErr)
}

// deliverArtifacts renders the cards and mails the confirmation. It
// never fails the registration: on error it marks the row pending and
// returns the user-facing warning.
func (s *Service) deliverArtifacts(team *models.Team) string {
	bg := context.Background()

	pdfPath, err := s.cards.Generate(team, s.now())
	if err != nil {
		s.log.Error("card generation failed", "team_id", team.TeamID, "err", err)
		s.markPending(bg, team, "")
		return "Registration confirmed, but ID card generation failed. The organisers will email your cards shortly."
	}
	team.IDCardsPDFPath = pdfPath

	if s.mail == nil {
		if err := s.store.SetArtifacts(bg, team.TeamID, pdfPath, false); err != nil {
			s.log.Error("artifact record failed", "team_id", team.TeamID, "err", err)
		}
		return ""
	}

	sendCtx, cancel := context.WithTimeout(bg, mailer.SendTimeout)
	defer cancel()
	if err := s.mail.SendConfirmation(sendCtx, team, pdfPath); err != nil {
		s.log.Error("confirmation mail failed", "team_id", team.TeamID, "err", err)
		s.markPending(bg, team, pdfPath)
		return "Registration confirmed, but the confirmation email failed. Download your ID cards with your access key."
	}

	if err := s.store.SetArtifacts(bg, team.TeamID, pdfPath, false); err != nil {
		s.log.Error("artifact record failed", "team_id", team.TeamID, "err", err)
	}
	return ""
}

func (s *Service) markPending(ctx context.Context, team *models.Team, pdfPath string) {
	team.ArtifactsPending = true
	if err := s.store.SetArtifacts(ctx, team.TeamID, pdfPath, true); err != nil {
		s.log.Error("pending marker failed", "team_id", team.TeamID, "err", err)
	}
}
