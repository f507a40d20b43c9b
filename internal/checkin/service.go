// Package checkin marks teams present, either from a scanned ID-card QR
// or from a manually typed team id. Attendance is team-level: the first
// member through the door checks the whole team in.
package checkin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/techxelarate/backend/internal/bus"
	"github.com/techxelarate/backend/internal/models"
	"github.com/techxelarate/backend/internal/store"
)

// ErrTeamNotFound: no committed team matches the scanned code or id.
var ErrTeamNotFound = errors.New("team not found")

// MalformedPayloadError rejects QR content that is not a well-formed
// attendance payload.
type MalformedPayloadError struct {
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return "malformed scan payload: " + e.Reason
}

// AlreadyCheckedInError reports a duplicate check-in, carrying the
// winning scan's timestamp so the desk can show when the team entered.
type AlreadyCheckedInError struct {
	TeamID      string
	TeamName    string
	CheckInTime time.Time
}

func (e *AlreadyCheckedInError) Error() string {
	return fmt.Sprintf("team %s already checked in at %s", e.TeamID, e.CheckInTime.Format(time.RFC3339))
}

// teamIDRe matches minted team ids: uppercase prefix, dash, at least
// three digits.
var teamIDRe = regexp.MustCompile(`^[A-Z0-9]+-\d{3,}$`)

// Service resolves scans and manual entries against the store.
type Service struct {
	store *store.Store
	bus   *bus.Bus
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service. b may be nil when no live feed is wanted.
func New(st *store.Store, b *bus.Bus, opts ...Option) *Service {
	s := &Service{store: st, bus: b, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scan processes raw QR content. The payload must be the JSON object
// embedded at card generation; the team code inside it drives the
// check-in, and the participant id picks the member echoed back.
func (s *Service) Scan(ctx context.Context, raw string) (*models.CheckInResponse, error) {
	var p models.ScanPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, &MalformedPayloadError{Reason: "not valid JSON"}
	}
	if p.TeamCode == "" {
		return nil, &MalformedPayloadError{Reason: "missing team_code"}
	}
	if p.ParticipantID == "" {
		return nil, &MalformedPayloadError{Reason: "missing participant_id"}
	}

	team, err := s.store.FindByTeamCode(ctx, p.TeamCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	var participant *models.Member
	for i := range team.Members {
		if team.Members[i].ParticipantID == p.ParticipantID {
			participant = &team.Members[i]
			break
		}
	}
	if participant == nil {
		return nil, &MalformedPayloadError{Reason: "participant_id does not belong to team"}
	}

	return s.mark(ctx, team, participant)
}

// Manual checks a team in by its printed team id, e.g. "HACK2026-042".
// The leader is echoed back as the participant context.
func (s *Service) Manual(ctx context.Context, teamID string) (*models.CheckInResponse, error) {
	if !teamIDRe.MatchString(teamID) {
		return nil, &MalformedPayloadError{Reason: "team_id has the wrong shape"}
	}

	team, err := s.store.FindByTeamID(ctx, teamID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	var leader *models.Member
	for i := range team.Members {
		if team.Members[i].IsTeamLeader {
			leader = &team.Members[i]
			break
		}
	}
	return s.mark(ctx, team, leader)
}

func (s *Service) mark(ctx context.Context, team *models.Team, participant *models.Member) (*models.CheckInResponse, error) {
	when, err := s.store.MarkCheckedIn(ctx, team.TeamCode, s.now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrAlreadyCheckedIn) {
			return nil, &AlreadyCheckedInError{
				TeamID:      team.TeamID,
				TeamName:    team.TeamName,
				CheckInTime: when,
			}
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(bus.CheckInEvent{
			TeamID:      team.TeamID,
			TeamCode:    team.TeamCode,
			TeamName:    team.TeamName,
			CheckInTime: when,
		})
	}

	return &models.CheckInResponse{
		Status:      "checked_in",
		TeamID:      team.TeamID,
		TeamCode:    team.TeamCode,
		TeamName:    team.TeamName,
		Attendance:  true,
		CheckInTime: when,
		Participant: participant,
	}, nil
}
