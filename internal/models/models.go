// Package models defines the domain types and request/response DTOs
// shared by the stores, services, and HTTP handlers.
package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Team is the durable record created by a successful registration.
// It is mutated only by check-in (AttendanceStatus, CheckInTime).
type Team struct {
	ID         string `json:"id"`
	TeamID     string `json:"team_id"`   // sequential, e.g. HACK2026-001
	TeamCode   string `json:"team_code"` // opaque, e.g. TEAM-K9X2V5
	TeamName   string `json:"team_name"`
	LeaderName string `json:"leader_name"`
	// LeaderEmail is globally unique across committed teams.
	LeaderEmail string `json:"leader_email"`
	LeaderPhone string `json:"leader_phone"`
	CollegeName string `json:"college_name"`
	Year        string `json:"year"`
	Domain      string `json:"domain"`
	// AccessKey authorises re-download of the team's ID cards without
	// an account. Never exposed in public team views.
	AccessKey        string     `json:"-"`
	AttendanceStatus bool       `json:"attendance_status"`
	CheckInTime      *time.Time `json:"check_in_time,omitempty"`
	// IDCardsPDFPath is where the generated card document lives.
	IDCardsPDFPath string `json:"-"`
	// ArtifactsPending marks teams whose card generation or mail
	// delivery failed after commit; the operator UI retries these.
	ArtifactsPending bool      `json:"-"`
	CreatedAt        time.Time `json:"created_at"`

	// Populated on read.
	Members []Member `json:"members,omitempty"`
}

// Member is one participant of a team. Index 0 is the leader.
type Member struct {
	ID     string `json:"id"`
	TeamID string `json:"-"` // teams.id foreign key
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	// ParticipantID is {team_code}-{index:03d}, unique across members.
	ParticipantID string `json:"participant_id"`
	IsTeamLeader  bool   `json:"is_team_leader"`
}

// ---- Request / Response DTOs ----

// MemberCreate is one team_members entry of a registration request.
type MemberCreate struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	IsTeamLeader bool   `json:"is_team_leader"`
}

// RegisterRequest is the body of POST /api/register.
type RegisterRequest struct {
	TeamName      string         `json:"team_name"`
	LeaderName    string         `json:"leader_name"`
	LeaderEmail   string         `json:"leader_email"`
	LeaderPhone   string         `json:"leader_phone"`
	CollegeName   string         `json:"college_name"`
	Year          string         `json:"year"`
	Domain        string         `json:"domain"`
	TeamMembers   []MemberCreate `json:"team_members"`
	TermsAccepted bool           `json:"terms_accepted"`
}

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	digitRe = regexp.MustCompile(`\D`)
)

// Normalize trims whitespace and lowercases emails in place.
// Call before Validate.
func (r *RegisterRequest) Normalize() {
	r.TeamName = strings.TrimSpace(r.TeamName)
	r.LeaderName = strings.TrimSpace(r.LeaderName)
	r.LeaderEmail = strings.ToLower(strings.TrimSpace(r.LeaderEmail))
	r.LeaderPhone = strings.TrimSpace(r.LeaderPhone)
	r.CollegeName = strings.TrimSpace(r.CollegeName)
	r.Year = strings.TrimSpace(r.Year)
	r.Domain = strings.TrimSpace(r.Domain)
	for i := range r.TeamMembers {
		m := &r.TeamMembers[i]
		m.Name = strings.TrimSpace(m.Name)
		m.Email = strings.ToLower(strings.TrimSpace(m.Email))
		m.Phone = strings.TrimSpace(m.Phone)
	}
}

// Validate checks every field-level constraint and returns a map of
// field name → reason. An empty map means the request is valid.
// maxMembers caps the team_members list (leader included).
func (r *RegisterRequest) Validate(maxMembers int) map[string]string {
	problems := map[string]string{}

	checkLen := func(field, v string, min, max int) {
		if len(v) < min || len(v) > max {
			problems[field] = fmt.Sprintf("must be %d-%d characters", min, max)
		}
	}
	checkPhone := func(field, v string) {
		digits := digitRe.ReplaceAllString(v, "")
		if len(digits) < 10 || len(digits) > 20 {
			problems[field] = "must contain 10-20 digits"
		}
	}

	checkLen("team_name", r.TeamName, 2, 100)
	checkLen("leader_name", r.LeaderName, 2, 100)
	checkLen("college_name", r.CollegeName, 2, 100)
	checkLen("year", r.Year, 1, 50)
	checkLen("domain", r.Domain, 1, 50)
	checkPhone("leader_phone", r.LeaderPhone)

	if !emailRe.MatchString(r.LeaderEmail) {
		problems["leader_email"] = "must be a valid email address"
	}
	if !r.TermsAccepted {
		problems["terms_accepted"] = "terms must be accepted"
	}

	switch {
	case len(r.TeamMembers) == 0:
		problems["team_members"] = "at least one member (the leader) is required"
	case len(r.TeamMembers) > maxMembers:
		problems["team_members"] = fmt.Sprintf("at most %d members allowed", maxMembers)
	default:
		for i, m := range r.TeamMembers {
			field := fmt.Sprintf("team_members[%d]", i)
			if len(m.Name) < 2 || len(m.Name) > 100 {
				problems[field+".name"] = "must be 2-100 characters"
			}
			if !emailRe.MatchString(m.Email) {
				problems[field+".email"] = "must be a valid email address"
			}
			digits := digitRe.ReplaceAllString(m.Phone, "")
			if len(digits) < 10 || len(digits) > 20 {
				problems[field+".phone"] = "must contain 10-20 digits"
			}
			// Entry 0 is the leader; everyone else must not carry the flag.
			if i == 0 {
				if !m.IsTeamLeader {
					problems[field+".is_team_leader"] = "first member must be the team leader"
				}
				if m.Email != r.LeaderEmail {
					problems[field+".email"] = "leader entry email must equal leader_email"
				}
			} else if m.IsTeamLeader {
				problems[field+".is_team_leader"] = "only the first member may be the team leader"
			}
		}
	}

	return problems
}

// VerifyOTPRequest is the body of POST /api/verify-otp.
type VerifyOTPRequest struct {
	LeaderEmail string `json:"leader_email"`
	OTP         string `json:"otp"`
}

// RegisterResponse is the success body of POST /api/register.
type RegisterResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	ExpiresInSec int    `json:"expires_in_sec"`
	// OTP is populated only in dev mode when the mailer is not
	// configured, so the flow can be exercised without SMTP.
	OTP string `json:"otp,omitempty"`
}

// TeamView is the committed-team body returned by /verify-otp and the
// team lookup endpoints.
type TeamView struct {
	Team
	// AccessKey is echoed exactly once, in the verify-otp response, so
	// the leader can re-download cards later. Lookup endpoints leave it
	// empty.
	AccessKey string `json:"access_key,omitempty"`
	// Warning is set when the team was committed but artifact
	// generation or delivery failed and will be retried.
	Warning string `json:"warning,omitempty"`
}

// ScanPayload is the JSON embedded in an ID card's QR code.
type ScanPayload struct {
	TeamCode        string `json:"team_code"`
	ParticipantID   string `json:"participant_id"`
	ParticipantName string `json:"participant_name"`
	IsTeamLeader    bool   `json:"is_team_leader"`
	Timestamp       string `json:"timestamp"` // ISO-8601, informational
}

// ScanRequest is the body of POST /api/attendance/scan.
type ScanRequest struct {
	// Payload is the raw string decoded from the QR.
	Payload string `json:"payload"`
}

// CheckInRequest is the body of POST /api/attendance/checkin.
type CheckInRequest struct {
	TeamID string `json:"team_id"`
}

// CheckInResponse is returned by both check-in modes.
type CheckInResponse struct {
	Status      string    `json:"status"`
	TeamID      string    `json:"team_id"`
	TeamCode    string    `json:"team_code"`
	TeamName    string    `json:"team_name"`
	Attendance  bool      `json:"attendance"`
	CheckInTime time.Time `json:"check_in_time"`
	Participant *Member   `json:"participant,omitempty"`
}

// AdminLoginRequest is the body of POST /api/admin/login.
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Stats is the body of GET /api/stats.
type Stats struct {
	TotalTeams         int            `json:"total_teams"`
	TotalMembers       int            `json:"total_members"`
	CheckedInTeams     int            `json:"checked_in_teams"`
	DomainDistribution map[string]int `json:"domain_distribution"`
}
