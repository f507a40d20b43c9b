package handlers

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/techxelarate/backend/internal/auth"
	"github.com/techxelarate/backend/internal/models"
)

// AdminLogin handles POST /api/admin/login. Credentials come from the
// environment; a missing password hash disables the endpoint.
func (s *Server) AdminLogin(w http.ResponseWriter, r *http.Request) {
	if s.AdminPasswordHash == "" {
		respondError(w, http.StatusNotFound, "admin login disabled")
		return
	}

	var req models.AdminLoginRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	// Compare the hash even on a wrong username so both failure paths
	// cost the same.
	hashErr := bcrypt.CompareHashAndPassword([]byte(s.AdminPasswordHash), []byte(req.Password))
	if req.Username != s.AdminUsername || hashErr != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateAdminToken(s.Secret)
	if err != nil {
		s.Log.Error("admin token", "err", err)
		respondError(w, http.StatusInternalServerError, "could not generate token")
		return
	}
	respond(w, http.StatusOK, map[string]string{"token": token})
}

// ListTeams handles GET /api/admin/teams?page=&page_size=&search=&domain=.
func (s *Server) ListTeams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	teams, total, err := s.Store.ListTeams(r.Context(), page, pageSize, q.Get("search"), q.Get("domain"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"teams": teams,
		"total": total,
	})
}

// ExportCSV handles GET /api/admin/export: every member of every team,
// one row each, for the organisers' spreadsheet.
func (s *Server) ExportCSV(w http.ResponseWriter, r *http.Request) {
	teams := []models.Team{}
	for page := 1; ; page++ {
		batch, total, err := s.Store.ListTeams(r.Context(), page, 200, "", "")
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		teams = append(teams, batch...)
		if len(batch) == 0 || len(teams) >= total {
			break
		}
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="registrations.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"team_id", "team_code", "team_name", "college", "year", "domain",
		"participant_id", "member_name", "member_email", "member_phone", "is_leader",
		"checked_in", "check_in_time", "registered_at",
	})
	for i := range teams {
		t := &teams[i]
		full, err := s.Store.FindByTeamID(r.Context(), t.TeamID)
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		checkIn := ""
		if full.CheckInTime != nil {
			checkIn = full.CheckInTime.UTC().Format(time.RFC3339)
		}
		for _, m := range full.Members {
			_ = cw.Write([]string{
				full.TeamID, full.TeamCode, full.TeamName, full.CollegeName, full.Year, full.Domain,
				m.ParticipantID, m.Name, m.Email, m.Phone, strconv.FormatBool(m.IsTeamLeader),
				strconv.FormatBool(full.AttendanceStatus), checkIn,
				full.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.Log.Error("csv export", "err", err)
	}
}
