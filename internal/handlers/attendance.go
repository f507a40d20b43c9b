package handlers

import (
	"net/http"
	"strings"

	"github.com/techxelarate/backend/internal/models"
)

// Scan handles POST /api/attendance/scan: the QR path. The body carries
// the raw string the scanner decoded from an ID card.
func (s *Server) Scan(w http.ResponseWriter, r *http.Request) {
	var req models.ScanRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Payload == "" {
		respondError(w, http.StatusBadRequest, "payload is required")
		return
	}

	resp, err := s.Checkin.Scan(r.Context(), req.Payload)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, resp)
}

// CheckIn handles POST /api/attendance/checkin: the manual path for
// damaged cards and dead phone batteries.
func (s *Server) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req models.CheckInRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	teamID := strings.ToUpper(strings.TrimSpace(req.TeamID))
	if teamID == "" {
		respondError(w, http.StatusBadRequest, "team_id is required")
		return
	}

	resp, err := s.Checkin.Manual(r.Context(), teamID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, resp)
}
