package handlers

import (
	"net/http"

	"github.com/techxelarate/backend/internal/models"
)

// Register handles POST /api/register: phase one of the two-phase flow.
// Nothing durable is written; the payload is parked behind an OTP.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	resp, err := s.Registration.Register(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, resp)
}

// VerifyOTP handles POST /api/verify-otp: phase two. On success the
// team is committed and the credential bundle is returned.
func (s *Server) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.LeaderEmail == "" || req.OTP == "" {
		respondError(w, http.StatusBadRequest, "leader_email and otp are required")
		return
	}

	view, err := s.Registration.VerifyOTP(r.Context(), req.LeaderEmail, req.OTP)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}
