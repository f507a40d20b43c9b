// Package handlers contains the HTTP handler logic for the
// registration API.
//
// All handler files share the package so they can use each other's
// helpers without exporting them; the files are split by surface
// (register, attendance, teams, admin, ws) for readability. The central
// type is Server: it holds the shared services, and every handler is a
// method on it, so each test spins up its own Server with its own
// in-memory database.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/techxelarate/backend/internal/bus"
	"github.com/techxelarate/backend/internal/checkin"
	"github.com/techxelarate/backend/internal/registration"
	"github.com/techxelarate/backend/internal/store"
)

// Server holds shared dependencies for all handlers.
type Server struct {
	Store        *store.Store
	Registration *registration.Service
	Checkin      *checkin.Service
	Bus          *bus.Bus
	Log          *slog.Logger

	// Secret signs admin tokens. AdminUsername/AdminPasswordHash gate
	// the admin login; an empty hash disables it entirely.
	Secret            string
	AdminUsername     string
	AdminPasswordHash string
}

// respond writes v as JSON with the given status. Content-Type must be
// set before WriteHeader; after that the headers are flushed.
func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// A failed encode means the client went away; nothing useful to do.
	_ = json.NewEncoder(w).Encode(body)
}

// respondError sends {"error": msg}.
func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}

// decode parses a JSON request body into v.
func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// respondServiceError maps the tagged service errors onto HTTP status
// codes. Handlers call it for any error coming out of the registration
// or check-in services so the taxonomy lives in exactly one place.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	var (
		validation  *registration.ValidationError
		rateLimited *registration.RateLimitedError
		malformed   *checkin.MalformedPayloadError
		duplicate   *checkin.AlreadyCheckedInError
	)
	switch {
	case errors.As(err, &validation):
		respond(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validation.Fields,
		})
	case errors.As(err, &malformed):
		respondError(w, http.StatusBadRequest, malformed.Error())
	case errors.Is(err, registration.ErrEmailAlreadyRegistered):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &duplicate):
		respond(w, http.StatusBadRequest, map[string]any{
			"error":         "team already checked in",
			"team_id":       duplicate.TeamID,
			"team_name":     duplicate.TeamName,
			"check_in_time": duplicate.CheckInTime.Format(time.RFC3339),
		})
	case errors.Is(err, registration.ErrOTPInvalid):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, registration.ErrOTPExpired),
		errors.Is(err, registration.ErrRegistrationExpired):
		respondError(w, http.StatusGone, err.Error())
	case errors.As(err, &rateLimited):
		w.Header().Set("Retry-After", rateLimited.RetryAfter.Round(time.Second).String())
		respondError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, checkin.ErrTeamNotFound), errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "team not found")
	default:
		// The correlation id ties the client's report to the log line
		// without leaking any internal detail.
		id := uuid.NewString()
		s.Log.Error("internal error", "correlation_id", id, "err", err)
		respond(w, http.StatusInternalServerError, map[string]string{
			"error":          "internal error",
			"correlation_id": id,
		})
	}
}

// Health handles GET /api/health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.DB.PingContext(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "database unavailable")
		return
	}
	respond(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
