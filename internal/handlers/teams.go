package handlers

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/techxelarate/backend/internal/models"
)

// GetTeam handles GET /api/team/{team_id}.
func (s *Server) GetTeam(w http.ResponseWriter, r *http.Request) {
	teamID := strings.ToUpper(strings.TrimSpace(r.PathValue("team_id")))
	team, err := s.Store.FindByTeamID(r.Context(), teamID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, models.TeamView{Team: *team})
}

// GetTeamByCode handles GET /api/team/by-code/{code}: the desk lookup
// when a scanner reads a code but staff want the roster on screen.
func (s *Server) GetTeamByCode(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(r.PathValue("code")))
	team, err := s.Store.FindByTeamCode(r.Context(), code)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, models.TeamView{Team: *team})
}

// DownloadIDCards handles GET /api/download/id-cards?team_id=&key=.
// The access key from the confirmation is the only credential; the
// compare is constant-time so the key cannot be probed byte by byte.
func (s *Server) DownloadIDCards(w http.ResponseWriter, r *http.Request) {
	teamID := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("team_id")))
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if teamID == "" || key == "" {
		respondError(w, http.StatusBadRequest, "team_id and key are required")
		return
	}

	team, err := s.Store.FindByTeamID(r.Context(), teamID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if subtle.ConstantTimeCompare([]byte(team.AccessKey), []byte(key)) != 1 {
		respondError(w, http.StatusUnauthorized, "invalid access key")
		return
	}
	if team.IDCardsPDFPath == "" {
		respondError(w, http.StatusNotFound, "id cards not generated yet")
		return
	}
	if _, err := os.Stat(team.IDCardsPDFPath); err != nil {
		s.Log.Error("card pdf missing on disk", "team_id", teamID, "path", team.IDCardsPDFPath)
		respondError(w, http.StatusNotFound, "id cards not generated yet")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+teamID+`_id_cards.pdf"`)
	http.ServeFile(w, r, team.IDCardsPDFPath)
}

// GetStats handles GET /api/stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Store.Stats(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, stats)
}
