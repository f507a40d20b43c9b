package card

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/techxelarate/backend/internal/models"
)

func testTeam() *models.Team {
	return &models.Team{
		TeamID:      "HACK2026-007",
		TeamCode:    "TEAM-K9X2V5",
		TeamName:    "Bit Crushers",
		LeaderName:  "Priya Sharma",
		LeaderEmail: "priya@example.com",
		CollegeName: "LBRCE",
		Year:        "3",
		Domain:      "AI/ML",
		Members: []models.Member{
			{Index: 0, Name: "Priya Sharma", Email: "priya@example.com", Phone: "9876543210",
				ParticipantID: "TEAM-K9X2V5-000", IsTeamLeader: true},
			{Index: 1, Name: "Rahul Verma", Email: "rahul@example.com", Phone: "9876543211",
				ParticipantID: "TEAM-K9X2V5-001"},
		},
	}
}

func TestQuoteByIndex(t *testing.T) {
	if QuoteByIndex(0) != QuoteByIndex(0) {
		t.Error("not deterministic")
	}
	// Wraps instead of panicking on any index.
	for _, i := range []int{0, 1, len(quotes), len(quotes) * 3, -2} {
		if QuoteByIndex(i) == "" {
			t.Errorf("empty quote for index %d", i)
		}
	}
}

func TestScanPayloadJSON(t *testing.T) {
	team := testTeam()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	raw, err := ScanPayloadJSON(team, team.Members[1], now)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	var p models.ScanPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.TeamCode != "TEAM-K9X2V5" || p.ParticipantID != "TEAM-K9X2V5-001" {
		t.Errorf("payload: %+v", p)
	}
	if p.IsTeamLeader {
		t.Error("member 1 flagged as leader")
	}
	if p.Timestamp != "2026-03-14T09:00:00Z" {
		t.Errorf("timestamp: %q", p.Timestamp)
	}
}

func TestRender(t *testing.T) {
	r := NewRenderer("LBRCE", "TechXelarate 2026")
	team := testTeam()

	img, err := r.Render(team, team.Members[0], nil, time.Now())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != Width || b.Dy() != Height {
		t.Errorf("dimensions: %dx%d", b.Dx(), b.Dy())
	}
}

func TestMonogram(t *testing.T) {
	cases := map[string]string{
		"Priya Sharma":     "PS",
		"Rahul":            "R",
		"anita rao kumari": "AK",
		"":                 "?",
	}
	for name, want := range cases {
		if got := monogram(name); got != want {
			t.Errorf("monogram(%q): got %q, want %q", name, got, want)
		}
	}
}

func TestPipeline_Generate(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPipeline(NewRenderer("LBRCE", "TechXelarate 2026"), dir)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	team := testTeam()
	path, err := p.Generate(team, time.Now())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if path != filepath.Join(dir, "HACK2026-007_id_cards.pdf") {
		t.Errorf("path: %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("output is not a PDF")
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("leftover files: %d", len(entries))
	}
}

func TestPipeline_EmptyTeam(t *testing.T) {
	p, err := NewPipeline(NewRenderer("LBRCE", "TechXelarate 2026"), t.TempDir())
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	team := testTeam()
	team.Members = nil
	if _, err := p.Generate(team, time.Now()); err == nil {
		t.Fatal("empty team accepted")
	}
}
