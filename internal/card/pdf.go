package card

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/techxelarate/backend/internal/models"
)

// Card page size in millimetres: 3.5"×5.5", one card per page so desk
// staff can print and cut without scaling.
const (
	pageWidthMM  = 88.9
	pageHeightMM = 139.7
)

// Pipeline renders every member's card and assembles the team PDF.
type Pipeline struct {
	renderer *Renderer
	dir      string // destination directory for PDFs
}

// NewPipeline returns a pipeline writing PDFs under dir. The directory
// is created if missing.
func NewPipeline(renderer *Renderer, dir string) (*Pipeline, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create assets dir: %w", err)
	}
	return &Pipeline{renderer: renderer, dir: dir}, nil
}

// PDFPath reports where a team's card bundle lives (whether or not it
// has been generated yet).
func (p *Pipeline) PDFPath(teamID string) string {
	return filepath.Join(p.dir, teamID+"_id_cards.pdf")
}

// Generate renders one card per member and writes the combined PDF,
// returning its path. The write goes to a temp file in the destination
// directory and is renamed into place, so a concurrent download never
// sees a half-written bundle.
func (p *Pipeline) Generate(team *models.Team, now time.Time) (string, error) {
	if len(team.Members) == 0 {
		return "", fmt.Errorf("team %s has no members", team.TeamID)
	}

	imgs := make([]image.Image, 0, len(team.Members))
	for _, m := range team.Members {
		img, err := p.renderer.Render(team, m, nil, now)
		if err != nil {
			return "", fmt.Errorf("render card for %s: %w", m.ParticipantID, err)
		}
		imgs = append(imgs, img)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: pageWidthMM, Ht: pageHeightMM},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	for i, img := range imgs {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return "", fmt.Errorf("encode card %d: %w", i, err)
		}
		name := fmt.Sprintf("card-%d", i)
		pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
		pdf.AddPage()
		pdf.ImageOptions(name, 0, 0, pageWidthMM, pageHeightMM, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return "", fmt.Errorf("assemble pdf: %w", err)
	}

	dest := p.PDFPath(team.TeamID)
	tmp, err := os.CreateTemp(p.dir, team.TeamID+"-*.pdf.tmp")
	if err != nil {
		return "", fmt.Errorf("temp pdf: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := pdf.Output(tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write pdf: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close pdf: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("publish pdf: %w", err)
	}
	return dest, nil
}
