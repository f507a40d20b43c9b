// Package card renders participant ID cards and assembles them into a
// single multi-page PDF.
//
// A card is a fixed 1050×1650 px raster (vertical badge, 3.5"×5.5" at
// 300 DPI): institutional banner, event title, circular photo or
// monogram placeholder, participant details, the team code rendered
// prominently, a high-error-correction QR of the attendance payload,
// the participant id as a manual-entry fallback, and a caption from a
// bounded quote pool.
package card

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/fogleman/gg"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/techxelarate/backend/internal/models"
)

const (
	// Width and Height are the card raster dimensions in pixels.
	Width  = 1050
	Height = 1650

	photoDiameter = 280
	// qrSize at 300 DPI prints at ~20 mm, comfortably above the 17 mm
	// floor for reliable scanning of a worn badge.
	qrSize = 240
)

// Badge palette. Dark navy ground with neon accents.
var (
	colBackground = color.RGBA{10, 14, 39, 255}
	colGreen      = color.RGBA{0, 255, 136, 255}
	colCyan       = color.RGBA{0, 232, 255, 255}
	colMagenta    = color.RGBA{200, 0, 255, 255}
	colOrange     = color.RGBA{255, 170, 0, 255}
	colYellow     = color.RGBA{255, 255, 0, 255}
	colWhite      = color.RGBA{255, 255, 255, 255}
	colLavender   = color.RGBA{170, 170, 255, 255}
)

// fontSearchPaths are tried in order for a usable TrueType face.
var fontSearchPaths = []struct{ regular, bold string }{
	{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	},
	{
		"/usr/share/fonts/TTF/DejaVuSans.ttf",
		"/usr/share/fonts/TTF/DejaVuSans-Bold.ttf",
	},
	{
		"/Library/Fonts/Arial Unicode.ttf",
		"/Library/Fonts/Arial Unicode.ttf",
	},
}

// Renderer draws single cards. Safe for concurrent use: faces are
// loaded once at construction and only read afterwards.
type Renderer struct {
	banner string // institutional banner line
	title  string // event title

	header font.Face
	title2 font.Face
	name   font.Face
	info   font.Face
	small  font.Face
	quote  font.Face
}

// NewRenderer loads fonts and returns a renderer branded with the given
// banner and event title. When no TrueType font is installed it falls
// back to the built-in bitmap face rather than failing: an ugly card
// still beats no card at the registration desk.
func NewRenderer(banner, title string) *Renderer {
	r := &Renderer{banner: banner, title: title}

	load := func(path string, points float64) font.Face {
		face, err := gg.LoadFontFace(path, points)
		if err != nil {
			return basicfont.Face7x13
		}
		return face
	}

	for _, p := range fontSearchPaths {
		if _, err := gg.LoadFontFace(p.regular, 12); err != nil {
			continue
		}
		r.header = load(p.bold, 44)
		r.title2 = load(p.bold, 64)
		r.name = load(p.bold, 54)
		r.info = load(p.regular, 38)
		r.small = load(p.regular, 30)
		r.quote = load(p.regular, 26)
		return r
	}

	r.header = basicfont.Face7x13
	r.title2 = basicfont.Face7x13
	r.name = basicfont.Face7x13
	r.info = basicfont.Face7x13
	r.small = basicfont.Face7x13
	r.quote = basicfont.Face7x13
	return r
}

// ScanPayloadJSON builds the compact JSON string embedded in a card's
// QR code. now is passed in so generation is reproducible in tests.
func ScanPayloadJSON(team *models.Team, m models.Member, now time.Time) (string, error) {
	p := models.ScanPayload{
		TeamCode:        team.TeamCode,
		ParticipantID:   m.ParticipantID,
		ParticipantName: m.Name,
		IsTeamLeader:    m.IsTeamLeader,
		Timestamp:       now.UTC().Format(time.RFC3339),
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal scan payload: %w", err)
	}
	return string(b), nil
}

// Render draws the card for one member. photo may be nil, in which case
// a monogram placeholder is drawn instead.
func (r *Renderer) Render(team *models.Team, m models.Member, photo image.Image, now time.Time) (image.Image, error) {
	dc := gg.NewContext(Width, Height)
	dc.SetColor(colBackground)
	dc.Clear()

	centerX := float64(Width) / 2
	y := 70.0

	// Banner and event title.
	dc.SetFontFace(r.header)
	dc.SetColor(colGreen)
	dc.DrawStringAnchored(r.banner, centerX, y, 0.5, 0.5)
	y += 55
	dc.SetFontFace(r.info)
	dc.SetColor(colCyan)
	dc.DrawStringAnchored(r.title, centerX, y, 0.5, 0.5)

	// Photo or monogram.
	y += 70
	photoCY := y + photoDiameter/2
	if photo != nil {
		dc.Push()
		dc.DrawCircle(centerX, photoCY, photoDiameter/2)
		dc.Clip()
		dc.DrawImageAnchored(scaleToCover(photo, photoDiameter), int(centerX), int(photoCY), 0.5, 0.5)
		dc.Pop()
	} else {
		dc.SetColor(colCyan)
		dc.SetLineWidth(3)
		dc.DrawCircle(centerX, photoCY, photoDiameter/2)
		dc.Stroke()
		dc.SetFontFace(r.title2)
		dc.DrawStringAnchored(monogram(m.Name), centerX, photoCY, 0.5, 0.5)
	}
	y += photoDiameter + 70

	// Member identity.
	dc.SetFontFace(r.name)
	dc.SetColor(colGreen)
	dc.DrawStringAnchored(m.Name, centerX, y, 0.5, 0.5)
	y += 60
	dc.SetFontFace(r.small)
	dc.SetColor(colWhite)
	dc.DrawStringAnchored(m.Email, centerX, y, 0.5, 0.5)
	y += 42
	dc.DrawStringAnchored(m.Phone, centerX, y, 0.5, 0.5)
	y += 55

	dc.SetColor(colMagenta)
	dc.DrawStringAnchored("Track: "+team.Domain, centerX, y, 0.5, 0.5)
	y += 42
	dc.SetColor(colGreen)
	dc.DrawStringAnchored("Year: "+team.Year, centerX, y, 0.5, 0.5)
	y += 42
	dc.SetColor(colCyan)
	dc.DrawStringAnchored(team.CollegeName, centerX, y, 0.5, 0.5)
	y += 60

	// Team identity.
	dc.SetFontFace(r.info)
	dc.DrawStringAnchored("Team: "+team.TeamName, centerX, y, 0.5, 0.5)
	y += 50
	dc.SetFontFace(r.small)
	dc.SetColor(colYellow)
	dc.DrawStringAnchored("Team ID: "+team.TeamID, centerX, y, 0.5, 0.5)
	y += 65

	// Team code, boxed and prominent: the manual check-in fallback.
	dc.SetFontFace(r.name)
	dc.SetColor(colWhite)
	dc.DrawStringAnchored(team.TeamCode, centerX, y, 0.5, 0.5)
	dc.SetColor(colMagenta)
	dc.SetLineWidth(2)
	dc.DrawRectangle(centerX-330, y-45, 660, 90)
	dc.Stroke()
	y += 90

	// Attendance QR.
	payload, err := ScanPayloadJSON(team, m, now)
	if err != nil {
		return nil, err
	}
	qrImg, err := qrImage(payload)
	if err != nil {
		return nil, fmt.Errorf("qr for %s: %w", m.ParticipantID, err)
	}
	dc.DrawImageAnchored(qrImg, int(centerX), int(y)+qrSize/2, 0.5, 0.5)
	y += float64(qrSize) + 45

	// Machine-readable fallback text.
	dc.SetFontFace(r.small)
	dc.SetColor(colOrange)
	dc.DrawStringAnchored(m.ParticipantID, centerX, y, 0.5, 0.5)
	y += 60

	// Caption.
	dc.SetFontFace(r.quote)
	dc.SetColor(colLavender)
	dc.DrawStringWrapped(`"`+QuoteByIndex(m.Index)+`"`, centerX, y, 0.5, 0, Width-160, 1.4, gg.AlignCenter)

	return dc.Image(), nil
}

// qrImage encodes payload at high error correction (~30% redundancy).
// Black modules on an opaque white ground: the card itself is dark, and
// scanners need the contrast.
func qrImage(payload string) (image.Image, error) {
	q, err := qrcode.New(payload, qrcode.High)
	if err != nil {
		return nil, err
	}
	q.BackgroundColor = color.White
	q.ForegroundColor = color.Black
	return q.Image(qrSize), nil
}

// monogram picks the placeholder initials for a missing photo.
func monogram(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "?"
	}
	s := string([]rune(fields[0])[0])
	if len(fields) > 1 {
		s += string([]rune(fields[len(fields)-1])[0])
	}
	return strings.ToUpper(s)
}

// scaleToCover resizes img so the shorter side equals size, cropping is
// implicit via the circular clip at the call site.
func scaleToCover(img image.Image, size int) image.Image {
	b := img.Bounds()
	short := b.Dx()
	if b.Dy() < short {
		short = b.Dy()
	}
	if short == size || short == 0 {
		return img
	}
	scale := float64(size) / float64(short)
	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	dc := gg.NewContext(w, h)
	dc.Scale(scale, scale)
	dc.DrawImage(img, 0, 0)
	return dc.Image()
}
