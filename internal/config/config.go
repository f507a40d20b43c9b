// Package config loads server configuration from environment variables.
//
// Every setting has a development-friendly default so `go run ./cmd/server`
// works out of the box; production deployments override via the environment.
// SMTP settings are deliberately allowed to be empty — the mailer detects
// the missing configuration itself and reports Unconfigured instead of
// failing at startup, so the registration flow stays testable without a
// mail account.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds every runtime setting of the server.
type Config struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string
	// DatabaseURL is the modernc.org/sqlite DSN.
	DatabaseURL string
	// BaseURL is the externally visible URL, used in email bodies.
	BaseURL string

	// JWTSecret signs admin tokens.
	JWTSecret string
	// AdminUsername and AdminPasswordHash (bcrypt) guard /api/admin/*.
	// An empty hash disables admin login entirely.
	AdminUsername     string
	AdminPasswordHash string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	// MailFrom is the From address; defaults to SMTPUser.
	MailFrom string

	// EventName appears in email subjects and on the ID cards.
	EventName string
	// EventBanner is the institutional line at the top of each card.
	EventBanner string

	// DevMode echoes the OTP in the /register response when the mailer
	// is unconfigured. Never inferred — must be set explicitly.
	DevMode bool

	// AssetsDir is where generated ID-card PDFs are stored.
	AssetsDir string

	// TeamIDPrefix is the sequential team id prefix (e.g. HACK2026 for
	// ids like HACK2026-001).
	TeamIDPrefix string

	// MaxTeamSize caps team_members entries, leader included.
	MaxTeamSize int
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Addr: getenv("ADDR", ":8000"),
		DatabaseURL: getenv("DATABASE_URL",
			"hackathon.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),
		BaseURL:           getenv("BASE_URL", "http://localhost:8000"),
		JWTSecret:         getenv("JWT_SECRET", "changeme-use-a-real-secret-in-production"),
		AdminUsername:     getenv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPass:          os.Getenv("SMTP_PASS"),
		MailFrom:          os.Getenv("MAIL_FROM"),
		EventName:         getenv("EVENT_NAME", "TechXelarate 2026"),
		EventBanner:       getenv("EVENT_BANNER", "LAKIREDDY BALI REDDY COLLEGE OF ENGINEERING"),
		DevMode:           os.Getenv("DEV_MODE") == "true",
		AssetsDir:         getenv("ASSETS_DIR", "assets"),
		TeamIDPrefix:      getenv("TEAM_ID_PREFIX", "HACK2026"),
		MaxTeamSize:       50,
	}

	port := getenv("SMTP_PORT", "587")
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT %q: %w", port, err)
	}
	cfg.SMTPPort = p

	if v := os.Getenv("MAX_TEAM_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid MAX_TEAM_SIZE %q", v)
		}
		cfg.MaxTeamSize = n
	}

	return cfg, nil
}

// getenv returns the value of the named environment variable, or fallback
// if the variable is not set or is empty.
func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
