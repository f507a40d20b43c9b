// main is the entry point for the hackathon registration API server.
//
// It is the composition root: configuration, database, in-memory
// stores, services, and HTTP routes are all wired together here so the
// other packages never import each other in a circle.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/techxelarate/backend/internal/bus"
	"github.com/techxelarate/backend/internal/card"
	"github.com/techxelarate/backend/internal/checkin"
	"github.com/techxelarate/backend/internal/config"
	"github.com/techxelarate/backend/internal/db"
	"github.com/techxelarate/backend/internal/handlers"
	"github.com/techxelarate/backend/internal/mailer"
	"github.com/techxelarate/backend/internal/middleware"
	"github.com/techxelarate/backend/internal/otp"
	"github.com/techxelarate/backend/internal/pending"
	"github.com/techxelarate/backend/internal/registration"
	"github.com/techxelarate/backend/internal/store"
)

func main() {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", "err", err)
		os.Exit(1)
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer database.Close()

	st := store.New(database)

	// In-memory stores with background expiry sweeps.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	otps := otp.New()
	otps.StartSweeper(ctx, time.Minute)
	pend := pending.New()
	pend.StartSweeper(ctx, time.Minute)

	// Mailer: missing SMTP settings put the server in dev mode, where
	// the OTP is echoed in the register response instead of emailed.
	var m mailer.Mailer
	smtp, err := mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass,
		cfg.MailFrom, cfg.EventName)
	switch {
	case err == nil:
		m = smtp
	case errors.Is(err, mailer.ErrUnconfigured):
		if !cfg.DevMode {
			logger.Error("SMTP not configured and DEV_MODE not set; refusing to echo OTPs")
			os.Exit(1)
		}
		logger.Warn("SMTP not configured, running in dev mode: OTPs echo in responses")
	default:
		logger.Error("mailer", "err", err)
		os.Exit(1)
	}

	renderer := card.NewRenderer(cfg.EventBanner, cfg.EventName)
	pipeline, err := card.NewPipeline(renderer, cfg.AssetsDir)
	if err != nil {
		logger.Error("card pipeline", "err", err)
		os.Exit(1)
	}

	events := bus.New()
	reg := registration.New(st, otps, pend, pipeline, m, logger, cfg.TeamIDPrefix, cfg.MaxTeamSize)
	checkins := checkin.New(st, events)

	srv := &handlers.Server{
		Store:             st,
		Registration:      reg,
		Checkin:           checkins,
		Bus:               events,
		Log:               logger,
		Secret:            cfg.JWTSecret,
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: cfg.AdminPasswordHash,
	}

	mux := http.NewServeMux()

	// Registration endpoints sit behind a per-IP limit: each request
	// can trigger an outbound email.
	limiter := middleware.NewRateLimiter(5, time.Minute)
	mux.Handle("POST /api/register", limiter.Middleware(http.HandlerFunc(srv.Register)))
	mux.Handle("POST /api/verify-otp", limiter.Middleware(http.HandlerFunc(srv.VerifyOTP)))

	// Public lookups and attendance.
	mux.HandleFunc("GET /api/health", srv.Health)
	mux.HandleFunc("GET /api/team/{team_id}", srv.GetTeam)
	mux.HandleFunc("GET /api/team/by-code/{code}", srv.GetTeamByCode)
	mux.HandleFunc("POST /api/attendance/scan", srv.Scan)
	mux.HandleFunc("POST /api/attendance/checkin", srv.CheckIn)
	mux.HandleFunc("GET /api/download/id-cards", srv.DownloadIDCards)
	mux.HandleFunc("GET /api/stats", srv.GetStats)
	mux.HandleFunc("GET /api/ws/stats", srv.WSStats)

	// Admin surface.
	auth := middleware.Authenticate(cfg.JWTSecret)
	mux.HandleFunc("POST /api/admin/login", srv.AdminLogin)
	mux.Handle("GET /api/admin/teams", auth(http.HandlerFunc(srv.ListTeams)))
	mux.Handle("GET /api/admin/export", auth(http.HandlerFunc(srv.ExportCSV)))

	handler := middleware.CORS(middleware.Log(logger)(mux))

	logger.Info("listening", "addr", cfg.Addr, "prefix", cfg.TeamIDPrefix)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Error("server", "err", err)
		os.Exit(1)
	}
}
