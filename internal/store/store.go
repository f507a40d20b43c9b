// Package store is the durable credential store: teams and members in
// SQLite, with the uniqueness rules enforced by indexes rather than
// application locks. All multi-row writes go through transactions.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/techxelarate/backend/internal/models"
)

// Classified insert/update failures. The orchestrator retries on code
// and id collisions and rejects on duplicate email; everything else is
// an internal error.
var (
	ErrDuplicateEmail   = errors.New("leader email already registered")
	ErrDuplicateCode    = errors.New("team code already in use")
	ErrDuplicateTeamID  = errors.New("team id already in use")
	ErrNotFound         = errors.New("team not found")
	ErrAlreadyCheckedIn = errors.New("team already checked in")
)

// Store wraps the SQLite handle. database/sql is safe for concurrent
// use; the pool manages connections internally.
type Store struct {
	DB *sql.DB
}

// New returns a Store over db.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

// InsertTeam commits a team and its members in a single transaction.
//
// The sequential team id is assigned here — count(teams)+1 read inside
// the same transaction that inserts the row — so two concurrent commits
// race on the UNIQUE index, one loses with ErrDuplicateTeamID, and the
// caller retries. team.TeamCode and the members' participant ids must
// be set by the caller before the call.
//
// On success team.ID, team.TeamID and team.CreatedAt are filled in.
func (s *Store) InsertTeam(ctx context.Context, prefix string, team *models.Team, members []models.Member) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is a no-op after Commit succeeds

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams`).Scan(&count); err != nil {
		return fmt.Errorf("count teams: %w", err)
	}

	team.ID = uuid.NewString()
	team.TeamID = fmt.Sprintf("%s-%03d", prefix, count+1)
	team.CreatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO teams (id, team_id, team_code, team_name, leader_name, leader_email, leader_phone,
		                    college_name, year, domain, access_key, attendance_status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		team.ID, team.TeamID, team.TeamCode, team.TeamName, team.LeaderName, team.LeaderEmail,
		team.LeaderPhone, team.CollegeName, team.Year, team.Domain, team.AccessKey, team.CreatedAt,
	)
	if err != nil {
		return classifyUnique(err)
	}

	for i := range members {
		m := &members[i]
		m.ID = uuid.NewString()
		m.TeamID = team.ID
		_, err = tx.ExecContext(ctx,
			`INSERT INTO members (id, team_id, member_index, name, email, phone, participant_id, is_team_leader)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.TeamID, m.Index, m.Name, m.Email, m.Phone, m.ParticipantID, m.IsTeamLeader,
		)
		if err != nil {
			return classifyUnique(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classifyUnique(err)
	}
	team.Members = members
	return nil
}

// classifyUnique maps sqlite UNIQUE violations onto the store's
// sentinel errors by inspecting the constraint's column name.
func classifyUnique(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE") {
		return fmt.Errorf("insert team: %w", err)
	}
	switch {
	case strings.Contains(msg, "teams.leader_email"):
		return ErrDuplicateEmail
	case strings.Contains(msg, "teams.team_code"), strings.Contains(msg, "members.participant_id"):
		return ErrDuplicateCode
	case strings.Contains(msg, "teams.team_id"):
		return ErrDuplicateTeamID
	}
	return fmt.Errorf("insert team: %w", err)
}

// HasLeaderEmail reports whether a committed team already owns email.
func (s *Store) HasLeaderEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM teams WHERE leader_email = ?)`, email,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("leader email lookup: %w", err)
	}
	return exists, nil
}

const teamColumns = `id, team_id, team_code, team_name, leader_name, leader_email, leader_phone,
	college_name, year, domain, access_key, attendance_status, check_in_time,
	id_cards_pdf_path, artifacts_pending, created_at`

func (s *Store) scanTeam(row *sql.Row) (*models.Team, error) {
	var t models.Team
	var checkIn sql.NullTime
	err := row.Scan(&t.ID, &t.TeamID, &t.TeamCode, &t.TeamName, &t.LeaderName, &t.LeaderEmail,
		&t.LeaderPhone, &t.CollegeName, &t.Year, &t.Domain, &t.AccessKey, &t.AttendanceStatus,
		&checkIn, &t.IDCardsPDFPath, &t.ArtifactsPending, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan team: %w", err)
	}
	if checkIn.Valid {
		when := checkIn.Time
		t.CheckInTime = &when
	}
	return &t, nil
}

// FindByTeamCode loads a team and its members by opaque team code.
func (s *Store) FindByTeamCode(ctx context.Context, code string) (*models.Team, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE team_code = ?`, code)
	return s.withMembers(ctx, row)
}

// FindByTeamID loads a team and its members by sequential team id.
func (s *Store) FindByTeamID(ctx context.Context, teamID string) (*models.Team, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE team_id = ?`, teamID)
	return s.withMembers(ctx, row)
}

func (s *Store) withMembers(ctx context.Context, row *sql.Row) (*models.Team, error) {
	t, err := s.scanTeam(row)
	if err != nil {
		return nil, err
	}
	members, err := s.membersOf(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Members = members
	return t, nil
}

func (s *Store) membersOf(ctx context.Context, teamRowID string) ([]models.Member, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, team_id, member_index, name, email, phone, participant_id, is_team_leader
		 FROM members WHERE team_id = ? ORDER BY member_index ASC`, teamRowID)
	if err != nil {
		return nil, fmt.Errorf("members query: %w", err)
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.TeamID, &m.Index, &m.Name, &m.Email, &m.Phone,
			&m.ParticipantID, &m.IsTeamLeader); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("members rows: %w", err)
	}
	return members, nil
}

// MarkCheckedIn flips the attendance bit for team_code exactly once.
//
// The conditional UPDATE is the serialisation point for concurrent
// scans: exactly one caller affects a row; everyone else gets
// ErrAlreadyCheckedIn carrying the winner's check-in time.
func (s *Store) MarkCheckedIn(ctx context.Context, teamCode string, when time.Time) (time.Time, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE teams SET attendance_status = 1, check_in_time = ?
		 WHERE team_code = ? AND attendance_status = 0`,
		when, teamCode)
	if err != nil {
		return time.Time{}, fmt.Errorf("mark checked in: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return time.Time{}, fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return when, nil
	}

	// Zero rows: either the team does not exist or it is already in.
	var existing sql.NullTime
	err = s.DB.QueryRowContext(ctx,
		`SELECT check_in_time FROM teams WHERE team_code = ?`, teamCode,
	).Scan(&existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("check-in lookup: %w", err)
	}
	if existing.Valid {
		return existing.Time, ErrAlreadyCheckedIn
	}
	return time.Time{}, ErrAlreadyCheckedIn
}

// SetArtifacts records the generated PDF path and the recoverable-
// failure marker for the operator UI.
func (s *Store) SetArtifacts(ctx context.Context, teamID, pdfPath string, pending bool) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE teams SET id_cards_pdf_path = ?, artifacts_pending = ? WHERE team_id = ?`,
		pdfPath, pending, teamID)
	if err != nil {
		return fmt.Errorf("set artifacts: %w", err)
	}
	return nil
}

// Stats aggregates the /api/stats counters.
func (s *Store) Stats(ctx context.Context) (*models.Stats, error) {
	st := &models.Stats{DomainDistribution: map[string]int{}}

	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams`).Scan(&st.TotalTeams); err != nil {
		return nil, fmt.Errorf("count teams: %w", err)
	}
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`).Scan(&st.TotalMembers); err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	if err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM teams WHERE attendance_status = 1`).Scan(&st.CheckedInTeams); err != nil {
		return nil, fmt.Errorf("count checked in: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT domain, COUNT(*) FROM teams GROUP BY domain`)
	if err != nil {
		return nil, fmt.Errorf("domain distribution: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var domain string
		var n int
		if err := rows.Scan(&domain, &n); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		st.DomainDistribution[domain] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("domain rows: %w", err)
	}
	return st, nil
}

// ListTeams returns one admin page of teams plus the unfiltered total.
// search matches team_id or team_name substrings; domain filters exact.
func (s *Store) ListTeams(ctx context.Context, page, pageSize int, search, domain string) ([]models.Team, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	where := []string{}
	args := []any{}
	if search != "" {
		where = append(where, `(team_id LIKE ? OR team_name LIKE ?)`)
		like := "%" + search + "%"
		args = append(args, like, like)
	}
	if domain != "" {
		where = append(where, `domain = ?`)
		args = append(args, domain)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count page: %w", err)
	}

	query := `SELECT ` + teamColumns + ` FROM teams` + clause +
		` ORDER BY created_at ASC LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	teams := []models.Team{}
	for rows.Next() {
		var t models.Team
		var checkIn sql.NullTime
		if err := rows.Scan(&t.ID, &t.TeamID, &t.TeamCode, &t.TeamName, &t.LeaderName, &t.LeaderEmail,
			&t.LeaderPhone, &t.CollegeName, &t.Year, &t.Domain, &t.AccessKey, &t.AttendanceStatus,
			&checkIn, &t.IDCardsPDFPath, &t.ArtifactsPending, &t.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan team: %w", err)
		}
		if checkIn.Valid {
			when := checkIn.Time
			t.CheckInTime = &when
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list rows: %w", err)
	}
	return teams, total, nil
}
