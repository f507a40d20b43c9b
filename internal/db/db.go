// Package db handles SQLite initialisation and schema migrations.
//
// modernc.org/sqlite is a pure-Go port of SQLite — no C compiler
// needed, no CGo, cross-compiles cleanly. The driver registers itself
// with database/sql under the name "sqlite".
package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Open opens (or creates) the SQLite database at dsn and runs all migrations.
//
// Recommended DSN formats:
//   - Production file: "hackathon.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
//   - Tests:           "file:testXYZ?mode=memory&cache=shared"
//
// Using URI pragma parameters means every connection from the pool gets
// them applied automatically.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// migrate runs each DDL statement in the schema individually — the
// sqlite driver executes only the first statement of a multi-statement
// Exec, so we split on ";" and loop.
func migrate(db *sql.DB) error {
	stmts := strings.Split(schema, ";")
	for _, stmt := range stmts {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration statement failed: %w\nstatement: %s", err, stmt)
		}
	}
	return nil
}

// schema contains every CREATE statement for the application.
//
//	teams    — one row per committed registration. team_id, team_code and
//	           leader_email each carry a UNIQUE index; those indexes are
//	           the arbiter for concurrent commits (the store retries on
//	           team_code/team_id collisions, rejects on leader_email).
//	members  — one row per participant, leader at member_index 0.
//	           participant_id is globally unique by construction
//	           ({team_code}-{index:03d}) and the index enforces it.
const schema = `
CREATE TABLE IF NOT EXISTS teams (
    id                 TEXT PRIMARY KEY,
    team_id            TEXT NOT NULL UNIQUE,
    team_code          TEXT NOT NULL UNIQUE,
    team_name          TEXT NOT NULL,
    leader_name        TEXT NOT NULL,
    leader_email       TEXT NOT NULL UNIQUE,
    leader_phone       TEXT NOT NULL,
    college_name       TEXT NOT NULL,
    year               TEXT NOT NULL,
    domain             TEXT NOT NULL,
    access_key         TEXT NOT NULL,
    attendance_status  INTEGER NOT NULL DEFAULT 0,
    check_in_time      DATETIME,
    id_cards_pdf_path  TEXT NOT NULL DEFAULT '',
    artifacts_pending  INTEGER NOT NULL DEFAULT 0,
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_teams_domain ON teams(domain);

CREATE TABLE IF NOT EXISTS members (
    id             TEXT PRIMARY KEY,
    team_id        TEXT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
    member_index   INTEGER NOT NULL,
    name           TEXT NOT NULL,
    email          TEXT NOT NULL,
    phone          TEXT NOT NULL,
    participant_id TEXT NOT NULL UNIQUE,
    is_team_leader INTEGER NOT NULL DEFAULT 0,
    UNIQUE (team_id, member_index)
);
`
