package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements uses only DDL that both SQLite and PostgreSQL accept.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS concepts (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		domain      TEXT NOT NULL DEFAULT '',
		subdomain   TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		tags        TEXT NOT NULL DEFAULT '[]',
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id             TEXT PRIMARY KEY,
		stem           TEXT NOT NULL,
		item_type      TEXT NOT NULL,
		concept_ids    TEXT NOT NULL DEFAULT '[]',
		difficulty     INTEGER NOT NULL DEFAULT 0,
		source         TEXT NOT NULL DEFAULT '',
		explanation    TEXT NOT NULL DEFAULT '',
		choices        TEXT NOT NULL DEFAULT 'null',
		correct_answer TEXT NOT NULL DEFAULT '',
		calc_template  TEXT NOT NULL DEFAULT 'null',
		case_steps     TEXT NOT NULL DEFAULT 'null',
		cloze_text     TEXT NOT NULL DEFAULT '',
		cloze_blanks   TEXT NOT NULL DEFAULT 'null',
		created_at     TIMESTAMP NOT NULL,
		updated_at     TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id               TEXT PRIMARY KEY,
		session_type     TEXT NOT NULL,
		focus_concept_id TEXT NOT NULL DEFAULT '',
		time_limit_ms    BIGINT NOT NULL DEFAULT 0,
		started_at       TIMESTAMP NOT NULL,
		completed_at     TIMESTAMP,
		total_items      INTEGER NOT NULL DEFAULT 0,
		completed_items  INTEGER NOT NULL DEFAULT 0,
		accuracy         DOUBLE PRECISION NOT NULL DEFAULT 0,
		avg_confidence   DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS attempts (
		id            TEXT PRIMARY KEY,
		item_id       TEXT NOT NULL,
		session_id    TEXT NOT NULL DEFAULT '',
		concept_ids   TEXT NOT NULL DEFAULT '[]',
		user_answer   TEXT NOT NULL DEFAULT '',
		is_correct    BOOLEAN NOT NULL,
		confidence    INTEGER NOT NULL,
		time_spent_ms BIGINT NOT NULL DEFAULT 0,
		created_at    TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS memory_states (
		concept_id    TEXT NOT NULL,
		item_id       TEXT NOT NULL,
		stability     DOUBLE PRECISION NOT NULL,
		difficulty    DOUBLE PRECISION NOT NULL,
		reps          INTEGER NOT NULL DEFAULT 0,
		lapses        INTEGER NOT NULL DEFAULT 0,
		last_reviewed TIMESTAMP NOT NULL,
		due_at        TIMESTAMP NOT NULL,
		PRIMARY KEY (concept_id, item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS mastery_states (
		concept_id     TEXT PRIMARY KEY,
		concept_name   TEXT NOT NULL DEFAULT '',
		domain         TEXT NOT NULL DEFAULT '',
		mastery_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
		attempts       INTEGER NOT NULL DEFAULT 0,
		correct        INTEGER NOT NULL DEFAULT 0,
		avg_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		brier_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
		stability      DOUBLE PRECISION NOT NULL DEFAULT 0,
		due_backlog    INTEGER NOT NULL DEFAULT 0,
		trend          TEXT NOT NULL DEFAULT 'stable',
		last_attempted TIMESTAMP,
		updated_at     TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_item_id ON attempts (item_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_session_id ON attempts (session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_created_at ON attempts (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_memory_states_due_at ON memory_states (due_at)`,
}

// Migrate creates any missing tables and indexes. Existing tables are
// left untouched, so it is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
