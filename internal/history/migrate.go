package history

import (
	"database/sql"
	"strings"
)

const schema = `
CREATE TABLE IF NOT EXISTS validations (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    at           DATETIME NOT NULL,
    hostname     TEXT NOT NULL,
    is_valid     BOOLEAN NOT NULL DEFAULT 0,
    mode         TEXT NOT NULL DEFAULT '',
    trust_score  INTEGER NOT NULL DEFAULT 0,
    duration_us  INTEGER NOT NULL DEFAULT 0,
    match_count  INTEGER NOT NULL DEFAULT 0,
    error_count  INTEGER NOT NULL DEFAULT 0,
    warn_count   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS validation_errors (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    validation_id INTEGER NOT NULL REFERENCES validations(id),
    kind          TEXT NOT NULL DEFAULT '',
    detail        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_validations_host ON validations(hostname, at);
CREATE INDEX IF NOT EXISTS idx_errors_validation ON validation_errors(validation_id);
`

func migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	// v2: record which pin matched, for rotation forensics (idempotent)
	for _, stmt := range []string{
		"ALTER TABLE validations ADD COLUMN matched_hash TEXT DEFAULT ''",
		"ALTER TABLE validations ADD COLUMN emergency_used BOOLEAN DEFAULT 0",
	} {
		if _, err := db.Exec(stmt); err != nil && !isDuplicateColumn(err) {
			return err
		}
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	// SQLite returns "duplicate column name" when the column already exists.
	msg := err.Error()
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}
