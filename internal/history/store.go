// Package history provides persistent validation storage using SQLite.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/ppiankov/pinwatch/internal/pinning"
)

// Summary is a compact representation of a stored validation.
type Summary struct {
	ID            int64     `json:"id"`
	At            time.Time `json:"at"`
	Hostname      string    `json:"hostname"`
	IsValid       bool      `json:"isValid"`
	Mode          string    `json:"mode"`
	TrustScore    int       `json:"trustScore"`
	MatchCount    int       `json:"matchCount"`
	ErrorCount    int       `json:"errorCount"`
	EmergencyUsed bool      `json:"emergencyUsed"`
}

// TrendPoint is one data point for per-host trend analysis.
type TrendPoint struct {
	At         time.Time `json:"at"`
	IsValid    bool      `json:"isValid"`
	TrustScore int       `json:"trustScore"`
}

// Store persists validation results to SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and runs
// migrations. Use ":memory:" for an in-memory database (useful for tests).
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists one validation result and its errors.
func (s *Store) Save(result *pinning.ValidationResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // commit below; rollback is no-op after commit

	matchedHash := ""
	emergencyUsed := false
	for i := range result.Matches {
		if matchedHash == "" {
			matchedHash = result.Matches[i].MatchedHash
		}
		if result.Matches[i].IsEmergencyPin {
			emergencyUsed = true
		}
	}

	res, err := tx.Exec(
		`INSERT INTO validations
		 (at, hostname, is_valid, mode, trust_score, duration_us, match_count, error_count, warn_count, matched_hash, emergency_used)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ValidatedAt, result.Hostname, result.IsValid, string(result.Mode),
		result.TrustScore, result.Duration.Microseconds(),
		len(result.Matches), len(result.Errors), len(result.Warnings),
		matchedHash, emergencyUsed,
	)
	if err != nil {
		return fmt.Errorf("inserting validation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting validation id: %w", err)
	}

	if len(result.Errors) > 0 {
		stmt, err := tx.Prepare("INSERT INTO validation_errors (validation_id, kind, detail) VALUES (?, ?, ?)")
		if err != nil {
			return fmt.Errorf("preparing error insert: %w", err)
		}
		defer stmt.Close() //nolint:errcheck // statement lifetime bounded by tx
		for i := range result.Errors {
			if _, err := stmt.Exec(id, string(result.Errors[i].Kind), result.Errors[i].Detail); err != nil {
				return fmt.Errorf("inserting error: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Recent returns the most recent validations, newest first.
func (s *Store) Recent(limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, at, hostname, is_valid, mode, trust_score, match_count, error_count, emergency_used
		 FROM validations ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying validations: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var out []Summary
	for rows.Next() {
		var s1 Summary
		if err := rows.Scan(&s1.ID, &s1.At, &s1.Hostname, &s1.IsValid, &s1.Mode,
			&s1.TrustScore, &s1.MatchCount, &s1.ErrorCount, &s1.EmergencyUsed); err != nil {
			return nil, fmt.Errorf("scanning validation: %w", err)
		}
		out = append(out, s1)
	}
	return out, rows.Err()
}

// Trend returns the validation history for one hostname, oldest first.
func (s *Store) Trend(hostname string, limit int) ([]TrendPoint, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT at, is_valid, trust_score FROM validations
		 WHERE hostname = ? ORDER BY at DESC, id DESC LIMIT ?`, hostname, limit)
	if err != nil {
		return nil, fmt.Errorf("querying trend: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.At, &p.IsValid, &p.TrustScore); err != nil {
			return nil, fmt.Errorf("scanning trend point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// reverse to oldest-first for plotting
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// ErrorKinds returns the per-kind error counts across all stored validations.
func (s *Store) ErrorKinds() (map[string]int, error) {
	rows, err := s.db.Query("SELECT kind, COUNT(*) FROM validation_errors GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("querying error kinds: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	out := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scanning error kind: %w", err)
		}
		out[kind] = count
	}
	return out, rows.Err()
}
