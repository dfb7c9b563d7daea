// Package store persists runs, evidence, priors, features, scores, model
// artifacts, evaluation rows and explanations in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	created_at   TEXT NOT NULL,
	claim_text   TEXT NOT NULL,
	query_text   TEXT,
	status       TEXT NOT NULL,
	params_json  TEXT,
	error_text   TEXT
);

CREATE TABLE IF NOT EXISTS evidence_items (
	evidence_id  TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	url          TEXT NOT NULL UNIQUE,
	domain       TEXT NOT NULL DEFAULT '',
	title        TEXT,
	snippet      TEXT,
	published_at TEXT,
	retrieved_at TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	source       TEXT,
	raw_json     TEXT,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
CREATE INDEX IF NOT EXISTS idx_evidence_run ON evidence_items(run_id);

CREATE TABLE IF NOT EXISTS source_priors (
	domain            TEXT PRIMARY KEY,
	reliability_score REAL NOT NULL,
	source            TEXT,
	updated_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS features (
	run_id        TEXT NOT NULL,
	feature_group TEXT NOT NULL,
	feature_name  TEXT NOT NULL,
	feature_value REAL NOT NULL,
	PRIMARY KEY (run_id, feature_group, feature_name),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS scores (
	run_id           TEXT NOT NULL,
	model_id         TEXT NOT NULL,
	score            REAL NOT NULL,
	label            TEXT NOT NULL,
	explanation_json TEXT NOT NULL,
	created_at       TEXT NOT NULL,
	PRIMARY KEY (run_id, model_id),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS trained_models (
	model_id               TEXT PRIMARY KEY,
	feature_schema_version TEXT NOT NULL,
	feature_names_json     TEXT NOT NULL,
	weights_json           TEXT NOT NULL,
	calibration_json       TEXT,
	thresholds_json        TEXT NOT NULL,
	metrics_json           TEXT NOT NULL,
	dataset_name           TEXT NOT NULL,
	dataset_hash           TEXT NOT NULL,
	created_at             TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS eval_results (
	dataset_name    TEXT NOT NULL,
	model_id        TEXT NOT NULL,
	claim_id        TEXT NOT NULL,
	run_id          TEXT NOT NULL,
	true_label      INTEGER NOT NULL,
	predicted_score REAL NOT NULL,
	predicted_label TEXT NOT NULL,
	PRIMARY KEY (dataset_name, model_id, claim_id)
);

CREATE TABLE IF NOT EXISTS explanations (
	run_id        TEXT NOT NULL,
	model_id      TEXT NOT NULL,
	mode          TEXT NOT NULL,
	user_question TEXT,
	response_text TEXT NOT NULL,
	context_json  TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	PRIMARY KEY (run_id, model_id, mode),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// Store is the SQLite-backed persistence layer
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and runs migrations
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one connection keeps pragmas applied and serializes writers
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping() error {
	return s.db.Ping()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullableTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// placeholders returns "?, ?, ?" for n arguments
func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
