package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/praveenpuviindran/trustlens/internal/model"
)

// CreateRun inserts a new run with status started
func (s *Store) CreateRun(claimText, queryText string, params map[string]string) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.New().String(),
		ClaimText: claimText,
		QueryText: queryText,
		Status:    model.RunStatusStarted,
		Params:    params,
		CreatedAt: s.now().UTC(),
	}
	if err := s.InsertRun(run); err != nil {
		return nil, err
	}
	return run, nil
}

// InsertRun stores a fully formed run
func (s *Store) InsertRun(run *model.Run) error {
	params := "{}"
	if len(run.Params) > 0 {
		b, err := json.Marshal(run.Params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		params = string(b)
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, created_at, claim_text, query_text, status, params_json, error_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.CreatedAt), run.ClaimText, run.QueryText, string(run.Status), params, run.ErrorText,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun loads a run by id
func (s *Store) GetRun(runID string) (*model.Run, error) {
	row := s.db.QueryRow(
		`SELECT run_id, created_at, claim_text, query_text, status, params_json, error_text
		 FROM runs WHERE run_id = ?`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("run", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first
func (s *Store) ListRuns(limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT run_id, created_at, claim_text, query_text, status, params_json, error_text
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// UpdateRunStatus sets the status and error text of a run
func (s *Store) UpdateRunStatus(runID string, status model.RunStatus, errText string) error {
	res, err := s.db.Exec(`UPDATE runs SET status = ?, error_text = ? WHERE run_id = ?`, string(status), errText, runID)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("run", runID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (*model.Run, error) {
	var (
		run       model.Run
		createdAt string
		query     sql.NullString
		status    string
		params    sql.NullString
		errText   sql.NullString
	)
	if err := sc.Scan(&run.ID, &createdAt, &run.ClaimText, &query, &status, &params, &errText); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	run.CreatedAt = t
	run.QueryText = query.String
	run.Status = model.RunStatus(status)
	run.ErrorText = errText.String
	if params.Valid && params.String != "" && params.String != "{}" {
		if err := json.Unmarshal([]byte(params.String), &run.Params); err != nil {
			return nil, fmt.Errorf("parse params: %w", err)
		}
	}
	return &run, nil
}
