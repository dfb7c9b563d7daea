package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

// UpsertScore stores the score of a run under a model, replacing any previous one
func (s *Store) UpsertScore(res model.ScoreResult) error {
	expl, err := json.Marshal(res.Explanation)
	if err != nil {
		return fmt.Errorf("marshal explanation: %w", err)
	}
	created := res.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	_, err = s.db.Exec(
		`INSERT INTO scores (run_id, model_id, score, label, explanation_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, model_id) DO UPDATE SET
		   score = excluded.score,
		   label = excluded.label,
		   explanation_json = excluded.explanation_json,
		   created_at = excluded.created_at`,
		res.RunID, res.ModelID, res.Score, string(res.Label), string(expl), formatTime(created),
	)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

// GetScore loads the score of a run under a model
func (s *Store) GetScore(runID, modelID string) (*model.ScoreResult, error) {
	row := s.db.QueryRow(
		`SELECT run_id, model_id, score, label, explanation_json, created_at
		 FROM scores WHERE run_id = ? AND model_id = ?`, runID, modelID)
	res, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("score", runID+"/"+modelID)
	}
	if err != nil {
		return nil, fmt.Errorf("get score: %w", err)
	}
	return res, nil
}

// LatestScore loads the most recent score of a run under any model
func (s *Store) LatestScore(runID string) (*model.ScoreResult, error) {
	row := s.db.QueryRow(
		`SELECT run_id, model_id, score, label, explanation_json, created_at
		 FROM scores WHERE run_id = ? ORDER BY created_at DESC LIMIT 1`, runID)
	res, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("score", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("latest score: %w", err)
	}
	return res, nil
}

func scanScore(sc rowScanner) (*model.ScoreResult, error) {
	var (
		res            model.ScoreResult
		label, expl, c string
	)
	if err := sc.Scan(&res.RunID, &res.ModelID, &res.Score, &label, &expl, &c); err != nil {
		return nil, err
	}
	res.Label = model.Label(label)
	if err := json.Unmarshal([]byte(expl), &res.Explanation); err != nil {
		return nil, fmt.Errorf("parse explanation: %w", err)
	}
	t, err := parseTime(c)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	res.CreatedAt = t
	return &res, nil
}
