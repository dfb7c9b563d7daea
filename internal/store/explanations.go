package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

// UpsertExplanation keeps the latest explanation per (run, model, mode)
func (s *Store) UpsertExplanation(e model.StoredExplanation) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.db.Exec(
		`INSERT INTO explanations (run_id, model_id, mode, user_question, response_text, context_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, model_id, mode) DO UPDATE SET
		   user_question = excluded.user_question,
		   response_text = excluded.response_text,
		   context_json = excluded.context_json,
		   created_at = excluded.created_at`,
		e.RunID, e.ModelID, e.Mode, e.UserQuestion, e.ResponseText, e.ContextJSON, formatTime(created),
	)
	if err != nil {
		return fmt.Errorf("upsert explanation: %w", err)
	}
	return nil
}

// GetExplanation loads the stored explanation for (run, model, mode)
func (s *Store) GetExplanation(runID, modelID, mode string) (*model.StoredExplanation, error) {
	row := s.db.QueryRow(
		`SELECT run_id, model_id, mode, user_question, response_text, context_json, created_at
		 FROM explanations WHERE run_id = ? AND model_id = ? AND mode = ?`, runID, modelID, mode)

	var (
		e        model.StoredExplanation
		question sql.NullString
		created  string
	)
	err := row.Scan(&e.RunID, &e.ModelID, &e.Mode, &question, &e.ResponseText, &e.ContextJSON, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("explanation", runID+"/"+modelID+"/"+mode)
	}
	if err != nil {
		return nil, fmt.Errorf("get explanation: %w", err)
	}
	e.UserQuestion = question.String
	if e.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &e, nil
}
