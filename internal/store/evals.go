package store

import (
	"fmt"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

// InsertEvalResults stores evaluation rows; a re-run of the same
// (dataset, model, claim) replaces the earlier row
func (s *Store) InsertEvalResults(rows []model.EvalRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, r := range rows {
		_, err := tx.Exec(
			`INSERT INTO eval_results (dataset_name, model_id, claim_id, run_id, true_label, predicted_score, predicted_label)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(dataset_name, model_id, claim_id) DO UPDATE SET
			   run_id = excluded.run_id,
			   true_label = excluded.true_label,
			   predicted_score = excluded.predicted_score,
			   predicted_label = excluded.predicted_label`,
			r.DatasetName, r.ModelID, r.ClaimID, r.RunID, r.TrueLabel, r.PredictedScore, string(r.PredictedLabel),
		)
		if err != nil {
			return fmt.Errorf("insert eval result %s: %w", r.ClaimID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListEvalResults returns the stored rows of a dataset under a model
func (s *Store) ListEvalResults(datasetName, modelID string) ([]model.EvalRow, error) {
	rows, err := s.db.Query(
		`SELECT dataset_name, model_id, claim_id, run_id, true_label, predicted_score, predicted_label
		 FROM eval_results WHERE dataset_name = ? AND model_id = ? ORDER BY claim_id`, datasetName, modelID)
	if err != nil {
		return nil, fmt.Errorf("list eval results: %w", err)
	}
	defer rows.Close()

	var out []model.EvalRow
	for rows.Next() {
		var (
			r     model.EvalRow
			label string
		)
		if err := rows.Scan(&r.DatasetName, &r.ModelID, &r.ClaimID, &r.RunID, &r.TrueLabel, &r.PredictedScore, &label); err != nil {
			return nil, fmt.Errorf("scan eval result: %w", err)
		}
		r.PredictedLabel = model.Label(label)
		out = append(out, r)
	}
	return out, rows.Err()
}
