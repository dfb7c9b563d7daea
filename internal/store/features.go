package store

import (
	"fmt"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

// DeleteFeatures removes all stored features of a run
func (s *Store) DeleteFeatures(runID string) error {
	if _, err := s.db.Exec(`DELETE FROM features WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete features: %w", err)
	}
	return nil
}

// InsertFeatures stores feature rows in one transaction
func (s *Store) InsertFeatures(features []model.Feature) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, f := range features {
		_, err := tx.Exec(
			`INSERT INTO features (run_id, feature_group, feature_name, feature_value)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(run_id, feature_group, feature_name) DO UPDATE SET
			   feature_value = excluded.feature_value`,
			f.RunID, string(f.Group), string(f.Name), f.Value,
		)
		if err != nil {
			return fmt.Errorf("insert feature %s: %w", f.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListFeatures returns a run's features ordered by group then name
func (s *Store) ListFeatures(runID string) ([]model.Feature, error) {
	rows, err := s.db.Query(
		`SELECT run_id, feature_group, feature_name, feature_value
		 FROM features WHERE run_id = ? ORDER BY feature_group, feature_name`, runID)
	if err != nil {
		return nil, fmt.Errorf("list features: %w", err)
	}
	defer rows.Close()

	var out []model.Feature
	for rows.Next() {
		var (
			f           model.Feature
			group, name string
		)
		if err := rows.Scan(&f.RunID, &group, &name, &f.Value); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		f.Group = model.FeatureGroup(group)
		f.Name = model.FeatureName(name)
		out = append(out, f)
	}
	return out, rows.Err()
}

// FeatureKeys returns the distinct (group, name) pairs stored for the groups
func (s *Store) FeatureKeys(groups []model.FeatureGroup) ([]model.FeatureKey, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	args := make([]any, len(groups))
	for i, g := range groups {
		args[i] = string(g)
	}

	rows, err := s.db.Query(
		`SELECT DISTINCT feature_group, feature_name FROM features
		 WHERE feature_group IN (`+placeholders(len(args))+`)
		 ORDER BY feature_group, feature_name`, args...)
	if err != nil {
		return nil, fmt.Errorf("feature keys: %w", err)
	}
	defer rows.Close()

	var out []model.FeatureKey
	for rows.Next() {
		var group, name string
		if err := rows.Scan(&group, &name); err != nil {
			return nil, fmt.Errorf("scan feature key: %w", err)
		}
		out = append(out, model.FeatureKey{Group: model.FeatureGroup(group), Name: model.FeatureName(name)})
	}
	return out, rows.Err()
}
