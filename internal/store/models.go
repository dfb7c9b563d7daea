package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

const modelColumns = `model_id, feature_schema_version, feature_names_json, weights_json, calibration_json,
	thresholds_json, metrics_json, dataset_name, dataset_hash, created_at`

// UpsertModel registers an artifact, replacing any model with the same id
func (s *Store) UpsertModel(m *model.TrainedModel) error {
	names, err := json.Marshal(m.FeatureNames)
	if err != nil {
		return fmt.Errorf("marshal feature names: %w", err)
	}
	weights, err := json.Marshal(m.Weights)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	thresholds, err := json.Marshal(m.Thresholds)
	if err != nil {
		return fmt.Errorf("marshal thresholds: %w", err)
	}
	metrics, err := json.Marshal(m.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	var calibration any
	if m.Calibration != nil {
		b, err := json.Marshal(m.Calibration)
		if err != nil {
			return fmt.Errorf("marshal calibration: %w", err)
		}
		calibration = string(b)
	}
	created := m.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	_, err = s.db.Exec(
		`INSERT INTO trained_models (`+modelColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(model_id) DO UPDATE SET
		   feature_schema_version = excluded.feature_schema_version,
		   feature_names_json = excluded.feature_names_json,
		   weights_json = excluded.weights_json,
		   calibration_json = excluded.calibration_json,
		   thresholds_json = excluded.thresholds_json,
		   metrics_json = excluded.metrics_json,
		   dataset_name = excluded.dataset_name,
		   dataset_hash = excluded.dataset_hash,
		   created_at = excluded.created_at`,
		m.ModelID, string(m.SchemaVersion), string(names), string(weights), calibration,
		string(thresholds), string(metrics), m.DatasetName, m.DatasetHash, formatTime(created),
	)
	if err != nil {
		return fmt.Errorf("upsert model: %w", err)
	}
	return nil
}

// GetModel loads a registered artifact by id
func (s *Store) GetModel(modelID string) (*model.TrainedModel, error) {
	row := s.db.QueryRow(`SELECT `+modelColumns+` FROM trained_models WHERE model_id = ?`, modelID)
	m, err := scanModel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("model", modelID)
	}
	if err != nil {
		return nil, fmt.Errorf("get model: %w", err)
	}
	return m, nil
}

// ListModels returns summaries of all registered models, newest first
func (s *Store) ListModels() ([]model.ModelSummary, error) {
	rows, err := s.db.Query(`SELECT ` + modelColumns + ` FROM trained_models ORDER BY created_at DESC, model_id`)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var out []model.ModelSummary
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		out = append(out, m.Summary())
	}
	return out, rows.Err()
}

func scanModel(sc rowScanner) (*model.TrainedModel, error) {
	var (
		m                                  model.TrainedModel
		schema, names, weights, thresholds string
		metrics, created                   string
		calibration                        sql.NullString
	)
	if err := sc.Scan(&m.ModelID, &schema, &names, &weights, &calibration,
		&thresholds, &metrics, &m.DatasetName, &m.DatasetHash, &created); err != nil {
		return nil, err
	}
	m.SchemaVersion = model.SchemaVersion(schema)

	if err := json.Unmarshal([]byte(names), &m.FeatureNames); err != nil {
		return nil, fmt.Errorf("parse feature names: %w", err)
	}
	if err := json.Unmarshal([]byte(weights), &m.Weights); err != nil {
		return nil, fmt.Errorf("parse weights: %w", err)
	}
	if err := json.Unmarshal([]byte(thresholds), &m.Thresholds); err != nil {
		return nil, fmt.Errorf("parse thresholds: %w", err)
	}
	if err := json.Unmarshal([]byte(metrics), &m.Metrics); err != nil {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}
	if calibration.Valid && calibration.String != "" {
		m.Calibration = &model.Calibration{}
		if err := json.Unmarshal([]byte(calibration.String), m.Calibration); err != nil {
			return nil, fmt.Errorf("parse calibration: %w", err)
		}
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	m.CreatedAt = t
	return &m, nil
}
