package model

import "time"

// InterceptKey is the weight-map key holding the model intercept
const InterceptKey = "intercept"

// Calibration describes a post-hoc probability remapping
type Calibration struct {
	Method string             `json:"method"` // "platt"
	Params map[string]float64 `json:"params"` // a, b for platt
}

// Thresholds split calibrated probabilities into three labels
type Thresholds struct {
	Lo float64 `json:"t_lo"`
	Hi float64 `json:"t_hi"`
}

// DefaultThresholds apply when no validation data was available
var DefaultThresholds = Thresholds{Lo: 0.33, Hi: 0.67}

// TrainedModel is a persisted logistic-regression artifact.
// Registering under an existing ModelID replaces it wholesale.
type TrainedModel struct {
	ModelID       string             `json:"model_id"`
	SchemaVersion SchemaVersion      `json:"feature_schema_version"`
	FeatureNames  []FeatureName      `json:"feature_names"`
	Weights       map[string]float64 `json:"weights"`
	Calibration   *Calibration       `json:"calibration,omitempty"`
	Thresholds    Thresholds         `json:"thresholds"`
	Metrics       TrainingMetrics    `json:"metrics"`
	DatasetName   string             `json:"dataset_name"`
	DatasetHash   string             `json:"dataset_hash"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Intercept returns the stored intercept (0 if absent)
func (m *TrainedModel) Intercept() float64 {
	return m.Weights[InterceptKey]
}

// TrainingMetrics are the validation metrics recorded with an artifact
type TrainingMetrics struct {
	Accuracy  float64  `json:"accuracy"`
	Precision float64  `json:"precision"`
	Recall    float64  `json:"recall"`
	F1        float64  `json:"f1"`
	Brier     float64  `json:"brier"`
	AUROC     *float64 `json:"auroc"`
	ECE       float64  `json:"ece"`
	NTrain    int      `json:"n_train"`
	NVal      int      `json:"n_val"`
}

// ModelSummary is the listing view of a registered model
type ModelSummary struct {
	ModelID       string        `json:"model_id"`
	SchemaVersion SchemaVersion `json:"feature_schema_version"`
	DatasetName   string        `json:"dataset_name"`
	NumFeatures   int           `json:"num_features"`
	Calibrated    bool          `json:"calibrated"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Summary returns the listing view of the artifact
func (m *TrainedModel) Summary() ModelSummary {
	return ModelSummary{
		ModelID:       m.ModelID,
		SchemaVersion: m.SchemaVersion,
		DatasetName:   m.DatasetName,
		NumFeatures:   len(m.FeatureNames),
		Calibrated:    m.Calibration != nil,
		CreatedAt:     m.CreatedAt,
	}
}
