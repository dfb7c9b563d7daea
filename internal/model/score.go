package model

import "time"

// Label is the three-way credibility verdict
type Label string

const (
	LabelCredible    Label = "credible"
	LabelUncertain   Label = "uncertain"
	LabelNotCredible Label = "not_credible"
)

// BaselineModelID is the model id of the fixed-weight scorer
const BaselineModelID = "baseline_v1"

// Contribution is one feature's signed share of a linear score
type Contribution struct {
	Feature      FeatureName `json:"feature_name"`
	Value        float64     `json:"value"`
	Weight       *float64    `json:"weight,omitempty"`
	Contribution float64     `json:"contribution"`
}

// Explanation ranks the terms that moved a score
type Explanation struct {
	Kind      string         `json:"kind"` // "baseline" or "trained"
	ModelID   string         `json:"model_id,omitempty"`
	Positive  []Contribution `json:"top_positive"`
	Negative  []Contribution `json:"top_negative"`
	Intercept *float64       `json:"intercept,omitempty"`
	RawScore  *float64       `json:"raw_score,omitempty"`
	Score     *float64       `json:"calibrated_score,omitempty"`
}

// ScoreResult is the current score for one (run, model) pair
type ScoreResult struct {
	RunID       string      `json:"run_id"`
	ModelID     string      `json:"model_id"`
	Score       float64     `json:"score"`
	Label       Label       `json:"label"`
	Explanation Explanation `json:"explanation"`
	CreatedAt   time.Time   `json:"created_at"`
}
