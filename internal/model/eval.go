package model

import (
	"strconv"
	"strings"
	"time"
)

// EvalRow is one scored, labeled example
type EvalRow struct {
	RunID          string  `json:"run_id"`
	DatasetName    string  `json:"dataset_name"`
	ClaimID        string  `json:"claim_id"`
	ModelID        string  `json:"model_id,omitempty"`
	TrueLabel      int     `json:"true_label"`
	PredictedScore float64 `json:"predicted_score"`
	PredictedLabel Label   `json:"predicted_label"`
}

// CalibrationBin is one bucket of a reliability report
type CalibrationBin struct {
	Bin     int     `json:"bin"`
	Low     float64 `json:"low"`
	High    float64 `json:"high"`
	Count   int     `json:"count"`
	AvgPred float64 `json:"avg_pred"`
	AvgObs  float64 `json:"avg_obs"`
}

// Metrics are binary classification metrics over eval rows
type Metrics struct {
	N               int              `json:"n"`
	TP              int              `json:"tp"`
	TN              int              `json:"tn"`
	FP              int              `json:"fp"`
	FN              int              `json:"fn"`
	Accuracy        float64          `json:"accuracy"`
	Precision       float64          `json:"precision"`
	Recall          float64          `json:"recall"`
	F1              float64          `json:"f1"`
	Brier           float64          `json:"brier"`
	AUROC           *float64         `json:"auroc"`
	CalibrationBins []CalibrationBin `json:"calibration_bins"`
	ECE             float64          `json:"ece"`
}

// Explanation modes
const (
	ExplainModeSummary = "summary"
	ExplainModeChat    = "chat"
)

// StoredExplanation is the latest LLM response for a (run, model, mode)
type StoredExplanation struct {
	RunID        string    `json:"run_id"`
	ModelID      string    `json:"model_id"`
	Mode         string    `json:"mode"`
	UserQuestion string    `json:"user_question,omitempty"`
	ResponseText string    `json:"response_text"`
	ContextJSON  string    `json:"context_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// ParseTrueLabel maps 1/credible and 0/not_credible to a binary label.
// Uncertain, blank and anything else are not ok.
func ParseTrueLabel(raw string) (int, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "1", "credible":
		return 1, true
	case "0", "not_credible":
		return 0, true
	case "uncertain", "":
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || (n != 0 && n != 1) {
		return 0, false
	}
	return n, true
}
