package eval

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

// DefaultTopN caps the false positive and false negative listings
const DefaultTopN = 20

// hard cases are confident mistakes
const (
	hardHigh = 0.8
	hardLow  = 0.2
)

var keyFeatures = []model.FeatureName{
	model.FeatWeightedPriorMean,
	model.FeatUnknownSourceRatio,
	model.FeatMaxDomainConcentration,
	model.FeatRecencyScore,
	model.FeatDomainDiversity,
}

// ErrorCase is one misclassified row
type ErrorCase struct {
	RunID          string
	ClaimText      string
	Label          int
	PredictedLabel model.Label
	Score          float64
	KeyFeatures    map[string]float64
}

// ErrorSummary counts the cases written by WriteErrorArtifacts
type ErrorSummary struct {
	FalsePositives int    `json:"false_positives"`
	FalseNegatives int    `json:"false_negatives"`
	HardCases      int    `json:"hard_cases"`
	Dir            string `json:"out_dir"`
}

// WriteErrorArtifacts writes false_positives.csv, false_negatives.csv,
// hard_cases.csv and summary.md into dir. claims maps run id to claim text.
func WriteErrorArtifacts(dir string, rows []model.EvalRow, feats map[string]model.FeatureSet, claims map[string]string, topN int) (*ErrorSummary, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	var fps, fns []ErrorCase
	for _, r := range rows {
		pred := PredictedPositive(r.PredictedLabel)
		if pred == r.TrueLabel {
			continue
		}
		c := ErrorCase{
			RunID:          r.RunID,
			ClaimText:      claims[r.RunID],
			Label:          r.TrueLabel,
			PredictedLabel: r.PredictedLabel,
			Score:          r.PredictedScore,
			KeyFeatures:    summarize(feats[r.RunID]),
		}
		if pred == 1 {
			fps = append(fps, c)
		} else {
			fns = append(fns, c)
		}
	}

	var hard []ErrorCase
	for _, c := range append(append([]ErrorCase(nil), fps...), fns...) {
		if c.Score >= hardHigh || c.Score <= hardLow {
			hard = append(hard, c)
		}
	}
	// most confident first
	sort.SliceStable(hard, func(i, j int) bool {
		return math.Abs(hard[i].Score-0.5) > math.Abs(hard[j].Score-0.5)
	})

	topFP := append([]ErrorCase(nil), fps...)
	sort.SliceStable(topFP, func(i, j int) bool { return topFP[i].Score > topFP[j].Score })
	topFN := append([]ErrorCase(nil), fns...)
	sort.SliceStable(topFN, func(i, j int) bool { return topFN[i].Score < topFN[j].Score })

	files := []struct {
		name  string
		cases []ErrorCase
	}{
		{"false_positives.csv", head(topFP, topN)},
		{"false_negatives.csv", head(topFN, topN)},
		{"hard_cases.csv", hard},
	}
	for _, f := range files {
		if err := writeCases(filepath.Join(dir, f.name), f.cases); err != nil {
			return nil, err
		}
	}

	summary := &ErrorSummary{
		FalsePositives: len(fps),
		FalseNegatives: len(fns),
		HardCases:      len(hard),
		Dir:            dir,
	}
	md := strings.Join([]string{
		"# Error Analysis Summary",
		"",
		fmt.Sprintf("False positives: %d", summary.FalsePositives),
		fmt.Sprintf("False negatives: %d", summary.FalseNegatives),
		fmt.Sprintf("Hard cases: %d", summary.HardCases),
		"",
	}, "\n")
	if err := os.WriteFile(filepath.Join(dir, "summary.md"), []byte(md), 0o644); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	return summary, nil
}

func summarize(fs model.FeatureSet) map[string]float64 {
	out := make(map[string]float64, len(keyFeatures))
	for _, name := range keyFeatures {
		out[string(name)] = fs[name]
	}
	return out
}

func head(cases []ErrorCase, n int) []ErrorCase {
	if len(cases) > n {
		return cases[:n]
	}
	return cases
}

func writeCases(path string, cases []ErrorCase) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"run_id", "claim_text", "label", "predicted_label", "score", "key_features"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range cases {
		// map keys marshal sorted
		kf, err := json.Marshal(c.KeyFeatures)
		if err != nil {
			return fmt.Errorf("encode key features: %w", err)
		}
		rec := []string{
			c.RunID,
			c.ClaimText,
			strconv.Itoa(c.Label),
			string(c.PredictedLabel),
			strconv.FormatFloat(c.Score, 'f', -1, 64),
			string(kf),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write case %s: %w", c.RunID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
