package eval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/praveenpuviindran/trustlens/internal/model"
	"github.com/praveenpuviindran/trustlens/internal/score"
)

type fakeBenchStore struct {
	runs     []*model.Run
	features []model.Feature
	status   map[string]model.RunStatus
}

func (f *fakeBenchStore) CreateRun(claimText, queryText string, params map[string]string) (*model.Run, error) {
	r := &model.Run{ID: fmt.Sprintf("bench-%d", len(f.runs)+1), ClaimText: claimText, QueryText: queryText, Params: params}
	f.runs = append(f.runs, r)
	return r, nil
}

func (f *fakeBenchStore) InsertFeatures(features []model.Feature) error {
	f.features = append(f.features, features...)
	return nil
}

func (f *fakeBenchStore) UpdateRunStatus(runID string, status model.RunStatus, errText string) error {
	if f.status == nil {
		f.status = map[string]model.RunStatus{}
	}
	f.status[runID] = status
	return nil
}

type fakeScorers struct {
	trained *model.TrainedModel
}

func (f *fakeScorers) ScorerFor(modelID string) (score.Scorer, error) {
	if modelID == model.BaselineModelID {
		return score.NewBaselineScorer(), nil
	}
	if f.trained != nil && f.trained.ModelID == modelID {
		return score.NewTrainedScorer(f.trained), nil
	}
	return nil, model.NotFound("model", modelID)
}

func benchRows() []ClaimRow {
	return []ClaimRow{
		{ClaimID: "a", ClaimText: "Vaccines are tested in trials", Label: 1},
		{ClaimID: "b", ClaimText: "The moon is made of cheese", Label: 0},
		{ClaimID: "c", ClaimText: "Rivers flow downhill", Label: 1},
		{ClaimID: "d", ClaimText: "Birds are government drones", Label: 0},
	}
}

func TestBenchmark_Synthetic(t *testing.T) {
	store := &fakeBenchStore{}
	trained := &model.TrainedModel{
		ModelID:      "lr_test",
		FeatureNames: []model.FeatureName{model.FeatWeightedPriorMean, model.FeatTotalArticles},
		Weights: map[string]float64{
			string(model.FeatWeightedPriorMean): 3,
			string(model.FeatTotalArticles):     0.1,
			model.InterceptKey:                  -2,
		},
		Thresholds: model.DefaultThresholds,
	}
	b := NewBenchmark(store, &fakeScorers{trained: trained}, nil, nil)
	b.now = func() time.Time { return time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC) }

	cfg := BenchmarkConfig{
		DatasetName: "demo",
		ModelIDs:    []string{model.BaselineModelID, "lr_test"},
		NoFetch:     true,
	}
	report, preds, err := b.Run(context.Background(), benchRows(), []byte("raw"), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(store.runs) != 4 {
		t.Errorf("Expected one run per claim, got %d", len(store.runs))
	}
	if len(store.features) != 40 {
		t.Errorf("Expected 10 synthetic features per run, got %d", len(store.features))
	}
	if store.status["bench-1"] != model.RunStatusCompleted {
		t.Errorf("Expected synthetic runs completed, got %s", store.status["bench-1"])
	}
	if len(preds) != 8 {
		t.Errorf("Expected one prediction per (claim, model), got %d", len(preds))
	}
	if report.Config.SchemaVersion != model.SchemaV1 {
		t.Errorf("Expected default schema v1, got %s", report.Config.SchemaVersion)
	}
	if report.DatasetHash != datasetHash([]byte("raw")) {
		t.Error("Expected dataset hash of raw bytes")
	}

	for _, id := range cfg.ModelIDs {
		if report.Metrics[id].N != 4 {
			t.Errorf("Expected 4 scored rows for %s, got %d", id, report.Metrics[id].N)
		}
		if len(report.Ablations[id]) != len(model.BaseGroups) {
			t.Errorf("Expected one ablation per base group for %s, got %d", id, len(report.Ablations[id]))
		}
	}

	// zeroing a group the trained model ignores leaves its metrics unchanged
	if report.Ablations["lr_test"][string(model.GroupTemporal)].Brier != report.Metrics["lr_test"].Brier {
		t.Error("Expected temporal ablation to match the full lr_test metrics")
	}
	if report.Ablations["lr_test"][string(model.GroupSourceQuality)].Brier == report.Metrics["lr_test"].Brier {
		t.Error("Expected source_quality ablation to change lr_test metrics")
	}

	dir := t.TempDir()
	reportPath, predsPath, err := WriteBenchmark(dir, report, preds)
	if err != nil {
		t.Fatalf("WriteBenchmark failed: %v", err)
	}
	if want := dir + "/20240501_103000_report.json"; reportPath != want {
		t.Errorf("Expected %s, got %s", want, reportPath)
	}
	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var decoded BenchmarkReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(decoded.Ablations) != 2 {
		t.Errorf("Expected ablations for 2 models, got %d", len(decoded.Ablations))
	}
	if got := readCSV(t, predsPath); len(got) != 9 {
		t.Errorf("Expected header + 8 predictions, got %d", len(got))
	}
}

func TestBenchmark_Deterministic(t *testing.T) {
	cfg := BenchmarkConfig{DatasetName: "demo", NoFetch: true, MaxExamples: 3, Seed: 11}

	r1, _, err := NewBenchmark(&fakeBenchStore{}, &fakeScorers{}, nil, nil).Run(context.Background(), benchRows(), nil, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	r2, _, err := NewBenchmark(&fakeBenchStore{}, &fakeScorers{}, nil, nil).Run(context.Background(), benchRows(), nil, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	m1, m2 := r1.Metrics[model.BaselineModelID], r2.Metrics[model.BaselineModelID]
	if m1.N != 3 {
		t.Errorf("Expected max_examples to cap rows at 3, got %d", m1.N)
	}
	if m1.Brier != m2.Brier || m1.Accuracy != m2.Accuracy {
		t.Error("Expected identical metrics across synthetic runs")
	}
}

func TestBenchmark_UnknownModel(t *testing.T) {
	store := &fakeBenchStore{}
	b := NewBenchmark(store, &fakeScorers{}, nil, nil)

	_, _, err := b.Run(context.Background(), benchRows(), nil, BenchmarkConfig{ModelIDs: []string{"lr_missing"}, NoFetch: true})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if len(store.runs) != 0 {
		t.Error("Expected no runs created for an unknown model")
	}
}

func TestBenchmark_LiveNeedsAnalyzer(t *testing.T) {
	b := NewBenchmark(&fakeBenchStore{}, &fakeScorers{}, nil, nil)
	if _, _, err := b.Run(context.Background(), benchRows(), nil, BenchmarkConfig{}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestBenchmark_Live(t *testing.T) {
	analyzer := &fakeAnalyzer{fail: map[string]bool{"Rivers flow downhill": true}}
	b := NewBenchmark(&fakeBenchStore{}, &fakeScorers{}, analyzer, nil)

	report, preds, err := b.Run(context.Background(), benchRows(), nil, BenchmarkConfig{MaxRecords: 7})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Skipped != 1 || len(preds) != 3 {
		t.Errorf("Expected 1 skipped claim and 3 predictions, got %d and %d", report.Skipped, len(preds))
	}
	if analyzer.calls[0].MaxRecords != 7 {
		t.Errorf("Expected max records passed to the pipeline, got %d", analyzer.calls[0].MaxRecords)
	}
}
