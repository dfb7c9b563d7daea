package eval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

// Analyzer runs one claim through retrieval, features and scoring
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error)
}

// ResultStore persists evaluation rows
type ResultStore interface {
	InsertEvalResults(rows []model.EvalRow) error
}

// HarnessOptions select the dataset name, scorer and retrieval size
type HarnessOptions struct {
	DatasetName string
	ModelID     string
	MaxRecords  int
}

// Report is the outcome of evaluating a dataset
type Report struct {
	DatasetName string                      `json:"dataset_name"`
	ModelID     string                      `json:"model_id"`
	Metrics     model.Metrics               `json:"metrics"`
	Stratified  Stratified                  `json:"stratified"`
	Failed      int                         `json:"failed"`
	Timestamp   time.Time                   `json:"timestamp"`
	Rows        []model.EvalRow             `json:"-"`
	Features    map[string]model.FeatureSet `json:"-"`
	Claims      map[string]string           `json:"-"`
}

// Harness evaluates labeled claims end to end
type Harness struct {
	analyzer Analyzer
	results  ResultStore
	log      *slog.Logger
	now      func() time.Time
}

// NewHarness creates a harness
func NewHarness(analyzer Analyzer, results ResultStore, log *slog.Logger) *Harness {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Harness{analyzer: analyzer, results: results, log: log, now: time.Now}
}

// Run analyzes every row, stores the scored rows and computes metrics.
// A claim whose analysis fails is counted and left out of the metrics;
// cancellation stops the run.
func (h *Harness) Run(ctx context.Context, rows []ClaimRow, opts HarnessOptions) (*Report, error) {
	modelID := opts.ModelID
	if modelID == "" {
		modelID = model.BaselineModelID
	}

	report := &Report{
		DatasetName: opts.DatasetName,
		ModelID:     modelID,
		Features:    make(map[string]model.FeatureSet, len(rows)),
		Claims:      make(map[string]string, len(rows)),
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", opts.DatasetName, err)
		}

		res, err := h.analyzer.Analyze(ctx, model.AnalysisRequest{
			ClaimText:  row.ClaimText,
			QueryText:  row.QueryText,
			MaxRecords: opts.MaxRecords,
			ModelID:    modelID,
		})
		if err != nil {
			report.Failed++
			h.log.Warn("claim analysis failed", "claim_id", row.ClaimID, "err", err)
			continue
		}

		report.Rows = append(report.Rows, model.EvalRow{
			RunID:          res.Run.ID,
			DatasetName:    opts.DatasetName,
			ClaimID:        row.ClaimID,
			ModelID:        modelID,
			TrueLabel:      row.Label,
			PredictedScore: res.Score.Score,
			PredictedLabel: res.Score.Label,
		})
		report.Features[res.Run.ID] = model.NewFeatureSet(res.Features)
		report.Claims[res.Run.ID] = row.ClaimText
		h.log.Debug("claim evaluated", "n", i+1, "of", len(rows), "claim_id", row.ClaimID, "score", res.Score.Score)
	}

	if len(report.Rows) > 0 {
		if err := h.results.InsertEvalResults(report.Rows); err != nil {
			return nil, fmt.Errorf("store eval results: %w", err)
		}
	}

	report.Metrics = ComputeMetrics(report.Rows)
	report.Stratified = Stratify(report.Rows, report.Features)
	report.Timestamp = h.now().UTC()
	h.log.Info("evaluation complete", "dataset", opts.DatasetName, "model_id", modelID,
		"n", report.Metrics.N, "failed", report.Failed, "accuracy", report.Metrics.Accuracy)
	return report, nil
}
