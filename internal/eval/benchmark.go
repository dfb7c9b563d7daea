package eval

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/praveenpuviindran/trustlens/internal/model"
	"github.com/praveenpuviindran/trustlens/internal/score"
)

// BenchmarkConfig describes one benchmark invocation
type BenchmarkConfig struct {
	DatasetName   string              `json:"dataset_name"`
	MaxExamples   int                 `json:"max_examples"`
	Seed          uint64              `json:"seed"`
	ModelIDs      []string            `json:"model_ids"`
	MaxRecords    int                 `json:"max_records"`
	NoFetch       bool                `json:"no_fetch_evidence"`
	SchemaVersion model.SchemaVersion `json:"feature_schema_version"`
}

// BenchmarkReport holds per-model metrics and per-group ablations
type BenchmarkReport struct {
	Config      BenchmarkConfig                     `json:"config"`
	DatasetHash string                              `json:"dataset_hash"`
	Metrics     map[string]model.Metrics            `json:"metrics"`
	Ablations   map[string]map[string]model.Metrics `json:"ablations"`
	Skipped     int                                 `json:"skipped"`
	Timestamp   time.Time                           `json:"timestamp"`
}

// Prediction is one (claim, model) output of a benchmark
type Prediction struct {
	RunID          string
	ClaimID        string
	Claim          string
	Label          int
	PredictedProb  float64
	PredictedLabel model.Label
	ModelID        string
}

// BenchmarkStore creates runs and stores synthetic features
type BenchmarkStore interface {
	CreateRun(claimText, queryText string, params map[string]string) (*model.Run, error)
	InsertFeatures(features []model.Feature) error
	UpdateRunStatus(runID string, status model.RunStatus, errText string) error
}

// ScorerSource resolves a model id to a scorer
type ScorerSource interface {
	ScorerFor(modelID string) (score.Scorer, error)
}

// Benchmark scores a labeled dataset under several models and measures how
// much each feature group contributes
type Benchmark struct {
	store    BenchmarkStore
	scorers  ScorerSource
	analyzer Analyzer
	log      *slog.Logger
	now      func() time.Time
}

// NewBenchmark creates a benchmark driver. analyzer may be nil when every
// run uses synthetic features.
func NewBenchmark(store BenchmarkStore, scorers ScorerSource, analyzer Analyzer, log *slog.Logger) *Benchmark {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Benchmark{store: store, scorers: scorers, analyzer: analyzer, log: log, now: time.Now}
}

type benchRun struct {
	row   ClaimRow
	runID string
	fs    model.FeatureSet
}

// Run turns each claim into one run, scores every run under every model and
// repeats the scoring with each feature group zeroed
func (b *Benchmark) Run(ctx context.Context, rows []ClaimRow, data []byte, cfg BenchmarkConfig) (*BenchmarkReport, []Prediction, error) {
	if len(cfg.ModelIDs) == 0 {
		cfg.ModelIDs = []string{model.BaselineModelID}
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = model.SchemaV1
	}
	if !cfg.NoFetch && b.analyzer == nil {
		return nil, nil, model.InvalidInput("live benchmark needs an evidence pipeline")
	}

	scorers := make([]score.Scorer, 0, len(cfg.ModelIDs))
	for _, id := range cfg.ModelIDs {
		s, err := b.scorers.ScorerFor(id)
		if err != nil {
			return nil, nil, fmt.Errorf("benchmark model %s: %w", id, err)
		}
		scorers = append(scorers, s)
	}

	rows = Sample(rows, cfg.MaxExamples, cfg.Seed)
	report := &BenchmarkReport{
		Config:      cfg,
		DatasetHash: datasetHash(data),
		Metrics:     make(map[string]model.Metrics, len(scorers)),
		Ablations:   make(map[string]map[string]model.Metrics, len(scorers)),
	}

	runs := make([]benchRun, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("benchmark %s: %w", cfg.DatasetName, err)
		}
		br, err := b.materialize(ctx, row, cfg)
		if err != nil {
			report.Skipped++
			b.log.Warn("benchmark claim skipped", "claim_id", row.ClaimID, "err", err)
			continue
		}
		runs = append(runs, br)
	}

	var preds []Prediction
	for _, s := range scorers {
		evalRows := make([]model.EvalRow, 0, len(runs))
		for _, r := range runs {
			p := s.Predict(r.fs)
			evalRows = append(evalRows, b.evalRow(cfg, r, s.ModelID(), p))
			preds = append(preds, Prediction{
				RunID:          r.runID,
				ClaimID:        r.row.ClaimID,
				Claim:          r.row.ClaimText,
				Label:          r.row.Label,
				PredictedProb:  p.Score,
				PredictedLabel: p.Label,
				ModelID:        s.ModelID(),
			})
		}
		report.Metrics[s.ModelID()] = ComputeMetrics(evalRows)

		ablations := make(map[string]model.Metrics)
		for _, g := range cfg.SchemaVersion.Groups() {
			zeroed := make([]model.EvalRow, 0, len(runs))
			for _, r := range runs {
				zeroed = append(zeroed, b.evalRow(cfg, r, s.ModelID(), s.Predict(r.fs.ZeroGroup(g))))
			}
			ablations[string(g)] = ComputeMetrics(zeroed)
		}
		report.Ablations[s.ModelID()] = ablations
	}

	report.Timestamp = b.now().UTC()
	b.log.Info("benchmark complete", "dataset", cfg.DatasetName, "runs", len(runs), "models", len(scorers), "skipped", report.Skipped)
	return report, preds, nil
}

// materialize creates the run for a claim and returns its feature set
func (b *Benchmark) materialize(ctx context.Context, row ClaimRow, cfg BenchmarkConfig) (benchRun, error) {
	if !cfg.NoFetch {
		res, err := b.analyzer.Analyze(ctx, model.AnalysisRequest{
			ClaimText:  row.ClaimText,
			QueryText:  row.QueryText,
			MaxRecords: cfg.MaxRecords,
		})
		if err != nil {
			return benchRun{}, err
		}
		return benchRun{row: row, runID: res.Run.ID, fs: model.NewFeatureSet(res.Features)}, nil
	}

	run, err := b.store.CreateRun(row.ClaimText, row.ClaimText, map[string]string{
		"benchmark":   cfg.DatasetName,
		"synthetic":   "true",
		"claim_id":    row.ClaimID,
		"max_records": strconv.Itoa(cfg.MaxRecords),
	})
	if err != nil {
		return benchRun{}, fmt.Errorf("create run: %w", err)
	}
	feats := SyntheticFeatures(run.ID, row.ClaimText)
	if err := b.store.InsertFeatures(feats); err != nil {
		return benchRun{}, fmt.Errorf("store features: %w", err)
	}
	if err := b.store.UpdateRunStatus(run.ID, model.RunStatusCompleted, ""); err != nil {
		return benchRun{}, fmt.Errorf("update status: %w", err)
	}
	return benchRun{row: row, runID: run.ID, fs: model.NewFeatureSet(feats)}, nil
}

func (b *Benchmark) evalRow(cfg BenchmarkConfig, r benchRun, modelID string, p score.Prediction) model.EvalRow {
	return model.EvalRow{
		RunID:          r.runID,
		DatasetName:    cfg.DatasetName,
		ClaimID:        r.row.ClaimID,
		ModelID:        modelID,
		TrueLabel:      r.row.Label,
		PredictedScore: p.Score,
		PredictedLabel: p.Label,
	}
}

func datasetHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// WriteBenchmark writes <ts>_report.json and <ts>_predictions.csv into dir
// and returns their paths
func WriteBenchmark(dir string, report *BenchmarkReport, preds []Prediction) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create report dir: %w", err)
	}
	stamp := report.Timestamp.Format("20060102_150405")

	reportPath := filepath.Join(dir, stamp+"_report.json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(reportPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write report: %w", err)
	}

	predsPath := filepath.Join(dir, stamp+"_predictions.csv")
	f, err := os.Create(predsPath)
	if err != nil {
		return "", "", fmt.Errorf("create predictions: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write([]string{"run_id", "claim_id", "claim", "label", "predicted_prob", "predicted_label", "model_id"})
	for _, p := range preds {
		_ = w.Write([]string{
			p.RunID,
			p.ClaimID,
			p.Claim,
			strconv.Itoa(p.Label),
			strconv.FormatFloat(p.PredictedProb, 'f', -1, 64),
			string(p.PredictedLabel),
			p.ModelID,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", "", fmt.Errorf("write predictions: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", "", fmt.Errorf("close predictions: %w", err)
	}
	return reportPath, predsPath, nil
}
