package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/praveenpuviindran/trustlens/internal/eval"
	"github.com/praveenpuviindran/trustlens/internal/model"
	"github.com/praveenpuviindran/trustlens/internal/train"
)

var (
	trainDataset   string
	trainName      string
	trainModelID   string
	trainSchema    string
	trainSplit     float64
	trainSeed      uint64
	trainNoCalib   bool
	evalDataset    string
	evalName       string
	evalModelID    string
	evalMaxRecords int
	evalOut        string
	evalTopN       int
	evalTimeout    time.Duration
	benchDataset   string
	benchModels    []string
	benchNoFetch   bool
	benchMax       int
	benchSeed      uint64
	benchSchema    string
	benchOut       string
)

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train and register a logistic-regression model",
	Long: `Train fits a logistic-regression model over stored features.

The dataset is a CSV with run_id and label columns (1/credible,
0/not_credible; uncertain rows are skipped). Every run must already have
features computed. The artifact is stored under --model-id, replacing any
previous model with that id.

Example:
  trustlens train --dataset labels.csv --model-id lr_v1
  trustlens train --dataset labels.csv --model-id lr_v2 --schema v2 --no-calibrate`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models [model-id]",
	Short: "List registered models, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runModels,
}

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Analyze a labeled claim dataset end to end and report metrics",
	Long: `Evaluate runs every claim of a labeled CSV (claim_text, label, optional
claim_id and query_text) through retrieval, features and scoring, stores the
eval rows and reports metrics overall and by evidence stratum.

With --out the error analysis is written too: false_positives.csv,
false_negatives.csv, hard_cases.csv and summary.md.`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

// benchmarkCmd represents the benchmark command
var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Compare models on a labeled claim dataset with feature-group ablations",
	Long: `Benchmark scores a (sampled) labeled claim dataset under one or more
models and re-scores it with each feature group zeroed.

With --no-fetch no evidence is retrieved: each claim gets deterministic
synthetic features derived from a hash of its text.

Example:
  trustlens benchmark --dataset claims.csv --no-fetch --max-examples 200
  trustlens benchmark --dataset claims.csv --model baseline_v1 --model lr_v1 --out ./reports`,
	Args: cobra.NoArgs,
	RunE: runBenchmark,
}

func init() {
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(benchmarkCmd)

	trainCmd.Flags().StringVar(&trainDataset, "dataset", "", "labeled CSV with run_id,label (required)")
	trainCmd.Flags().StringVar(&trainName, "dataset-name", "", "dataset name recorded on the artifact (default: path)")
	trainCmd.Flags().StringVar(&trainModelID, "model-id", "", "model id to register (required)")
	trainCmd.Flags().StringVar(&trainSchema, "schema", "", "feature schema version: v1 or v2 (default: training.schema_version)")
	trainCmd.Flags().Float64Var(&trainSplit, "split", 0, "train fraction (default: training.split_ratio)")
	trainCmd.Flags().Uint64Var(&trainSeed, "seed", 0, "split seed (default: training.seed)")
	trainCmd.Flags().BoolVar(&trainNoCalib, "no-calibrate", false, "skip Platt calibration")
	_ = trainCmd.MarkFlagRequired("dataset")
	_ = trainCmd.MarkFlagRequired("model-id")

	evaluateCmd.Flags().StringVar(&evalDataset, "dataset", "", "labeled claim CSV (required)")
	evaluateCmd.Flags().StringVar(&evalName, "dataset-name", "", "dataset name for stored rows (default: file name)")
	evaluateCmd.Flags().StringVar(&evalModelID, "model", "", "model id (default: scoring.default_model)")
	evaluateCmd.Flags().IntVar(&evalMaxRecords, "max-records", 0, "articles to retrieve per claim")
	evaluateCmd.Flags().StringVar(&evalOut, "out", "", "directory for error analysis artifacts")
	evaluateCmd.Flags().IntVar(&evalTopN, "top-n", eval.DefaultTopN, "rows per false positive/negative listing")
	evaluateCmd.Flags().DurationVar(&evalTimeout, "timeout", 0, "overall timeout (0 = none)")
	_ = evaluateCmd.MarkFlagRequired("dataset")

	benchmarkCmd.Flags().StringVar(&benchDataset, "dataset", "", "labeled claim CSV (required)")
	benchmarkCmd.Flags().StringArrayVar(&benchModels, "model", nil, "model id to compare (repeatable, default: baseline_v1)")
	benchmarkCmd.Flags().BoolVar(&benchNoFetch, "no-fetch", false, "use synthetic features instead of retrieving evidence")
	benchmarkCmd.Flags().IntVar(&benchMax, "max-examples", 0, "sample at most this many claims (0 = all)")
	benchmarkCmd.Flags().Uint64Var(&benchSeed, "seed", 42, "sampling seed")
	benchmarkCmd.Flags().StringVar(&benchSchema, "schema", "", "feature schema whose groups are ablated (default: v1)")
	benchmarkCmd.Flags().StringVar(&benchOut, "out", "./reports", "directory for the report and predictions")
	_ = benchmarkCmd.MarkFlagRequired("dataset")
}

func runTrain(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	req := train.Request{
		DatasetPath: trainDataset,
		DatasetName: trainName,
		ModelID:     trainModelID,
		SplitRatio:  a.cfg.Training.SplitRatio,
		Seed:        a.cfg.Training.Seed,
		Calibrate:   a.cfg.Training.Calibrate && !trainNoCalib,
	}
	schema := trainSchema
	if schema == "" {
		schema = a.cfg.Training.SchemaVersion
	}
	if req.SchemaVersion, err = model.ParseSchemaVersion(schema); err != nil {
		return err
	}
	if cmd.Flags().Changed("split") {
		req.SplitRatio = trainSplit
	}
	if cmd.Flags().Changed("seed") {
		req.Seed = trainSeed
	}

	w := stderr(cmd)
	printBanner(w, "TrustLens Training")
	fmt.Fprintf(w, "  Dataset:      %s\n", req.DatasetPath)
	fmt.Fprintf(w, "  Model id:     %s\n", req.ModelID)
	fmt.Fprintf(w, "  Schema:       %s\n", req.SchemaVersion)
	fmt.Fprintf(w, "  Split:        %.2f (seed %d)\n", req.SplitRatio, req.Seed)
	fmt.Fprintf(w, "  Calibrate:    %v\n\n", req.Calibrate)

	m, err := a.trainer.TrainAndRegister(req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Registered %s (%d features, %d train / %d val)\n\n",
		m.ModelID, len(m.FeatureNames), m.Metrics.NTrain, m.Metrics.NVal)
	auroc := "n/a"
	if m.Metrics.AUROC != nil {
		auroc = f3(*m.Metrics.AUROC)
	}
	fmt.Fprintf(out, "  Accuracy:   %s\n  F1:         %s\n  Brier:      %s\n  AUROC:      %s\n  ECE:        %s\n",
		f3(m.Metrics.Accuracy), f3(m.Metrics.F1), f3(m.Metrics.Brier), auroc, f3(m.Metrics.ECE))
	fmt.Fprintf(out, "  Thresholds: t_lo=%s t_hi=%s\n", f3(m.Thresholds.Lo), f3(m.Thresholds.Hi))
	return nil
}

func runModels(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if len(args) == 1 {
		m, err := a.store.GetModel(args[0])
		if err != nil {
			return err
		}
		return writeJSONTo(cmd.OutOrStdout(), m)
	}

	models, err := a.store.ListModels()
	if err != nil {
		return err
	}
	baseline := model.ModelSummary{
		ModelID:       model.BaselineModelID,
		SchemaVersion: model.SchemaV1,
		DatasetName:   "(fixed weights)",
		NumFeatures:   8,
	}
	fmt.Fprintln(cmd.OutOrStdout(), modelTable(append([]model.ModelSummary{baseline}, models...)))
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := commandContext(cmd, evalTimeout)
	defer cancel()

	rows, _, err := eval.LoadClaims(evalDataset)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return model.InvalidInput("dataset %s has no labeled claims", evalDataset)
	}
	name := evalName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(evalDataset), filepath.Ext(evalDataset))
	}

	w := stderr(cmd)
	printBanner(w, "TrustLens Evaluation")
	fmt.Fprintf(w, "  Dataset:      %s (%d claims)\n", name, len(rows))
	fmt.Fprintf(w, "  Model:        %s\n\n", a.modelOrDefault(evalModelID))

	harness := eval.NewHarness(a.pipeline, a.store, a.log)
	report, err := harness.Run(ctx, rows, eval.HarnessOptions{
		DatasetName: name,
		ModelID:     a.modelOrDefault(evalModelID),
		MaxRecords:  a.maxRecords(evalMaxRecords),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, metricsTable([]string{report.ModelID}, map[string]model.Metrics{report.ModelID: report.Metrics}))
	for _, dim := range []string{eval.DimTotalArticles, eval.DimUnknownSourceRatio, eval.DimMaxDomainConcentration} {
		buckets := report.Stratified[dim]
		if len(buckets) == 0 {
			continue
		}
		names := make([]string, 0, len(buckets))
		for b := range buckets {
			names = append(names, b)
		}
		sort.Strings(names)
		fmt.Fprintf(out, "\n%s\n%s\n", headerStyle.Render(dim), metricsTable(names, buckets))
	}
	if report.Failed > 0 {
		fmt.Fprintf(w, "\n⚠ %d claims failed and were left out of the metrics\n", report.Failed)
	}

	if evalOut != "" {
		summary, err := eval.WriteErrorArtifacts(evalOut, report.Rows, report.Features, report.Claims, evalTopN)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "✓ Error analysis: %d false positives, %d false negatives, %d hard cases → %s\n",
			summary.FalsePositives, summary.FalseNegatives, summary.HardCases, summary.Dir)
	}
	return nil
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := commandContext(cmd, 0)
	defer cancel()

	rows, data, err := eval.LoadClaims(benchDataset)
	if err != nil {
		return err
	}
	cfg := eval.BenchmarkConfig{
		DatasetName: strings.TrimSuffix(filepath.Base(benchDataset), filepath.Ext(benchDataset)),
		MaxExamples: benchMax,
		Seed:        benchSeed,
		ModelIDs:    benchModels,
		MaxRecords:  a.maxRecords(0),
		NoFetch:     benchNoFetch,
	}
	if benchSchema != "" {
		if cfg.SchemaVersion, err = model.ParseSchemaVersion(benchSchema); err != nil {
			return err
		}
	}

	w := stderr(cmd)
	printBanner(w, "TrustLens Benchmark")
	fmt.Fprintf(w, "  Dataset:      %s (%d claims)\n", cfg.DatasetName, len(rows))
	fmt.Fprintf(w, "  Evidence:     %s\n\n", map[bool]string{true: "synthetic", false: "live GDELT"}[cfg.NoFetch])

	bench := eval.NewBenchmark(a.store, a.scores, a.pipeline, a.log)
	report, preds, err := bench.Run(ctx, rows, data, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	models := report.Config.ModelIDs
	fmt.Fprintln(out, metricsTable(models, report.Metrics))
	for _, id := range models {
		groups := make([]string, 0, len(report.Ablations[id]))
		for g := range report.Ablations[id] {
			groups = append(groups, g)
		}
		sort.Strings(groups)
		fmt.Fprintf(out, "\n%s\n%s\n", headerStyle.Render("ablations: "+id), metricsTable(groups, report.Ablations[id]))
	}

	reportPath, predPath, err := eval.WriteBenchmark(benchOut, report, preds)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n✓ Report:      %s\n✓ Predictions: %s\n", reportPath, predPath)
	if report.Skipped > 0 {
		fmt.Fprintf(w, "⚠ %d claims skipped\n", report.Skipped)
	}
	return nil
}
