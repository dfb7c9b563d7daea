package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/praveenpuviindran/trustlens/internal/model"
	"github.com/praveenpuviindran/trustlens/internal/worker"
)

var (
	queryText      string
	maxRecords     int
	modelID        string
	jsonOutput     bool
	withExplain    bool
	analyzeTimeout time.Duration
	batchTimeout   time.Duration
	batchWorkers   int
	recompute      bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <claim>",
	Short: "Retrieve evidence for a claim and score it",
	Long: `Analyze runs one claim end to end:
- Search GDELT for related coverage (query defaults to the claim)
- Optionally enrich missing snippets from the article pages
- Compute source, temporal, corroboration and text features
- Score with the selected model (default: baseline_v1)

Example:
  trustlens analyze "The city council approved the new transit budget"
  trustlens analyze "..." --query "transit budget council" --max-records 40
  trustlens analyze "..." --model lr_v1 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze claims from a file in parallel",
	Long: `Batch analyzes one claim per line ('#' lines and blanks are skipped,
duplicates are analyzed once). Each claim is its own query.

Example:
  trustlens batch claims.txt
  trustlens batch claims.txt --workers 8 --model lr_v1`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// featuresCmd represents the features command
var featuresCmd = &cobra.Command{
	Use:   "features <run-id>",
	Short: "Show (or recompute) the features of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeatures,
}

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score <run-id>",
	Short: "Score a run's stored features with a model",
	Args:  cobra.ExactArgs(1),
	RunE:  runScore,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(scoreCmd)

	analyzeCmd.Flags().StringVar(&queryText, "query", "", "search query (default: the claim text)")
	analyzeCmd.Flags().IntVar(&maxRecords, "max-records", 0, "articles to retrieve (default: gdelt.max_records, capped)")
	analyzeCmd.Flags().StringVar(&modelID, "model", "", "model id (default: scoring.default_model)")
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")
	analyzeCmd.Flags().BoolVar(&withExplain, "explain", false, "also generate an LLM explanation")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 2*time.Minute, "overall timeout")

	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "concurrent analyses (default: batch.workers)")
	batchCmd.Flags().IntVar(&maxRecords, "max-records", 0, "articles to retrieve per claim")
	batchCmd.Flags().StringVar(&modelID, "model", "", "model id (default: scoring.default_model)")
	batchCmd.Flags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "overall timeout")

	featuresCmd.Flags().BoolVar(&recompute, "recompute", false, "recompute from stored evidence first")
	featuresCmd.Flags().BoolVar(&jsonOutput, "json", false, "print features as JSON")

	scoreCmd.Flags().StringVar(&modelID, "model", "", "model id (default: scoring.default_model)")
	scoreCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the score as JSON")
}

// commandContext is cancelled by SIGINT/SIGTERM or after timeout
func commandContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}

func (a *app) modelOrDefault(id string) string {
	if id != "" {
		return id
	}
	if a.cfg.Scoring.DefaultModel != "" {
		return a.cfg.Scoring.DefaultModel
	}
	return model.BaselineModelID
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := commandContext(cmd, analyzeTimeout)
	defer cancel()

	w := stderr(cmd)
	req := model.AnalysisRequest{
		ClaimText:  args[0],
		QueryText:  queryText,
		MaxRecords: a.maxRecords(maxRecords),
		ModelID:    a.modelOrDefault(modelID),
	}
	if !jsonOutput {
		printBanner(w, "TrustLens Analysis")
		fmt.Fprintf(w, "  Claim:        %s\n", truncate(req.ClaimText, 80))
		if req.QueryText != "" {
			fmt.Fprintf(w, "  Query:        %s\n", req.QueryText)
		}
		fmt.Fprintf(w, "  Max records:  %d\n", req.MaxRecords)
		fmt.Fprintf(w, "  Enrichment:   %v\n\n", a.cfg.Enrich.Enabled)
		fmt.Fprintf(w, "⚙️  Retrieving evidence...\n")
	}

	res, err := a.pipeline.Analyze(ctx, req)
	if err != nil {
		return err
	}

	var expl *model.StoredExplanation
	var explErr error
	if withExplain {
		expl, explErr = a.explainer.ExplainRun(ctx, res.Run.ID, res.Score.ModelID)
	}

	if jsonOutput {
		out := map[string]any{
			"run_id":         res.Run.ID,
			"status":         res.Run.Status,
			"score":          res.Score.Score,
			"label":          res.Score.Label,
			"model_id":       res.Score.ModelID,
			"explanation":    res.Score.Explanation,
			"evidence_count": res.EvidenceCount,
			"features":       res.Features,
		}
		if expl != nil {
			out["llm_explanation"] = expl.ResponseText
		}
		if explErr != nil {
			out["llm_explanation_error"] = explErr.Error()
		}
		return writeJSONTo(cmd.OutOrStdout(), out)
	}

	fmt.Fprintf(w, "✓ Stored %d evidence items\n", res.EvidenceCount)
	printBanner(w, "Result")
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  Run:     %s\n", res.Run.ID)
	renderScore(out, res.Score)
	if expl != nil {
		fmt.Fprintf(out, "%s\n\n%s\n\n", headerStyle.Render("Explanation"), strings.TrimSpace(expl.ResponseText))
	}
	if explErr != nil {
		fmt.Fprintf(w, "✗ explanation: %v\n", explErr)
	}
	fmt.Fprintf(w, "%s\n", mutedStyle.Render("The score describes the retrieved coverage, not whether the claim is true."))
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := commandContext(cmd, batchTimeout)
	defer cancel()

	workers := batchWorkers
	if workers <= 0 {
		workers = a.cfg.Batch.Workers
	}
	if workers <= 0 {
		workers = 1
	}

	w := stderr(cmd)
	printBanner(w, "TrustLens Batch Analysis")
	fmt.Fprintf(w, "  Input file:   %s\n", args[0])
	fmt.Fprintf(w, "  Workers:      %d\n", workers)
	fmt.Fprintf(w, "  Timeout:      %v\n\n", batchTimeout)

	processor := worker.NewBatchProcessor(a.pipeline, workers)
	results, err := processor.ProcessFile(ctx, args[0], model.AnalysisRequest{
		MaxRecords: a.maxRecords(maxRecords),
		ModelID:    a.modelOrDefault(modelID),
	})
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	type row struct {
		Claim   string      `json:"claim_text"`
		RunID   string      `json:"run_id,omitempty"`
		Score   float64     `json:"score,omitempty"`
		Label   model.Label `json:"label,omitempty"`
		ModelID string      `json:"model_id,omitempty"`
		Error   string      `json:"error,omitempty"`
	}
	rows := make([]row, 0, len(results))
	failures := 0
	for _, r := range results {
		if r.Error != nil {
			failures++
			fmt.Fprintf(w, "✗ %s: %v\n", truncate(r.Claim, 60), r.Error)
			rows = append(rows, row{Claim: r.Claim, Error: r.Error.Error()})
			continue
		}
		sc := r.Result.Score
		fmt.Fprintf(w, "✓ %s → %.3f %s\n", truncate(r.Claim, 60), sc.Score, labelStyle(sc.Label).Render(string(sc.Label)))
		rows = append(rows, row{Claim: r.Claim, RunID: r.Result.Run.ID, Score: sc.Score, Label: sc.Label, ModelID: sc.ModelID})
	}

	printBanner(w, "Batch Complete")
	fmt.Fprintf(w, "  Total:     %d claims\n", len(results))
	fmt.Fprintf(w, "  Success:   %d\n", len(results)-failures)
	fmt.Fprintf(w, "  Failures:  %d\n\n", failures)

	if jsonOutput {
		return writeJSONTo(cmd.OutOrStdout(), rows)
	}
	return nil
}

func runFeatures(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	runID := args[0]
	if _, err := a.store.GetRun(runID); err != nil {
		return err
	}

	var feats []model.Feature
	if recompute {
		feats, err = a.features.Compute(runID)
	} else {
		feats, err = a.features.Get(runID)
	}
	if err != nil {
		return err
	}
	if len(feats) == 0 {
		return model.InvalidState("no features computed for run %s (use --recompute)", runID)
	}

	if jsonOutput {
		return writeJSONTo(cmd.OutOrStdout(), feats)
	}
	fmt.Fprintln(cmd.OutOrStdout(), featureTable(feats))
	return nil
}

func runScore(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	sc, err := a.scores.ComputeScore(args[0], a.modelOrDefault(modelID))
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSONTo(cmd.OutOrStdout(), sc)
	}
	renderScore(cmd.OutOrStdout(), sc)
	return nil
}
