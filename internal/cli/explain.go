package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

var (
	explainModel    string
	explainQuestion string
	explainContext  bool
)

// explainCmd represents the explain command
var explainCmd = &cobra.Command{
	Use:   "explain <run-id>",
	Short: "Explain a run's score with the configured LLM",
	Long: `Explain asks the configured LLM (llm.provider) to explain the score of a
run, using only the stored run, features, contributions and evidence.
With --question it answers that question instead.

Example:
  trustlens explain 3f6c...
  trustlens explain 3f6c... --question "Which sources covered this?"
  trustlens explain 3f6c... --context   # print the grounding context only`,
	Args: cobra.ExactArgs(1),
	RunE: runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().StringVar(&explainModel, "model", "", "model whose score is explained (default: scoring.default_model)")
	explainCmd.Flags().StringVarP(&explainQuestion, "question", "q", "", "ask a question about the run")
	explainCmd.Flags().BoolVar(&explainContext, "context", false, "print the grounding context JSON and exit")
}

func runExplain(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	runID := args[0]
	modelID := a.modelOrDefault(explainModel)

	if explainContext {
		c, err := a.explainer.BuildContext(runID, modelID)
		if err != nil {
			return err
		}
		return writeJSONTo(cmd.OutOrStdout(), c)
	}

	ctx, cancel := commandContext(cmd, a.cfg.LLM.Timeout*2)
	defer cancel()

	var e *model.StoredExplanation
	if strings.TrimSpace(explainQuestion) != "" {
		e, err = a.explainer.Chat(ctx, runID, modelID, explainQuestion)
	} else {
		e, err = a.explainer.ExplainRun(ctx, runID, modelID)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(e.ResponseText))
	return nil
}
