package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/praveenpuviindran/trustlens/internal/priors"
)

var priorsSource string

// priorsCmd represents the priors command
var priorsCmd = &cobra.Command{
	Use:   "priors",
	Short: "Manage source reliability priors",
}

var priorsLoadCmd = &cobra.Command{
	Use:   "load <csv>",
	Short: "Load domain reliability priors from a CSV",
	Long: `Load upserts one prior per domain. The CSV needs a domain column and
either a prior/reliability score in [0,1] or a label/reliability_label
(-1 unreliable, 0 mixed, 1 reliable). Domains are normalized (lowercase,
scheme, path and leading www. removed).

Example:
  trustlens priors load data/source_priors.csv --source mbfc`,
	Args: cobra.ExactArgs(1),
	RunE: runPriorsLoad,
}

func init() {
	rootCmd.AddCommand(priorsCmd)
	priorsCmd.AddCommand(priorsLoadCmd)

	priorsLoadCmd.Flags().StringVar(&priorsSource, "source", "", "source tag stored with each prior (default: file name)")
}

func runPriorsLoad(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open priors: %w", err)
	}
	defer func() { _ = f.Close() }()

	source := priorsSource
	if source == "" {
		source = filepath.Base(args[0])
	}
	rows, err := priors.LoadCSV(f, source)
	if err != nil {
		return err
	}
	n, err := a.store.UpsertPriors(rows)
	if err != nil {
		return err
	}
	total, err := a.store.CountPriors()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Loaded %d priors from %s (%d domains total)\n", n, args[0], total)
	return nil
}
