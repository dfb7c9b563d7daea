package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

var (
	colorCredible    = lipgloss.Color("78")  // green
	colorUncertain   = lipgloss.Color("214") // amber
	colorNotCredible = lipgloss.Color("203") // red
	colorMuted       = lipgloss.Color("241")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

const banner = "═══════════════════════════════════════════════════════════"

func printBanner(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n  %s\n%s\n\n", banner, title, banner)
}

// labelStyle colors a label by verdict
func labelStyle(l model.Label) lipgloss.Style {
	switch l {
	case model.LabelCredible:
		return lipgloss.NewStyle().Bold(true).Foreground(colorCredible)
	case model.LabelNotCredible:
		return lipgloss.NewStyle().Bold(true).Foreground(colorNotCredible)
	default:
		return lipgloss.NewStyle().Bold(true).Foreground(colorUncertain)
	}
}

func writeJSONTo(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderScore prints the score, label and top contributions
func renderScore(w io.Writer, sc *model.ScoreResult) {
	fmt.Fprintf(w, "  Model:   %s\n", sc.ModelID)
	fmt.Fprintf(w, "  Score:   %.3f\n", sc.Score)
	fmt.Fprintf(w, "  Label:   %s\n", labelStyle(sc.Label).Render(string(sc.Label)))

	if len(sc.Explanation.Positive) > 0 {
		fmt.Fprintf(w, "\n  %s\n", headerStyle.Render("Supporting signals"))
		for _, c := range sc.Explanation.Positive {
			fmt.Fprintf(w, "    + %-28s %+.3f %s\n", c.Feature, c.Contribution, mutedStyle.Render(fmt.Sprintf("(value %.3f)", c.Value)))
		}
	}
	if len(sc.Explanation.Negative) > 0 {
		fmt.Fprintf(w, "\n  %s\n", headerStyle.Render("Weakening signals"))
		for _, c := range sc.Explanation.Negative {
			fmt.Fprintf(w, "    - %-28s %+.3f %s\n", c.Feature, c.Contribution, mutedStyle.Render(fmt.Sprintf("(value %.3f)", c.Value)))
		}
	}
	fmt.Fprintln(w)
}

// featureTable lays features out grouped in taxonomy order
func featureTable(feats []model.Feature) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers("GROUP", "FEATURE", "VALUE")
	for _, f := range feats {
		t.Row(string(f.Group), string(f.Name), strconv.FormatFloat(f.Value, 'f', 4, 64))
	}
	return t.String()
}

// modelTable lists registered models
func modelTable(models []model.ModelSummary) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers("MODEL", "SCHEMA", "FEATURES", "CALIBRATED", "DATASET", "CREATED")
	for _, m := range models {
		created := ""
		if !m.CreatedAt.IsZero() {
			created = m.CreatedAt.Format("2006-01-02 15:04")
		}
		t.Row(m.ModelID, string(m.SchemaVersion), strconv.Itoa(m.NumFeatures),
			strconv.FormatBool(m.Calibrated), m.DatasetName, created)
	}
	return t.String()
}

// metricsTable prints one row per named metrics set
func metricsTable(names []string, metrics map[string]model.Metrics) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers("", "N", "ACC", "PREC", "REC", "F1", "BRIER", "AUROC", "ECE")
	for _, name := range names {
		m := metrics[name]
		auroc := "n/a"
		if m.AUROC != nil {
			auroc = f3(*m.AUROC)
		}
		t.Row(name, strconv.Itoa(m.N), f3(m.Accuracy), f3(m.Precision), f3(m.Recall),
			f3(m.F1), f3(m.Brier), auroc, f3(m.ECE))
	}
	return t.String()
}

func f3(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// truncate shortens s to n runes with an ellipsis
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
