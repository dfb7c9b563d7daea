// Package eval computes classification and calibration metrics over scored
// runs, and drives dataset evaluation and ablation benchmarks.
package eval

import (
	"math"
	"sort"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

const (
	// ReportBins is the bin count of the calibration report
	ReportBins = 5

	// ECEBins is the bin count of the expected calibration error
	ECEBins = 10
)

// Confusion is a binary confusion matrix
type Confusion struct {
	TP, TN, FP, FN int
}

// Accuracy returns (tp+tn)/n, 0 for an empty matrix
func (c Confusion) Accuracy() float64 {
	return safeDiv(float64(c.TP+c.TN), float64(c.TP+c.TN+c.FP+c.FN))
}

// Precision returns tp/(tp+fp)
func (c Confusion) Precision() float64 {
	return safeDiv(float64(c.TP), float64(c.TP+c.FP))
}

// Recall returns tp/(tp+fn)
func (c Confusion) Recall() float64 {
	return safeDiv(float64(c.TP), float64(c.TP+c.FN))
}

// F1 returns the harmonic mean of precision and recall
func (c Confusion) F1() float64 {
	p, r := c.Precision(), c.Recall()
	return safeDiv(2*p*r, p+r)
}

// NewConfusion counts predictions against labels
func NewConfusion(preds, labels []int) Confusion {
	var c Confusion
	for i := range labels {
		switch {
		case preds[i] == 1 && labels[i] == 1:
			c.TP++
		case preds[i] == 0 && labels[i] == 0:
			c.TN++
		case preds[i] == 1 && labels[i] == 0:
			c.FP++
		default:
			c.FN++
		}
	}
	return c
}

// PredictedPositive maps a label to the binary prediction: only credible is positive
func PredictedPositive(l model.Label) int {
	if l == model.LabelCredible {
		return 1
	}
	return 0
}

// ComputeMetrics derives binary metrics from scored rows.
// Uncertain and not_credible both count as negative predictions.
func ComputeMetrics(rows []model.EvalRow) model.Metrics {
	scores := make([]float64, len(rows))
	labels := make([]int, len(rows))
	preds := make([]int, len(rows))
	for i, r := range rows {
		scores[i] = r.PredictedScore
		labels[i] = r.TrueLabel
		preds[i] = PredictedPositive(r.PredictedLabel)
	}
	return metricsFrom(scores, labels, preds)
}

// ProbabilityMetrics evaluates probabilities with a fixed 0.5 cutoff
func ProbabilityMetrics(probs []float64, labels []int) model.Metrics {
	preds := make([]int, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			preds[i] = 1
		}
	}
	return metricsFrom(probs, labels, preds)
}

func metricsFrom(scores []float64, labels, preds []int) model.Metrics {
	c := NewConfusion(preds, labels)
	return model.Metrics{
		N:               len(labels),
		TP:              c.TP,
		TN:              c.TN,
		FP:              c.FP,
		FN:              c.FN,
		Accuracy:        c.Accuracy(),
		Precision:       c.Precision(),
		Recall:          c.Recall(),
		F1:              c.F1(),
		Brier:           Brier(scores, labels),
		AUROC:           AUROC(scores, labels),
		CalibrationBins: CalibrationBins(scores, labels, ReportBins),
		ECE:             ECE(scores, labels, ECEBins),
	}
}

// Brier is the mean squared error between score and label
func Brier(scores []float64, labels []int) float64 {
	if len(scores) == 0 {
		return 0
	}
	sum := 0.0
	for i, s := range scores {
		d := s - float64(labels[i])
		sum += d * d
	}
	return sum / float64(len(scores))
}

// AUROC integrates the ROC curve with the trapezoid rule, emitting one point
// per distinct score so ties form a diagonal segment. It is nil when only one
// class is present.
func AUROC(scores []float64, labels []int) *float64 {
	pos := 0
	for _, l := range labels {
		if l == 1 {
			pos++
		}
	}
	neg := len(labels) - pos
	if pos == 0 || neg == 0 {
		return nil
	}

	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	area := 0.0
	prevFPR, prevTPR := 0.0, 0.0
	tp, fp := 0, 0
	for i := 0; i < len(idx); {
		s := scores[idx[i]]
		for i < len(idx) && scores[idx[i]] == s {
			if labels[idx[i]] == 1 {
				tp++
			} else {
				fp++
			}
			i++
		}
		fpr := float64(fp) / float64(neg)
		tpr := float64(tp) / float64(pos)
		area += (fpr - prevFPR) * (tpr + prevTPR) / 2
		prevFPR, prevTPR = fpr, tpr
	}
	return &area
}

// CalibrationBins splits [0,1] into equal-width bins, half-open except the
// last which is closed
func CalibrationBins(scores []float64, labels []int, n int) []model.CalibrationBin {
	bins := make([]model.CalibrationBin, n)
	sumPred := make([]float64, n)
	sumObs := make([]float64, n)
	for i := range bins {
		bins[i] = model.CalibrationBin{
			Bin:  i,
			Low:  float64(i) / float64(n),
			High: float64(i+1) / float64(n),
		}
	}

	for i, s := range scores {
		b := binIndex(s, n)
		if b < 0 {
			continue
		}
		bins[b].Count++
		sumPred[b] += s
		sumObs[b] += float64(labels[i])
	}

	for i := range bins {
		if bins[i].Count > 0 {
			bins[i].AvgPred = sumPred[i] / float64(bins[i].Count)
			bins[i].AvgObs = sumObs[i] / float64(bins[i].Count)
		}
	}
	return bins
}

// ECE is the count-weighted mean |avg_pred - avg_obs| over non-empty bins
func ECE(scores []float64, labels []int, n int) float64 {
	if len(scores) == 0 {
		return 0
	}
	total := float64(len(scores))
	ece := 0.0
	for _, b := range CalibrationBins(scores, labels, n) {
		if b.Count == 0 {
			continue
		}
		ece += float64(b.Count) / total * math.Abs(b.AvgPred-b.AvgObs)
	}
	return ece
}

// binIndex returns the bin of s, or -1 outside [0,1]
func binIndex(s float64, n int) int {
	if s < 0 || s > 1 || math.IsNaN(s) {
		return -1
	}
	for i := 0; i < n; i++ {
		low := float64(i) / float64(n)
		high := float64(i+1) / float64(n)
		if s >= low && (s < high || (i == n-1 && s <= high)) {
			return i
		}
	}
	return -1
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
