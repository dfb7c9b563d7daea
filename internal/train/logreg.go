package train

import (
	"sort"

	"github.com/praveenpuviindran/trustlens/internal/eval"
	"github.com/praveenpuviindran/trustlens/internal/model"
	"github.com/praveenpuviindran/trustlens/internal/score"
)

// TrainLogisticRegression fits weights by full-batch gradient descent from zero.
// Identical inputs give bit-identical outputs.
func TrainLogisticRegression(X [][]float64, y []int, lr float64, epochs int) ([]float64, float64) {
	if len(X) == 0 {
		return nil, 0
	}
	nFeatures := len(X[0])
	weights := make([]float64, nFeatures)
	intercept := 0.0
	n := float64(len(X))

	gradW := make([]float64, nFeatures)
	for epoch := 0; epoch < epochs; epoch++ {
		for j := range gradW {
			gradW[j] = 0
		}
		gradB := 0.0

		for i, row := range X {
			errTerm := score.Sigmoid(dot(row, weights)+intercept) - float64(y[i])
			for j, x := range row {
				gradW[j] += errTerm * x
			}
			gradB += errTerm
		}

		for j := range weights {
			weights[j] -= lr * gradW[j] / n
		}
		intercept -= lr * gradB / n
	}
	return weights, intercept
}

// PredictProba applies a fitted model to each row
func PredictProba(X [][]float64, weights []float64, intercept float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = score.Sigmoid(dot(row, weights) + intercept)
	}
	return out
}

// FitPlatt fits sigmoid(a·logit(p) + b) to labels by gradient descent from
// a=1, b=0 (the identity map)
func FitPlatt(probs []float64, y []int, lr float64, epochs int) (a, b float64) {
	a, b = 1.0, 0.0
	if len(probs) == 0 {
		return a, b
	}

	logits := make([]float64, len(probs))
	for i, p := range probs {
		logits[i] = score.Logit(p)
	}
	n := float64(len(probs))

	for epoch := 0; epoch < epochs; epoch++ {
		gradA, gradB := 0.0, 0.0
		for i, z := range logits {
			errTerm := score.Sigmoid(a*z+b) - float64(y[i])
			gradA += errTerm * z
			gradB += errTerm
		}
		a -= lr * gradA / n
		b -= lr * gradB / n
	}
	return a, b
}

// ApplyPlatt calibrates every probability
func ApplyPlatt(probs []float64, a, b float64) []float64 {
	out := make([]float64, len(probs))
	for i, p := range probs {
		out[i] = score.ApplyPlatt(p, a, b)
	}
	return out
}

// TuneThresholds searches every pair t_lo < t_hi of observed probabilities for
// the best F1, where p >= t_hi is positive and everything else, including the
// band between the thresholds, is negative. The first strictly better pair wins.
func TuneThresholds(probs []float64, y []int) model.Thresholds {
	if len(probs) == 0 {
		return model.DefaultThresholds
	}

	seen := make(map[float64]struct{}, len(probs))
	var candidates []float64
	for _, p := range probs {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			candidates = append(candidates, p)
		}
	}
	sort.Float64s(candidates)

	best := model.DefaultThresholds
	bestF1 := -1.0
	preds := make([]int, len(probs))
	for i, lo := range candidates {
		for _, hi := range candidates[i+1:] {
			for k, p := range probs {
				preds[k] = 0
				if p >= hi {
					preds[k] = 1
				}
			}
			f1 := eval.NewConfusion(preds, y).F1()
			if f1 > bestF1 {
				bestF1 = f1
				best = model.Thresholds{Lo: lo, Hi: hi}
			}
		}
	}

	if best.Lo >= best.Hi {
		return model.DefaultThresholds
	}
	return best
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
