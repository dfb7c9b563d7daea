// Package score maps feature sets to calibrated credibility scores and labels.
package score

import (
	"math"
	"sort"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

const topContributions = 3

// Prediction is a scorer's output for one feature set
type Prediction struct {
	Score       float64
	RawScore    float64
	Label       model.Label
	Explanation model.Explanation
}

// Scorer scores in-memory feature sets
type Scorer interface {
	ModelID() string
	Predict(fs model.FeatureSet) Prediction
}

type term struct {
	name   model.FeatureName
	weight float64
}

// baselineTerms is the fixed linear model, summed in this order
var baselineTerms = []term{
	{model.FeatWeightedPriorMean, 2.0},
	{model.FeatDomainDiversity, 1.0},
	{model.FeatRecencyScore, 0.75},
	{model.FeatUniqueDomains, 0.25},
	{model.FeatMaxDomainConcentration, -1.5},
	{model.FeatMissingTimestampRatio, -0.5},
	{model.FeatUnknownSourceRatio, -1.0},
	{model.FeatTotalArticles, 0.1},
}

// BaselineDefaults fill features the run did not compute.
// They match the extractor's neutral defaults.
var BaselineDefaults = map[model.FeatureName]float64{
	model.FeatWeightedPriorMean:      0.5,
	model.FeatRecencyScore:           0.5,
	model.FeatTotalArticles:          0,
	model.FeatUniqueDomains:          0,
	model.FeatDomainDiversity:        0,
	model.FeatMaxDomainConcentration: 0,
	model.FeatMissingTimestampRatio:  0,
	model.FeatUnknownSourceRatio:     0,
}

// compressed features get log1p(max(0, x))
var compressed = map[model.FeatureName]bool{
	model.FeatTotalArticles: true,
	model.FeatUniqueDomains: true,
}

// BaselineScorer is the stateless fixed-weight scorer
type BaselineScorer struct{}

// NewBaselineScorer creates a new baseline scorer
func NewBaselineScorer() *BaselineScorer {
	return &BaselineScorer{}
}

// ModelID returns the baseline model id
func (s *BaselineScorer) ModelID() string {
	return model.BaselineModelID
}

// Predict scores a feature set:
// sigmoid(Σ weight·value) -> clamp -> 0.05 + 0.90·p -> clamp -> label
func (s *BaselineScorer) Predict(fs model.FeatureSet) Prediction {
	sum, contribs := s.RawScore(fs)

	raw := Clamp(Sigmoid(sum), 0, 1)
	score := Clamp(0.05+0.90*raw, 0, 1)

	return Prediction{
		Score:    score,
		RawScore: raw,
		Label:    BaselineLabel(score),
		Explanation: model.Explanation{
			Kind:     "baseline",
			ModelID:  model.BaselineModelID,
			Positive: topPositive(contribs),
			Negative: topNegative(contribs),
		},
	}
}

// RawScore returns the weighted sum and every term's contribution
func (s *BaselineScorer) RawScore(fs model.FeatureSet) (float64, []model.Contribution) {
	sum := 0.0
	contribs := make([]model.Contribution, 0, len(baselineTerms))
	for _, t := range baselineTerms {
		v := fs.Resolve(t.name, BaselineDefaults)
		if compressed[t.name] {
			v = math.Log1p(math.Max(0, v))
		}
		c := t.weight * v
		sum += c
		w := t.weight
		contribs = append(contribs, model.Contribution{
			Feature:      t.name,
			Value:        v,
			Weight:       &w,
			Contribution: c,
		})
	}
	return sum, contribs
}

// topPositive returns up to three contributions >= 0, largest first
func topPositive(contribs []model.Contribution) []model.Contribution {
	var pos []model.Contribution
	for _, c := range contribs {
		if c.Contribution >= 0 {
			pos = append(pos, c)
		}
	}
	sort.SliceStable(pos, func(i, j int) bool {
		return pos[i].Contribution > pos[j].Contribution
	})
	return head(pos)
}

// topNegative returns up to three contributions < 0, most negative first
func topNegative(contribs []model.Contribution) []model.Contribution {
	var neg []model.Contribution
	for _, c := range contribs {
		if c.Contribution < 0 {
			neg = append(neg, c)
		}
	}
	sort.SliceStable(neg, func(i, j int) bool {
		return neg[i].Contribution < neg[j].Contribution
	})
	return head(neg)
}

func head(cs []model.Contribution) []model.Contribution {
	if len(cs) > topContributions {
		cs = cs[:topContributions]
	}
	if cs == nil {
		return []model.Contribution{}
	}
	return cs
}
