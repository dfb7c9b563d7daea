package score

import (
	"math"
	"testing"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

func TestBaselineLabel_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  model.Label
	}{
		{0.67, model.LabelCredible},
		{0.669999, model.LabelUncertain},
		{0.33, model.LabelUncertain},
		{0.329999, model.LabelNotCredible},
		{1.0, model.LabelCredible},
		{0.0, model.LabelNotCredible},
	}

	for _, tt := range tests {
		if got := BaselineLabel(tt.score); got != tt.want {
			t.Errorf("BaselineLabel(%v): expected %s, got %s", tt.score, tt.want, got)
		}
	}
}

func TestBaselineScorer_MonotoneInPriorMean(t *testing.T) {
	s := NewBaselineScorer()
	base := model.FeatureSet{
		model.FeatTotalArticles:          5,
		model.FeatUniqueDomains:          4,
		model.FeatDomainDiversity:        1.5,
		model.FeatMaxDomainConcentration: 0.4,
		model.FeatRecencyScore:           0.6,
	}

	low := base.Clone()
	low[model.FeatWeightedPriorMean] = 0.2
	high := base.Clone()
	high[model.FeatWeightedPriorMean] = 0.9

	lo, hi := s.Predict(low).Score, s.Predict(high).Score
	if !(hi > lo) {
		t.Errorf("Expected score to increase with weighted_prior_mean, got %v -> %v", lo, hi)
	}
}

func TestBaselineScorer_DefaultsForMissingFeatures(t *testing.T) {
	s := NewBaselineScorer()
	got := s.Predict(model.FeatureSet{})

	// only weighted_prior_mean and recency_score default to non-zero
	sum := 2.0*0.5 + 0.75*0.5
	want := 0.05 + 0.90*(1/(1+math.Exp(-sum)))
	if math.Abs(got.Score-want) > 1e-12 {
		t.Errorf("Expected %v, got %v", want, got.Score)
	}
}

func TestBaselineScorer_ScoreStaysInInterior(t *testing.T) {
	s := NewBaselineScorer()
	extreme := model.FeatureSet{
		model.FeatWeightedPriorMean: 1000,
		model.FeatDomainDiversity:   1000,
	}
	got := s.Predict(extreme).Score
	if got > 0.95+1e-12 || got < 0.05 {
		t.Errorf("Expected score within [0.05, 0.95], got %v", got)
	}

	neg := model.FeatureSet{model.FeatUnknownSourceRatio: 1000}
	if got := s.Predict(neg).Score; got < 0.05-1e-12 {
		t.Errorf("Expected score >= 0.05, got %v", got)
	}
}

func TestBaselineScorer_Explanation(t *testing.T) {
	s := NewBaselineScorer()
	fs := model.FeatureSet{
		model.FeatTotalArticles:          10,
		model.FeatUniqueDomains:          5,
		model.FeatWeightedPriorMean:      0.8,
		model.FeatDomainDiversity:        2.0,
		model.FeatRecencyScore:           0.9,
		model.FeatMaxDomainConcentration: 0.5,
		model.FeatMissingTimestampRatio:  0.2,
		model.FeatUnknownSourceRatio:     0.4,
	}
	exp := s.Predict(fs).Explanation

	if len(exp.Positive) != 3 {
		t.Fatalf("Expected 3 positive contributions, got %d", len(exp.Positive))
	}
	if exp.Positive[0].Feature != model.FeatDomainDiversity {
		t.Errorf("Expected domain_diversity first (2.0), got %s", exp.Positive[0].Feature)
	}
	for i := 1; i < len(exp.Positive); i++ {
		if exp.Positive[i].Contribution > exp.Positive[i-1].Contribution {
			t.Error("Expected positive contributions sorted descending")
		}
	}

	if len(exp.Negative) != 3 {
		t.Fatalf("Expected 3 negative contributions, got %d", len(exp.Negative))
	}
	if exp.Negative[0].Feature != model.FeatMaxDomainConcentration {
		t.Errorf("Expected max_domain_concentration most negative, got %s", exp.Negative[0].Feature)
	}

	// values are reported after compression
	for _, c := range exp.Positive {
		if c.Feature == model.FeatUniqueDomains && math.Abs(c.Value-math.Log1p(5)) > 1e-12 {
			t.Errorf("Expected compressed unique_domains value, got %v", c.Value)
		}
	}
}

func TestSigmoidClampsLogit(t *testing.T) {
	if got := Sigmoid(1e6); got != Sigmoid(50) {
		t.Errorf("Expected clamp at +50, got %v", got)
	}
	if got := Sigmoid(-1e6); got != Sigmoid(-50) || got <= 0 {
		t.Errorf("Expected clamp at -50 and positive, got %v", got)
	}
	if math.Abs(Sigmoid(0)-0.5) > 1e-15 {
		t.Error("Expected sigmoid(0) = 0.5")
	}
}

func TestApplyPlattIdentity(t *testing.T) {
	for _, p := range []float64{0.1, 0.5, 0.9} {
		if got := ApplyPlatt(p, 1, 0); math.Abs(got-p) > 1e-9 {
			t.Errorf("Expected identity calibration for %v, got %v", p, got)
		}
	}
}
