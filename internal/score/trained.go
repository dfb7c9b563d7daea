package score

import "github.com/praveenpuviindran/trustlens/internal/model"

// TrainedScorer applies a persisted logistic-regression artifact
type TrainedScorer struct {
	artifact *model.TrainedModel
}

// NewTrainedScorer wraps an artifact
func NewTrainedScorer(artifact *model.TrainedModel) *TrainedScorer {
	return &TrainedScorer{artifact: artifact}
}

// ModelID returns the artifact's model id
func (s *TrainedScorer) ModelID() string {
	return s.artifact.ModelID
}

// Artifact returns the wrapped artifact
func (s *TrainedScorer) Artifact() *model.TrainedModel {
	return s.artifact
}

// Predict vectorizes in the artifact's feature order (0 for absent names),
// applies the linear model, the optional Platt calibration and the thresholds.
func (s *TrainedScorer) Predict(fs model.FeatureSet) Prediction {
	a := s.artifact
	intercept := a.Intercept()

	logit := intercept
	contribs := make([]model.Contribution, 0, len(a.FeatureNames))
	for _, name := range a.FeatureNames {
		v, _ := fs.Lookup(name)
		w := a.Weights[string(name)]
		c := w * v
		logit += c
		contribs = append(contribs, model.Contribution{
			Feature:      name,
			Value:        v,
			Weight:       &w,
			Contribution: c,
		})
	}

	raw := Sigmoid(logit)
	final := raw
	if a.Calibration != nil && a.Calibration.Method == "platt" {
		final = ApplyPlatt(raw, a.Calibration.Params["a"], a.Calibration.Params["b"])
	}

	return Prediction{
		Score:    final,
		RawScore: raw,
		Label:    ThresholdLabel(final, a.Thresholds),
		Explanation: model.Explanation{
			Kind:      "trained",
			ModelID:   a.ModelID,
			Positive:  topPositive(contribs),
			Negative:  topNegative(contribs),
			Intercept: &intercept,
			RawScore:  &raw,
			Score:     &final,
		},
	}
}
