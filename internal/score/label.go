package score

import "github.com/praveenpuviindran/trustlens/internal/model"

// Baseline label cut points; a score on a boundary takes the upper bucket
const (
	CredibleThreshold  = 0.67
	UncertainThreshold = 0.33
)

// BaselineLabel maps a baseline score to a label
func BaselineLabel(score float64) model.Label {
	switch {
	case score >= CredibleThreshold:
		return model.LabelCredible
	case score >= UncertainThreshold:
		return model.LabelUncertain
	default:
		return model.LabelNotCredible
	}
}

// ThresholdLabel maps a trained-model probability with the artifact's own thresholds
func ThresholdLabel(p float64, t model.Thresholds) model.Label {
	switch {
	case p >= t.Hi:
		return model.LabelCredible
	case p <= t.Lo:
		return model.LabelNotCredible
	default:
		return model.LabelUncertain
	}
}
