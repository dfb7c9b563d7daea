package score

import (
	"fmt"
	"time"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

// RunReader resolves runs
type RunReader interface {
	GetRun(runID string) (*model.Run, error)
}

// FeatureLister reads stored features
type FeatureLister interface {
	ListFeatures(runID string) ([]model.Feature, error)
}

// ModelStore reads registered model artifacts
type ModelStore interface {
	GetModel(modelID string) (*model.TrainedModel, error)
}

// ScoreStore keeps one current score per (run, model)
type ScoreStore interface {
	UpsertScore(result model.ScoreResult) error
}

// Service computes and stores scores for runs
type Service struct {
	runs     RunReader
	features FeatureLister
	models   ModelStore
	scores   ScoreStore
	now      func() time.Time
}

// NewService creates a new scoring service
func NewService(runs RunReader, features FeatureLister, models ModelStore, scores ScoreStore) *Service {
	return &Service{
		runs:     runs,
		features: features,
		models:   models,
		scores:   scores,
		now:      time.Now,
	}
}

// ScorerFor returns the baseline scorer for baseline_v1 (or empty), else the
// registered trained model
func (s *Service) ScorerFor(modelID string) (Scorer, error) {
	if modelID == "" || modelID == model.BaselineModelID {
		return NewBaselineScorer(), nil
	}
	artifact, err := s.models.GetModel(modelID)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return NewTrainedScorer(artifact), nil
}

// ComputeScore scores a run's stored features and replaces the run's current
// score for that model
func (s *Service) ComputeScore(runID, modelID string) (*model.ScoreResult, error) {
	if _, err := s.runs.GetRun(runID); err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}

	scorer, err := s.ScorerFor(modelID)
	if err != nil {
		return nil, err
	}

	feats, err := s.features.ListFeatures(runID)
	if err != nil {
		return nil, fmt.Errorf("load features: %w", err)
	}
	if len(feats) == 0 {
		return nil, model.InvalidState("no features computed for run %s", runID)
	}

	pred := scorer.Predict(model.NewFeatureSet(feats))
	result := model.ScoreResult{
		RunID:       runID,
		ModelID:     scorer.ModelID(),
		Score:       pred.Score,
		Label:       pred.Label,
		Explanation: pred.Explanation,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.scores.UpsertScore(result); err != nil {
		return nil, fmt.Errorf("store score: %w", err)
	}
	return &result, nil
}
