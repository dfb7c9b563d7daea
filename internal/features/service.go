package features

import (
	"fmt"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

// FeatureStore persists feature rows per run
type FeatureStore interface {
	DeleteFeatures(runID string) error
	InsertFeatures(features []model.Feature) error
	ListFeatures(runID string) ([]model.Feature, error)
	FeatureKeys(groups []model.FeatureGroup) ([]model.FeatureKey, error)
}

// Service recomputes and stores features for runs
type Service struct {
	extractor *Extractor
	store     FeatureStore
}

// NewService creates a new feature service
func NewService(extractor *Extractor, store FeatureStore) *Service {
	return &Service{extractor: extractor, store: store}
}

// Compute extracts the run's features and replaces any previously stored rows
func (s *Service) Compute(runID string) ([]model.Feature, error) {
	feats, err := s.extractor.Extract(runID)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}

	if err := s.store.DeleteFeatures(runID); err != nil {
		return nil, fmt.Errorf("purge features: %w", err)
	}
	if err := s.store.InsertFeatures(feats); err != nil {
		return nil, fmt.Errorf("store features: %w", err)
	}

	return feats, nil
}

// Get returns the stored features of a run
func (s *Service) Get(runID string) ([]model.Feature, error) {
	return s.store.ListFeatures(runID)
}
