package features

import (
	"fmt"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

// FeatureReader is the read side of the feature store
type FeatureReader interface {
	ListFeatures(runID string) ([]model.Feature, error)
	FeatureKeys(groups []model.FeatureGroup) ([]model.FeatureKey, error)
}

// Vectorizer lines stored features up with model weights
type Vectorizer struct {
	store FeatureReader
}

// NewVectorizer creates a new vectorizer
func NewVectorizer(store FeatureReader) *Vectorizer {
	return &Vectorizer{store: store}
}

// CanonicalNames returns the distinct stored feature names within the schema's
// groups, ordered by (group, name)
func (v *Vectorizer) CanonicalNames(schema model.SchemaVersion) ([]model.FeatureName, error) {
	keys, err := v.store.FeatureKeys(schema.Groups())
	if err != nil {
		return nil, fmt.Errorf("list feature keys: %w", err)
	}

	model.SortFeatureKeys(keys)
	seen := make(map[model.FeatureName]struct{}, len(keys))
	names := make([]model.FeatureName, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k.Name]; ok {
			continue
		}
		seen[k.Name] = struct{}{}
		names = append(names, k.Name)
	}
	return names, nil
}

// Vector returns the run's feature values in names order, 0 for absent names
func (v *Vectorizer) Vector(runID string, names []model.FeatureName) ([]float64, error) {
	feats, err := v.store.ListFeatures(runID)
	if err != nil {
		return nil, fmt.Errorf("list features for %s: %w", runID, err)
	}
	return VectorFromSet(model.NewFeatureSet(feats), names), nil
}

// Matrix vectorizes many runs with the same name order
func (v *Vectorizer) Matrix(runIDs []string, names []model.FeatureName) ([][]float64, error) {
	out := make([][]float64, len(runIDs))
	for i, id := range runIDs {
		row, err := v.Vector(id, names)
		if err != nil {
			return nil, err
		}
		out[i] = row
	}
	return out, nil
}

// VectorFromSet is the positional zero-fill over an in-memory feature set.
// Absent names get 0, never the extractor's semantic default.
func VectorFromSet(fs model.FeatureSet, names []model.FeatureName) []float64 {
	out := make([]float64, len(names))
	for i, n := range names {
		if val, ok := fs.Lookup(n); ok {
			out[i] = val
		}
	}
	return out
}
