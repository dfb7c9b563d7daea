package model

import (
	"fmt"
	"sort"
)

// FeatureGroup is a semantic category of features
type FeatureGroup string

const (
	GroupVolume         FeatureGroup = "volume"
	GroupSourceQuality  FeatureGroup = "source_quality"
	GroupTemporal       FeatureGroup = "temporal"
	GroupCorroboration  FeatureGroup = "corroboration"
	GroupTextSimilarity FeatureGroup = "text_similarity"
	GroupEntityOverlap  FeatureGroup = "entity_overlap"
	GroupConsistency    FeatureGroup = "consistency"
)

// FeatureName identifies a scalar feature
type FeatureName string

const (
	FeatTotalArticles FeatureName = "total_articles"
	FeatUniqueDomains FeatureName = "unique_domains"

	FeatWeightedPriorMean    FeatureName = "weighted_prior_mean"
	FeatHighReliabilityRatio FeatureName = "high_reliability_ratio"
	FeatUnknownSourceRatio   FeatureName = "unknown_source_ratio"
	FeatMedianPrior          FeatureName = "median_prior"
	FeatMinPrior             FeatureName = "min_prior"
	FeatMaxPrior             FeatureName = "max_prior"

	FeatRecencyScore          FeatureName = "recency_score"
	FeatPublicationSpanHours  FeatureName = "publication_span_hours"
	FeatMissingTimestampRatio FeatureName = "missing_timestamp_ratio"

	FeatDomainDiversity        FeatureName = "domain_diversity"
	FeatMaxDomainConcentration FeatureName = "max_domain_concentration"

	FeatMeanJaccard     FeatureName = "mean_jaccard"
	FeatMaxJaccard      FeatureName = "max_jaccard"
	FeatTopKMeanJaccard FeatureName = "topk_mean_jaccard"

	FeatEntityOverlapMean FeatureName = "entity_overlap_mean"
	FeatEntityOverlapMax  FeatureName = "entity_overlap_max"

	FeatContradictionSignalRatio FeatureName = "contradiction_signal_ratio"
)

// groupFeatures is the closed taxonomy: every group and the names it always emits
var groupFeatures = map[FeatureGroup][]FeatureName{
	GroupVolume:         {FeatTotalArticles, FeatUniqueDomains},
	GroupSourceQuality:  {FeatWeightedPriorMean, FeatHighReliabilityRatio, FeatUnknownSourceRatio, FeatMedianPrior, FeatMinPrior, FeatMaxPrior},
	GroupTemporal:       {FeatRecencyScore, FeatPublicationSpanHours, FeatMissingTimestampRatio},
	GroupCorroboration:  {FeatDomainDiversity, FeatMaxDomainConcentration},
	GroupTextSimilarity: {FeatMeanJaccard, FeatMaxJaccard, FeatTopKMeanJaccard},
	GroupEntityOverlap:  {FeatEntityOverlapMean, FeatEntityOverlapMax},
	GroupConsistency:    {FeatContradictionSignalRatio},
}

// BaseGroups are the four groups computed from evidence metadata alone
var BaseGroups = []FeatureGroup{GroupVolume, GroupSourceQuality, GroupTemporal, GroupCorroboration}

// TextGroups are computed from claim and evidence text
var TextGroups = []FeatureGroup{GroupTextSimilarity, GroupEntityOverlap, GroupConsistency}

// AllGroups returns every feature group in taxonomy order
func AllGroups() []FeatureGroup {
	out := make([]FeatureGroup, 0, len(BaseGroups)+len(TextGroups))
	out = append(out, BaseGroups...)
	return append(out, TextGroups...)
}

// GroupFeatureNames returns the names a group always emits
func GroupFeatureNames(g FeatureGroup) []FeatureName {
	names := groupFeatures[g]
	out := make([]FeatureName, len(names))
	copy(out, names)
	return out
}

// GroupOf returns the group a known feature belongs to
func GroupOf(name FeatureName) (FeatureGroup, bool) {
	for g, names := range groupFeatures {
		for _, n := range names {
			if n == name {
				return g, true
			}
		}
	}
	return "", false
}

// Feature is one (run, group, name) -> value row
type Feature struct {
	RunID string       `json:"run_id"`
	Group FeatureGroup `json:"feature_group"`
	Name  FeatureName  `json:"feature_name"`
	Value float64      `json:"feature_value"`
}

// FeatureKey is a (group, name) pair
type FeatureKey struct {
	Group FeatureGroup
	Name  FeatureName
}

// SortFeatureKeys orders keys by (group, name)
func SortFeatureKeys(keys []FeatureKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Group != keys[j].Group {
			return keys[i].Group < keys[j].Group
		}
		return keys[i].Name < keys[j].Name
	})
}

// SchemaVersion names a fixed set of feature groups used for vectorization
type SchemaVersion string

const (
	SchemaV1 SchemaVersion = "v1"
	SchemaV2 SchemaVersion = "v2"
)

// ParseSchemaVersion validates a schema version string
func ParseSchemaVersion(s string) (SchemaVersion, error) {
	switch SchemaVersion(s) {
	case SchemaV1, SchemaV2:
		return SchemaVersion(s), nil
	default:
		return "", fmt.Errorf("unknown feature schema version %q (supported: v1, v2)", s)
	}
}

// Groups returns the feature groups covered by the schema
func (v SchemaVersion) Groups() []FeatureGroup {
	if v == SchemaV1 {
		out := make([]FeatureGroup, len(BaseGroups))
		copy(out, BaseGroups)
		return out
	}
	return AllGroups()
}

// FeatureSet is the observed features of one run keyed by name.
// Absent names are distinct from names stored with a zero value.
type FeatureSet map[FeatureName]float64

// NewFeatureSet indexes stored feature rows by name
func NewFeatureSet(features []Feature) FeatureSet {
	fs := make(FeatureSet, len(features))
	for _, f := range features {
		fs[f.Name] = f.Value
	}
	return fs
}

// Lookup returns the observed value and whether it was present
func (fs FeatureSet) Lookup(name FeatureName) (float64, bool) {
	v, ok := fs[name]
	return v, ok
}

// Resolve returns the observed value, else the default, else 0
func (fs FeatureSet) Resolve(name FeatureName, defaults map[FeatureName]float64) float64 {
	if v, ok := fs[name]; ok {
		return v
	}
	return defaults[name]
}

// Clone returns an independent copy
func (fs FeatureSet) Clone() FeatureSet {
	out := make(FeatureSet, len(fs))
	for k, v := range fs {
		out[k] = v
	}
	return out
}

// ZeroGroup sets every name of the group to 0, present or not
func (fs FeatureSet) ZeroGroup(g FeatureGroup) FeatureSet {
	out := fs.Clone()
	for _, name := range groupFeatures[g] {
		out[name] = 0
	}
	return out
}
