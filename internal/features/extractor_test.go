package features

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

// memStore implements EvidenceSource, PriorLookup and FeatureStore in memory
type memStore struct {
	runs     map[string]*model.Run
	evidence map[string][]model.EvidenceItem
	priors   map[string]float64
	features map[string][]model.Feature
}

func newMemStore() *memStore {
	return &memStore{
		runs:     make(map[string]*model.Run),
		evidence: make(map[string][]model.EvidenceItem),
		priors:   make(map[string]float64),
		features: make(map[string][]model.Feature),
	}
}

func (m *memStore) GetRun(runID string) (*model.Run, error) {
	r, ok := m.runs[runID]
	if !ok {
		return nil, model.NotFound("run", runID)
	}
	return r, nil
}

func (m *memStore) ListEvidence(runID string) ([]model.EvidenceItem, error) {
	return m.evidence[runID], nil
}

func (m *memStore) LookupPriors(domains []string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, d := range domains {
		if p, ok := m.priors[d]; ok {
			out[d] = p
		}
	}
	return out, nil
}

func (m *memStore) DeleteFeatures(runID string) error {
	delete(m.features, runID)
	return nil
}

func (m *memStore) InsertFeatures(feats []model.Feature) error {
	for _, f := range feats {
		m.features[f.RunID] = append(m.features[f.RunID], f)
	}
	return nil
}

func (m *memStore) ListFeatures(runID string) ([]model.Feature, error) {
	return m.features[runID], nil
}

func (m *memStore) FeatureKeys(groups []model.FeatureGroup) ([]model.FeatureKey, error) {
	allowed := make(map[model.FeatureGroup]bool)
	for _, g := range groups {
		allowed[g] = true
	}
	seen := make(map[model.FeatureKey]bool)
	var out []model.FeatureKey
	for _, feats := range m.features {
		for _, f := range feats {
			k := model.FeatureKey{Group: f.Group, Name: f.Name}
			if allowed[f.Group] && !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out, nil
}

func hoursBefore(ref time.Time, h float64) *time.Time {
	t := ref.Add(-time.Duration(h * float64(time.Hour)))
	return &t
}

func valueOf(t *testing.T, feats []model.Feature, name model.FeatureName) float64 {
	t.Helper()
	for _, f := range feats {
		if f.Name == name {
			return f.Value
		}
	}
	t.Fatalf("feature %s not emitted", name)
	return 0
}

func assertClose(t *testing.T, name string, want, got float64) {
	t.Helper()
	if math.Abs(want-got) > 1e-9 {
		t.Errorf("%s: expected %.6f, got %.6f", name, want, got)
	}
}

func threeSourceStore() (*memStore, time.Time) {
	ref := time.Date(2025, 1, 29, 12, 0, 0, 0, time.UTC)
	s := newMemStore()
	s.runs["r1"] = &model.Run{ID: "r1", ClaimText: "NASA confirms water on Mars", CreatedAt: ref}
	s.evidence["r1"] = []model.EvidenceItem{
		{URL: "https://nyt.com/a", Domain: "nyt.com", Title: "NASA confirms water on Mars", PublishedAt: hoursBefore(ref, 2), RetrievedAt: ref},
		{URL: "https://bbc.com/b", Domain: "bbc.com", Title: "Mars water claim is a hoax", PublishedAt: hoursBefore(ref, 3), RetrievedAt: ref},
		{URL: "https://local.com/c", Domain: "local.com", Title: "Local weather", Snippet: "sunny", PublishedAt: hoursBefore(ref, 5), RetrievedAt: ref},
	}
	s.priors["nyt.com"] = 0.9
	s.priors["bbc.com"] = 0.85
	return s, ref
}

func TestExtract_ThreeSourceScenario(t *testing.T) {
	s, _ := threeSourceStore()
	feats, err := NewExtractor(s, s).Extract("r1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	assertClose(t, "total_articles", 3, valueOf(t, feats, model.FeatTotalArticles))
	assertClose(t, "unique_domains", 3, valueOf(t, feats, model.FeatUniqueDomains))
	assertClose(t, "weighted_prior_mean", 0.75, valueOf(t, feats, model.FeatWeightedPriorMean))
	assertClose(t, "unknown_source_ratio", 1.0/3.0, valueOf(t, feats, model.FeatUnknownSourceRatio))
	assertClose(t, "high_reliability_ratio", 2.0/3.0, valueOf(t, feats, model.FeatHighReliabilityRatio))
	assertClose(t, "median_prior", 0.85, valueOf(t, feats, model.FeatMedianPrior))
	assertClose(t, "min_prior", 0.5, valueOf(t, feats, model.FeatMinPrior))
	assertClose(t, "max_prior", 0.9, valueOf(t, feats, model.FeatMaxPrior))
	assertClose(t, "domain_diversity", math.Log2(3), valueOf(t, feats, model.FeatDomainDiversity))
	assertClose(t, "max_domain_concentration", 1.0/3.0, valueOf(t, feats, model.FeatMaxDomainConcentration))
	assertClose(t, "publication_span_hours", 3, valueOf(t, feats, model.FeatPublicationSpanHours))
	assertClose(t, "missing_timestamp_ratio", 0, valueOf(t, feats, model.FeatMissingTimestampRatio))

	wantRecency := (math.Exp(-2.0/24) + math.Exp(-3.0/24) + math.Exp(-5.0/24)) / 3
	assertClose(t, "recency_score", wantRecency, valueOf(t, feats, model.FeatRecencyScore))

	assertClose(t, "max_jaccard", 1.0, valueOf(t, feats, model.FeatMaxJaccard))
	assertClose(t, "entity_overlap_max", 1.0, valueOf(t, feats, model.FeatEntityOverlapMax))
	assertClose(t, "contradiction_signal_ratio", 1.0/3.0, valueOf(t, feats, model.FeatContradictionSignalRatio))
}

func TestExtract_ZeroEvidenceIsTotal(t *testing.T) {
	s := newMemStore()
	s.runs["empty"] = &model.Run{ID: "empty", ClaimText: "Anything", CreatedAt: time.Now()}

	feats, err := NewExtractor(s, s).Extract("empty")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := 0
	for _, g := range model.AllGroups() {
		want += len(model.GroupFeatureNames(g))
	}
	if len(feats) != want {
		t.Fatalf("Expected %d features, got %d", want, len(feats))
	}

	expected := map[model.FeatureName]float64{
		model.FeatTotalArticles:          0,
		model.FeatUniqueDomains:          0,
		model.FeatWeightedPriorMean:      0.5,
		model.FeatHighReliabilityRatio:   0,
		model.FeatUnknownSourceRatio:     0,
		model.FeatRecencyScore:           0.5,
		model.FeatPublicationSpanHours:   0,
		model.FeatMissingTimestampRatio:  0,
		model.FeatDomainDiversity:        0,
		model.FeatMaxDomainConcentration: 0,
		model.FeatMeanJaccard:            0,
	}
	for name, v := range expected {
		assertClose(t, string(name), v, valueOf(t, feats, name))
	}
}

func TestExtract_BlankDomainsAreUnknown(t *testing.T) {
	ref := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newMemStore()
	s.runs["r"] = &model.Run{ID: "r", ClaimText: "x", CreatedAt: ref}
	s.evidence["r"] = []model.EvidenceItem{
		{URL: "u1", RetrievedAt: ref},
		{URL: "u2", RetrievedAt: ref},
	}

	feats, err := NewExtractor(s, s).Extract("r")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertClose(t, "unknown_source_ratio", 1.0, valueOf(t, feats, model.FeatUnknownSourceRatio))
	assertClose(t, "weighted_prior_mean", 0.5, valueOf(t, feats, model.FeatWeightedPriorMean))
	assertClose(t, "high_reliability_ratio", 0, valueOf(t, feats, model.FeatHighReliabilityRatio))
	assertClose(t, "missing_timestamp_ratio", 1.0, valueOf(t, feats, model.FeatMissingTimestampRatio))
	assertClose(t, "recency_score", 0.5, valueOf(t, feats, model.FeatRecencyScore))
}

func TestExtract_BlankDomainsSkippedInCorroboration(t *testing.T) {
	ref := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newMemStore()
	s.runs["r"] = &model.Run{ID: "r", ClaimText: "x", CreatedAt: ref}
	s.evidence["r"] = []model.EvidenceItem{
		{URL: "u1", Domain: "a.com", RetrievedAt: ref},
		{URL: "u2", Domain: "b.com", RetrievedAt: ref},
		{URL: "u3", RetrievedAt: ref},
		{URL: "u4", RetrievedAt: ref},
	}

	feats, err := NewExtractor(s, s).Extract("r")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertClose(t, "total_articles", 4, valueOf(t, feats, model.FeatTotalArticles))
	assertClose(t, "unique_domains", 2, valueOf(t, feats, model.FeatUniqueDomains))
	assertClose(t, "domain_diversity", 1.0, valueOf(t, feats, model.FeatDomainDiversity))
	assertClose(t, "max_domain_concentration", 0.5, valueOf(t, feats, model.FeatMaxDomainConcentration))
	assertClose(t, "unknown_source_ratio", 1.0, valueOf(t, feats, model.FeatUnknownSourceRatio))

	s.evidence["r"] = []model.EvidenceItem{{URL: "u1", RetrievedAt: ref}}
	feats, err = NewExtractor(s, s).Extract("r")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertClose(t, "unique_domains", 0, valueOf(t, feats, model.FeatUniqueDomains))
	assertClose(t, "domain_diversity", 0, valueOf(t, feats, model.FeatDomainDiversity))
	assertClose(t, "max_domain_concentration", 0, valueOf(t, feats, model.FeatMaxDomainConcentration))
}

func TestExtract_FutureTimestampClampsToZeroDays(t *testing.T) {
	ref := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	future := ref.Add(48 * time.Hour)
	s := newMemStore()
	s.runs["r"] = &model.Run{ID: "r", ClaimText: "x", CreatedAt: ref}
	s.evidence["r"] = []model.EvidenceItem{{URL: "u", Domain: "a.com", PublishedAt: &future}}

	feats, err := NewExtractor(s, s).Extract("r")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertClose(t, "recency_score", 1.0, valueOf(t, feats, model.FeatRecencyScore))
}

func TestExtract_RunNotFound(t *testing.T) {
	s := newMemStore()
	_, err := NewExtractor(s, s).Extract("missing")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	s, _ := threeSourceStore()
	ex := NewExtractor(s, s)
	first, err := ex.Extract("r1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := ex.Extract("r1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical features across extractions")
	}
}

func TestReferenceTime(t *testing.T) {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	retrieved := created.Add(time.Hour)
	later := created.Add(2 * time.Hour)
	clock := func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name  string
		run   model.Run
		items []model.EvidenceItem
		want  time.Time
	}{
		{"run created_at wins", model.Run{CreatedAt: created}, []model.EvidenceItem{{RetrievedAt: later}}, created},
		{"max retrieved_at", model.Run{}, []model.EvidenceItem{{RetrievedAt: retrieved}, {RetrievedAt: later}}, later},
		{"max created_at", model.Run{}, []model.EvidenceItem{{CreatedAt: retrieved}}, retrieved},
		{"clock fallback", model.Run{}, nil, clock()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReferenceTime(tt.run, tt.items, clock); !got.Equal(tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestService_ComputeReplacesRows(t *testing.T) {
	s, _ := threeSourceStore()
	svc := NewService(NewExtractor(s, s), s)

	first, err := svc.Compute("r1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Compute("r1"); err != nil {
		t.Fatal(err)
	}

	stored, _ := svc.Get("r1")
	if len(stored) != len(first) {
		t.Errorf("Expected %d stored rows after recompute, got %d", len(first), len(stored))
	}
	if !reflect.DeepEqual(stored, first) {
		t.Error("Expected recomputed rows to equal first computation")
	}
}
