// Package features derives the named scalar features of a run from its
// evidence set and turns stored features into ordered vectors.
package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/praveenpuviindran/trustlens/internal/model"
	"github.com/praveenpuviindran/trustlens/internal/textsim"
)

const (
	// UnknownPrior stands in for domains missing from the prior table
	UnknownPrior = 0.5

	// HighReliabilityThreshold is the prior at or above which a domain counts as highly reliable
	HighReliabilityThreshold = 0.8

	// RecencyDecayDays is the e-folding time of the recency score
	RecencyDecayDays = 1.0

	// MissingTimestampRecency is the neutral recency of an undated article
	MissingTimestampRecency = 0.5

	topKJaccard = 3
)

// EvidenceSource is the read-only view of runs and their evidence
type EvidenceSource interface {
	GetRun(runID string) (*model.Run, error)
	ListEvidence(runID string) ([]model.EvidenceItem, error)
}

// PriorLookup resolves domains to reliability priors.
// Domains without an entry are absent from the returned map.
type PriorLookup interface {
	LookupPriors(domains []string) (map[string]float64, error)
}

// Extractor computes the full feature set for a run
type Extractor struct {
	evidence EvidenceSource
	priors   PriorLookup
	now      func() time.Time
}

// NewExtractor creates a new extractor
func NewExtractor(evidence EvidenceSource, priors PriorLookup) *Extractor {
	return &Extractor{
		evidence: evidence,
		priors:   priors,
		now:      time.Now,
	}
}

// Extract loads the run's evidence and priors and computes every feature group
func (e *Extractor) Extract(runID string) ([]model.Feature, error) {
	run, err := e.evidence.GetRun(runID)
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}

	items, err := e.evidence.ListEvidence(runID)
	if err != nil {
		return nil, fmt.Errorf("load evidence: %w", err)
	}

	priors, err := e.priors.LookupPriors(uniqueDomains(items))
	if err != nil {
		return nil, fmt.Errorf("lookup priors: %w", err)
	}

	return Compute(*run, items, priors, ReferenceTime(*run, items, e.now)), nil
}

// Compute is the pure feature computation over a materialized evidence set.
// It always emits every name of every group, in taxonomy order.
func Compute(run model.Run, items []model.EvidenceItem, priors map[string]float64, ref time.Time) []model.Feature {
	values := make(map[model.FeatureName]float64, 24)
	volume(items, values)
	sourceQuality(items, priors, values)
	temporal(items, ref, values)
	corroboration(items, values)
	textSimilarity(run.ClaimText, items, values)
	entityOverlap(run.ClaimText, items, values)
	consistency(items, values)

	var out []model.Feature
	for _, g := range model.AllGroups() {
		for _, name := range model.GroupFeatureNames(g) {
			out = append(out, model.Feature{
				RunID: run.ID,
				Group: g,
				Name:  name,
				Value: values[name],
			})
		}
	}
	return out
}

// ReferenceTime pins "now" for recency: the run's creation time, else the latest
// evidence retrieval time, else the latest evidence creation time, else the clock.
func ReferenceTime(run model.Run, items []model.EvidenceItem, clock func() time.Time) time.Time {
	if !run.CreatedAt.IsZero() {
		return run.CreatedAt
	}

	var latest time.Time
	for _, it := range items {
		if it.RetrievedAt.After(latest) {
			latest = it.RetrievedAt
		}
	}
	if !latest.IsZero() {
		return latest
	}

	for _, it := range items {
		if it.CreatedAt.After(latest) {
			latest = it.CreatedAt
		}
	}
	if !latest.IsZero() {
		return latest
	}

	return clock()
}

func volume(items []model.EvidenceItem, out map[model.FeatureName]float64) {
	out[model.FeatTotalArticles] = float64(len(items))
	out[model.FeatUniqueDomains] = float64(len(uniqueDomains(items)))
}

func sourceQuality(items []model.EvidenceItem, priors map[string]float64, out map[model.FeatureName]float64) {
	out[model.FeatWeightedPriorMean] = UnknownPrior
	out[model.FeatHighReliabilityRatio] = 0
	out[model.FeatUnknownSourceRatio] = 0
	out[model.FeatMedianPrior] = UnknownPrior
	out[model.FeatMinPrior] = UnknownPrior
	out[model.FeatMaxPrior] = UnknownPrior

	if len(items) == 0 {
		return
	}

	// per article, duplicates counted
	sum := 0.0
	unknown := 0
	for _, it := range items {
		p, ok := priorOf(it.Domain, priors)
		if !ok {
			unknown++
		}
		sum += p
	}
	out[model.FeatWeightedPriorMean] = sum / float64(len(items))
	out[model.FeatUnknownSourceRatio] = float64(unknown) / float64(len(items))

	// per unique domain
	domains := uniqueDomains(items)
	if len(domains) == 0 {
		return
	}
	scores := make([]float64, len(domains))
	high := 0
	for i, d := range domains {
		p, _ := priorOf(d, priors)
		scores[i] = p
		if p >= HighReliabilityThreshold {
			high++
		}
	}
	sort.Float64s(scores)
	out[model.FeatHighReliabilityRatio] = float64(high) / float64(len(domains))
	out[model.FeatMedianPrior] = scores[len(scores)/2]
	out[model.FeatMinPrior] = scores[0]
	out[model.FeatMaxPrior] = scores[len(scores)-1]
}

func temporal(items []model.EvidenceItem, ref time.Time, out map[model.FeatureName]float64) {
	out[model.FeatRecencyScore] = MissingTimestampRecency
	out[model.FeatPublicationSpanHours] = 0
	out[model.FeatMissingTimestampRatio] = 0

	if len(items) == 0 {
		return
	}

	missing := 0
	sum := 0.0
	var earliest, latest time.Time
	known := 0
	for _, it := range items {
		if it.PublishedAt == nil {
			missing++
			sum += MissingTimestampRecency
			continue
		}
		pub := *it.PublishedAt
		days := ref.Sub(pub).Hours() / 24
		if days < 0 {
			days = 0
		}
		sum += math.Exp(-days / RecencyDecayDays)

		if known == 0 || pub.Before(earliest) {
			earliest = pub
		}
		if known == 0 || pub.After(latest) {
			latest = pub
		}
		known++
	}

	out[model.FeatRecencyScore] = sum / float64(len(items))
	out[model.FeatMissingTimestampRatio] = float64(missing) / float64(len(items))
	if known >= 2 {
		out[model.FeatPublicationSpanHours] = latest.Sub(earliest).Hours()
	}
}

func corroboration(items []model.EvidenceItem, out map[model.FeatureName]float64) {
	out[model.FeatDomainDiversity] = 0
	out[model.FeatMaxDomainConcentration] = 0
	if len(items) == 0 {
		return
	}

	// blank domains are left out of both counts and total
	counts := make(map[string]int)
	total := 0
	for _, it := range items {
		if it.Domain == "" {
			continue
		}
		counts[it.Domain]++
		total++
	}
	if total == 0 {
		return
	}

	// fixed summation order keeps the entropy bit-stable
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entropy := 0.0
	maxCount := 0
	for _, k := range keys {
		c := counts[k]
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
		if c > maxCount {
			maxCount = c
		}
	}
	out[model.FeatDomainDiversity] = entropy
	out[model.FeatMaxDomainConcentration] = float64(maxCount) / float64(total)
}

func textSimilarity(claim string, items []model.EvidenceItem, out map[model.FeatureName]float64) {
	out[model.FeatMeanJaccard] = 0
	out[model.FeatMaxJaccard] = 0
	out[model.FeatTopKMeanJaccard] = 0

	claimTokens := textsim.TokenSet(claim)
	if len(items) == 0 || len(claimTokens) == 0 {
		return
	}

	sims := make([]float64, len(items))
	for i, it := range items {
		sims[i] = textsim.Jaccard(claimTokens, textsim.TokenSet(textsim.EvidenceText(it.Title, it.Snippet)))
	}
	out[model.FeatMeanJaccard] = mean(sims)
	out[model.FeatMaxJaccard] = maxOf(sims)

	sorted := append([]float64(nil), sims...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	k := topKJaccard
	if len(sorted) < k {
		k = len(sorted)
	}
	out[model.FeatTopKMeanJaccard] = mean(sorted[:k])
}

func entityOverlap(claim string, items []model.EvidenceItem, out map[model.FeatureName]float64) {
	out[model.FeatEntityOverlapMean] = 0
	out[model.FeatEntityOverlapMax] = 0
	if len(items) == 0 {
		return
	}

	claimEntities := textsim.Entities(claim)
	overlaps := make([]float64, len(items))
	for i, it := range items {
		overlaps[i] = textsim.EntityOverlap(claimEntities, textsim.Entities(textsim.EvidenceText(it.Title, it.Snippet)))
	}
	out[model.FeatEntityOverlapMean] = mean(overlaps)
	out[model.FeatEntityOverlapMax] = maxOf(overlaps)
}

func consistency(items []model.EvidenceItem, out map[model.FeatureName]float64) {
	out[model.FeatContradictionSignalRatio] = 0
	if len(items) == 0 {
		return
	}
	flagged := 0
	for _, it := range items {
		if textsim.HasContradiction(textsim.EvidenceText(it.Title, it.Snippet)) {
			flagged++
		}
	}
	out[model.FeatContradictionSignalRatio] = float64(flagged) / float64(len(items))
}

// priorOf returns the domain's prior, or UnknownPrior and false
func priorOf(domain string, priors map[string]float64) (float64, bool) {
	if domain == "" {
		return UnknownPrior, false
	}
	p, ok := priors[domain]
	if !ok {
		return UnknownPrior, false
	}
	return p, true
}

// uniqueDomains returns the sorted distinct non-blank domains
func uniqueDomains(items []model.EvidenceItem) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, it := range items {
		if it.Domain == "" {
			continue
		}
		if _, ok := seen[it.Domain]; ok {
			continue
		}
		seen[it.Domain] = struct{}{}
		out = append(out, it.Domain)
	}
	sort.Strings(out)
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func maxOf(xs []float64) float64 {
	m := 0.0
	for i, x := range xs {
		if i == 0 || x > m {
			m = x
		}
	}
	return m
}
