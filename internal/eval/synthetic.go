package eval

import (
	"crypto/sha256"
	"encoding/hex"
	"math/rand/v2"
	"strconv"

	"github.com/praveenpuviindran/trustlens/internal/model"
)

type syntheticRange struct {
	group  model.FeatureGroup
	name   model.FeatureName
	lo, hi float64
}

// drawn in this order from the claim's generator
var syntheticRanges = []syntheticRange{
	{model.GroupVolume, model.FeatTotalArticles, 1, 20},
	{model.GroupVolume, model.FeatUniqueDomains, 1, 10},
	{model.GroupSourceQuality, model.FeatWeightedPriorMean, 0, 1},
	{model.GroupSourceQuality, model.FeatHighReliabilityRatio, 0, 1},
	{model.GroupSourceQuality, model.FeatUnknownSourceRatio, 0, 1},
	{model.GroupTemporal, model.FeatRecencyScore, 0, 1},
	{model.GroupTemporal, model.FeatMissingTimestampRatio, 0, 1},
	{model.GroupTemporal, model.FeatPublicationSpanHours, 0, 1000},
	{model.GroupCorroboration, model.FeatDomainDiversity, 0, 3},
	{model.GroupCorroboration, model.FeatMaxDomainConcentration, 0, 1},
}

// SyntheticSeed is the first 8 hex digits of SHA-256(claim text)
func SyntheticSeed(claimText string) uint64 {
	sum := sha256.Sum256([]byte(claimText))
	seed, _ := strconv.ParseUint(hex.EncodeToString(sum[:])[:8], 16, 64)
	return seed
}

// SyntheticFeatures returns deterministic base-group features for a claim so
// benchmarks can run without fetching evidence. The same claim always yields
// the same values.
func SyntheticFeatures(runID, claimText string) []model.Feature {
	seed := SyntheticSeed(claimText)
	rng := rand.New(rand.NewPCG(seed, seed))

	out := make([]model.Feature, 0, len(syntheticRanges))
	for _, r := range syntheticRanges {
		out = append(out, model.Feature{
			RunID: runID,
			Group: r.group,
			Name:  r.name,
			Value: r.lo + (r.hi-r.lo)*rng.Float64(),
		})
	}
	return out
}
