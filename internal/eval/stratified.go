package eval

import "github.com/praveenpuviindran/trustlens/internal/model"

// Stratification dimensions
const (
	DimTotalArticles          = "total_articles"
	DimUnknownSourceRatio     = "unknown_source_ratio"
	DimMaxDomainConcentration = "max_domain_concentration"
)

// Stratified holds metrics per dimension, then per bucket
type Stratified map[string]map[string]model.Metrics

// Stratify groups rows by evidence volume, unknown-source share and domain
// concentration of their run and computes metrics per bucket. Runs without
// features fall in the lowest buckets.
func Stratify(rows []model.EvalRow, feats map[string]model.FeatureSet) Stratified {
	groups := map[string]map[string][]model.EvalRow{
		DimTotalArticles:          {},
		DimUnknownSourceRatio:     {},
		DimMaxDomainConcentration: {},
	}

	for _, r := range rows {
		fs := feats[r.RunID]
		add := func(dim, bucket string) {
			groups[dim][bucket] = append(groups[dim][bucket], r)
		}
		add(DimTotalArticles, articleBucket(fs[model.FeatTotalArticles]))
		add(DimUnknownSourceRatio, unknownBucket(fs[model.FeatUnknownSourceRatio]))
		add(DimMaxDomainConcentration, concentrationBucket(fs[model.FeatMaxDomainConcentration]))
	}

	out := make(Stratified, len(groups))
	for dim, buckets := range groups {
		out[dim] = make(map[string]model.Metrics, len(buckets))
		for b, rs := range buckets {
			out[dim][b] = ComputeMetrics(rs)
		}
	}
	return out
}

func articleBucket(v float64) string {
	switch {
	case v <= 0:
		return "0"
	case v <= 3:
		return "1-3"
	case v <= 10:
		return "4-10"
	default:
		return ">10"
	}
}

func unknownBucket(v float64) string {
	switch {
	case v <= 0.2:
		return "0-0.2"
	case v <= 0.5:
		return "0.2-0.5"
	default:
		return ">0.5"
	}
}

func concentrationBucket(v float64) string {
	switch {
	case v <= 0.4:
		return "0-0.4"
	case v <= 0.7:
		return "0.4-0.7"
	default:
		return ">0.7"
	}
}
