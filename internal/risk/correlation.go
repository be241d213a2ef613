package risk

import "cautious-pancake/internal/domain"

// CorrelationFn estimates the correlation between two symbols. It is a seam
// so the manager can swap the heuristic for a statistical estimator later.
type CorrelationFn func(a, b string) float64

// TieredCorrelation is the default estimator. Without return history to
// regress on it buckets pairs into three tiers: identical assets correlate
// fully, two major assets correlate strongly, anything else weakly.
func TieredCorrelation(a, b string) float64 {
	baseA := domain.BaseAsset(a)
	baseB := domain.BaseAsset(b)
	if baseA == baseB {
		return 1.0
	}
	if domain.MajorAssets[baseA] && domain.MajorAssets[baseB] {
		return 0.8
	}
	return 0.3
}
