package engine

// Usage-fairness weights. Candidates at the minimum usage count among the
// candidate set get weightAtMin, those one above it weightNearMin, and
// everything further behind decays as 1/(1+distance). This is a soft policy:
// far-behind items are strongly preferred but never excluded, and ties resolve
// probabilistically rather than deterministically.
const (
	weightAtMin   = 10.0
	weightNearMin = 5.0
)

// WeightedSampler draws single items (or clusters) from candidate sets using
// usage-fairness weights, recording every item pick in the ledger. It holds no
// state of its own beyond its collaborators and is safe for concurrent use.
type WeightedSampler struct {
	ledger *UsageLedger
	index  *ClusterIndex
	rng    Rand
}

// NewWeightedSampler creates a sampler bound to a ledger, cluster index and
// randomness source.
func NewWeightedSampler(ledger *UsageLedger, index *ClusterIndex, rng Rand) *WeightedSampler {
	return &WeightedSampler{ledger: ledger, index: index, rng: rng}
}

// fairWeights maps usage counts to sampling weights relative to the minimum
// count in the set.
func fairWeights(counts []int) []float64 {
	min := counts[0]
	for _, c := range counts[1:] {
		if c < min {
			min = c
		}
	}
	weights := make([]float64, len(counts))
	for i, c := range counts {
		switch c - min {
		case 0:
			weights[i] = weightAtMin
		case 1:
			weights[i] = weightNearMin
		default:
			weights[i] = 1.0 / float64(1+(c-min))
		}
	}
	return weights
}

// drawIndex normalizes weights to a distribution and draws one index from it.
func (s *WeightedSampler) drawIndex(weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	r := s.rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return i
		}
	}
	return len(weights) - 1
}

// Pick selects one item from a non-empty candidate set by usage-fairness
// weighting and records the pick (item and owning cluster counters increment
// together). Callers are responsible for never passing an empty set; the
// sampler does not supply fallbacks.
// Parameters:
//   - candidates: non-empty list of card IDs known to the cluster index.
//
// Returns:
//   - string: the chosen card ID, or "" for an empty candidate set.
func (s *WeightedSampler) Pick(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	counts := s.ledger.ItemCounts(candidates)
	chosen := candidates[s.drawIndex(fairWeights(counts))]
	if cluster, ok := s.index.ClusterOf(chosen); ok {
		s.ledger.RecordPick(chosen, cluster)
	}
	return chosen
}

// PickCluster selects one cluster from a non-empty candidate set using the
// same weighting scheme applied to cluster usage counts. Cluster counters are
// not touched here; they only move when an item pick is recorded.
// Parameters:
//   - candidates: non-empty list of cluster IDs.
//
// Returns:
//   - int: the chosen cluster ID, or -1 for an empty candidate set.
func (s *WeightedSampler) PickCluster(candidates []int) int {
	if len(candidates) == 0 {
		return -1
	}
	counts := s.ledger.ClusterCounts(candidates)
	return candidates[s.drawIndex(fairWeights(counts))]
}
