package engine

import (
	"fmt"
	"sort"
)

// AssemblerConfig holds the tuning parameters of the layered sampling
// algorithm. The probability gates and shortlist heuristics are inherited
// values, not derived ones; they are exposed here as tunables but the defaults
// must stay put for the generated distribution to keep its shape.
type AssemblerConfig struct {
	// MinSize and MaxSize bound the requested combination size.
	MinSize int
	MaxSize int
	// SimilarPassProbability gates the draw from clusters similar to the base.
	SimilarPassProbability float64
	// DissimilarPassProbability gates the draw from a dissimilar cluster.
	DissimilarPassProbability float64
	// DissimilarThreshold is the centroid similarity below which a cluster
	// counts as dissimilar to the base.
	DissimilarThreshold float64
	// MinSimilarityFloor filters anti-similar candidates so a combination is
	// never padded with totally unrelated noise. Waived when nothing passes.
	MinSimilarityFloor float64
	// ShortlistMin is the minimum shortlist size for the prefer-similar pass.
	ShortlistMin int
	// TopSimilarClusters is how many of the most similar clusters the similar
	// pass chooses between.
	TopSimilarClusters int
}

// DefaultAssemblerConfig returns the inherited tuning values.
func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		MinSize:                   1,
		MaxSize:                   4,
		SimilarPassProbability:    0.7,
		DissimilarPassProbability: 0.5,
		DissimilarThreshold:       0.5,
		MinSimilarityFloor:        0.3,
		ShortlistMin:              3,
		TopSimilarClusters:        3,
	}
}

// CombinationAssembler builds one multi-card combination by seeding from a
// fairly-chosen base cluster, then layering similar and dissimilar draws.
// Used for synthetic dataset generation, where no persona or context signal
// exists; all fairness comes from the shared ledger behind the sampler.
type CombinationAssembler struct {
	store   *EmbeddingStore
	index   *ClusterIndex
	sampler *WeightedSampler
	rng     Rand
	cfg     AssemblerConfig
}

// NewCombinationAssembler wires an assembler to its collaborators.
// Parameters:
//   - store: embedding store for pairwise similarity.
//   - index: cluster index with cached centroids.
//   - sampler: usage-fairness sampler (shares the ledger to mutate).
//   - rng: randomness source for gates and uniform choices.
//   - cfg: tuning parameters; zero probabilities disable their passes.
//
// Returns:
//   - *CombinationAssembler: ready-to-use assembler.
func NewCombinationAssembler(store *EmbeddingStore, index *ClusterIndex, sampler *WeightedSampler, rng Rand, cfg AssemblerConfig) *CombinationAssembler {
	return &CombinationAssembler{
		store:   store,
		index:   index,
		sampler: sampler,
		rng:     rng,
		cfg:     cfg,
	}
}

// Assemble builds one combination of up to targetSize distinct cards.
// The result can be shorter than requested only when the universe is
// exhausted; that is graceful degradation, not an error.
// Parameters:
//   - targetSize: requested combination length, within [MinSize, MaxSize].
//
// Returns:
//   - []string: ordered card IDs, len in [1, targetSize].
//   - error: non-nil only for an out-of-bounds targetSize.
func (a *CombinationAssembler) Assemble(targetSize int) ([]string, error) {
	if targetSize < a.cfg.MinSize || targetSize > a.cfg.MaxSize {
		return nil, fmt.Errorf("target size %d outside [%d, %d]", targetSize, a.cfg.MinSize, a.cfg.MaxSize)
	}

	selected := make([]string, 0, targetSize)
	chosen := make(map[string]struct{}, targetSize)
	drawnFrom := make(map[int]struct{})

	// Step 1: base cluster by weighted-fair sampling over cluster usage
	base := a.sampler.PickCluster(a.index.IDs())
	drawnFrom[base] = struct{}{}

	// Step 2: base draw, no inter-item similarity bias
	for i := 0; i < a.baseCount(targetSize); i++ {
		cands := a.available(base, chosen)
		if len(cands) == 0 {
			break
		}
		a.take(a.sampler.Pick(cands), &selected, chosen)
	}

	// Step 3: prefer-similar pass
	if len(selected) < targetSize && a.rng.Float64() < a.cfg.SimilarPassProbability {
		if ranked, err := a.index.RankSimilarClusters(base); err == nil && len(ranked) > 0 {
			top := ranked
			if len(top) > a.cfg.TopSimilarClusters {
				top = top[:a.cfg.TopSimilarClusters]
			}
			cluster := top[a.rng.Intn(len(top))].ClusterID
			drawnFrom[cluster] = struct{}{}

			extra := a.rng.Intn(3) // 0..2
			if remain := targetSize - len(selected); extra > remain {
				extra = remain
			}
			for i := 0; i < extra; i++ {
				cands := a.available(cluster, chosen)
				if len(cands) == 0 {
					break
				}
				a.take(a.sampler.Pick(a.similarShortlist(cands, selected)), &selected, chosen)
			}
		}
	}

	// Step 4: prefer-dissimilar pass
	if len(selected) < targetSize && a.rng.Float64() < a.cfg.DissimilarPassProbability {
		if diss, err := a.index.DissimilarClusters(base, a.cfg.DissimilarThreshold); err == nil && len(diss) > 0 {
			cluster := diss[a.rng.Intn(len(diss))].ClusterID
			drawnFrom[cluster] = struct{}{}

			if cands := a.available(cluster, chosen); len(cands) > 0 {
				a.take(a.sampler.Pick(a.floorFilter(cands, selected)), &selected, chosen)
			}
		}
	}

	// Step 5: widen over clusters not yet drawn from, one card per iteration
	for len(selected) < targetSize {
		rest := a.undrawnWithAvailable(drawnFrom, chosen)
		if len(rest) == 0 {
			break
		}
		cluster := rest[a.rng.Intn(len(rest))]
		drawnFrom[cluster] = struct{}{}

		cands := a.available(cluster, chosen)
		a.take(a.sampler.Pick(a.floorFilter(cands, selected)), &selected, chosen)
	}

	if len(selected) > targetSize {
		selected = selected[:targetSize]
	}
	return selected, nil
}

// baseCount implements the base-draw size rule.
func (a *CombinationAssembler) baseCount(targetSize int) int {
	switch {
	case targetSize == 1:
		return 1
	case targetSize == 4:
		return 1 + a.rng.Intn(min(2, targetSize))
	default:
		return 1 + a.rng.Intn(min(3, targetSize))
	}
}

func (a *CombinationAssembler) take(id string, selected *[]string, chosen map[string]struct{}) {
	if id == "" {
		return
	}
	*selected = append(*selected, id)
	chosen[id] = struct{}{}
}

// available returns the cluster's members not yet in the combination.
func (a *CombinationAssembler) available(cluster int, chosen map[string]struct{}) []string {
	c, ok := a.index.Cluster(cluster)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(c.Members))
	for _, id := range c.Members {
		if _, used := chosen[id]; !used {
			out = append(out, id)
		}
	}
	return out
}

// undrawnWithAvailable lists clusters not drawn from yet that still hold an
// unselected item.
func (a *CombinationAssembler) undrawnWithAvailable(drawnFrom map[int]struct{}, chosen map[string]struct{}) []int {
	var out []int
	for _, id := range a.index.IDs() {
		if _, done := drawnFrom[id]; done {
			continue
		}
		if len(a.available(id, chosen)) > 0 {
			out = append(out, id)
		}
	}
	return out
}

// meanSimilarity averages an item's pairwise similarity to the current
// selection. An empty selection scores 0.
func (a *CombinationAssembler) meanSimilarity(id string, selected []string) float64 {
	if len(selected) == 0 {
		return 0
	}
	var sum float64
	for _, other := range selected {
		sim, err := a.store.Similarity(id, other)
		if err != nil {
			continue
		}
		sum += sim
	}
	return sum / float64(len(selected))
}

// similarShortlist ranks candidates by mean pairwise similarity to the current
// selection and keeps the top half, but never fewer than ShortlistMin.
func (a *CombinationAssembler) similarShortlist(cands, selected []string) []string {
	sorted := make([]string, len(cands))
	copy(sorted, cands)
	sims := make(map[string]float64, len(cands))
	for _, id := range cands {
		sims[id] = a.meanSimilarity(id, selected)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sims[sorted[i]] > sims[sorted[j]]
	})

	keep := len(sorted) / 2
	if keep < a.cfg.ShortlistMin {
		keep = a.cfg.ShortlistMin
	}
	if keep > len(sorted) {
		keep = len(sorted)
	}
	return sorted[:keep]
}

// floorFilter drops candidates whose mean similarity to the selection falls
// below the minimum floor. When everything falls below it, the filter is
// waived rather than returning an empty pool.
func (a *CombinationAssembler) floorFilter(cands, selected []string) []string {
	if len(selected) == 0 {
		return cands
	}
	kept := make([]string, 0, len(cands))
	for _, id := range cands {
		if a.meanSimilarity(id, selected) >= a.cfg.MinSimilarityFloor {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		return cands
	}
	return kept
}
