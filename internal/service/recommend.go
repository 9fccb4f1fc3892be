package service

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/pictolab/pictoreco/internal/domain"
	"github.com/pictolab/pictoreco/internal/engine"
	"github.com/pictolab/pictoreco/internal/logger"
)

// RecommenderConfig holds the blending parameters for context/persona
// recommendation.
type RecommenderConfig struct {
	// TotalDisplayCards is how many cards one page presents.
	TotalDisplayCards int
	// ContextRatio is the fraction of the page driven by context matching;
	// the rest is persona-driven.
	ContextRatio float64
	// ContextThreshold is the minimum keyword-to-tag similarity for a cluster
	// to participate in context selection.
	ContextThreshold float64
	// MaxContextClusters caps how many clusters context selection draws from.
	MaxContextClusters int
	// MaxPreferredClusters caps the persona's preferred-cluster list.
	MaxPreferredClusters int
}

// Recommender blends context-matched and persona-preferred card selections
// into one presented page, appending every page to the board's history.
type Recommender struct {
	store   *engine.EmbeddingStore
	index   *engine.ClusterIndex
	ledger  *engine.UsageLedger
	sampler *engine.WeightedSampler
	rng     engine.Rand
	scorer  SimilarityScorer
	history *HistoryStore
	log     *logger.Logger
	cfg     RecommenderConfig
}

// NewRecommender wires a recommender to its collaborators.
// Parameters:
//   - store: embedding store (read-only, shared).
//   - index: cluster index (read-only, shared).
//   - ledger: session usage ledger, mutated through the sampler.
//   - sampler: usage-fairness sampler bound to the same ledger.
//   - rng: randomness source for fallbacks and the display shuffle.
//   - scorer: text-similarity oracle for keyword/tag matching.
//   - history: board history store.
//   - log: logger instance.
//   - cfg: blending parameters.
//
// Returns:
//   - *Recommender: initialized recommender.
func NewRecommender(
	store *engine.EmbeddingStore,
	index *engine.ClusterIndex,
	ledger *engine.UsageLedger,
	sampler *engine.WeightedSampler,
	rng engine.Rand,
	scorer SimilarityScorer,
	history *HistoryStore,
	log *logger.Logger,
	cfg RecommenderConfig,
) *Recommender {
	return &Recommender{
		store:   store,
		index:   index,
		ledger:  ledger,
		sampler: sampler,
		rng:     rng,
		scorer:  scorer,
		history: history,
		log:     log,
		cfg:     cfg,
	}
}

// Recommend builds one page of cards for a board from the persona and the
// situational context, appends it to the board's history and returns it.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - persona: the user's declared preferences; may be nil.
//   - bctx: situational signal; may be nil.
//   - boardID: board whose history receives the page.
//
// Returns:
//   - *domain.RecommendationPage: the appended page with display-shuffled items.
//   - error: non-nil on history persistence failure.
func (r *Recommender) Recommend(ctx context.Context, persona *domain.Persona, bctx *domain.BoardContext, boardID string) (*domain.RecommendationPage, error) {
	start := time.Now()

	contextTarget := int(math.Floor(float64(r.cfg.TotalDisplayCards) * r.cfg.ContextRatio))
	personaTarget := int(math.Floor(float64(r.cfg.TotalDisplayCards) * (1 - r.cfg.ContextRatio)))

	chosen := make(map[string]struct{}, r.cfg.TotalDisplayCards)

	contextPicks := r.contextSelect(ctx, bctx, contextTarget, chosen)
	personaPicks := r.personaSelect(persona, personaTarget, chosen)

	// Merge: context first, then persona, dedup, cap at the page size
	merged := make([]string, 0, r.cfg.TotalDisplayCards)
	seen := make(map[string]struct{}, r.cfg.TotalDisplayCards)
	for _, id := range append(contextPicks, personaPicks...) {
		if _, dup := seen[id]; dup {
			continue
		}
		if len(merged) >= r.cfg.TotalDisplayCards {
			break
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}

	// Top up with uniform-random items excluding everything already chosen
	if missing := r.cfg.TotalDisplayCards - len(merged); missing > 0 {
		merged = append(merged, r.uniformDraw(missing, seen)...)
	}

	// Presentation order only; usage counters are untouched by the shuffle
	r.rng.Shuffle(len(merged), func(i, j int) {
		merged[i], merged[j] = merged[j], merged[i]
	})

	page, err := r.history.AppendPage(ctx, boardID, merged)
	if err != nil {
		return nil, err
	}

	r.log.WithFields(logger.Fields{
		logger.FieldBoardID:    boardID,
		logger.FieldPage:       page.PageNumber,
		logger.FieldCount:      len(merged),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info("Recommendation page assembled")

	return page, nil
}

// clusterMatch pairs a cluster with its best keyword-to-tag similarity.
type clusterMatch struct {
	clusterID int
	score     float64
}

// contextSelect picks up to target cards from clusters whose topic tags match
// the context keywords, allocating per-cluster quotas proportional to match
// score. Falls back to a uniform draw when there are no keywords or no
// cluster clears the threshold.
func (r *Recommender) contextSelect(ctx context.Context, bctx *domain.BoardContext, target int, chosen map[string]struct{}) []string {
	if target <= 0 {
		return nil
	}

	var keywords []string
	if bctx != nil {
		keywords = bctx.Keywords()
	}
	if len(keywords) == 0 {
		return r.uniformDraw(target, chosen)
	}

	var matches []clusterMatch
	for _, cid := range r.index.IDs() {
		cluster, _ := r.index.Cluster(cid)
		if len(cluster.Tags) == 0 {
			continue
		}
		best := 0.0
		for _, kw := range keywords {
			for _, tag := range cluster.Tags {
				score, err := r.scorer.Score(ctx, kw, tag)
				if err != nil {
					continue
				}
				if score > best {
					best = score
				}
			}
		}
		if best >= r.cfg.ContextThreshold {
			matches = append(matches, clusterMatch{clusterID: cid, score: best})
		}
	}
	if len(matches) == 0 {
		return r.uniformDraw(target, chosen)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].clusterID < matches[j].clusterID
	})
	if len(matches) > r.cfg.MaxContextClusters {
		matches = matches[:r.cfg.MaxContextClusters]
	}

	totalScore := 0.0
	for _, m := range matches {
		totalScore += m.score
	}

	var picks []string
	for _, m := range matches {
		if len(picks) >= target {
			break
		}
		cluster, _ := r.index.Cluster(m.clusterID)
		quota := int(math.Round(m.score / totalScore * float64(target)))
		if quota < 1 {
			quota = 1
		}
		if quota > len(cluster.Members) {
			quota = len(cluster.Members)
		}
		for i := 0; i < quota && len(picks) < target; i++ {
			cands := availableIn(cluster, chosen)
			if len(cands) == 0 {
				break
			}
			id := r.sampler.Pick(cands)
			chosen[id] = struct{}{}
			picks = append(picks, id)
		}
	}
	return picks
}

// personaSelect round-robins across the persona's preferred clusters, one new
// card per cycle step, until the target is met or every preferred cluster is
// exhausted. Falls back to a uniform draw without declared preferences.
func (r *Recommender) personaSelect(persona *domain.Persona, target int, chosen map[string]struct{}) []string {
	if target <= 0 {
		return nil
	}

	// Client-supplied ids: drop unknown clusters and duplicates. Duplicates
	// would stall the exhaustion check below, since it counts distinct ids.
	var preferred []int
	if persona != nil {
		seen := make(map[int]bool, len(persona.PreferredClusters))
		for _, cid := range persona.PreferredClusters {
			if _, ok := r.index.Cluster(cid); ok && !seen[cid] {
				seen[cid] = true
				preferred = append(preferred, cid)
			}
			if len(preferred) >= r.cfg.MaxPreferredClusters {
				break
			}
		}
	}
	if len(preferred) == 0 {
		return r.uniformDraw(target, chosen)
	}

	var picks []string
	exhausted := make(map[int]bool, len(preferred))
	for i := 0; len(picks) < target && len(exhausted) < len(preferred); i++ {
		cid := preferred[i%len(preferred)]
		if exhausted[cid] {
			continue
		}
		cluster, _ := r.index.Cluster(cid)
		cands := availableIn(cluster, chosen)
		if len(cands) == 0 {
			exhausted[cid] = true
			continue
		}
		id := r.sampler.Pick(cands)
		chosen[id] = struct{}{}
		picks = append(picks, id)
	}
	return picks
}

// uniformDraw picks n distinct cards uniformly from the universe, excluding
// already-chosen ones. Uniform draws still record usage, so the fairness
// invariant (item and cluster counters move together on every pick) holds on
// the fallback path too.
func (r *Recommender) uniformDraw(n int, chosen map[string]struct{}) []string {
	pool := make([]string, 0, r.store.Len())
	for _, id := range r.store.IDs() {
		if _, used := chosen[id]; !used {
			pool = append(pool, id)
		}
	}
	r.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if n > len(pool) {
		n = len(pool)
	}

	picks := pool[:n]
	for _, id := range picks {
		chosen[id] = struct{}{}
		if cid, ok := r.index.ClusterOf(id); ok {
			r.ledger.RecordPick(id, cid)
		}
	}
	return picks
}

// availableIn lists a cluster's members not yet chosen this page.
func availableIn(cluster *engine.Cluster, chosen map[string]struct{}) []string {
	out := make([]string, 0, len(cluster.Members))
	for _, id := range cluster.Members {
		if _, used := chosen[id]; !used {
			out = append(out, id)
		}
	}
	return out
}

// Stats summarizes the engine's state for the stats endpoint.
type Stats struct {
	Items        int `json:"items"`
	Clusters     int `json:"clusters"`
	TotalPicks   int `json:"total_picks"`
	HistoryPages int `json:"history_pages"`
}

// GetStats returns current engine counters.
func (r *Recommender) GetStats() *Stats {
	return &Stats{
		Items:        r.store.Len(),
		Clusters:     r.index.Count(),
		TotalPicks:   r.ledger.TotalPicks(),
		HistoryPages: r.history.TotalPages(),
	}
}
