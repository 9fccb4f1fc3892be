package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/pictolab/pictoreco/internal/domain"
	"github.com/pictolab/pictoreco/internal/engine"
	"github.com/pictolab/pictoreco/internal/logger"
)

// stubScorer returns canned scores for keyword|tag pairs and 0 otherwise.
type stubScorer struct {
	scores map[string]float64
}

func (s *stubScorer) Score(_ context.Context, a, b string) (float64, error) {
	return s.scores[a+"|"+b], nil
}

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "text", Output: io.Discard})
}

// recommenderFixture is a 9-card universe over three topic clusters.
type recommenderFixture struct {
	store  *engine.EmbeddingStore
	index  *engine.ClusterIndex
	ledger *engine.UsageLedger
}

func newRecommenderFixture(t *testing.T) *recommenderFixture {
	t.Helper()

	raw := map[string][]float32{
		"food-1": {1, 0, 0}, "food-2": {0.9, 0.1, 0}, "food-3": {0.95, 0, 0.05},
		"drink-1": {0, 1, 0}, "drink-2": {0.1, 0.9, 0}, "drink-3": {0, 0.95, 0.05},
		"travel-1": {0, 0, 1}, "travel-2": {0, 0.1, 0.9}, "travel-3": {0.05, 0, 0.95},
	}
	store, err := engine.NewEmbeddingStore(raw)
	if err != nil {
		t.Fatalf("NewEmbeddingStore failed: %v", err)
	}

	members := map[int][]string{
		0: {"food-1", "food-2", "food-3"},
		1: {"drink-1", "drink-2", "drink-3"},
		2: {"travel-1", "travel-2", "travel-3"},
	}
	tags := map[int][]string{
		0: {"food", "meal"},
		1: {"drink", "beverage"},
		2: {"travel", "trip"},
	}
	index, err := engine.NewClusterIndex(store, members, tags)
	if err != nil {
		t.Fatalf("NewClusterIndex failed: %v", err)
	}

	return &recommenderFixture{
		store:  store,
		index:  index,
		ledger: engine.NewUsageLedger(),
	}
}

func (f *recommenderFixture) recommender(seed int64, scorer SimilarityScorer, cfg RecommenderConfig) *Recommender {
	rng := engine.NewRand(seed)
	sampler := engine.NewWeightedSampler(f.ledger, f.index, rng)
	history := NewHistoryStore(nil)
	return NewRecommender(f.store, f.index, f.ledger, sampler, rng, scorer, history, testLogger(), cfg)
}

func defaultRecommenderConfig(total int) RecommenderConfig {
	return RecommenderConfig{
		TotalDisplayCards:    total,
		ContextRatio:         0.5,
		ContextThreshold:     0.4,
		MaxContextClusters:   5,
		MaxPreferredClusters: 5,
	}
}

func TestRecommendPageSizeAndUniqueness(t *testing.T) {
	f := newRecommenderFixture(t)
	r := f.recommender(42, &stubScorer{}, defaultRecommenderConfig(6))

	page, err := r.Recommend(context.Background(), nil, nil, "board-1")
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(page.Items) != 6 {
		t.Fatalf("expected 6 items, got %d", len(page.Items))
	}
	seen := make(map[string]struct{})
	for _, id := range page.Items {
		if !f.store.Contains(id) {
			t.Errorf("item %s is not in the universe", id)
		}
		if _, dup := seen[id]; dup {
			t.Errorf("item %s appears twice in one page", id)
		}
		seen[id] = struct{}{}
	}
}

func TestRecommendContextMatching(t *testing.T) {
	f := newRecommenderFixture(t)
	scorer := &stubScorer{scores: map[string]float64{
		"eating|food": 0.9,
		"eating|meal": 0.8,
	}}
	r := f.recommender(7, scorer, defaultRecommenderConfig(4))

	bctx := &domain.BoardContext{Place: "kitchen", Activity: "eating"}
	page, err := r.Recommend(context.Background(), nil, bctx, "board-1")
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	// contextTarget = floor(4*0.5) = 2, all from the food cluster
	foodCount := 0
	for _, id := range page.Items {
		if cid, _ := f.index.ClusterOf(id); cid == 0 {
			foodCount++
		}
	}
	if foodCount < 2 {
		t.Errorf("expected at least 2 food-cluster items on the page, got %d", foodCount)
	}
}

func TestRecommendContextBelowThreshold(t *testing.T) {
	f := newRecommenderFixture(t)
	scorer := &stubScorer{scores: map[string]float64{
		"eating|food": 0.2, // below the 0.4 threshold
	}}
	r := f.recommender(7, scorer, defaultRecommenderConfig(4))

	bctx := &domain.BoardContext{Activity: "eating"}
	page, err := r.Recommend(context.Background(), nil, bctx, "board-1")
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	// Fallback path still fills the page
	if len(page.Items) != 4 {
		t.Fatalf("expected 4 items from the uniform fallback, got %d", len(page.Items))
	}
}

func TestRecommendPersonaPreferredClusters(t *testing.T) {
	f := newRecommenderFixture(t)
	cfg := defaultRecommenderConfig(3)
	cfg.ContextRatio = 0 // persona-only page
	r := f.recommender(11, &stubScorer{}, cfg)

	persona := &domain.Persona{ID: "p-1", PreferredClusters: []int{1}}
	page, err := r.Recommend(context.Background(), persona, nil, "board-1")
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(page.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(page.Items))
	}
	for _, id := range page.Items {
		if cid, _ := f.index.ClusterOf(id); cid != 1 {
			t.Errorf("item %s is from cluster %d, expected the preferred cluster 1", id, cid)
		}
	}
}

func TestRecommendPersonaRoundRobin(t *testing.T) {
	f := newRecommenderFixture(t)
	cfg := defaultRecommenderConfig(4)
	cfg.ContextRatio = 0
	r := f.recommender(19, &stubScorer{}, cfg)

	persona := &domain.Persona{ID: "p-1", PreferredClusters: []int{0, 2}}
	page, err := r.Recommend(context.Background(), persona, nil, "board-1")
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	perCluster := map[int]int{}
	for _, id := range page.Items {
		cid, _ := f.index.ClusterOf(id)
		perCluster[cid]++
	}
	// Alternating draws give two items from each preferred cluster
	if perCluster[0] != 2 || perCluster[2] != 2 {
		t.Errorf("expected 2 items from each preferred cluster, got %v", perCluster)
	}
}

func TestRecommendDuplicatePreferredClusters(t *testing.T) {
	f := newRecommenderFixture(t)
	cfg := defaultRecommenderConfig(4)
	cfg.ContextRatio = 0
	r := f.recommender(29, &stubScorer{}, cfg)

	// A repeated cluster id must not stall selection once its 3 cards run
	// out before the target of 4 is met
	persona := &domain.Persona{ID: "p-1", PreferredClusters: []int{1, 1}}

	done := make(chan struct{})
	var page *domain.RecommendationPage
	var err error
	go func() {
		page, err = r.Recommend(context.Background(), persona, nil, "board-1")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Recommend did not return with duplicate preferred cluster ids")
	}

	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(page.Items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(page.Items))
	}
	fromPreferred := 0
	for _, id := range page.Items {
		if cid, _ := f.index.ClusterOf(id); cid == 1 {
			fromPreferred++
		}
	}
	if fromPreferred != 3 {
		t.Errorf("expected all 3 cards of the preferred cluster, got %d", fromPreferred)
	}
}

func TestRecommendInvalidPreferredClustersIgnored(t *testing.T) {
	f := newRecommenderFixture(t)
	cfg := defaultRecommenderConfig(2)
	cfg.ContextRatio = 0
	r := f.recommender(23, &stubScorer{}, cfg)

	persona := &domain.Persona{ID: "p-1", PreferredClusters: []int{99, -1}}
	page, err := r.Recommend(context.Background(), persona, nil, "board-1")
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected uniform fallback to fill 2 items, got %d", len(page.Items))
	}
}

func TestRecommendSmallUniverse(t *testing.T) {
	f := newRecommenderFixture(t)
	r := f.recommender(5, &stubScorer{}, defaultRecommenderConfig(20))

	page, err := r.Recommend(context.Background(), nil, nil, "board-1")
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	// Universe has only 9 cards; the page is short rather than padded
	if len(page.Items) != 9 {
		t.Fatalf("expected all 9 universe cards, got %d", len(page.Items))
	}
}

func TestRecommendAppendsHistory(t *testing.T) {
	f := newRecommenderFixture(t)
	r := f.recommender(31, &stubScorer{}, defaultRecommenderConfig(4))

	ctx := context.Background()
	for want := 1; want <= 3; want++ {
		page, err := r.Recommend(ctx, nil, nil, "board-1")
		if err != nil {
			t.Fatalf("Recommend failed on page %d: %v", want, err)
		}
		if page.PageNumber != want {
			t.Fatalf("expected page number %d, got %d", want, page.PageNumber)
		}
		stored, err := r.history.GetPage(ctx, "board-1", want)
		if err != nil {
			t.Fatalf("GetPage(%d) failed: %v", want, err)
		}
		if len(stored.Items) != len(page.Items) {
			t.Errorf("stored page %d has %d items, response had %d", want, len(stored.Items), len(page.Items))
		}
	}
}

func TestRecommendRecordsEveryPick(t *testing.T) {
	f := newRecommenderFixture(t)
	r := f.recommender(37, &stubScorer{}, defaultRecommenderConfig(6))

	page, err := r.Recommend(context.Background(), nil, nil, "board-1")
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	if got := f.ledger.TotalPicks(); got != len(page.Items) {
		t.Errorf("ledger has %d picks, page has %d items", got, len(page.Items))
	}
	for _, id := range page.Items {
		if f.ledger.ItemCount(id) != 1 {
			t.Errorf("item %s count = %d, expected 1", id, f.ledger.ItemCount(id))
		}
	}
}

func TestRecommendDeterministicWithSeed(t *testing.T) {
	run := func() []string {
		f := newRecommenderFixture(t)
		r := f.recommender(1234, &stubScorer{}, defaultRecommenderConfig(5))
		page, err := r.Recommend(context.Background(), nil, nil, "board-1")
		if err != nil {
			t.Fatalf("Recommend failed: %v", err)
		}
		return page.Items
	}

	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("runs produced different sizes: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("runs diverged at position %d: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestGetStats(t *testing.T) {
	f := newRecommenderFixture(t)
	r := f.recommender(41, &stubScorer{}, defaultRecommenderConfig(4))

	if _, err := r.Recommend(context.Background(), nil, nil, "board-1"); err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	stats := r.GetStats()
	if stats.Items != 9 || stats.Clusters != 3 {
		t.Errorf("unexpected universe stats: %+v", stats)
	}
	if stats.TotalPicks != 4 || stats.HistoryPages != 1 {
		t.Errorf("unexpected activity stats: %+v", stats)
	}
}
