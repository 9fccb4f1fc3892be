package engine

import (
	"math"
	"testing"
)

func TestFairWeights(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   []float64
	}{
		{
			name:   "all at minimum",
			counts: []int{2, 2, 2},
			want:   []float64{10, 10, 10},
		},
		{
			name:   "staircase",
			counts: []int{0, 1, 2, 3},
			want:   []float64{10, 5, 1.0 / 3, 0.25},
		},
		{
			name:   "min not first",
			counts: []int{5, 3, 4},
			want:   []float64{1.0 / 3, 10, 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fairWeights(tt.counts)
			if len(got) != len(tt.want) {
				t.Fatalf("length %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("weight[%d] = %f, want %f", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPickRecordsUsageAtomically(t *testing.T) {
	_, index := testUniverse(t)
	ledger := NewUsageLedger()
	sampler := NewWeightedSampler(ledger, index, NewRand(1))

	candidates := []string{"food-1", "food-2", "drink-1"}
	picked := sampler.Pick(candidates)
	if picked == "" {
		t.Fatal("expected a pick")
	}

	if got := ledger.ItemCount(picked); got != 1 {
		t.Errorf("item count = %d, want 1", got)
	}
	owner, _ := index.ClusterOf(picked)
	if got := ledger.ClusterCount(owner); got != 1 {
		t.Errorf("cluster count = %d, want 1", got)
	}
	if got := ledger.TotalPicks(); got != 1 {
		t.Errorf("total picks = %d, want 1", got)
	}
}

func TestPickEmptyCandidates(t *testing.T) {
	_, index := testUniverse(t)
	sampler := NewWeightedSampler(NewUsageLedger(), index, NewRand(1))

	if got := sampler.Pick(nil); got != "" {
		t.Errorf("expected empty result for empty candidates, got %q", got)
	}
	if got := sampler.PickCluster(nil); got != -1 {
		t.Errorf("expected -1 for empty cluster candidates, got %d", got)
	}
}

func TestPickPrefersLeastUsed(t *testing.T) {
	_, index := testUniverse(t)
	ledger := NewUsageLedger()
	sampler := NewWeightedSampler(ledger, index, NewRand(7))

	// Push one candidate far ahead
	for i := 0; i < 10; i++ {
		ledger.RecordPick("food-1", 0)
	}

	candidates := []string{"food-1", "food-2"}
	aheadPicks := 0
	const trials = 500
	for i := 0; i < trials; i++ {
		// Count without letting the trial itself equalize usage
		counts := ledger.ItemCounts(candidates)
		weights := fairWeights(counts)
		if candidates[sampler.drawIndex(weights)] == "food-1" {
			aheadPicks++
		}
	}

	// weight ratio is 10 : 1/11, so the ahead item should almost never win
	if aheadPicks > trials/10 {
		t.Errorf("over-used candidate picked %d/%d times", aheadPicks, trials)
	}
}

// coefficientOfVariation of usage counts over a fixed pool.
func coefficientOfVariation(counts []int) float64 {
	var sum float64
	for _, c := range counts {
		sum += float64(c)
	}
	mean := sum / float64(len(counts))
	if mean == 0 {
		return 0
	}
	var sq float64
	for _, c := range counts {
		d := float64(c) - mean
		sq += d * d
	}
	return math.Sqrt(sq/float64(len(counts))) / mean
}

func TestFairnessConvergence(t *testing.T) {
	_, index := testUniverse(t)
	ledger := NewUsageLedger()
	sampler := NewWeightedSampler(ledger, index, NewRand(42))

	pool := []string{
		"food-1", "food-2", "food-3",
		"drink-1", "drink-2", "drink-3",
		"travel-1", "travel-2", "travel-3",
	}

	cvAt := func(n int) float64 {
		for ledger.TotalPicks() < n {
			sampler.Pick(pool)
		}
		return coefficientOfVariation(ledger.ItemCounts(pool))
	}

	early := cvAt(90)
	late := cvAt(1800)

	if late >= early && early > 0 {
		t.Errorf("usage spread did not tighten: cv(90)=%f cv(1800)=%f", early, late)
	}
	if late > 0.15 {
		t.Errorf("usage distribution still uneven after many picks: cv=%f", late)
	}
}
