package engine

import (
	"math"
	"testing"
)

// testUniverse builds a small fixture: three clusters pointing along distinct
// axes with slight in-cluster jitter, so centroid similarities are predictable
// (cluster 0 and 1 are closer to each other than either is to cluster 2).
func testUniverse(t *testing.T) (*EmbeddingStore, *ClusterIndex) {
	t.Helper()

	raw := map[string][]float32{
		"food-1":   {1, 0.1, 0},
		"food-2":   {1, 0.2, 0},
		"food-3":   {1, 0, 0.1},
		"drink-1":  {0.8, 0.6, 0},
		"drink-2":  {0.7, 0.7, 0},
		"drink-3":  {0.9, 0.5, 0.1},
		"travel-1": {0, 0.1, 1},
		"travel-2": {0.1, 0, 1},
		"travel-3": {0, 0, 1},
	}
	store, err := NewEmbeddingStore(raw)
	if err != nil {
		t.Fatalf("store: %v", err)
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
	index, err := NewClusterIndex(store, members, tags)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	return store, index
}

func TestNewClusterIndexValidation(t *testing.T) {
	store, err := NewEmbeddingStore(map[string][]float32{
		"a": {1, 0},
		"b": {0, 1},
	})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	tests := []struct {
		name    string
		members map[int][]string
	}{
		{"empty table", map[int][]string{}},
		{"gap in ids", map[int][]string{0: {"a"}, 2: {"b"}}},
		{"unknown item", map[int][]string{0: {"a"}, 1: {"missing"}}},
		{"duplicate membership", map[int][]string{0: {"a", "b"}, 1: {"b"}}},
		{"uncovered item", map[int][]string{0: {"a"}}},
		{"empty cluster", map[int][]string{0: {"a", "b"}, 1: {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewClusterIndex(store, tt.members, nil); err == nil {
				t.Error("expected configuration error")
			}
		})
	}
}

func TestClusterMembershipInvariant(t *testing.T) {
	store, index := testUniverse(t)

	total := 0
	for _, cid := range index.IDs() {
		c, ok := index.Cluster(cid)
		if !ok {
			t.Fatalf("missing cluster %d", cid)
		}
		total += len(c.Members)
		for _, item := range c.Members {
			owner, ok := index.ClusterOf(item)
			if !ok || owner != cid {
				t.Errorf("item %s: expected owner %d, got %d (ok=%v)", item, cid, owner, ok)
			}
		}
	}
	if total != store.Len() {
		t.Errorf("cluster members sum to %d, universe has %d", total, store.Len())
	}
}

func TestCentroidNormalization(t *testing.T) {
	_, index := testUniverse(t)

	for _, cid := range index.IDs() {
		c, _ := index.Cluster(cid)
		if got := Norm(c.Centroid); math.Abs(got-1.0) > 1e-6 {
			t.Errorf("cluster %d centroid norm = %f, want 1.0", cid, got)
		}
	}
}

func TestRankSimilarClusters(t *testing.T) {
	_, index := testUniverse(t)

	ranked, err := index.RankSimilarClusters(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked clusters, got %d", len(ranked))
	}
	for _, cs := range ranked {
		if cs.ClusterID == 0 {
			t.Error("base cluster must be excluded")
		}
	}
	if ranked[0].Score < ranked[1].Score {
		t.Error("ranking not descending")
	}
	// Drinks share the food axis; travel is orthogonal
	if ranked[0].ClusterID != 1 {
		t.Errorf("expected cluster 1 most similar to 0, got %d", ranked[0].ClusterID)
	}

	if _, err := index.RankSimilarClusters(99); err == nil {
		t.Error("expected error for unknown base")
	}
}

func TestDissimilarClusters(t *testing.T) {
	_, index := testUniverse(t)

	diss, err := index.DissimilarClusters(0, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, cs := range diss {
		if cs.Score >= 0.5 {
			t.Errorf("cluster %d score %f not below threshold", cs.ClusterID, cs.Score)
		}
		if cs.ClusterID == 0 {
			t.Error("base cluster must be excluded")
		}
	}

	found := false
	for _, cs := range diss {
		if cs.ClusterID == 2 {
			found = true
		}
	}
	if !found {
		t.Error("expected orthogonal cluster 2 below threshold")
	}
}

func TestCentroidSimilarityRange(t *testing.T) {
	_, index := testUniverse(t)

	for _, a := range index.IDs() {
		for _, b := range index.IDs() {
			sim, err := index.CentroidSimilarity(a, b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sim < -1.0-1e-9 || sim > 1.0+1e-9 {
				t.Errorf("similarity(%d,%d) = %f out of range", a, b, sim)
			}
		}
	}
}
