package engine

import (
	"fmt"
	"sort"
)

// Cluster is one static partition of the card universe: an integer ID, its
// member card IDs, a centroid cached at load time, and optional topic tags.
type Cluster struct {
	ID       int
	Members  []string
	Centroid Vector
	Tags     []string
}

// ClusterScore pairs a cluster ID with a centroid similarity score.
type ClusterScore struct {
	ClusterID int     `json:"cluster_id"`
	Score     float64 `json:"score"`
}

// ClusterIndex is the immutable partition of all items into contiguous
// numbered clusters. Centroids are computed once here, never per query.
type ClusterIndex struct {
	clusters []Cluster
	byItem   map[string]int
}

// NewClusterIndex validates the cluster table against the embedding store and
// caches a renormalized centroid per cluster.
// Parameters:
//   - store: embedding store holding every member's vector.
//   - members: cluster ID -> member card IDs; IDs must be contiguous from 0.
//   - tags: cluster ID -> topic tags; clusters absent from the map have none.
//
// Returns:
//   - *ClusterIndex: immutable index with cached centroids.
//   - error: non-nil for any table inconsistency (fatal configuration error):
//     gaps in cluster numbering, empty clusters, members missing from the
//     store, an item in more than one cluster, or store items left unassigned.
func NewClusterIndex(store *EmbeddingStore, members map[int][]string, tags map[int][]string) (*ClusterIndex, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("cluster table is empty")
	}

	maxID := -1
	for id := range members {
		if id < 0 {
			return nil, fmt.Errorf("negative cluster id %d", id)
		}
		if id > maxID {
			maxID = id
		}
	}
	if maxID+1 != len(members) {
		return nil, fmt.Errorf("cluster ids are not contiguous: have %d clusters, max id %d", len(members), maxID)
	}

	idx := &ClusterIndex{
		clusters: make([]Cluster, maxID+1),
		byItem:   make(map[string]int, store.Len()),
	}

	for id := 0; id <= maxID; id++ {
		items := members[id]
		if len(items) == 0 {
			return nil, fmt.Errorf("cluster %d has no members", id)
		}

		sum := make([]float64, store.Dimension())
		memberIDs := make([]string, 0, len(items))
		for _, item := range items {
			vec, ok := store.Vector(item)
			if !ok {
				return nil, fmt.Errorf("cluster %d references item %q absent from the embedding table", id, item)
			}
			if prev, dup := idx.byItem[item]; dup {
				return nil, fmt.Errorf("item %q assigned to both cluster %d and %d", item, prev, id)
			}
			idx.byItem[item] = id
			memberIDs = append(memberIDs, item)
			for i, x := range vec {
				sum[i] += float64(x)
			}
		}
		sort.Strings(memberIDs)

		mean := make(Vector, len(sum))
		for i, x := range sum {
			mean[i] = float32(x / float64(len(items)))
		}
		// Renormalize so centroids stay comparable via dot product
		centroid, err := Normalize(mean)
		if err != nil {
			return nil, fmt.Errorf("cluster %d centroid is degenerate: %w", id, err)
		}

		idx.clusters[id] = Cluster{
			ID:       id,
			Members:  memberIDs,
			Centroid: centroid,
			Tags:     tags[id],
		}
	}

	if len(idx.byItem) != store.Len() {
		return nil, fmt.Errorf("cluster table covers %d items, embedding table has %d", len(idx.byItem), store.Len())
	}

	return idx, nil
}

// Count returns the number of clusters.
func (x *ClusterIndex) Count() int {
	return len(x.clusters)
}

// Cluster returns the cluster with the given ID.
func (x *ClusterIndex) Cluster(id int) (*Cluster, bool) {
	if id < 0 || id >= len(x.clusters) {
		return nil, false
	}
	return &x.clusters[id], true
}

// ClusterOf returns the cluster ID owning an item.
func (x *ClusterIndex) ClusterOf(item string) (int, bool) {
	id, ok := x.byItem[item]
	return id, ok
}

// IDs returns all cluster IDs in ascending order.
func (x *ClusterIndex) IDs() []int {
	out := make([]int, len(x.clusters))
	for i := range x.clusters {
		out[i] = i
	}
	return out
}

// CentroidSimilarity returns the dot product of two cluster centroids,
// a value in [-1, 1].
func (x *ClusterIndex) CentroidSimilarity(a, b int) (float64, error) {
	ca, ok := x.Cluster(a)
	if !ok {
		return 0, fmt.Errorf("unknown cluster %d", a)
	}
	cb, ok := x.Cluster(b)
	if !ok {
		return 0, fmt.Errorf("unknown cluster %d", b)
	}
	return Dot(ca.Centroid, cb.Centroid), nil
}

// RankSimilarClusters returns every cluster except base, ordered by descending
// centroid similarity to base. Ties break on the lower cluster ID so results
// are stable across calls.
func (x *ClusterIndex) RankSimilarClusters(base int) ([]ClusterScore, error) {
	if _, ok := x.Cluster(base); !ok {
		return nil, fmt.Errorf("unknown cluster %d", base)
	}
	scores := make([]ClusterScore, 0, len(x.clusters)-1)
	for id := range x.clusters {
		if id == base {
			continue
		}
		sim, err := x.CentroidSimilarity(base, id)
		if err != nil {
			return nil, err
		}
		scores = append(scores, ClusterScore{ClusterID: id, Score: sim})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].ClusterID < scores[j].ClusterID
	})
	return scores, nil
}

// DissimilarClusters returns clusters whose centroid similarity to base falls
// below threshold, in no particular order.
func (x *ClusterIndex) DissimilarClusters(base int, threshold float64) ([]ClusterScore, error) {
	if _, ok := x.Cluster(base); !ok {
		return nil, fmt.Errorf("unknown cluster %d", base)
	}
	var out []ClusterScore
	for id := range x.clusters {
		if id == base {
			continue
		}
		sim, err := x.CentroidSimilarity(base, id)
		if err != nil {
			return nil, err
		}
		if sim < threshold {
			out = append(out, ClusterScore{ClusterID: id, Score: sim})
		}
	}
	return out, nil
}
