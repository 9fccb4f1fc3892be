package engine

import "sync"

// UsageLedger tracks how often each card and each cluster has been picked.
// It is the only mutable state the samplers touch: an item count and its
// cluster count are always incremented together in one RecordPick, never
// independently, so the fairness weighting stays unbiased under concurrent
// requests.
//
// A ledger is an injected handle. Interactive sessions keep one for their
// lifetime (optionally restored from persistence); bulk generation runs start
// from a fresh or Reset ledger.
type UsageLedger struct {
	mu       sync.Mutex
	items    map[string]int
	clusters map[int]int
	picks    int
}

// NewUsageLedger creates an empty ledger.
func NewUsageLedger() *UsageLedger {
	return &UsageLedger{
		items:    make(map[string]int),
		clusters: make(map[int]int),
	}
}

// RecordPick atomically increments the item's and its cluster's counters.
func (l *UsageLedger) RecordPick(itemID string, clusterID int) {
	l.mu.Lock()
	l.items[itemID]++
	l.clusters[clusterID]++
	l.picks++
	l.mu.Unlock()
}

// ItemCount returns the usage count for one item.
func (l *UsageLedger) ItemCount(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items[id]
}

// ClusterCount returns the usage count for one cluster.
func (l *UsageLedger) ClusterCount(id int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clusters[id]
}

// ItemCounts returns the usage counts for a candidate list in order.
func (l *UsageLedger) ItemCounts(ids []string) []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = l.items[id]
	}
	return out
}

// ClusterCounts returns the usage counts for a cluster ID list in order.
func (l *UsageLedger) ClusterCounts(ids []int) []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = l.clusters[id]
	}
	return out
}

// TotalPicks returns the number of RecordPick calls since creation or Reset.
func (l *UsageLedger) TotalPicks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.picks
}

// Reset zeroes every counter. Used at the start of a bulk generation run.
func (l *UsageLedger) Reset() {
	l.mu.Lock()
	l.items = make(map[string]int)
	l.clusters = make(map[int]int)
	l.picks = 0
	l.mu.Unlock()
}

// Snapshot returns copies of both counter maps, for persistence.
func (l *UsageLedger) Snapshot() (items map[string]int, clusters map[int]int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	items = make(map[string]int, len(l.items))
	for k, v := range l.items {
		items[k] = v
	}
	clusters = make(map[int]int, len(l.clusters))
	for k, v := range l.clusters {
		clusters[k] = v
	}
	return items, clusters
}

// Restore replaces the ledger contents with previously snapshotted counts.
func (l *UsageLedger) Restore(items map[string]int, clusters map[int]int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = make(map[string]int, len(items))
	l.picks = 0
	for k, v := range items {
		l.items[k] = v
		l.picks += v
	}
	l.clusters = make(map[int]int, len(clusters))
	for k, v := range clusters {
		l.clusters[k] = v
	}
}
