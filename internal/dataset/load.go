package dataset

import (
	"context"
	"fmt"

	"github.com/pictolab/pictoreco/internal/engine"
)

// Load performs the one-time bulk load: embeddings from the given source,
// cluster and tag tables from their files, cross-validated into the immutable
// engine structures. Any inconsistency here is a fatal configuration error;
// nothing on the per-request path touches disk or network afterwards.
// Parameters:
//   - ctx: context for the (possibly remote) embedding fetch.
//   - src: embedding table source.
//   - clustersPath: JSON cluster membership table.
//   - tagsPath: optional JSON tag table ("" or missing file means no tags).
//
// Returns:
//   - *engine.EmbeddingStore: normalized vector store.
//   - *engine.ClusterIndex: validated index with cached centroids.
//   - error: non-nil on any load or validation failure.
func Load(ctx context.Context, src EmbeddingSource, clustersPath, tagsPath string) (*engine.EmbeddingStore, *engine.ClusterIndex, error) {
	raw, err := src.LoadEmbeddings(ctx)
	if err != nil {
		return nil, nil, err
	}
	store, err := engine.NewEmbeddingStore(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding table invalid: %w", err)
	}

	members, err := LoadClusterTable(clustersPath)
	if err != nil {
		return nil, nil, err
	}
	tags, err := LoadTagTable(tagsPath)
	if err != nil {
		return nil, nil, err
	}

	index, err := engine.NewClusterIndex(store, members, tags)
	if err != nil {
		return nil, nil, fmt.Errorf("cluster table invalid: %w", err)
	}
	return store, index, nil
}
