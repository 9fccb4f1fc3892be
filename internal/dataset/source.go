package dataset

import "context"

// EmbeddingSource supplies the complete embedding table for the one-time bulk
// load. Implementations exist for JSON table files and for a Qdrant
// collection; either way the engine consumes an immutable snapshot.
type EmbeddingSource interface {
	// LoadEmbeddings returns the full item ID -> vector table.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	// Returns:
	//   - map[string][]float32: one fused vector per item.
	//   - error: non-nil if the source cannot produce the table.
	LoadEmbeddings(ctx context.Context) (map[string][]float32, error)
}
