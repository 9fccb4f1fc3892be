package engine

import (
	"fmt"
	"math"
	"sort"
)

// Vector is one L2-normalized card embedding. Similarity between unit vectors
// is the plain dot product.
type Vector []float32

// Dot returns the dot product of two vectors of equal length.
func Dot(a, b Vector) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm returns the L2 norm of a vector.
func Norm(v Vector) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v. A zero vector cannot be
// normalized and is returned as an error, since it would make every dot
// product meaningless downstream.
func Normalize(v Vector) (Vector, error) {
	n := Norm(v)
	if n == 0 {
		return nil, fmt.Errorf("cannot normalize zero vector")
	}
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out, nil
}

// EmbeddingStore is the immutable map from card ID to its unit-normalized
// fused embedding. It is loaded once at startup and safely shared across
// concurrent requests without locking.
type EmbeddingStore struct {
	dimension int
	vectors   map[string]Vector
	ids       []string
}

// NewEmbeddingStore builds a store from raw vectors, normalizing each one.
// Parameters:
//   - raw: card ID -> embedding vector, all of the same dimension.
//
// Returns:
//   - *EmbeddingStore: immutable store with every vector unit-length.
//   - error: non-nil if raw is empty, dimensions disagree, or a vector is zero.
func NewEmbeddingStore(raw map[string][]float32) (*EmbeddingStore, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("embedding table is empty")
	}

	store := &EmbeddingStore{
		vectors: make(map[string]Vector, len(raw)),
		ids:     make([]string, 0, len(raw)),
	}

	for id, vec := range raw {
		if len(vec) == 0 {
			return nil, fmt.Errorf("item %q has an empty embedding", id)
		}
		if store.dimension == 0 {
			store.dimension = len(vec)
		}
		if len(vec) != store.dimension {
			return nil, fmt.Errorf("item %q has dimension %d, expected %d", id, len(vec), store.dimension)
		}
		unit, err := Normalize(vec)
		if err != nil {
			return nil, fmt.Errorf("item %q: %w", id, err)
		}
		store.vectors[id] = unit
		store.ids = append(store.ids, id)
	}

	// Deterministic iteration order for seeded runs
	sort.Strings(store.ids)

	return store, nil
}

// Vector returns the embedding for a card ID.
func (s *EmbeddingStore) Vector(id string) (Vector, bool) {
	v, ok := s.vectors[id]
	return v, ok
}

// Contains reports whether the store holds an embedding for id.
func (s *EmbeddingStore) Contains(id string) bool {
	_, ok := s.vectors[id]
	return ok
}

// Similarity returns the cosine similarity between two stored items.
// Parameters:
//   - a, b: card IDs present in the store.
//
// Returns:
//   - float64: dot product of the two unit vectors, in [-1, 1].
//   - error: non-nil if either ID is unknown.
func (s *EmbeddingStore) Similarity(a, b string) (float64, error) {
	va, ok := s.vectors[a]
	if !ok {
		return 0, fmt.Errorf("unknown item %q", a)
	}
	vb, ok := s.vectors[b]
	if !ok {
		return 0, fmt.Errorf("unknown item %q", b)
	}
	return Dot(va, vb), nil
}

// IDs returns all card IDs in stable sorted order. The returned slice is a
// copy and safe to mutate.
func (s *EmbeddingStore) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of items in the store.
func (s *EmbeddingStore) Len() int {
	return len(s.ids)
}

// Dimension returns the embedding dimension.
func (s *EmbeddingStore) Dimension() int {
	return s.dimension
}
