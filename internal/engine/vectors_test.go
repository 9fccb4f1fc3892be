package engine

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	v, err := Normalize(Vector{3, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Norm(v); math.Abs(got-1.0) > 1e-6 {
		t.Errorf("expected unit norm, got %f", got)
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("unexpected direction: %v", v)
	}

	if _, err := Normalize(Vector{0, 0, 0}); err == nil {
		t.Error("expected error for zero vector")
	}
}

func TestNewEmbeddingStore(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string][]float32
		wantErr bool
	}{
		{
			name: "valid",
			raw: map[string][]float32{
				"a": {1, 0},
				"b": {0, 2},
			},
		},
		{
			name:    "empty table",
			raw:     map[string][]float32{},
			wantErr: true,
		},
		{
			name: "dimension mismatch",
			raw: map[string][]float32{
				"a": {1, 0},
				"b": {0, 1, 0},
			},
			wantErr: true,
		},
		{
			name: "zero vector",
			raw: map[string][]float32{
				"a": {0, 0},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewEmbeddingStore(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store.Len() != len(tt.raw) {
				t.Errorf("expected %d items, got %d", len(tt.raw), store.Len())
			}
			for _, id := range store.IDs() {
				vec, ok := store.Vector(id)
				if !ok {
					t.Fatalf("missing vector for %s", id)
				}
				if got := Norm(vec); math.Abs(got-1.0) > 1e-6 {
					t.Errorf("vector %s not unit length: %f", id, got)
				}
			}
		})
	}
}

func TestEmbeddingStoreSimilarity(t *testing.T) {
	store, err := NewEmbeddingStore(map[string][]float32{
		"x": {1, 0},
		"y": {0, 1},
		"z": {5, 0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sim, err := store.Similarity("x", "z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(sim-1.0) > 1e-6 {
		t.Errorf("parallel vectors should score 1, got %f", sim)
	}

	sim, err = store.Similarity("x", "y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(sim) > 1e-6 {
		t.Errorf("orthogonal vectors should score 0, got %f", sim)
	}

	if _, err := store.Similarity("x", "missing"); err == nil {
		t.Error("expected error for unknown item")
	}
}
