package service

import (
	"context"
	"testing"
)

func newLexicalEngine() *SimilarityEngine {
	// No API key: the engine runs on the deterministic lexical scorer
	return NewSimilarityEngine(&SimilarityOracleConfig{}, testLogger())
}

func TestSimilarityScoreBaseCases(t *testing.T) {
	e := newLexicalEngine()
	ctx := context.Background()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"empty left", "", "food", 0},
		{"empty right", "food", "", 0},
		{"both empty", "", "", 0},
		{"equal", "food", "food", 1},
		{"equal after normalization", "  Food ", "food", 1},
		{"disjoint", "food", "travel", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Score(ctx, tt.a, tt.b)
			if err != nil {
				t.Fatalf("Score failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Score(%q, %q) = %v, expected %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilarityLexicalOverlap(t *testing.T) {
	e := newLexicalEngine()
	ctx := context.Background()

	// One shared token out of three distinct ones
	score, err := e.Score(ctx, "hot food", "cold food")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score <= 0 || score >= 1 {
		t.Errorf("partial overlap score = %v, expected strictly between 0 and 1", score)
	}

	// Containment boosts the score
	contained, err := e.Score(ctx, "food", "fast food restaurant")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if contained < 0.8 {
		t.Errorf("containment score = %v, expected at least 0.8", contained)
	}
}

func TestSimilarityScoreIsSymmetric(t *testing.T) {
	e := newLexicalEngine()
	ctx := context.Background()

	ab, err := e.Score(ctx, "hot food", "food stand")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	ba, err := e.Score(ctx, "food stand", "hot food")
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if ab != ba {
		t.Errorf("asymmetric scores: %v vs %v", ab, ba)
	}
}

func TestSimilarityCacheBound(t *testing.T) {
	e := NewSimilarityEngine(&SimilarityOracleConfig{CacheSize: 2}, testLogger())
	ctx := context.Background()

	pairs := [][2]string{{"aa", "bb"}, {"cc", "dd"}, {"ee", "ff"}, {"gg", "hh"}}
	for _, p := range pairs {
		if _, err := e.Score(ctx, p[0], p[1]); err != nil {
			t.Fatalf("Score failed: %v", err)
		}
	}

	e.mu.Lock()
	size := len(e.cache)
	e.mu.Unlock()
	if size > 2 {
		t.Errorf("cache grew to %d entries, configured bound is 2", size)
	}
}

func TestSimilarityDisabledWithoutAPIKey(t *testing.T) {
	if newLexicalEngine().IsEnabled() {
		t.Error("engine without an API key should report the oracle disabled")
	}
	withKey := NewSimilarityEngine(&SimilarityOracleConfig{APIKey: "k"}, testLogger())
	if !withKey.IsEnabled() {
		t.Error("engine with an API key should report the oracle enabled")
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosine(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosine = %v, expected %v", got, tt.want)
			}
		})
	}
}
