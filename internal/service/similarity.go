package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pictolab/pictoreco/internal/logger"
)

const jinaEndpoint = "https://api.jina.ai/v1/embeddings"

// SimilarityScorer computes a similarity score in [0, 1] between two pieces
// of text. The backing model is an opaque oracle.
type SimilarityScorer interface {
	Score(ctx context.Context, a, b string) (float64, error)
}

// SimilarityOracleConfig holds configuration for the similarity engine.
type SimilarityOracleConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
	CacheSize  int
}

// SimilarityEngine scores text pairs by embedding both through an external
// model and taking cosine similarity, clamped to [0, 1]. Scores are cached
// per normalized pair since context keywords and cluster tags repeat heavily.
// Without an API key it degrades to a deterministic lexical scorer, so the
// engine keeps working offline (context matching is then exact/overlap only).
type SimilarityEngine struct {
	client     *resty.Client
	model      string
	dimensions int
	endpoint   string
	enabled    bool
	log        *logger.Logger

	mu        sync.Mutex
	cache     map[string]float64
	cacheSize int
}

// NewSimilarityEngine creates a similarity engine.
// Parameters:
//   - cfg: oracle configuration; empty APIKey enables the lexical fallback.
//   - log: logger instance.
//
// Returns:
//   - *SimilarityEngine: initialized engine.
func NewSimilarityEngine(cfg *SimilarityOracleConfig, log *logger.Logger) *SimilarityEngine {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(30 * time.Second)

	endpoint := jinaEndpoint
	if cfg.BaseURL != "" {
		endpoint = strings.TrimSuffix(cfg.BaseURL, "/") + "/embeddings"
	}

	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 4096
	}

	return &SimilarityEngine{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		endpoint:   endpoint,
		enabled:    cfg.APIKey != "",
		log:        log,
		cache:      make(map[string]float64),
		cacheSize:  cacheSize,
	}
}

// IsEnabled reports whether the remote oracle is configured.
func (e *SimilarityEngine) IsEnabled() bool {
	return e.enabled
}

// Score returns the similarity of two texts in [0, 1].
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - a, b: arbitrary short texts (context keyword, cluster tag).
//
// Returns:
//   - float64: similarity score; 0 for any empty input, 1 for equal texts.
//   - error: currently always nil; oracle failures degrade to the lexical
//     scorer with a warning rather than failing the recommendation.
func (e *SimilarityEngine) Score(ctx context.Context, a, b string) (float64, error) {
	a, b = normalizeText(a), normalizeText(b)
	if a == "" || b == "" {
		return 0, nil
	}
	if a == b {
		return 1, nil
	}

	key := cacheKey(a, b)
	e.mu.Lock()
	if score, ok := e.cache[key]; ok {
		e.mu.Unlock()
		return score, nil
	}
	e.mu.Unlock()

	var score float64
	if e.enabled {
		remote, err := e.remoteScore(ctx, a, b)
		if err != nil {
			e.log.WithError(err).Warn("Similarity oracle failed, using lexical fallback")
			score = lexicalScore(a, b)
		} else {
			score = remote
		}
	} else {
		score = lexicalScore(a, b)
	}

	e.mu.Lock()
	if len(e.cache) >= e.cacheSize {
		// Drop an arbitrary entry; a full LRU is not worth it for this
		// access pattern (a small, hot vocabulary)
		for k := range e.cache {
			delete(e.cache, k)
			break
		}
	}
	e.cache[key] = score
	e.mu.Unlock()

	return score, nil
}

// Embeddings API request/response structures
type embeddingRequest struct {
	Model      string   `json:"model"`
	Task       string   `json:"task,omitempty"`
	Dimensions int      `json:"dimensions,omitempty"`
	Input      []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
}

// remoteScore embeds both texts in one batch call and returns their cosine,
// clamped to [0, 1].
func (e *SimilarityEngine) remoteScore(ctx context.Context, a, b string) (float64, error) {
	req := embeddingRequest{
		Model:      e.model,
		Task:       "text-matching",
		Dimensions: e.dimensions,
		Input:      []string{a, b},
	}

	var resp embeddingResponse
	httpResp, err := e.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(e.endpoint)
	if err != nil {
		return 0, fmt.Errorf("failed to call embeddings API: %w", err)
	}
	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return 0, fmt.Errorf("embeddings API error: %s", resp.Detail)
		}
		return 0, fmt.Errorf("embeddings API error: status %d", httpResp.StatusCode())
	}
	if len(resp.Data) != 2 {
		return 0, fmt.Errorf("unexpected number of embeddings: got %d, expected 2", len(resp.Data))
	}

	vecs := make([][]float32, 2)
	for _, item := range resp.Data {
		if item.Index >= 0 && item.Index < 2 {
			vecs[item.Index] = item.Embedding
		}
	}
	if len(vecs[0]) == 0 || len(vecs[1]) == 0 || len(vecs[0]) != len(vecs[1]) {
		return 0, fmt.Errorf("embeddings API returned inconsistent vectors")
	}

	cos := cosine(vecs[0], vecs[1])
	if cos < 0 {
		return 0, nil
	}
	if cos > 1 {
		return 1, nil
	}
	return cos, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// lexicalScore is the offline fallback: token Jaccard overlap with a
// containment boost for substring relationships.
func lexicalScore(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range tokensA {
		if _, ok := tokensB[tok]; ok {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection
	score := float64(intersection) / float64(union)

	if strings.Contains(a, b) || strings.Contains(b, a) {
		if score < 0.8 {
			score = 0.8
		}
	}
	return score
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		out[tok] = struct{}{}
	}
	return out
}

// normalizeText lowercases and collapses whitespace so cache keys and token
// comparisons are stable.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

func cacheKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0] + "\x00" + pair[1]
}
