// Package retriever ranks stored knowledge chunks against a query by cosine
// similarity, falling back to keyword matching when the query cannot be embedded.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mfenderov/tutor-kb/internal/embeddings"
	"github.com/mfenderov/tutor-kb/internal/store"
	"github.com/mfenderov/tutor-kb/pkg/models"
)

const (
	DefaultLimit           = 5
	DefaultWorkingSetLimit = 1000

	// MinScoreFloor is the fixed relevance floor. Results must score
	// strictly above it; configuration can only raise it.
	MinScoreFloor = 0.5

	// minKeywordChars is the length a query token must exceed to be used
	// for keyword fallback.
	minKeywordChars = 3
)

// Match is a retrieved chunk. Score is nil for keyword fallback results.
type Match struct {
	Chunk models.KnowledgeChunk `json:"chunk"`
	Score *float64              `json:"score,omitempty"`
}

// Config holds retriever tuning.
type Config struct {
	MinScore        float64 // raised to MinScoreFloor when lower
	WorkingSetLimit int     // max embedded chunks ranked per query
}

// Retriever answers queries against a store. It holds no mutable state and
// is safe for concurrent use.
type Retriever struct {
	store    store.Store
	embedder embeddings.Embedder
	config   Config
}

// New creates a retriever over st, using embedder for the query side.
func New(st store.Store, embedder embeddings.Embedder, config Config) *Retriever {
	if config.MinScore < MinScoreFloor {
		config.MinScore = MinScoreFloor
	}
	if config.WorkingSetLimit <= 0 {
		config.WorkingSetLimit = DefaultWorkingSetLimit
	}
	return &Retriever{store: st, embedder: embedder, config: config}
}

// Retrieve returns up to limit chunks relevant to query, best first.
// An empty result is valid when nothing clears the relevance floor.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	vector, ok := r.embedder.Embed(ctx, query)
	if !ok {
		slog.Debug("query embedding unavailable, using keyword fallback", "query", query)
		return r.keywordFallback(ctx, query, limit)
	}

	candidates, err := r.store.ListEmbedded(ctx, r.config.WorkingSetLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list embedded chunks: %w", err)
	}

	ranked := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		score := CosineSimilarity(vector, c.Embedding)
		ranked = append(ranked, Match{Chunk: c, Score: &score})
	}

	// Stable, so equal scores keep storage order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].Score > *ranked[j].Score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	matches := make([]Match, 0, len(ranked))
	for _, m := range ranked {
		if *m.Score > r.config.MinScore {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

func (r *Retriever) keywordFallback(ctx context.Context, query string, limit int) ([]Match, error) {
	words := Keywords(query)
	if len(words) == 0 {
		return []Match{}, nil
	}

	chunks, err := r.store.KeywordMatch(ctx, words, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to match keywords: %w", err)
	}

	matches := make([]Match, len(chunks))
	for i, c := range chunks {
		matches[i] = Match{Chunk: c}
	}
	return matches, nil
}

// Keywords splits query on whitespace and keeps tokens longer than three characters.
func Keywords(query string) []string {
	var words []string
	for _, w := range strings.Fields(query) {
		if utf8.RuneCountInString(w) > minKeywordChars {
			words = append(words, w)
		}
	}
	return words
}

// CosineSimilarity returns dot(a,b) / (|a|*|b|). It is 0 when either vector
// has zero magnitude or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push parallel vectors a hair past ±1.
	return math.Max(-1, math.Min(1, sim))
}
