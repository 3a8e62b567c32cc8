package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mfenderov/tutor-kb/pkg/models"
)

type chunkKey struct {
	url   string
	index int
}

// Memory is a Store held in process memory. It is safe for concurrent use;
// reads share a lock and never block each other.
type Memory struct {
	mu     sync.RWMutex
	chunks []models.KnowledgeChunk
	keys   map[chunkKey]struct{}
	urls   map[string]int
	now    func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		keys: make(map[chunkKey]struct{}),
		urls: make(map[string]int),
		now:  time.Now,
	}
}

// URLExists reports whether any chunk with this source URL is stored.
func (m *Memory) URLExists(_ context.Context, url string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.urls[url] > 0, nil
}

// Insert appends chunk, assigning a UUID and timestamps on success.
func (m *Memory) Insert(_ context.Context, chunk *models.KnowledgeChunk) bool {
	if reason := Validate(chunk); reason != "" {
		slog.Error("failed to insert chunk", "reason", reason)
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := chunkKey{url: chunk.SourceURL, index: chunk.ChunkIndex}
	if _, dup := m.keys[key]; dup {
		slog.Error("failed to insert chunk", "url", chunk.SourceURL, "chunk_index", chunk.ChunkIndex, "reason", "duplicate chunk")
		return false
	}

	now := m.now().UTC()
	stored := *chunk
	stored.ID = uuid.NewString()
	if stored.SourceType == "" {
		stored.SourceType = models.DetectSourceType(stored.SourceURL)
	}
	stored.Embedding = cloneVector(chunk.Embedding)
	stored.CreatedAt = now
	stored.UpdatedAt = now

	m.chunks = append(m.chunks, stored)
	m.keys[key] = struct{}{}
	m.urls[stored.SourceURL]++

	chunk.ID = stored.ID
	chunk.SourceType = stored.SourceType
	chunk.CreatedAt = now
	chunk.UpdatedAt = now
	return true
}

// ListEmbedded returns the first limit embedded chunks in insertion order.
func (m *Memory) ListEmbedded(_ context.Context, limit int) ([]models.KnowledgeChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.KnowledgeChunk
	for _, c := range m.chunks {
		if limit > 0 && len(out) >= limit {
			break
		}
		if c.HasEmbedding() {
			out = append(out, copyChunk(c))
		}
	}
	return out, nil
}

// KeywordMatch returns the first limit chunks, in insertion order, whose
// content contains any of words regardless of case.
func (m *Memory) KeywordMatch(_ context.Context, words []string, limit int) ([]models.KnowledgeChunk, error) {
	if len(words) == 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.KnowledgeChunk
	for _, c := range m.chunks {
		if limit > 0 && len(out) >= limit {
			break
		}
		if ContainsAny(c.Content, words) {
			out = append(out, copyChunk(c))
		}
	}
	return out, nil
}

// Len returns the number of stored chunks.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

func copyChunk(c models.KnowledgeChunk) models.KnowledgeChunk {
	c.Embedding = cloneVector(c.Embedding)
	return c
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
