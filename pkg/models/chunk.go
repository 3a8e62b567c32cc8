package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// KnowledgeChunk is a bounded span of a source document's extracted text,
// the unit of storage and retrieval.
type KnowledgeChunk struct {
	ID          string     `json:"id"`
	SourceURL   string     `json:"source_url"`
	SourceTitle string     `json:"source_title,omitempty"`
	SourceType  SourceType `json:"source_type"`
	Content     string     `json:"content"`
	ChunkIndex  int        `json:"chunk_index"`
	Embedding   []float32  `json:"embedding,omitempty"` // nil when the embedding call failed
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// HasEmbedding reports whether the chunk can take part in similarity ranking.
func (c KnowledgeChunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// SearchResult is a single normalized hit from the web search provider.
type SearchResult struct {
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	Snippet    string     `json:"snippet"`
	SourceType SourceType `json:"source_type"`
}

// GenerateDocumentID creates a deterministic ID from URL.
// The ID is a SHA-256 hash (first 16 chars) of the URL.
func GenerateDocumentID(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:])[:16]
}

// ChunkID returns the deterministic ID of the chunk at index within url.
// Two chunks share an ID only if they share (url, index).
func ChunkID(url string, index int) string {
	return fmt.Sprintf("%s-%d", GenerateDocumentID(url), index)
}
