// Package store defines the knowledge store boundary and an in-memory
// implementation of it.
package store

import (
	"context"
	"strings"

	"github.com/mfenderov/tutor-kb/internal/chunker"
	"github.com/mfenderov/tutor-kb/pkg/models"
)

// Store persists knowledge chunks and answers the queries the ingestion
// pipeline and the retriever need.
//
// Keyword matching is case-insensitive substring containment, in storage
// order, in every implementation.
type Store interface {
	// URLExists reports whether any chunk with exactly this source URL is stored.
	URLExists(ctx context.Context, url string) (bool, error)
	// Insert persists one chunk, assigning its ID and timestamps. Failures
	// (duplicate (url, index), invalid chunk, storage unavailable) are logged
	// and reported as false.
	Insert(ctx context.Context, chunk *models.KnowledgeChunk) bool
	// ListEmbedded returns up to limit chunks that carry an embedding.
	ListEmbedded(ctx context.Context, limit int) ([]models.KnowledgeChunk, error)
	// KeywordMatch returns up to limit chunks whose content contains any of words.
	KeywordMatch(ctx context.Context, words []string, limit int) ([]models.KnowledgeChunk, error)
}

// Validate reports why chunk cannot be stored, or "" if it can.
func Validate(chunk *models.KnowledgeChunk) string {
	switch {
	case chunk == nil:
		return "chunk is nil"
	case chunk.SourceURL == "":
		return "source url is required"
	case chunk.ChunkIndex < 0:
		return "chunk index is negative"
	case len([]rune(strings.TrimSpace(chunk.Content))) <= chunker.MinChunkChars:
		return "content is below the minimum chunk size"
	case chunk.SourceType != "" && !chunk.SourceType.Valid():
		return "unknown source type"
	}
	return ""
}

// ContainsAny reports whether content contains any of words, ignoring case.
func ContainsAny(content string, words []string) bool {
	lower := strings.ToLower(content)
	for _, w := range words {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
