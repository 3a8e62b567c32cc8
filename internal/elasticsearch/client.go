package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/mfenderov/tutor-kb/internal/store"
	"github.com/mfenderov/tutor-kb/pkg/models"
)

// Config holds Elasticsearch client configuration.
type Config struct {
	Addresses  []string
	Index      string
	Username   string
	Password   string
	Dimensions int // dense_vector dims of the embedding field
}

// Client is a store.Store backed by an Elasticsearch index.
type Client struct {
	es         *elasticsearch.Client
	index      string
	dimensions int
	now        func() time.Time
}

var _ store.Store = (*Client)(nil)

// New creates a new Elasticsearch client.
func New(config Config) (*Client, error) {
	if config.Index == "" {
		return nil, fmt.Errorf("index is required")
	}
	if config.Dimensions <= 0 {
		config.Dimensions = 1536
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	return &Client{
		es:         es,
		index:      config.Index,
		dimensions: config.Dimensions,
		now:        time.Now,
	}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) bool {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// indexMapping returns the ES index mapping for knowledge chunks.
// content.raw is a wildcard field so keyword fallback can match substrings.
// Similarity is ranked client-side, so the vector is stored but not indexed.
func indexMapping(dims int) string {
	return fmt.Sprintf(`{
	"mappings": {
		"properties": {
			"id": { "type": "keyword" },
			"source_url": { "type": "keyword" },
			"source_title": { "type": "text" },
			"source_type": { "type": "keyword" },
			"content": {
				"type": "text",
				"analyzer": "english",
				"fields": { "raw": { "type": "wildcard" } }
			},
			"chunk_index": { "type": "integer" },
			"embedding": {
				"type": "dense_vector",
				"dims": %d,
				"index": false
			},
			"created_at": { "type": "date" },
			"updated_at": { "type": "date" }
		}
	}
}`, dims)
}

// CreateIndex creates the index with proper mapping.
func (c *Client) CreateIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(indexMapping(c.dimensions))),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index: %s", res.String())
	}

	return nil
}

// DeleteIndex removes the index (for testing/cleanup).
func (c *Client) DeleteIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{c.index}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// URLExists reports whether any chunk with exactly this source URL is indexed.
func (c *Client) URLExists(ctx context.Context, url string) (bool, error) {
	data, err := json.Marshal(urlExistsQuery(url))
	if err != nil {
		return false, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(c.index),
		c.es.Count.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return false, fmt.Errorf("count failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.IsError() {
		return false, fmt.Errorf("count error: %s", res.String())
	}

	var cr struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&cr); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return cr.Count > 0, nil
}

// Insert indexes one chunk under its deterministic (url, index) ID.
// op_type=create makes a duplicate fail instead of overwriting; the refresh
// makes the chunk visible to URLExists before Insert returns.
func (c *Client) Insert(ctx context.Context, chunk *models.KnowledgeChunk) bool {
	if reason := store.Validate(chunk); reason != "" {
		slog.Error("failed to insert chunk", "reason", reason)
		return false
	}

	now := c.now().UTC()
	doc := *chunk
	doc.ID = models.ChunkID(doc.SourceURL, doc.ChunkIndex)
	if doc.SourceType == "" {
		doc.SourceType = models.DetectSourceType(doc.SourceURL)
	}
	doc.CreatedAt = now
	doc.UpdatedAt = now

	data, err := json.Marshal(doc)
	if err != nil {
		slog.Error("failed to marshal chunk", "url", doc.SourceURL, "chunk_index", doc.ChunkIndex, "error", err)
		return false
	}

	res, err := c.es.Index(
		c.index,
		bytes.NewReader(data),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(doc.ID),
		c.es.Index.WithOpType("create"),
		c.es.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		slog.Error("failed to index chunk", "url", doc.SourceURL, "chunk_index", doc.ChunkIndex, "error", err)
		return false
	}
	defer res.Body.Close()

	if res.IsError() {
		slog.Error("error indexing chunk", "url", doc.SourceURL, "chunk_index", doc.ChunkIndex, "status", res.StatusCode)
		return false
	}

	chunk.ID = doc.ID
	chunk.SourceType = doc.SourceType
	chunk.CreatedAt = now
	chunk.UpdatedAt = now
	return true
}

// ListEmbedded returns up to limit chunks that carry an embedding, in storage order.
func (c *Client) ListEmbedded(ctx context.Context, limit int) ([]models.KnowledgeChunk, error) {
	return c.search(ctx, embeddedQuery(limit))
}

// KeywordMatch returns up to limit chunks whose content contains any of words,
// ignoring case, in storage order.
func (c *Client) KeywordMatch(ctx context.Context, words []string, limit int) ([]models.KnowledgeChunk, error) {
	if len(words) == 0 {
		return nil, nil
	}
	return c.search(ctx, keywordQuery(words, limit))
}

// Refresh forces an index refresh (useful for testing).
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(c.index),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// searchResponse represents ES search response structure.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.KnowledgeChunk `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (c *Client) search(ctx context.Context, query map[string]any) ([]models.KnowledgeChunk, error) {
	data, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	chunks := make([]models.KnowledgeChunk, len(sr.Hits.Hits))
	for i, hit := range sr.Hits.Hits {
		chunks[i] = hit.Source
	}
	return chunks, nil
}
