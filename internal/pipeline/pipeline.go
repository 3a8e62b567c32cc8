package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mfenderov/tutor-kb/internal/chunker"
	"github.com/mfenderov/tutor-kb/internal/embeddings"
	"github.com/mfenderov/tutor-kb/internal/scraper"
	"github.com/mfenderov/tutor-kb/internal/storage"
	"github.com/mfenderov/tutor-kb/internal/store"
	"github.com/mfenderov/tutor-kb/pkg/models"
)

const (
	DefaultResultCount     = 3
	DefaultQuerySuffix     = "summary overview key concepts"
	DefaultMinContentChars = 100
	DefaultEmbedDelay      = 100 * time.Millisecond
)

var (
	// ErrAlreadyIngested is returned by IngestDocument for a URL that is already stored.
	ErrAlreadyIngested = errors.New("source already ingested")
	// ErrTooShort is returned for content below the minimum informative length.
	ErrTooShort = errors.New("content too short")
)

// Searcher finds candidate sources for a query.
type Searcher interface {
	Search(ctx context.Context, query string, numResults int) ([]models.SearchResult, error)
}

// Extractor fetches a URL and reduces it to plain text.
type Extractor interface {
	Extract(ctx context.Context, url string) (scraper.Page, bool)
}

// Archiver keeps the extracted text of an ingestion run for later replay.
type Archiver interface {
	ArchiveRun(ctx context.Context, query string, pages []storage.Page) (string, error)
}

// Config holds pipeline configuration.
type Config struct {
	ResultCount     int
	QuerySuffix     string
	MinContentChars int
	ChunkSize       int
	ChunkOverlap    int
	EmbedDelay      time.Duration
}

// Document is extracted text ready to be chunked and stored.
type Document struct {
	URL        string
	Title      string
	SourceType models.SourceType
	Text       string
}

// DocumentResult holds the outcome of ingesting one document.
type DocumentResult struct {
	Chunks   int
	Stored   int
	Embedded int
}

// Result holds pipeline execution results.
type Result struct {
	Query          string
	SearchResults  int
	Skipped        int
	PagesExtracted int
	ChunksStored   int
	ChunksEmbedded int
	ArchivePrefix  string
	Duration       time.Duration
	Errors         []string
}

// Pipeline turns a resource mention into stored, optionally embedded chunks.
type Pipeline struct {
	config    Config
	searcher  Searcher
	extractor Extractor
	embedder  embeddings.Embedder
	store     store.Store
	archiver  Archiver // nil if archiving disabled
	locks     *keyedMutex
	pace      *pacer
}

// New creates a new Pipeline.
func New(searcher Searcher, extractor Extractor, embedder embeddings.Embedder, st store.Store, config Config) *Pipeline {
	if config.ResultCount <= 0 {
		config.ResultCount = DefaultResultCount
	}
	if config.QuerySuffix == "" {
		config.QuerySuffix = DefaultQuerySuffix
	}
	if config.MinContentChars <= 0 {
		config.MinContentChars = DefaultMinContentChars
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = chunker.DefaultSize
		if config.ChunkOverlap == 0 {
			config.ChunkOverlap = chunker.DefaultOverlap
		}
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	if config.EmbedDelay < 0 {
		config.EmbedDelay = 0
	}

	return &Pipeline{
		config:    config,
		searcher:  searcher,
		extractor: extractor,
		embedder:  embedder,
		store:     st,
		locks:     newKeyedMutex(),
		pace:      newPacer(config.EmbedDelay),
	}
}

// WithArchiver enables archiving of extracted pages.
func (p *Pipeline) WithArchiver(a Archiver) *Pipeline {
	p.archiver = a
	return p
}

// ComposeQuery builds the search query for a resource mention. An empty
// author is omitted.
func ComposeQuery(name, author, suffix string) string {
	parts := []string{strings.TrimSpace(name)}
	if author = strings.TrimSpace(author); author != "" {
		parts = append(parts, "by "+author)
	}
	if suffix != "" {
		parts = append(parts, suffix)
	}
	return strings.Join(parts, " ")
}

// Ingest runs the pipeline and reports whether at least one chunk was stored.
// Only a search failure is returned as an error.
func (p *Pipeline) Ingest(ctx context.Context, name, author string) (bool, error) {
	result, err := p.Run(ctx, name, author)
	if err != nil {
		return false, err
	}
	return result.ChunksStored > 0, nil
}

// Run executes the full pipeline for a resource mention.
func (p *Pipeline) Run(ctx context.Context, name, author string) (*Result, error) {
	start := time.Now()
	query := ComposeQuery(name, author, p.config.QuerySuffix)
	result := &Result{Query: query}

	results, err := p.searcher.Search(ctx, query, p.config.ResultCount)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	result.SearchResults = len(results)
	if len(results) == 0 {
		slog.Info("no search results", "query", query)
		result.Duration = time.Since(start)
		return result, nil
	}

	var archived []storage.Page
	for _, sr := range results {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "context cancelled")
			break
		}

		page, dr, err := p.processResult(ctx, sr)
		if page != nil {
			result.PagesExtracted++
			archived = append(archived, *page)
		}
		if dr != nil {
			result.ChunksStored += dr.Stored
			result.ChunksEmbedded += dr.Embedded
		}

		switch {
		case errors.Is(err, ErrAlreadyIngested):
			slog.Debug("skipping already ingested source", "url", sr.URL)
			result.Skipped++
		case err != nil:
			slog.Warn("failed to ingest source", "url", sr.URL, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", sr.URL, err))
		}
	}

	if p.archiver != nil && len(archived) > 0 {
		prefix, err := p.archiver.ArchiveRun(ctx, query, archived)
		if err != nil {
			slog.Warn("failed to archive extracts", "query", query, "error", err)
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.ArchivePrefix = prefix
		}
	}

	result.Duration = time.Since(start)
	slog.Info("ingestion complete",
		"query", query,
		"results", result.SearchResults,
		"skipped", result.Skipped,
		"chunks_stored", result.ChunksStored,
		"chunks_embedded", result.ChunksEmbedded,
		"duration", result.Duration)

	return result, nil
}

// processResult extracts and stores one search result. The returned page is
// non-nil when extraction produced enough text to be worth keeping.
func (p *Pipeline) processResult(ctx context.Context, sr models.SearchResult) (*storage.Page, *DocumentResult, error) {
	unlock := p.locks.Lock(sr.URL)
	defer unlock()

	if err := p.checkNew(ctx, sr.URL); err != nil {
		return nil, nil, err
	}

	extracted, ok := p.extractor.Extract(ctx, sr.URL)
	if !ok {
		return nil, nil, errors.New("extraction failed")
	}
	if utf8.RuneCountInString(extracted.Text) < p.config.MinContentChars {
		return nil, nil, fmt.Errorf("%w: %d characters", ErrTooShort, utf8.RuneCountInString(extracted.Text))
	}

	title := extracted.Title
	if title == "" {
		title = sr.Title
	}
	sourceType := sr.SourceType
	if sourceType == "" {
		sourceType = models.DetectSourceType(sr.URL)
	}

	doc := Document{URL: sr.URL, Title: title, SourceType: sourceType, Text: extracted.Text}
	page := &storage.Page{URL: doc.URL, Title: doc.Title, SourceType: doc.SourceType, Text: doc.Text}

	dr, err := p.storeDocument(ctx, doc)
	return page, dr, err
}

// IngestDocument chunks, embeds and stores already extracted text. It is
// skipped with ErrAlreadyIngested when chunks for the URL are already stored.
func (p *Pipeline) IngestDocument(ctx context.Context, doc Document) (*DocumentResult, error) {
	unlock := p.locks.Lock(doc.URL)
	defer unlock()

	if err := p.checkNew(ctx, doc.URL); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(doc.Text) < p.config.MinContentChars {
		return nil, ErrTooShort
	}
	if doc.SourceType == "" {
		doc.SourceType = models.DetectSourceType(doc.URL)
	}
	return p.storeDocument(ctx, doc)
}

func (p *Pipeline) checkNew(ctx context.Context, url string) error {
	exists, err := p.store.URLExists(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to check url: %w", err)
	}
	if exists {
		return ErrAlreadyIngested
	}
	return nil
}

// storeDocument must be called with the URL lock held.
func (p *Pipeline) storeDocument(ctx context.Context, doc Document) (*DocumentResult, error) {
	chunks, err := chunker.Split(doc.Text, p.config.ChunkSize, p.config.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk content: %w", err)
	}

	dr := &DocumentResult{Chunks: len(chunks)}
	for i, content := range chunks {
		if err := p.pace.Wait(ctx); err != nil {
			return dr, err
		}

		chunk := &models.KnowledgeChunk{
			SourceURL:   doc.URL,
			SourceTitle: doc.Title,
			SourceType:  doc.SourceType,
			Content:     content,
			ChunkIndex:  i,
		}

		if vector, ok := p.embedder.Embed(ctx, content); ok {
			chunk.Embedding = vector
		} else {
			slog.Debug("storing chunk without embedding", "url", doc.URL, "chunk_index", i)
		}

		if !p.store.Insert(ctx, chunk) {
			continue
		}
		dr.Stored++
		if chunk.HasEmbedding() {
			dr.Embedded++
		}
	}

	slog.Debug("document stored", "url", doc.URL, "chunks", dr.Chunks, "stored", dr.Stored, "embedded", dr.Embedded)
	return dr, nil
}
