package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mfenderov/tutor-kb/internal/pipeline"
	"github.com/mfenderov/tutor-kb/internal/storage"
)

// Archive reads back what storage.Client.ArchiveRun wrote.
type Archive interface {
	GetMetadata(ctx context.Context, prefix string) (*storage.RunMetadata, error)
	ListTextFiles(ctx context.Context, prefix string) ([]string, error)
	GetText(ctx context.Context, prefix, filename string) (string, error)
}

// DocumentIngester stores already extracted text.
type DocumentIngester interface {
	IngestDocument(ctx context.Context, doc pipeline.Document) (*pipeline.DocumentResult, error)
}

// Result holds replay execution results.
type Result struct {
	Prefix       string
	Query        string
	DocsReplayed int
	DocsSkipped  int
	ChunksStored int
	Duration     time.Duration
	Errors       []string
}

// Engine rebuilds knowledge chunks from an archived ingestion run without
// touching the network.
type Engine struct {
	archive  Archive
	ingester DocumentIngester
}

// New creates a new replay engine.
func New(archive Archive, ingester DocumentIngester) *Engine {
	return &Engine{archive: archive, ingester: ingester}
}

// Replay processes every archived page under prefix. Sources that are
// already stored are skipped.
func (e *Engine) Replay(ctx context.Context, prefix string) (*Result, error) {
	start := time.Now()
	result := &Result{Prefix: prefix}

	slog.Info("starting replay", "prefix", prefix)

	meta, err := e.archive.GetMetadata(ctx, prefix)
	if err != nil {
		return nil, err
	}
	result.Query = meta.Query

	// Build filename -> page mapping from metadata
	pages := make(map[string]storage.Page, len(meta.Pages))
	for _, page := range meta.Pages {
		file := page.File
		if file == "" {
			file = storage.TextFilename(page.URL)
		}
		pages[file] = page
	}

	files, err := e.archive.ListTextFiles(ctx, prefix)
	if err != nil {
		return nil, err
	}

	slog.Info("found files to replay", "count", len(files))

	for _, filename := range files {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "context cancelled")
			break
		}

		page, ok := pages[filename]
		if !ok {
			slog.Warn("no metadata for archived file", "filename", filename)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: no metadata", filename))
			continue
		}

		text, err := e.archive.GetText(ctx, prefix, filename)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		dr, err := e.ingester.IngestDocument(ctx, pipeline.Document{
			URL:        page.URL,
			Title:      page.Title,
			SourceType: page.SourceType,
			Text:       text,
		})
		if dr != nil {
			result.ChunksStored += dr.Stored
		}
		switch {
		case errors.Is(err, pipeline.ErrAlreadyIngested):
			slog.Debug("skipping already ingested source", "url", page.URL)
			result.DocsSkipped++
		case err != nil:
			slog.Error("failed to replay document", "url", page.URL, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", page.URL, err))
		default:
			result.DocsReplayed++
		}
	}

	result.Duration = time.Since(start)
	slog.Info("replay complete",
		"prefix", prefix,
		"docs_replayed", result.DocsReplayed,
		"docs_skipped", result.DocsSkipped,
		"chunks_stored", result.ChunksStored,
		"duration", result.Duration,
		"errors", len(result.Errors))

	return result, nil
}
