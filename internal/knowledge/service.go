// Package knowledge wires search, extraction, embeddings and storage into a
// single service constructed once at startup and shared by every caller.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mfenderov/tutor-kb/internal/config"
	"github.com/mfenderov/tutor-kb/internal/elasticsearch"
	"github.com/mfenderov/tutor-kb/internal/embeddings"
	"github.com/mfenderov/tutor-kb/internal/ingestion"
	"github.com/mfenderov/tutor-kb/internal/pipeline"
	"github.com/mfenderov/tutor-kb/internal/retriever"
	"github.com/mfenderov/tutor-kb/internal/scraper"
	"github.com/mfenderov/tutor-kb/internal/search"
	"github.com/mfenderov/tutor-kb/internal/storage"
	"github.com/mfenderov/tutor-kb/internal/store"
)

// Service ingests resource mentions and answers retrieval queries.
type Service struct {
	pipeline  *pipeline.Pipeline
	retriever *retriever.Retriever
	replay    *ingestion.Engine // nil if no archive is configured
	limit     int
}

// New builds a Service from configuration. Elasticsearch is used when
// addresses are configured, otherwise chunks are kept in memory.
func New(ctx context.Context, cfg config.Config) (*Service, error) {
	embedClient := embeddings.New(embeddings.Config{
		BaseURL:    cfg.Embeddings.BaseURL,
		APIKey:     cfg.Embeddings.APIKey,
		SocketPath: cfg.Embeddings.SocketPath,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		Timeout:    cfg.Embeddings.Timeout,
	})
	if !embedClient.Available() {
		slog.Warn("embeddings unavailable, retrieval will use keyword fallback")
	}

	st, err := newStore(ctx, cfg, embedClient.Dimensions())
	if err != nil {
		return nil, err
	}

	searcher := search.New(search.Config{
		Endpoint: cfg.Search.Endpoint,
		APIKey:   cfg.Search.APIKey,
		Timeout:  cfg.Search.Timeout,
	})
	if !searcher.Available() {
		slog.Warn("search provider not configured, ingestion will find no sources")
	}

	p := pipeline.New(
		searcher,
		scraper.New(scraper.Config{
			UserAgent: cfg.Scraper.UserAgent,
			Timeout:   cfg.Scraper.Timeout,
			MaxChars:  cfg.Scraper.MaxChars,
		}),
		embedClient,
		st,
		pipeline.Config{
			ResultCount:     cfg.Ingestion.ResultCount,
			QuerySuffix:     cfg.Ingestion.QuerySuffix,
			MinContentChars: cfg.Ingestion.MinContentChars,
			ChunkSize:       cfg.Chunker.Size,
			ChunkOverlap:    cfg.Chunker.Overlap,
			EmbedDelay:      cfg.Ingestion.EmbedDelay,
		},
	)

	// Query embeddings are cached; chunk embeddings are computed once anyway.
	queryEmbedder := embeddings.NewCached(embedClient, embedClient.Model(), cfg.Embeddings.CacheSize, cfg.Embeddings.CacheTTL)

	svc := &Service{
		pipeline: p,
		retriever: retriever.New(st, queryEmbedder, retriever.Config{
			MinScore:        cfg.Retrieval.MinScore,
			WorkingSetLimit: cfg.Retrieval.WorkingSetLimit,
		}),
		limit: cfg.Retrieval.Limit,
	}

	if cfg.Storage.Endpoint != "" {
		archive, err := storage.New(storage.Config{
			Endpoint:        cfg.Storage.Endpoint,
			Bucket:          cfg.Storage.Bucket,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			UseSSL:          cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		p.WithArchiver(archive)
		svc.replay = ingestion.New(archive, p)
	}

	return svc, nil
}

// NewWithComponents builds a Service from already constructed parts.
func NewWithComponents(p *pipeline.Pipeline, r *retriever.Retriever, replay *ingestion.Engine, limit int) *Service {
	return &Service{pipeline: p, retriever: r, replay: replay, limit: limit}
}

func newStore(ctx context.Context, cfg config.Config, dims int) (store.Store, error) {
	if len(cfg.Elasticsearch.Addresses) == 0 {
		slog.Info("using in-memory knowledge store")
		return store.NewMemory(), nil
	}

	esClient, err := elasticsearch.New(elasticsearch.Config{
		Addresses:  cfg.Elasticsearch.Addresses,
		Index:      cfg.Elasticsearch.Index,
		Username:   cfg.Elasticsearch.Username,
		Password:   cfg.Elasticsearch.Password,
		Dimensions: dims,
	})
	if err != nil {
		return nil, err
	}
	if err := esClient.CreateIndex(ctx); err != nil {
		return nil, err
	}
	slog.Info("using elasticsearch knowledge store", "index", cfg.Elasticsearch.Index)
	return esClient, nil
}

// Ingest reports whether at least one chunk was stored for the resource.
func (s *Service) Ingest(ctx context.Context, name, author string) (bool, error) {
	return s.pipeline.Ingest(ctx, name, author)
}

// Run ingests a resource and returns the detailed outcome.
func (s *Service) Run(ctx context.Context, name, author string) (*pipeline.Result, error) {
	return s.pipeline.Run(ctx, name, author)
}

// Retrieve returns chunks relevant to query. A non-positive limit selects
// the configured default.
func (s *Service) Retrieve(ctx context.Context, query string, limit int) ([]retriever.Match, error) {
	if limit <= 0 {
		limit = s.limit
	}
	return s.retriever.Retrieve(ctx, query, limit)
}

// Replay rebuilds chunks from an archived run.
func (s *Service) Replay(ctx context.Context, prefix string) (*ingestion.Result, error) {
	if s.replay == nil {
		return nil, fmt.Errorf("replay requires storage.endpoint to be configured")
	}
	return s.replay.Replay(ctx, prefix)
}
