package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Chunker.Overlap >= cfg.Chunker.Size {
		t.Errorf("default overlap %d must be below chunk size %d", cfg.Chunker.Overlap, cfg.Chunker.Size)
	}
	if cfg.Ingestion.ResultCount != 3 {
		t.Errorf("ResultCount = %d, want 3", cfg.Ingestion.ResultCount)
	}
	if cfg.Retrieval.MinScore != 0.5 {
		t.Errorf("MinScore = %v, want 0.5", cfg.Retrieval.MinScore)
	}
	if cfg.Scraper.MaxChars != 10000 {
		t.Errorf("Scraper.MaxChars = %d, want 10000", cfg.Scraper.MaxChars)
	}
	if len(cfg.Elasticsearch.Addresses) != 0 {
		t.Error("Elasticsearch should be disabled by default")
	}
	if cfg.Search.Endpoint != "" {
		t.Errorf("Search.Endpoint = %q, want unset until a provider is configured", cfg.Search.Endpoint)
	}
	if cfg.Storage.Endpoint != "" {
		t.Error("archive storage should be disabled by default")
	}
}
