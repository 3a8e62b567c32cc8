package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mfenderov/tutor-kb/internal/retriever"
	"github.com/mfenderov/tutor-kb/pkg/models"
)

func TestWriteMatches_EmptyJSON(t *testing.T) {
	for _, matches := range [][]retriever.Match{nil, {}} {
		var buf bytes.Buffer
		if err := writeMatches(&buf, matches, "json"); err != nil {
			t.Fatalf("writeMatches() error = %v", err)
		}
		if got := strings.TrimSpace(buf.String()); got != "[]" {
			t.Errorf("output = %q, want []", got)
		}
	}
}

func TestWriteMatches_EmptyText(t *testing.T) {
	var buf bytes.Buffer
	if err := writeMatches(&buf, nil, "text"); err != nil {
		t.Fatalf("writeMatches() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No results found.") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestWriteMatches_JSONOmitsEmbedding(t *testing.T) {
	score := 0.9
	matches := []retriever.Match{
		{Chunk: models.KnowledgeChunk{SourceURL: "https://example.com/a", Content: "Spaced repetition", Embedding: []float32{1, 0}}, Score: &score},
		{Chunk: models.KnowledgeChunk{SourceURL: "https://example.com/b", Content: "Retrieval practice"}},
	}

	var buf bytes.Buffer
	if err := writeMatches(&buf, matches, "json"); err != nil {
		t.Fatalf("writeMatches() error = %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("got %d entries, want 2", len(decoded))
	}
	if _, ok := decoded[1]["score"]; ok {
		t.Error("keyword match should have no score")
	}
	if strings.Contains(buf.String(), `"embedding": [`) {
		t.Error("embeddings should be stripped from output")
	}
}

func TestWriteMatches_Text(t *testing.T) {
	score := 0.75
	matches := []retriever.Match{
		{Chunk: models.KnowledgeChunk{SourceTitle: "Make It Stick", Content: strings.Repeat("é", 600)}, Score: &score},
		{Chunk: models.KnowledgeChunk{SourceTitle: "Fallback", Content: "short"}},
	}

	var buf bytes.Buffer
	if err := writeMatches(&buf, matches, "text"); err != nil {
		t.Fatalf("writeMatches() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{"Found 2 results", "Score:   0.750", "Score:   keyword match", strings.Repeat("é", 500) + "..."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, strings.Repeat("é", 501)) {
		t.Error("content should be truncated to 500 characters")
	}
}
