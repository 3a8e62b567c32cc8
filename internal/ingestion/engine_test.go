package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mfenderov/tutor-kb/internal/pipeline"
	"github.com/mfenderov/tutor-kb/internal/storage"
	"github.com/mfenderov/tutor-kb/internal/store"
	"github.com/mfenderov/tutor-kb/pkg/models"
)

type memArchive struct {
	meta    *storage.RunMetadata
	texts   map[string]string
	metaErr error
}

func (a *memArchive) GetMetadata(context.Context, string) (*storage.RunMetadata, error) {
	if a.metaErr != nil {
		return nil, a.metaErr
	}
	return a.meta, nil
}

func (a *memArchive) ListTextFiles(context.Context, string) ([]string, error) {
	var files []string
	for _, p := range a.meta.Pages {
		files = append(files, p.File)
	}
	files = append(files, "orphan.txt")
	return files, nil
}

func (a *memArchive) GetText(_ context.Context, _, filename string) (string, error) {
	text, ok := a.texts[filename]
	if !ok {
		return "", errors.New("object not found")
	}
	return text, nil
}

type noEmbedder struct{}

func (noEmbedder) Embed(context.Context, string) ([]float32, bool) { return nil, false }

type noNetwork struct{}

func (noNetwork) Search(context.Context, string, int) ([]models.SearchResult, error) {
	panic("replay must not search")
}

func newArchive() *memArchive {
	urls := []string{"https://example.com/one", "https://arxiv.org/abs/2101.00001"}
	a := &memArchive{
		meta:  &storage.RunMetadata{Query: "Make It Stick summary overview key concepts"},
		texts: make(map[string]string),
	}
	for i, url := range urls {
		file := storage.TextFilename(url)
		a.meta.Pages = append(a.meta.Pages, storage.Page{
			URL:        url,
			Title:      "Page",
			SourceType: models.DetectSourceType(url),
			File:       file,
		})
		a.texts[file] = strings.Repeat("Retrieval practice strengthens memory traces. ", 10+i)
	}
	a.meta.PageCount = len(a.meta.Pages)
	return a
}

func TestEngine_Replay(t *testing.T) {
	st := store.NewMemory()
	p := pipeline.New(noNetwork{}, nil, noEmbedder{}, st, pipeline.Config{})
	engine := New(newArchive(), p)

	result, err := engine.Replay(t.Context(), "ingests/run")
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	if result.Query != "Make It Stick summary overview key concepts" {
		t.Errorf("Query = %q", result.Query)
	}
	if result.DocsReplayed != 2 {
		t.Errorf("DocsReplayed = %d, want 2", result.DocsReplayed)
	}
	if result.ChunksStored != st.Len() || st.Len() == 0 {
		t.Errorf("ChunksStored = %d, store holds %d", result.ChunksStored, st.Len())
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %v, want one for the orphan file", result.Errors)
	}

	paper, _ := st.KeywordMatch(t.Context(), []string{"retrieval"}, 0)
	var sawPaper bool
	for _, c := range paper {
		if c.SourceType == models.SourcePaper {
			sawPaper = true
		}
	}
	if !sawPaper {
		t.Error("archived source type should be preserved")
	}
}

func TestEngine_ReplayTwiceSkips(t *testing.T) {
	st := store.NewMemory()
	p := pipeline.New(noNetwork{}, nil, noEmbedder{}, st, pipeline.Config{})
	engine := New(newArchive(), p)

	if _, err := engine.Replay(t.Context(), "ingests/run"); err != nil {
		t.Fatalf("first Replay() error = %v", err)
	}
	stored := st.Len()

	result, err := engine.Replay(t.Context(), "ingests/run")
	if err != nil {
		t.Fatalf("second Replay() error = %v", err)
	}
	if result.DocsSkipped != 2 || result.DocsReplayed != 0 {
		t.Errorf("second replay skipped %d, replayed %d", result.DocsSkipped, result.DocsReplayed)
	}
	if st.Len() != stored {
		t.Errorf("store grew from %d to %d", stored, st.Len())
	}
}

func TestEngine_ReplayMissingMetadata(t *testing.T) {
	archive := &memArchive{metaErr: errors.New("no such key")}
	engine := New(archive, pipeline.New(noNetwork{}, nil, noEmbedder{}, store.NewMemory(), pipeline.Config{}))

	if _, err := engine.Replay(t.Context(), "ingests/missing"); err == nil {
		t.Error("Replay() should fail without metadata")
	}
}
