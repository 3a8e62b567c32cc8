package scraper

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newScraper() *Scraper {
	return New(Config{Timeout: 2 * time.Second, UserAgent: "test-agent"})
}

func TestScraper_ExtractHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`
			<html>
			<head><title>Test Page</title><script>var tracking = true;</script></head>
			<body>
				<nav><a href="/">Home</a></nav>
				<h1>Hello World</h1>
				<p>This is a test page.</p>
				<footer>Footer text</footer>
			</body>
			</html>
		`))
	}))
	defer server.Close()

	page, ok := newScraper().Extract(t.Context(), server.URL)
	if !ok {
		t.Fatal("Extract() reported failure")
	}

	if page.Text != "Test Page Hello World This is a test page." {
		t.Errorf("Text = %q", page.Text)
	}
	if page.Title != "Test Page" {
		t.Errorf("Title = %q, want %q", page.Title, "Test Page")
	}
	if !strings.HasPrefix(page.URL, server.URL) {
		t.Errorf("URL = %q, want prefix %q", page.URL, server.URL)
	}
}

func TestScraper_ExtractPlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("Chapter 1\n\n  It is a truth universally acknowledged."))
	}))
	defer server.Close()

	page, ok := newScraper().Extract(t.Context(), server.URL)
	if !ok {
		t.Fatal("Extract() reported failure")
	}
	if page.Text != "Chapter 1 It is a truth universally acknowledged." {
		t.Errorf("Text = %q", page.Text)
	}
}

func TestScraper_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><p>Moved content</p></body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	page, ok := newScraper().Extract(t.Context(), server.URL+"/old")
	if !ok {
		t.Fatal("Extract() reported failure")
	}
	if page.Text != "Moved content" {
		t.Errorf("Text = %q", page.Text)
	}
}

func TestScraper_HandlesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not found", http.StatusNotFound},
		{"server error", http.StatusInternalServerError},
		{"forbidden", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "error body", tt.status)
			}))
			defer server.Close()

			if _, ok := newScraper().Extract(t.Context(), server.URL); ok {
				t.Error("Extract() should fail for an error status")
			}
		})
	}
}

func TestScraper_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	if _, ok := newScraper().Extract(t.Context(), url); ok {
		t.Error("Extract() should fail when the host is unreachable")
	}
}

func TestScraper_RefusesPDF(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	if _, ok := newScraper().Extract(t.Context(), server.URL+"/paper.PDF"); ok {
		t.Error("Extract() should refuse PDF URLs")
	}
	if called {
		t.Error("PDF URLs should not be fetched")
	}
}

func TestScraper_EmptyPageIsNotAFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><script>only()</script></body></html>`))
	}))
	defer server.Close()

	page, ok := newScraper().Extract(t.Context(), server.URL)
	if !ok {
		t.Fatal("Extract() should succeed for a page without content")
	}
	if page.Text != "" {
		t.Errorf("Text = %q, want empty", page.Text)
	}
}

func TestScraper_TruncatesText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<p>` + strings.Repeat("a", 500) + `</p>`))
	}))
	defer server.Close()

	s := New(Config{Timeout: 2 * time.Second, MaxChars: 100})
	page, ok := s.Extract(t.Context(), server.URL)
	if !ok {
		t.Fatal("Extract() reported failure")
	}
	if len(page.Text) != 100 {
		t.Errorf("len(Text) = %d, want 100", len(page.Text))
	}
}

func TestScraper_SetsUserAgent(t *testing.T) {
	var receivedUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>Test</body></html>`))
	}))
	defer server.Close()

	if _, ok := New(Config{Timeout: 2 * time.Second}).Extract(t.Context(), server.URL); !ok {
		t.Fatal("Extract() reported failure")
	}

	if receivedUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", receivedUA, DefaultUserAgent)
	}
}

func TestScraper_ExtractMarkdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte("# Make It Stick\n\n## Retrieval\n\nSee [the study](https://example.com) on **testing**.\n"))
	}))
	defer server.Close()

	page, ok := newScraper().Extract(t.Context(), server.URL+"/notes.md")
	if !ok {
		t.Fatal("Extract() reported failure")
	}
	if page.Title != "Make It Stick" {
		t.Errorf("Title = %q, want %q", page.Title, "Make It Stick")
	}
	if page.Text != "Make It Stick Retrieval See the study on testing." {
		t.Errorf("Text = %q", page.Text)
	}
}
