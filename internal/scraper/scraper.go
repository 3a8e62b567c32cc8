package scraper

import (
	"context"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/mfenderov/tutor-kb/internal/markdown"
	"github.com/mfenderov/tutor-kb/internal/processor"
)

// DefaultUserAgent makes requests look like an ordinary desktop browser.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Config holds scraper configuration.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	MaxChars  int // cleaned text is truncated to this many characters
}

// Page is the cleaned result of fetching one URL.
type Page struct {
	URL         string
	Title       string
	Text        string
	ContentType string
}

// Scraper fetches web pages and reduces them to plain text.
type Scraper struct {
	config    Config
	processor *processor.Processor
}

// New creates a new Scraper with the given configuration.
func New(config Config) *Scraper {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	return &Scraper{
		config:    config,
		processor: processor.New(config.MaxChars),
	}
}

// Extract fetches pageURL and returns its cleaned text. The boolean is false
// when nothing could be extracted: PDF URLs (binary documents are not
// parsed), transport failures and non-2xx responses. A page without
// extractable content yields ok with empty Text.
func (s *Scraper) Extract(ctx context.Context, pageURL string) (Page, bool) {
	if isPDF(pageURL) {
		slog.Debug("skipping PDF, binary documents are not extracted", "url", pageURL)
		return Page{}, false
	}

	var (
		page    Page
		fetched bool
	)

	c := colly.NewCollector(
		colly.UserAgent(s.config.UserAgent),
		colly.DetectCharset(),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(s.config.Timeout)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			slog.Debug("extract cancelled", "url", r.URL.String())
			r.Abort()
		}
	})

	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode < 200 || r.StatusCode > 299 {
			slog.Debug("skipping page with error status", "url", r.Request.URL.String(), "status", r.StatusCode)
			return
		}

		body := string(r.Body)
		contentType := r.Headers.Get("Content-Type")

		page = Page{
			URL:         r.Request.URL.String(),
			ContentType: contentType,
		}
		switch {
		case isHTML(contentType):
			page.Title = s.processor.ExtractTitle(body)
			page.Text = s.processor.CleanHTML(body)
		case markdown.Detect(page.URL, contentType, body):
			page.Title = markdown.Title(body)
			page.Text = s.processor.CleanText(markdown.Strip(body))
		default:
			page.Text = s.processor.CleanText(body)
		}
		fetched = true
	})

	c.OnError(func(r *colly.Response, err error) {
		slog.Warn("failed to fetch page", "url", pageURL, "status", r.StatusCode, "error", err)
	})

	if err := c.Visit(pageURL); err != nil {
		slog.Warn("visit failed", "url", pageURL, "error", err)
		return Page{}, false
	}
	c.Wait()

	if !fetched {
		return Page{}, false
	}

	slog.Debug("extracted page", "url", pageURL, "chars", len(page.Text))
	return page, true
}

func isPDF(pageURL string) bool {
	return strings.HasSuffix(strings.ToLower(pageURL), ".pdf")
}

// isHTML reports whether the response should be parsed as markup. A missing
// or unparsable Content-Type is treated as HTML.
func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return true
	}
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return true
	}
	return false
}
