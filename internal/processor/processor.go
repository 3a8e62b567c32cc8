package processor

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultMaxChars bounds the cleaned text length in characters.
const DefaultMaxChars = 10000

// boilerplateSelector matches elements that never carry page content.
const boilerplateSelector = "script, style, nav, header, footer, noscript, template"

var tagPattern = regexp.MustCompile(`(?s)<[^>]*>`)

// Processor reduces fetched pages to plain text.
type Processor struct {
	maxChars int
}

// New creates a new Processor that truncates output to maxChars characters.
// A non-positive maxChars selects DefaultMaxChars.
func New(maxChars int) *Processor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Processor{maxChars: maxChars}
}

// CleanHTML turns an HTML document into normalized plain text.
// Each step falls back to its input when it cannot process it.
func (p *Processor) CleanHTML(content string) string {
	content = sanitize(content)
	content = removeBoilerplate(content)
	content = stripMarkup(content)
	content = collapseWhitespace(content)
	return truncate(content, p.maxChars)
}

// CleanText normalizes content that is already plain text.
func (p *Processor) CleanText(content string) string {
	content = sanitize(content)
	content = collapseWhitespace(content)
	return truncate(content, p.maxChars)
}

// ExtractTitle extracts the <title> content from HTML.
func (p *Processor) ExtractTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var title string
	var findTitle func(*html.Node)
	findTitle = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findTitle(c)
		}
	}
	findTitle(doc)

	return collapseWhitespace(title)
}

// sanitize coerces content to valid UTF-8 and drops control characters.
// Newlines and tabs survive until whitespace collapsing.
func sanitize(content string) string {
	content = strings.ToValidUTF8(content, "")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, content)
}

func removeBoilerplate(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		slog.Debug("boilerplate removal skipped", "error", err)
		return content
	}
	doc.Find(boilerplateSelector).Remove()

	out, err := doc.Html()
	if err != nil {
		slog.Debug("boilerplate removal skipped", "error", err)
		return content
	}
	return out
}

// stripMarkup keeps only text nodes. Adjacent nodes are joined with a space
// so block elements do not run together.
func stripMarkup(content string) string {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return tagPattern.ReplaceAllString(content, " ")
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return sb.String()
}

func collapseWhitespace(content string) string {
	return strings.Join(strings.Fields(content), " ")
}

func truncate(content string, maxChars int) string {
	if len(content) <= maxChars {
		return content
	}
	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}
	return string(runes[:maxChars])
}
