// Package markdown recognises markdown responses and reduces them to plain
// text, so markdown sources are chunked without their markup.
package markdown

import (
	"regexp"
	"strings"
)

var (
	headingPattern = regexp.MustCompile(`^#{1,6}\s+\S`)
	listPattern    = regexp.MustCompile(`(?m)^[\-\*]\s+\S`)
	linkPattern    = regexp.MustCompile(`\[.+?\]\(.+?\)`)
	h1Pattern      = regexp.MustCompile(`(?m)^#\s+(.+?)\s*#*\s*$`)
	imagePattern   = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	inlineLink     = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	referenceDef   = regexp.MustCompile(`(?m)^\s*\[[^\]]+\]:\s+\S+.*$`)
	fenceLine      = regexp.MustCompile("(?m)^\\s*(```|~~~).*$")
	headingMarker  = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	blockquote     = regexp.MustCompile(`(?m)^\s*>\s?`)
	listMarker     = regexp.MustCompile(`(?m)^\s*(?:[\-\*\+]|\d+[.)])\s+`)
	rule           = regexp.MustCompile(`(?m)^\s*(?:[\-\*_]\s*){3,}$`)
	emphasis       = regexp.MustCompile(`(\*\*|\*|~~)([^\s*~](?:[^\n]*?[^\s*~])?)(\*\*|\*|~~)`)
	inlineCode     = regexp.MustCompile("`([^`]*)`")
)

// IsMarkdownContentType checks if the Content-Type header indicates markdown.
func IsMarkdownContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.HasPrefix(ct, "text/markdown") ||
		strings.HasPrefix(ct, "text/x-markdown")
}

// IsMarkdownURL checks if the URL indicates a markdown file.
func IsMarkdownURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasSuffix(lower, ".md") ||
		strings.HasSuffix(lower, ".markdown")
}

// IsMarkdownContent uses heuristics to detect if content is markdown.
func IsMarkdownContent(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || looksLikeHTML(trimmed) {
		return false
	}
	return headingPattern.MatchString(trimmed) ||
		listPattern.MatchString(trimmed) ||
		linkPattern.MatchString(trimmed)
}

// looksLikeHTML checks if content appears to be HTML.
func looksLikeHTML(content string) bool {
	lower := strings.ToLower(content)
	return strings.HasPrefix(lower, "<!doctype") ||
		strings.HasPrefix(lower, "<html") ||
		strings.HasPrefix(lower, "<head") ||
		strings.HasPrefix(lower, "<body")
}

// Detect combines all detection methods to determine if content is markdown.
// Checks in order: Content-Type, URL, then content heuristics.
func Detect(url, contentType, content string) bool {
	if IsMarkdownContentType(contentType) {
		return true
	}
	if IsMarkdownURL(url) {
		return true
	}
	return IsMarkdownContent(content)
}

// Title returns the text of the first H1 heading, or "".
func Title(content string) string {
	m := h1Pattern.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return Strip(m[1])
}

// Strip removes markdown syntax and keeps the readable text. Line structure
// is preserved; whitespace is left for the caller to normalise.
func Strip(content string) string {
	out := fenceLine.ReplaceAllString(content, "")
	out = referenceDef.ReplaceAllString(out, "")
	out = imagePattern.ReplaceAllString(out, "$1")
	out = inlineLink.ReplaceAllString(out, "$1")
	out = rule.ReplaceAllString(out, "")
	out = headingMarker.ReplaceAllString(out, "")
	out = blockquote.ReplaceAllString(out, "")
	out = listMarker.ReplaceAllString(out, "")
	out = inlineCode.ReplaceAllString(out, "$1")
	out = emphasis.ReplaceAllString(out, "$2")
	return out
}
