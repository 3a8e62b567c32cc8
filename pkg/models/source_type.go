package models

import "regexp"

// SourceType classifies where a chunk's text came from.
type SourceType string

const (
	SourceWebpage SourceType = "webpage"
	SourcePDF     SourceType = "pdf"
	SourcePaper   SourceType = "paper"
	SourceBook    SourceType = "book"
)

// Valid reports whether t is one of the known source types.
func (t SourceType) Valid() bool {
	switch t {
	case SourceWebpage, SourcePDF, SourcePaper, SourceBook:
		return true
	}
	return false
}

type sourceRule struct {
	pattern *regexp.Regexp
	kind    SourceType
}

// Evaluated in order, first match wins.
var sourceRules = []sourceRule{
	{regexp.MustCompile(`(?i)(arxiv\.org|scholar\.google\.|semanticscholar\.org|researchgate\.net|jstor\.org|doi\.org|pubmed|ncbi\.nlm\.nih\.gov|dl\.acm\.org|ieeexplore\.ieee\.org|ssrn\.com)`), SourcePaper},
	{regexp.MustCompile(`(?i)\.pdf$`), SourcePDF},
	{regexp.MustCompile(`(?i)(goodreads\.com|books\.google\.|openlibrary\.org|gutenberg\.org|barnesandnoble\.com|bookshop\.org|amazon\.[a-z.]+/(.*/)?(dp|gp/product)/)`), SourceBook},
}

// DetectSourceType infers a SourceType from the shape of a URL.
// Anything no rule recognises is a webpage.
func DetectSourceType(url string) SourceType {
	for _, rule := range sourceRules {
		if rule.pattern.MatchString(url) {
			return rule.kind
		}
	}
	return SourceWebpage
}
