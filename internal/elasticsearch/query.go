package elasticsearch

import "strings"

// storageOrder sorts hits the way they were inserted.
var storageOrder = []map[string]any{
	{"created_at": map[string]any{"order": "asc"}},
	{"chunk_index": map[string]any{"order": "asc"}},
	{"id": map[string]any{"order": "asc"}},
}

func urlExistsQuery(url string) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"term": map[string]any{
				"source_url": url,
			},
		},
	}
}

func embeddedQuery(limit int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"exists": map[string]any{"field": "embedding"},
		},
		"sort": storageOrder,
		"size": resultSize(limit),
	}
}

func keywordQuery(words []string, limit int) map[string]any {
	should := make([]map[string]any, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		should = append(should, map[string]any{
			"wildcard": map[string]any{
				"content.raw": map[string]any{
					"value":            "*" + escapeWildcard(w) + "*",
					"case_insensitive": true,
				},
			},
		})
	}

	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"should":               should,
				"minimum_should_match": 1,
			},
		},
		"sort": storageOrder,
		"size": resultSize(limit),
	}
}

// maxResultWindow is the default index.max_result_window.
const maxResultWindow = 10000

func resultSize(limit int) int {
	if limit <= 0 || limit > maxResultWindow {
		return maxResultWindow
	}
	return limit
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// escapeWildcard makes w match literally inside a wildcard pattern.
func escapeWildcard(w string) string {
	return wildcardEscaper.Replace(w)
}
