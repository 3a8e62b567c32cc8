package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mfenderov/tutor-kb/pkg/models"
)

// ErrEmptyQuery is returned when Search is called without a query.
var ErrEmptyQuery = errors.New("search query is empty")

// Config holds web search client configuration.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client queries an external web search provider.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// New creates a new search client. A missing API key is not an error:
// the client then reports no results for every query.
func New(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		endpoint:   config.Endpoint,
		apiKey:     config.APIKey,
	}
}

// searchRequest is the request payload for the search API.
type searchRequest struct {
	Query       string `json:"query"`
	ResultCount int    `json:"resultCount"`
}

// searchResponse is the response from the search API.
type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"results"`
}

// Available reports whether the client is configured to reach a provider.
func (c *Client) Available() bool {
	return c.apiKey != "" && c.endpoint != ""
}

// Search returns up to numResults hits for query.
// Provider failures (missing credential, transport error, non-2xx status,
// undecodable body) yield an empty slice and a nil error; callers treat
// "no results" as a normal outcome.
func (c *Client) Search(ctx context.Context, query string, numResults int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if !c.Available() {
		slog.Warn("search provider not configured, returning no results")
		return []models.SearchResult{}, nil
	}
	if numResults <= 0 {
		numResults = 3
	}

	body, err := json.Marshal(searchRequest{Query: query, ResultCount: numResults})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", c.apiKey)

	slog.Debug("searching", "query", query, "results", numResults)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		slog.Warn("search request failed", "query", query, "error", err)
		return []models.SearchResult{}, nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("failed to read search response", "query", query, "error", err)
		return []models.SearchResult{}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("search API error", "query", query, "status", resp.StatusCode)
		return []models.SearchResult{}, nil
	}

	var sr searchResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		slog.Warn("failed to decode search response", "query", query, "error", err)
		return []models.SearchResult{}, nil
	}

	results := make([]models.SearchResult, 0, len(sr.Results))
	for _, r := range sr.Results {
		if r.Link == "" {
			continue
		}
		results = append(results, models.SearchResult{
			Title:      strings.TrimSpace(r.Title),
			URL:        r.Link,
			Snippet:    strings.TrimSpace(r.Snippet),
			SourceType: models.DetectSourceType(r.Link),
		})
		if len(results) == numResults {
			break
		}
	}

	slog.Debug("search complete", "query", query, "results", len(results))
	return results, nil
}
