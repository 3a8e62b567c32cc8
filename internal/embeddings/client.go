package embeddings

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// dmrBaseURL is the OpenAI-compatible prefix served by Docker Model Runner.
const dmrBaseURL = "http://localhost/exp/vDD4.40/engines/llama.cpp/v1"

// MaxInputChars limits input to stay within model context window.
const MaxInputChars = 20000

// Embedder vectorizes text. The boolean is false when no vector could be
// produced; callers skip vectorization instead of failing.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, bool)
}

// Config holds embeddings client configuration.
type Config struct {
	BaseURL    string // OpenAI-compatible API root; empty selects OpenAI, or DMR when SocketPath is set
	APIKey     string
	SocketPath string // Unix socket path for Docker Model Runner
	Model      string
	Dimensions int // expected vector length; 0 derives it from Model
	Timeout    time.Duration
}

// Client wraps an OpenAI-compatible embeddings API.
type Client struct {
	api        *openai.Client
	model      string
	dimensions int
	available  bool
}

// New creates a new embeddings client. A missing credential does not fail
// construction; the client then reports every embedding as unavailable.
func New(config Config) *Client {
	if config.Model == "" {
		config.Model = string(openai.SmallEmbedding3)
	}
	if config.Dimensions <= 0 {
		config.Dimensions = Dimensions(config.Model)
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	httpClient := &http.Client{Timeout: config.Timeout}

	if config.SocketPath != "" {
		socketPath := config.SocketPath
		httpClient.Transport = &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		}
		clientConfig.BaseURL = dmrBaseURL
	}
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = httpClient

	available := config.APIKey != "" || config.SocketPath != ""
	if !available {
		slog.Warn("embeddings API key not configured, embeddings disabled", "model", config.Model)
	}

	return &Client{
		api:        openai.NewClientWithConfig(clientConfig),
		model:      config.Model,
		dimensions: config.Dimensions,
		available:  available,
	}
}

// Available reports whether the client has the credential to call the provider.
func (c *Client) Available() bool {
	return c.available
}

// Model returns the embedding model name.
func (c *Client) Model() string {
	return c.model
}

// Dimensions returns the vector length this client produces.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// Embed generates an embedding vector for the given text.
// Text exceeding MaxInputChars is truncated from the end. Missing credential,
// transport failure, provider error and a vector of unexpected length all
// yield (nil, false).
func (c *Client) Embed(ctx context.Context, text string) ([]float32, bool) {
	if !c.available {
		slog.Debug("embedding skipped, provider unavailable")
		return nil, false
	}
	if text == "" {
		return nil, false
	}

	if runes := []rune(text); len(runes) > MaxInputChars {
		text = string(runes[:MaxInputChars])
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		slog.Warn("failed to generate embedding", "model", c.model, "error", err)
		return nil, false
	}

	if len(resp.Data) == 0 {
		slog.Warn("no embedding returned", "model", c.model)
		return nil, false
	}

	embedding := resp.Data[0].Embedding
	if len(embedding) != c.dimensions {
		slog.Warn("embedding has wrong dimensions", "model", c.model, "got", len(embedding), "want", c.dimensions)
		return nil, false
	}

	return embedding, true
}

// Dimensions returns the expected embedding dimensions for common models.
func Dimensions(model string) int {
	switch model {
	case string(openai.SmallEmbedding3), string(openai.AdaEmbeddingV2):
		return 1536
	case string(openai.LargeEmbedding3):
		return 3072
	case "ai/embeddinggemma":
		return 768
	case "ai/snowflake-arctic-embed":
		return 1024
	case "ai/qwen3-embedding":
		return 2560
	default:
		return 1536
	}
}
