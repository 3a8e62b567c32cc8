package config

import "time"

// Config holds all application configuration.
type Config struct {
	Search        Search        `mapstructure:"search"`
	Scraper       Scraper       `mapstructure:"scraper"`
	Chunker       Chunker       `mapstructure:"chunker"`
	Embeddings    Embeddings    `mapstructure:"embeddings"`
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	Storage       Storage       `mapstructure:"storage"`
	Ingestion     Ingestion     `mapstructure:"ingestion"`
	Retrieval     Retrieval     `mapstructure:"retrieval"`
	MCP           MCP           `mapstructure:"mcp"`
}

// Search holds web search provider configuration.
type Search struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Scraper holds page fetching configuration for content extraction.
type Scraper struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	MaxChars  int           `mapstructure:"max_chars"`
}

// Chunker holds text splitting configuration.
type Chunker struct {
	Size    int `mapstructure:"size"`
	Overlap int `mapstructure:"overlap"`
}

// Embeddings holds embedding provider configuration.
// SocketPath, when set, routes requests over a unix socket (Docker Model Runner)
// and lifts the API key requirement.
type Embeddings struct {
	BaseURL    string        `mapstructure:"base_url"` // empty: OpenAI, or Docker Model Runner when SocketPath is set
	APIKey     string        `mapstructure:"api_key"`
	SocketPath string        `mapstructure:"socket_path"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
	CacheSize  int           `mapstructure:"cache_size"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

// Elasticsearch holds ES connection configuration.
// An empty address list selects the in-memory store.
type Elasticsearch struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// Storage holds S3/MinIO configuration for the extract archive.
// An empty endpoint disables archiving.
type Storage struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// Ingestion holds pipeline tuning.
type Ingestion struct {
	ResultCount     int           `mapstructure:"result_count"`
	QuerySuffix     string        `mapstructure:"query_suffix"`
	MinContentChars int           `mapstructure:"min_content_chars"`
	EmbedDelay      time.Duration `mapstructure:"embed_delay"`
}

// Retrieval holds similarity search tuning.
type Retrieval struct {
	Limit           int     `mapstructure:"limit"`
	MinScore        float64 `mapstructure:"min_score"`
	WorkingSetLimit int     `mapstructure:"working_set_limit"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Search: Search{
			Timeout: 15 * time.Second,
		},
		Scraper: Scraper{
			Timeout:   15 * time.Second,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			MaxChars:  10000,
		},
		Chunker: Chunker{
			Size:    1500,
			Overlap: 200,
		},
		Embeddings: Embeddings{
			Model:      "text-embedding-3-small",
			Dimensions: 0, // derived from Model
			Timeout:    30 * time.Second,
			CacheSize:  512,
			CacheTTL:   10 * time.Minute,
		},
		Elasticsearch: Elasticsearch{
			Index: "tutor-kb-chunks",
		},
		Storage: Storage{
			Bucket: "tutor-kb",
		},
		Ingestion: Ingestion{
			ResultCount:     3,
			QuerySuffix:     "summary overview key concepts",
			MinContentChars: 100,
			EmbedDelay:      100 * time.Millisecond,
		},
		Retrieval: Retrieval{
			Limit:           5,
			MinScore:        0.5,
			WorkingSetLimit: 1000,
		},
		MCP: MCP{
			Name:    "tutor-kb",
			Version: "1.0.0",
		},
	}
}
