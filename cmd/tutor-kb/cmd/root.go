package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/mfenderov/tutor-kb/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "tutor-kb",
	Short: "tutor-kb: a knowledge base for tutoring conversations",
	Long: `tutor-kb turns mentions of books, articles and papers into a searchable
knowledge base: it searches the web, extracts plain text, chunks it, embeds
the chunks and answers queries by similarity with a keyword fallback.

Commands:
  ingest   Ingest a resource mention
  search   Retrieve knowledge for a query
  reindex  Rebuild chunks from an archived ingestion run
  serve    Start the MCP server`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// envKeys are bound explicitly so Unmarshal sees them without a config file.
var envKeys = []string{
	"search.endpoint",
	"search.api_key",
	"search.timeout",
	"scraper.timeout",
	"scraper.user_agent",
	"chunker.size",
	"chunker.overlap",
	"embeddings.base_url",
	"embeddings.api_key",
	"embeddings.socket_path",
	"embeddings.model",
	"embeddings.dimensions",
	"elasticsearch.addresses",
	"elasticsearch.index",
	"elasticsearch.username",
	"elasticsearch.password",
	"storage.endpoint",
	"storage.bucket",
	"storage.access_key_id",
	"storage.secret_access_key",
	"storage.use_ssl",
	"retrieval.limit",
	"mcp.name",
	"mcp.version",
}

func initConfig() {
	// Start with defaults
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/tutor-kb")
		viper.AddConfigPath(".")
	}

	// Environment variable overrides
	// TUTORKB_EMBEDDINGS_API_KEY -> embeddings.api_key
	viper.SetEnvPrefix("TUTORKB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for _, key := range envKeys {
		viper.BindEnv(key)
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	// Unmarshal into struct (merges config file with defaults)
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Handle special case: addresses as comma-separated string from env
	if addrs := os.Getenv("TUTORKB_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}
}
