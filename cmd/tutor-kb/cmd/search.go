package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/mfenderov/tutor-kb/internal/knowledge"
	"github.com/mfenderov/tutor-kb/internal/retriever"
	"github.com/spf13/cobra"
)

var (
	searchLimit  int
	searchFormat string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Retrieve knowledge for a query",
	Long: `Rank stored chunks against the query by embedding similarity. When the
query cannot be embedded, chunks containing the query's longer words are
returned unscored.

Examples:
  # Basic search
  tutor-kb search "spaced repetition"

  # Limit results
  tutor-kb search "retrieval practice" --limit 3

  # JSON output for scripting
  tutor-kb search "interleaving" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum number of results (default from config)")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := knowledge.New(ctx, GetConfig())
	if err != nil {
		return fmt.Errorf("failed to create knowledge service: %w", err)
	}

	matches, err := svc.Retrieve(ctx, args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	return writeMatches(cmd.OutOrStdout(), matches, searchFormat)
}

// writeMatches renders matches as text or JSON. JSON output is always an
// array, empty when nothing matched.
func writeMatches(w io.Writer, matches []retriever.Match, format string) error {
	if matches == nil {
		matches = []retriever.Match{}
	}
	for i := range matches {
		matches[i].Chunk.Embedding = nil
	}

	if format == "json" {
		output, err := json.MarshalIndent(matches, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(output))
		return nil
	}

	if len(matches) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "Found %d results:\n\n", len(matches))
	for i, m := range matches {
		fmt.Fprintf(w, "─── Result %d ───\n", i+1)
		fmt.Fprintf(w, "Title:   %s\n", m.Chunk.SourceTitle)
		fmt.Fprintf(w, "URL:     %s\n", m.Chunk.SourceURL)
		fmt.Fprintf(w, "Type:    %s\n", m.Chunk.SourceType)
		if m.Score != nil {
			fmt.Fprintf(w, "Score:   %.3f\n", *m.Score)
		} else {
			fmt.Fprintf(w, "Score:   keyword match\n")
		}

		// Truncate content for display
		content := []rune(m.Chunk.Content)
		if len(content) > 500 {
			content = append(content[:500], []rune("...")...)
		}
		fmt.Fprintf(w, "Content:\n%s\n\n", string(content))
	}

	return nil
}
