package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mfenderov/tutor-kb/internal/knowledge"
	"github.com/spf13/cobra"
)

var ingestAuthor string

var ingestCmd = &cobra.Command{
	Use:   "ingest [resource]",
	Short: "Ingest a resource mention into the knowledge base",
	Long: `Search the web for a book, article or paper, extract the top results,
chunk and embed them, and store the chunks.

Sources already in the knowledge base are skipped.

Examples:
  tutor-kb ingest "Pride and Prejudice" --author "Jane Austen"
  tutor-kb ingest "Make It Stick"`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestAuthor, "author", "", "Author of the resource, if known")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := knowledge.New(ctx, GetConfig())
	if err != nil {
		return fmt.Errorf("failed to create knowledge service: %w", err)
	}

	fmt.Printf("Ingesting: %s\n", args[0])

	result, err := svc.Run(ctx, args[0], ingestAuthor)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Query:           %s\n", result.Query)
	fmt.Printf("  Search results:  %d\n", result.SearchResults)
	fmt.Printf("  Already stored:  %d\n", result.Skipped)
	fmt.Printf("  Chunks stored:   %d\n", result.ChunksStored)
	fmt.Printf("  Chunks embedded: %d\n", result.ChunksEmbedded)
	if result.ArchivePrefix != "" {
		fmt.Printf("  Archived to:     %s\n", result.ArchivePrefix)
	}
	fmt.Printf("  Duration:        %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("  Warnings: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	return nil
}
