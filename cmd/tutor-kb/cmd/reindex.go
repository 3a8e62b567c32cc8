package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/mfenderov/tutor-kb/internal/knowledge"
	"github.com/spf13/cobra"
)

var reindexPrefix string

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild chunks from an archived ingestion run",
	Long: `Re-chunk and re-embed the extracted text of a previous ingestion run
from S3 without fetching anything from the web. Use it after changing the
embedding model or switching stores.

Examples:
  tutor-kb reindex --prefix ingests/2026-03-14T09-26-53-1a2b3c4d`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)

	reindexCmd.Flags().StringVar(&reindexPrefix, "prefix", "", "S3 prefix of the archived run (required)")
	reindexCmd.MarkFlagRequired("prefix")
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	slog.Debug("reindex command starting", "prefix", reindexPrefix)

	if cfg.Storage.Endpoint == "" {
		return fmt.Errorf("storage not configured - check config file")
	}

	svc, err := knowledge.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create knowledge service: %w", err)
	}

	fmt.Printf("Reindexing: %s\n", reindexPrefix)

	result, err := svc.Replay(ctx, reindexPrefix)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	fmt.Printf("\nReindex complete:\n")
	fmt.Printf("  Query:          %s\n", result.Query)
	fmt.Printf("  Docs replayed:  %d\n", result.DocsReplayed)
	fmt.Printf("  Already stored: %d\n", result.DocsSkipped)
	fmt.Printf("  Chunks stored:  %d\n", result.ChunksStored)
	fmt.Printf("  Duration:       %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("  Warnings: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	return nil
}
