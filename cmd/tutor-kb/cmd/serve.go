package cmd

import (
	"context"
	"fmt"

	"github.com/mfenderov/tutor-kb/internal/knowledge"
	"github.com/mfenderov/tutor-kb/internal/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server for the tutoring orchestrator.

The server communicates via stdio and provides two tools:
  - retrieve_knowledge: Retrieve chunks relevant to a query
  - ingest_resource: Ingest a book, article or paper by name

Without elasticsearch.addresses the knowledge base lives in memory for the
lifetime of the server.

Example:
  tutor-kb serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	svc, err := knowledge.New(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create knowledge service: %w", err)
	}

	server := mcp.NewServer(mcp.Config{
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
	}, svc)

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}
