package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mfenderov/tutor-kb/internal/pipeline"
	"github.com/mfenderov/tutor-kb/internal/retriever"
)

// Knowledge is the service the tools are backed by.
type Knowledge interface {
	Run(ctx context.Context, name, author string) (*pipeline.Result, error)
	Retrieve(ctx context.Context, query string, limit int) ([]retriever.Match, error)
}

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// Server exposes retrieval and ingestion as MCP tools.
type Server struct {
	mcpServer *server.MCPServer
	knowledge Knowledge
}

// ingestResponse is the ingest_resource tool payload.
type ingestResponse struct {
	Ingested     bool     `json:"ingested"`
	Query        string   `json:"query"`
	ChunksStored int      `json:"chunks_stored"`
	Skipped      int      `json:"skipped"`
	Errors       []string `json:"errors,omitempty"`
}

// NewServer creates a new MCP server with knowledge tools.
func NewServer(config Config, knowledge Knowledge) *Server {
	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		knowledge: knowledge,
	}

	retrieveTool := mcp.NewTool("retrieve_knowledge",
		mcp.WithDescription("Retrieve stored knowledge chunks relevant to a query. Results carry a similarity score unless they came from keyword fallback."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of chunks to return (default: 5)"),
		),
	)
	mcpServer.AddTool(retrieveTool, s.retrieveHandler)

	ingestTool := mcp.NewTool("ingest_resource",
		mcp.WithDescription("Search the web for a book, article or paper, extract it and add it to the knowledge base."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Resource title as mentioned by the learner"),
		),
		mcp.WithString("author",
			mcp.Description("Author, if known"),
		),
	)
	mcpServer.AddTool(ingestTool, s.ingestHandler)

	return s
}

// retrieveHandler handles the retrieve_knowledge tool call.
func (s *Server) retrieveHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil || query == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	limit := req.GetInt("limit", 0)

	matches, err := s.knowledge.Retrieve(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
	}

	// Vectors are noise to the caller.
	for i := range matches {
		matches[i].Chunk.Embedding = nil
	}

	result, err := json.Marshal(matches)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// ingestHandler handles the ingest_resource tool call.
func (s *Server) ingestHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil || name == "" {
		return mcp.NewToolResultError("name parameter is required"), nil
	}

	author := req.GetString("author", "")

	res, err := s.knowledge.Run(ctx, name, author)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ingestion failed: %v", err)), nil
	}

	result, err := json.Marshal(ingestResponse{
		Ingested:     res.ChunksStored > 0,
		Query:        res.Query,
		ChunksStored: res.ChunksStored,
		Skipped:      res.Skipped,
		Errors:       res.Errors,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
