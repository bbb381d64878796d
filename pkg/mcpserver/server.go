// Package mcpserver exposes chunking, search and question answering as
// Model Context Protocol tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/coolbeans/regchunk/pkg/answer"
	"github.com/coolbeans/regchunk/pkg/embed"
	"github.com/coolbeans/regchunk/pkg/pipeline"
	"github.com/coolbeans/regchunk/pkg/store"
)

const (
	serverName   = "regchunk"
	defaultLimit = 10
	maxLimit     = 50
)

// Runner chunks one document.
type Runner interface {
	Run(ctx context.Context, name, raw string) (*pipeline.Result, error)
}

// Index is the read side of the chunk store.
type Index interface {
	SearchText(ctx context.Context, query string, limit int) ([]*store.Hit, error)
	SearchVector(ctx context.Context, model string, vec []float32, limit int) ([]*store.Hit, error)
	ListDocuments(ctx context.Context) ([]*store.Document, error)
}

// Asker answers a question from indexed chunks.
type Asker interface {
	Ask(ctx context.Context, question string) (*answer.Answer, error)
}

// Config holds the server's collaborators. Index, Embedder and Asker are
// optional; tools that need a missing one are not registered.
type Config struct {
	Version  string
	Pipeline Runner
	Index    Index
	Embedder embed.Embedder
	Asker    Asker
}

// NewServer creates an MCP server with the tools cfg can back.
func NewServer(cfg Config) *server.MCPServer {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := server.NewMCPServer(serverName, version, server.WithToolCapabilities(false))

	if cfg.Pipeline != nil {
		registerChunkTool(s, cfg.Pipeline)
	}
	if cfg.Index != nil {
		registerSearchTool(s, cfg.Index, cfg.Embedder)
		registerListTool(s, cfg.Index)
	}
	if cfg.Asker != nil {
		registerAskTool(s, cfg.Asker)
	}
	return s
}

// Serve speaks MCP over in and out until ctx is done or in is closed.
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s).Listen(ctx, in, out)
}

func registerChunkTool(s *server.MCPServer, runner Runner) {
	tool := mcp.NewTool("chunk_text",
		mcp.WithDescription("Split the text of a Brazilian normative document (resolution, law, decree) into hierarchy-aware chunks. Each chunk carries its breadcrumb, page, element type and semantic tags."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Full document text; [[PAGINA:n]] lines mark page starts"),
		),
		mcp.WithString("name",
			mcp.Description("Document name used in logs (default: mcp-input)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}
		name := req.GetString("name", "mcp-input")

		res, err := runner.Run(ctx, name, text)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("chunking failed: %v", err)), nil
		}
		return jsonResult(res)
	})
}

func registerSearchTool(s *server.MCPServer, index Index, embedder embed.Embedder) {
	tool := mcp.NewTool("search_chunks",
		mcp.WithDescription("Search indexed chunks by keyword (FTS5, bm25) or by semantic similarity."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithString("mode",
			mcp.Description("keyword (default) or semantic"),
			mcp.Enum("keyword", "semantic"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 10, max: 50)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}
		limit := req.GetInt("limit", defaultLimit)
		if limit <= 0 {
			limit = defaultLimit
		}
		limit = min(limit, maxLimit)

		var hits []*store.Hit
		switch mode := req.GetString("mode", "keyword"); mode {
		case "keyword", "":
			hits, err = index.SearchText(ctx, query, limit)
		case "semantic":
			if embedder == nil {
				return mcp.NewToolResultError("semantic search needs an embedder"), nil
			}
			var vectors [][]float32
			vectors, err = embedder.Embed(ctx, []string{query})
			if err == nil {
				hits, err = index.SearchVector(ctx, embedder.Model(), vectors[0], limit)
			}
		default:
			return mcp.NewToolResultError(fmt.Sprintf("invalid mode: %s", mode)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search error: %v", err)), nil
		}
		if hits == nil {
			hits = []*store.Hit{}
		}
		return jsonResult(hits)
	})
}

func registerListTool(s *server.MCPServer, index Index) {
	tool := mcp.NewTool("list_documents",
		mcp.WithDescription("List indexed documents with their kind and chunk count."),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		docs, err := index.ListDocuments(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing documents: %v", err)), nil
		}
		if docs == nil {
			docs = []*store.Document{}
		}
		return jsonResult(docs)
	})
}

func registerAskTool(s *server.MCPServer, asker Asker) {
	tool := mcp.NewTool("ask",
		mcp.WithDescription("Answer a question using only the indexed normative documents. Returns the answer, its source documents and how many chunks were used."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Question in natural language"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError("question is required"), nil
		}
		ans, err := asker.Ask(ctx, question)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
		}
		return jsonResult(ans)
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
