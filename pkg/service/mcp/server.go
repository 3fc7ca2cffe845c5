// Package mcp exposes the book tools over the Model Context Protocol so
// external agents can drive fetch, present, search and rank operations.
package mcp

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-hoshino/libretto/pkg/tool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/genai"
)

// Server bridges the tool registry to an MCP server. Every registered tool
// keeps the exact text semantics of its function-calling counterpart.
type Server struct {
	mcpServer *mcp.Server
	registry  *tool.Registry
}

type FetchInput struct {
	SearchQuery string `json:"search_query" jsonschema:"The search term; keywords and categories can be combined"`
	SearchType  string `json:"search_type,omitempty" jsonschema:"One of keywords, category, title, author, isbn (default: keywords)"`
}

type PresentInput struct {
	SearchID      string `json:"search_id" jsonschema:"The search ID returned by a previous fetch_books call"`
	NumberOfItems string `json:"number_of_items,omitempty" jsonschema:"How many books to display from the top of the results (default: 10)"`
}

type SearchInput struct {
	Keywords   string `json:"keywords" jsonschema:"Free-text description of the books to look for"`
	NumResults string `json:"num_results,omitempty" jsonschema:"How many matches to return (default: 3, max: 10)"`
}

type RankInput struct {
	SearchID string `json:"search_id" jsonschema:"The search ID returned by a previous fetch_books call"`
	Rank     string `json:"rank" jsonschema:"1-based position of the book within the search results"`
}

func NewServer(name, version string, registry *tool.Registry) (*Server, error) {
	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    name,
			Version: version,
		}, nil),
		registry: registry,
	}

	if err := registerTool(s, "fetch_books",
		"Downloads book information based on flexible search criteria and stores it for later use. "+
			"Returns a message containing 'Search ID: <uuid>'.",
		func(in FetchInput) map[string]any {
			args := map[string]any{"search_query": in.SearchQuery}
			if in.SearchType != "" {
				args["search_type"] = in.SearchType
			}
			return args
		}); err != nil {
		return nil, err
	}

	if err := registerTool(s, "present_books",
		"Materializes previously fetched books into a view and returns a <data_retrieved=TOKEN> marker.",
		func(in PresentInput) map[string]any {
			args := map[string]any{"search_id": in.SearchID}
			if in.NumberOfItems != "" {
				args["number_of_items"] = in.NumberOfItems
			}
			return args
		}); err != nil {
		return nil, err
	}

	if err := registerTool(s, "search_library",
		"Searches all previously fetched books by meaning, across every past search.",
		func(in SearchInput) map[string]any {
			args := map[string]any{"keywords": in.Keywords}
			if in.NumResults != "" {
				args["num_results"] = in.NumResults
			}
			return args
		}); err != nil {
		return nil, err
	}

	if err := registerTool(s, "get_book_by_rank",
		"Returns the full details of a single book from a previous search, identified by its rank.",
		func(in RankInput) map[string]any {
			return map[string]any{"search_id": in.SearchID, "rank": in.Rank}
		}); err != nil {
		return nil, err
	}

	return s, nil
}

// registerTool wires one typed MCP tool to the registry's function-call
// dispatch. The registry tool's response text becomes the MCP text content.
func registerTool[T any](s *Server, name, description string, toArgs func(T) map[string]any) error {
	inputSchema, err := jsonschema.For[T](nil)
	if err != nil {
		return goerr.Wrap(err, "failed to build input schema", goerr.V("tool", name))
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in T) (*mcp.CallToolResult, any, error) {
		resp, err := s.registry.Execute(ctx, genai.FunctionCall{
			Name: name,
			Args: toArgs(in),
		})
		if err != nil {
			return nil, nil, goerr.Wrap(err, "tool execution failed", goerr.V("tool", name))
		}

		text, _ := resp.Response["result"].(string)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil, nil
	})
	return nil
}

// Run serves MCP on the given transport until the context is canceled
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return goerr.Wrap(err, "mcp server terminated")
	}
	return nil
}
