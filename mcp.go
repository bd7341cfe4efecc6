package axquery

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/axquery/kit"
)

// RegisterMCP registers axquery tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerQueryTool(srv)
	s.registerHandlersTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// --- query ---

func (s *Service) registerQueryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "axquery_query",
		Description: "Run a selector against a page. Selectors are CSS by default; " +
			`"aria/<name>&<role>" matches by accessible name and role (e.g. "aria/Submit&button", "aria/&link").`,
		InputSchema: inputSchema(map[string]any{
			"url":      map[string]any{"type": "string", "description": "Page URL to open"},
			"html":     map[string]any{"type": "string", "description": "Inline HTML document, instead of url"},
			"selector": map[string]any{"type": "string", "description": "Selector, optionally prefixed by a dialect name"},
			"op": map[string]any{
				"type":        "string",
				"enum":        []string{OpOne, OpAll, OpCount},
				"description": "one | all | count (default all)",
			},
		}, []string{"selector"}),
	}

	kit.RegisterMCPTool(srv, tool, s.queryEndpoint(), kit.DecodeArgs[QueryRequest])
}

// --- handlers ---

func (s *Service) registerHandlersTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "axquery_handlers",
		Description: "List the selector dialects (prefixes) available, such as aria.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	kit.RegisterMCPTool(srv, tool, s.handlersEndpoint(), kit.DecodeArgs[struct{}])
}

// NewMCPServer returns an MCP server carrying the axquery tools.
func (s *Service) NewMCPServer(version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "axquery", Version: version}, nil)
	s.RegisterMCP(srv)
	return srv
}

// ServeMCPStdio serves the MCP tools over stdin/stdout until ctx is done.
func (s *Service) ServeMCPStdio(ctx context.Context, version string) error {
	return s.NewMCPServer(version).Run(ctx, &mcp.StdioTransport{})
}
