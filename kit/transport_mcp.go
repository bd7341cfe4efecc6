// CLAUDE:SUMMARY Exposes a kit.Endpoint as an MCP tool: typed argument decoding, JSON text results, endpoint errors as tool errors.
package kit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPDecodeResult holds the decoded request and an optional context enrichment.
type MCPDecodeResult struct {
	Request   any
	EnrichCtx func(context.Context) context.Context
}

// MCPDecoder turns the raw tool arguments into an endpoint request.
type MCPDecoder func(*mcp.CallToolRequest) (*MCPDecodeResult, error)

// DecodeArgs decodes the tool arguments into a *T. Missing or null arguments
// give a zero T. Use it directly as an MCPDecoder:
//
//	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeArgs[QueryRequest])
func DecodeArgs[T any](req *mcp.CallToolRequest) (*MCPDecodeResult, error) {
	var v T
	if req.Params != nil {
		if raw := req.Params.Arguments; len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, err
			}
		}
	}
	return &MCPDecodeResult{Request: &v}, nil
}

// RegisterMCPTool registers endpoint as an MCP tool on srv. Decoding and
// endpoint failures are reported as tool errors (IsError), never as protocol
// errors, so the model sees the message.
func RegisterMCPTool(srv *mcp.Server, tool *mcp.Tool, endpoint Endpoint, decode MCPDecoder) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decoded, err := decode(req)
		if err != nil {
			return toolError(fmt.Errorf("%s: invalid arguments: %w", tool.Name, err)), nil
		}
		ctx = WithTransport(ctx, "mcp")
		if decoded.EnrichCtx != nil {
			ctx = decoded.EnrichCtx(ctx)
		}

		resp, err := endpoint(ctx, decoded.Request)
		if err != nil {
			return toolError(err), nil
		}
		return toolJSON(resp)
	})
}

func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Errorf("marshal result: %w", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}
