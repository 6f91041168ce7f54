// Package mcpserver exposes the compiler operations as MCP tools.
package mcpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/itstheanurag/ligo-compiler-api/internal/executor"
	"github.com/itstheanurag/ligo-compiler-api/internal/operations"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverName = "ligo-compiler"

type Dispatcher interface {
	Dispatch(ctx context.Context, opts executor.ExecuteOptions) (*executor.ExecutionResult, error)
}

// ToolOutput mirrors the HTTP operation response.
type ToolOutput struct {
	Result string `json:"result" jsonschema:"compiler output, or the error text when error is true"`
	Error  bool   `json:"error" jsonschema:"true when the compiler rejected the input"`
}

// New builds an MCP server with one tool per registered operation.
func New(d Dispatcher, registry *operations.Registry, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: version,
	}, nil)

	for _, op := range registry.List() {
		mcp.AddTool(server, &mcp.Tool{
			Name:        op.ID,
			Title:       op.Name,
			Description: op.Description,
		}, toolHandler(d, op))
	}
	return server
}

// Handler serves server over streamable HTTP.
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}

func toolHandler(d Dispatcher, op operations.Operation) mcp.ToolHandlerFor[operations.Request, ToolOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in operations.Request) (*mcp.CallToolResult, ToolOutput, error) {
		if missing := op.Missing(in); len(missing) > 0 {
			return nil, ToolOutput{}, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
		}

		res, err := d.Dispatch(ctx, executor.ExecuteOptions{Operation: op.ID, Request: in})
		if err != nil {
			return nil, ToolOutput{}, err
		}
		return nil, ToolOutput{Result: res.Result, Error: res.Failed()}, nil
	}
}
