package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// AddStatusTool registers the symmap_status tool with an MCP server.
func AddStatusTool(s *server.MCPServer, b *Backend) {
	tool := mcp.NewTool(
		"symmap_status",
		mcp.WithDescription("Report map cache occupancy and counters, tool call metrics, and optionally the cache state of one file (absent, building, ready, stale or failed). Never builds a map."),
		mcp.WithString("file",
			mcp.Description("File path to report the cache state of (optional)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createStatusHandler(b))
}

// createStatusHandler creates the handler function for symmap_status.
func createStatusHandler(b *Backend) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args StatusRequest
		if err := bindArguments(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		response := &StatusResponse{
			Root:  b.Loader.Root(),
			Cache: b.Cache.Stats(),
		}
		if b.Metrics != nil {
			response.Metrics = b.Metrics.GetMetrics()
		}
		if args.File != "" {
			fileID, err := b.Loader.FileID(args.File)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			response.File = fileID
			response.State = b.Service.Status(fileID).String()
		}

		return marshalToolResponse(response)
	}
}
