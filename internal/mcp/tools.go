package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/symmap/internal/cache"
	"github.com/mvp-joe/symmap/internal/query"
	"github.com/mvp-joe/symmap/internal/symbols"
)

// maxOutlineDepth bounds the max_depth argument.
const maxOutlineDepth = 64

// toolHandler is the mcp-go handler signature.
type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Backend is what the tools read from. Files are loaded into the cache on
// demand, so a tool call may build a map.
type Backend struct {
	Loader       *query.Loader
	Service      *query.Service
	Cache        *cache.Cache
	Metrics      *ServerMetrics
	IncludeLocal bool // Default for include_local
}

// AddOutlineTool registers the symmap_outline tool with an MCP server.
func AddOutlineTool(s *server.MCPServer, b *Backend) {
	tool := mcp.NewTool(
		"symmap_outline",
		mcp.WithDescription(`Return the declaration outline of a source file: types, interfaces, enums, records, methods, fields and constructors with their modifiers, generics, annotations and spans, nested as in the source.

Use max_depth to keep large files small and "symbol" to drill into one symbol of a previous outline. Symbols with has_more=true have children cut off by max_depth.`),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("File path, relative to the project root or absolute")),
		mcp.WithNumber("max_depth",
			mcp.Description("Levels to expand below each listed symbol (0 = unlimited, default: 0)")),
		mcp.WithBoolean("include_local",
			mcp.Description("Include symbols declared inside method bodies (default: from config)")),
		mcp.WithString("symbol",
			mcp.Description("Symbol id from a previous outline; lists that symbol's children instead of the file roots")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, instrument("symmap_outline", b.Metrics, createOutlineHandler(b)))
}

// createOutlineHandler creates the handler function for symmap_outline.
func createOutlineHandler(b *Backend) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		var args OutlineRequest
		if err := bindArguments(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := requireString("file", args.File); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		fileID, _, err := b.Loader.Load(ctx, args.File)
		if err != nil {
			return loadError(err)
		}

		opts := query.OutlineOptions{
			MaxDepth:     clamp(args.MaxDepth, 0, maxOutlineDepth),
			IncludeLocal: b.IncludeLocal,
		}
		if args.IncludeLocal != nil {
			opts.IncludeLocal = *args.IncludeLocal
		}

		var res *query.OutlineResult
		if args.Symbol != "" {
			res, err = b.Service.Expand(fileID, symbols.ID(args.Symbol), opts)
		} else {
			res, err = b.Service.Outline(fileID, opts)
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return marshalToolResponse(&OutlineResponse{OutlineResult: res, Metadata: newMetadata(start)})
	}
}

// AddLookupTool registers the symmap_lookup tool with an MCP server.
func AddLookupTool(s *server.MCPServer, b *Backend) {
	tool := mcp.NewTool(
		"symmap_lookup",
		mcp.WithDescription("Find the innermost declaration enclosing a position in a source file, with the names of its enclosing declarations. Useful to answer \"which method/class is this line in?\"."),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("File path, relative to the project root or absolute")),
		mcp.WithString("position",
			mcp.Required(),
			mcp.Description("Either line:column (both starting at 1, e.g. '42:5') or a zero-based byte offset")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, instrument("symmap_lookup", b.Metrics, createLookupHandler(b)))
}

// createLookupHandler creates the handler function for symmap_lookup.
func createLookupHandler(b *Backend) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		var args LookupRequest
		if err := bindArguments(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := requireString("file", args.File); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := requireString("position", args.Position); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		pos, err := query.ParsePosition(args.Position)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		fileID, _, err := b.Loader.Load(ctx, args.File)
		if err != nil {
			return loadError(err)
		}

		res, err := b.Service.Lookup(fileID, pos)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return marshalToolResponse(&LookupResponse{LookupResult: res, Metadata: newMetadata(start)})
	}
}

// AddFindTool registers the symmap_find tool with an MCP server.
func AddFindTool(s *server.MCPServer, b *Backend) {
	tool := mcp.NewTool(
		"symmap_find",
		mcp.WithDescription(`Find declarations in a source file by name. The pattern is a glob: '*' matches any run of characters, '?' one character, '[abc]' a class and '{get,set}*' alternatives. A pattern without metacharacters matches names exactly.

Results are in document order and include declarations inside method bodies.`),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("File path, relative to the project root or absolute")),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("Name or glob pattern (e.g. 'get*', 'Builder')")),
		mcp.WithArray("kinds",
			mcp.Description("Restrict to these kinds: type, interface, enum, enum_constant, record, record_component, method, field, constructor, annotation_definition, section"),
			mcp.WithStringItems()),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, instrument("symmap_find", b.Metrics, createFindHandler(b)))
}

// createFindHandler creates the handler function for symmap_find.
func createFindHandler(b *Backend) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		var args FindRequest
		if err := bindArguments(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := requireString("file", args.File); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := requireString("pattern", args.Pattern); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		kinds, err := parseKinds(args.Kinds)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		fileID, _, err := b.Loader.Load(ctx, args.File)
		if err != nil {
			return loadError(err)
		}

		res, err := b.Service.FindByName(fileID, args.Pattern, kinds...)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return marshalToolResponse(&FindResponse{FindResult: res, Total: len(res.Matches), Metadata: newMetadata(start)})
	}
}

// loadError turns a failed load into a tool error. Cancellation is a
// protocol-level error.
func loadError(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	return mcp.NewToolResultError(err.Error()), nil
}

// instrument records every call of a tool in metrics.
func instrument(name string, metrics *ServerMetrics, handler toolHandler) toolHandler {
	if metrics == nil {
		return handler
	}
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := handler(ctx, request)

		failure := err
		if failure == nil && result != nil && result.IsError {
			failure = errors.New(resultText(result))
		}
		metrics.RecordCall(name, time.Since(start), failure)
		return result, err
	}
}

// resultText returns the first text content of a result.
func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := mcp.AsTextContent(c); ok {
			return text.Text
		}
	}
	return ""
}
