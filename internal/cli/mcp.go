package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/symmap/internal/mcp"
)

var mcpWatch bool

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for source structure queries",
	Long: `Start the Model Context Protocol (MCP) server that lets LLM-powered coding
assistants look at the structure of source files without reading them.

The MCP server:
- Maps files on demand and keeps the maps in an incremental cache
- Provides symmap_outline, symmap_lookup, symmap_find and symmap_status
- Warm-starts from the configured store
- With --watch, drops cached maps of files changed on disk
- Communicates via stdio (standard MCP transport); logs go to stderr

Example:
  symmap mcp --root /path/to/project --watch`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVarP(&mcpWatch, "watch", "w", false, "watch the project and invalidate changed files")
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, root, cfg, err := setup(cmd, rootDir)
	if err != nil {
		return err
	}

	server, err := mcp.NewMCPServer(ctx, &mcp.MCPServerConfig{
		ProjectPath: root,
		Config:      cfg,
		Watch:       mcpWatch,
		Version:     Version,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	// Serve (blocks until shutdown)
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
