package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/symmap/internal/query"
	"github.com/mvp-joe/symmap/internal/symbols"
)

var (
	outlineMaxDepth int
	outlineLocal    bool
	outlineSymbol   string
	outlineJSON     bool
)

// outlineCmd represents the outline command
var outlineCmd = &cobra.Command{
	Use:   "outline <file>",
	Short: "Print the declaration outline of a source file",
	Long: `Outline maps a source file and prints its declarations nested as in the
source, one per line.

Examples:
  # Whole file
  symmap outline src/main/java/Shape.java

  # Top-level declarations and their direct members only
  symmap outline --max-depth 2 Shape.java

  # Children of one symbol, as JSON
  symmap outline --symbol <id> --json Shape.java`,
	Args: cobra.ExactArgs(1),
	RunE: runOutline,
}

func init() {
	rootCmd.AddCommand(outlineCmd)
	outlineCmd.Flags().IntVarP(&outlineMaxDepth, "max-depth", "d", 0, "levels to print below each listed symbol (0 = unlimited)")
	outlineCmd.Flags().BoolVar(&outlineLocal, "local", false, "include declarations inside method bodies (default from config)")
	outlineCmd.Flags().StringVar(&outlineSymbol, "symbol", "", "list the children of this symbol id")
	outlineCmd.Flags().BoolVar(&outlineJSON, "json", false, "print JSON")
}

func runOutline(cmd *cobra.Command, args []string) error {
	ctx, root, cfg, err := setup(cmd, rootDir)
	if err != nil {
		return err
	}
	if outlineMaxDepth < 0 {
		return fmt.Errorf("--max-depth must not be negative")
	}

	s, err := openSession(ctx, root, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	fileID, _, err := s.load(ctx, args[0])
	if err != nil {
		return err
	}

	opts := query.OutlineOptions{MaxDepth: outlineMaxDepth, IncludeLocal: cfg.Mapping.IncludeLocal}
	if cmd.Flags().Changed("local") {
		opts.IncludeLocal = outlineLocal
	}

	var res *query.OutlineResult
	if outlineSymbol != "" {
		res, err = s.service.Expand(fileID, symbols.ID(outlineSymbol), opts)
	} else {
		res, err = s.service.Outline(fileID, opts)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outlineJSON {
		return writeJSON(out, res)
	}
	writeOutline(out, res)
	return nil
}

// writeOutline prints the symbols of res indented by depth, flagging
// symbols whose children were cut off.
func writeOutline(w io.Writer, res *query.OutlineResult) {
	if res.Degraded {
		fmt.Fprintln(w, "[DEGRADED MAP]")
	}
	writeViews(w, res.Symbols, 0)
	for _, d := range res.Diagnostics {
		fmt.Fprintf(w, "! %s\n", d)
	}
}

func writeViews(w io.Writer, views []*query.SymbolView, depth int) {
	for _, v := range views {
		if depth > 0 {
			fmt.Fprint(w, strings.Repeat("  ", depth), "- ")
		}
		fmt.Fprint(w, v.Headline)
		if v.HasMore {
			fmt.Fprint(w, " ...")
		}
		fmt.Fprintf(w, "  [%s]\n", formatSpan(v.Span))
		writeViews(w, v.Children, depth+1)
	}
}

// formatSpan renders a span as one-based start-end points.
func formatSpan(span symbols.Span) string {
	return span.Start.String() + "-" + span.End.String()
}
