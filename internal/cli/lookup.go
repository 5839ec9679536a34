package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/symmap/internal/query"
)

var lookupJSON bool

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup <file> <line:col|offset>",
	Short: "Find the declaration enclosing a position",
	Long: `Lookup prints the innermost declaration containing a position, with the
names of the declarations around it.

The position is either line:column, both starting at 1, or a zero-based
byte offset.

Examples:
  symmap lookup Shape.java 11:9
  symmap lookup Shape.java 214`,
	Args: cobra.ExactArgs(2),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "print JSON")
}

func runLookup(cmd *cobra.Command, args []string) error {
	pos, err := query.ParsePosition(args[1])
	if err != nil {
		return err
	}

	ctx, root, cfg, err := setup(cmd, rootDir)
	if err != nil {
		return err
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
	res, err := s.service.Lookup(fileID, pos)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if lookupJSON {
		return writeJSON(out, res)
	}
	if res.Symbol == nil {
		fmt.Fprintf(out, "%s %s: no declaration\n", fileID, res.Position)
		return nil
	}
	fmt.Fprintf(out, "%s %s: %s\n", fileID, res.Position, strings.Join(res.Path, " > "))
	fmt.Fprintf(out, "  %s  [%s]\n", res.Symbol.Headline, formatSpan(res.Symbol.Span))
	return nil
}
