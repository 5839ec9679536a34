package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/symmap/internal/symbols"
)

var (
	findKinds []string
	findJSON  bool
)

// findCmd represents the find command
var findCmd = &cobra.Command{
	Use:   "find <file> <pattern>",
	Short: "Find declarations in a source file by name",
	Long: `Find lists the declarations of a file whose name matches a glob pattern,
in document order. A pattern without metacharacters matches exactly.

Examples:
  symmap find Shape.java 'get*'
  symmap find Shape.java '{sides,Shape}' --kind field
  symmap find Shape.java '*' --kind method,constructor`,
	Args: cobra.ExactArgs(2),
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().StringSliceVarP(&findKinds, "kind", "k", nil, "restrict to these kinds (repeatable or comma-separated)")
	findCmd.Flags().BoolVar(&findJSON, "json", false, "print JSON")
}

func runFind(cmd *cobra.Command, args []string) error {
	kinds := make([]symbols.Kind, 0, len(findKinds))
	for _, name := range findKinds {
		k, err := symbols.ParseKind(name)
		if err != nil {
			return err
		}
		kinds = append(kinds, k)
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
	res, err := s.service.FindByName(fileID, args[1], kinds...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if findJSON {
		return writeJSON(out, res)
	}
	for _, m := range res.Matches {
		fmt.Fprintf(out, "%s:%s\t%s\t%s\n", fileID, m.Span.Start, m.Kind, m.Headline)
	}
	if len(res.Matches) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "no declarations match %q\n", args[1])
	}
	return nil
}
