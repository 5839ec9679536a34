package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	slogctx "github.com/veqryn/slog-context"

	"github.com/mvp-joe/symmap/internal/config"
	"github.com/mvp-joe/symmap/internal/indexer"
	"github.com/mvp-joe/symmap/internal/symbols"
)

var (
	mapOutput   string
	mapQuiet    bool
	mapLocal    bool
	mapMaxDepth int
)

// mapCmd represents the map command
var mapCmd = &cobra.Command{
	Use:   "map <dir>",
	Short: "Map every source file under a directory",
	Long: `Map discovers the source files under a directory using the include and
ignore patterns of its configuration and maps them concurrently.

The result is one "### path" section per file, sorted by path. Files in an
unsupported language get [NO MAP], files over mapping.max_file_size get
[NO MAP - TOO LARGE]. A file that fails never stops the others.

When a storage backend is configured the maps are saved there, so later
queries start warm.

Examples:
  # Map the current directory to stdout
  symmap map .

  # Write the maps to a file without progress output
  symmap map ./src -o maps.txt --quiet`,
	Args: cobra.ExactArgs(1),
	RunE: runMap,
}

func init() {
	rootCmd.AddCommand(mapCmd)
	mapCmd.Flags().StringVarP(&mapOutput, "output", "o", "", "write the maps to this file instead of stdout")
	mapCmd.Flags().BoolVarP(&mapQuiet, "quiet", "q", false, "disable progress output")
	mapCmd.Flags().BoolVar(&mapLocal, "local", false, "include declarations inside method bodies (default from config)")
	mapCmd.Flags().IntVarP(&mapMaxDepth, "max-depth", "d", 0, "levels to print per file (0 = unlimited)")
}

func runMap(cmd *cobra.Command, args []string) error {
	ctx, root, cfg, err := setup(cmd, args[0])
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", args[0], err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", args[0])
	}
	if mapMaxDepth < 0 {
		return fmt.Errorf("--max-depth must not be negative")
	}

	// Handle interrupt signals gracefully
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mapper := indexer.NewMapper(cfg.MapperOptions()...)
	discovery, err := cfg.Discovery(root, nil)
	if err != nil {
		return fmt.Errorf("failed to compile path patterns: %w", err)
	}

	opts := cfg.BatchOptions(root)
	opts.Progress = NewCLIProgressReporter(cmd.ErrOrStderr(), mapQuiet)

	result, err := mapper.MapDir(ctx, discovery, opts)
	if result == nil {
		if ctx.Err() != nil {
			return fmt.Errorf("mapping cancelled")
		}
		return err
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, ferr := range merr.Errors {
			slogctx.Warn(ctx, "file not mapped", "error", ferr)
		}
	}

	if err := saveMaps(ctx, root, cfg, result); err != nil {
		return err
	}

	renderOpts := symbols.RenderOptions{MaxDepth: mapMaxDepth, IncludeLocal: cfg.Mapping.IncludeLocal}
	if cmd.Flags().Changed("local") {
		renderOpts.IncludeLocal = mapLocal
	}
	return writeMaps(cmd.OutOrStdout(), mapOutput, result.Combined(renderOpts))
}

// saveMaps stores every produced map in the configured store, if any.
func saveMaps(ctx context.Context, root string, cfg *config.Config, result *indexer.BatchResult) error {
	store, err := cfg.OpenStore(root)
	if err != nil {
		return err
	}
	if store == nil {
		return nil
	}
	defer store.Close()

	var errs *multierror.Error
	saved := 0
	for _, p := range result.Paths() {
		fm := result.Files[p].Map
		if fm == nil {
			continue
		}
		if err := store.Put(ctx, fm); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to save %s: %w", p, err))
			continue
		}
		saved++
	}
	slogctx.Debug(ctx, "maps saved", "backend", cfg.Storage.Backend, "maps", saved)
	return errs.ErrorOrNil()
}

func writeMaps(stdout io.Writer, path, text string) error {
	if path == "" {
		_, err := io.WriteString(stdout, text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
