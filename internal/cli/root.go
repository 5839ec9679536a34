package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	slogctx "github.com/veqryn/slog-context"

	"github.com/mvp-joe/symmap/internal/config"
	"github.com/mvp-joe/symmap/internal/logging"
)

var (
	cfgFile string
	rootDir string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "symmap",
	Short: "Symmap - structural maps of source files",
	Long: `Symmap parses source files and maps their declarations: types, interfaces,
enums, records, methods, fields and constructors, nested as in the source,
with modifiers, generics, annotations and spans.

Maps are kept in an incremental cache and can be queried from the command
line or served to coding assistants over MCP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <root>/.symmap/config.yml)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".", "project root that file paths are relative to")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the configuration for dir, from --config when given.
func loadConfig(dir string) (*config.Config, error) {
	var loader config.Loader
	if cfgFile != "" {
		loader = config.NewFileLoader(dir, cfgFile)
	} else {
		loader = config.NewLoader(dir)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// setup resolves dir, loads its configuration and returns a context
// carrying a logger that writes to the command's stderr.
func setup(cmd *cobra.Command, dir string) (context.Context, string, *config.Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	cfg, err := loadConfig(abs)
	if err != nil {
		return nil, "", nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logging.Setup(ctx, cmd.ErrOrStderr(), cfg.LogOptions(verbose))
	slogctx.FromCtx(ctx).Debug("configuration loaded", "root", abs, "config", cfgFile)
	return ctx, abs, cfg, nil
}
