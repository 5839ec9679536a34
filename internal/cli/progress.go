package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/symmap/internal/indexer"
)

// CLIProgressReporter implements indexer.ProgressReporter with a progress bar.
type CLIProgressReporter struct {
	quiet   bool
	out     io.Writer
	fileBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a new CLI progress reporter writing to out.
func NewCLIProgressReporter(out io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		quiet: quiet,
		out:   out,
	}
}

func (c *CLIProgressReporter) OnDiscoveryStart() {
	if c.quiet {
		return
	}
	fmt.Fprintln(c.out, "Discovering files...")
}

func (c *CLIProgressReporter) OnDiscoveryComplete(files int) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "Mapping %s files\n", formatNumber(files))
}

func (c *CLIProgressReporter) OnMappingStart(totalFiles int) {
	if c.quiet || totalFiles == 0 {
		return
	}
	out := c.out
	c.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("Mapping files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(out)
		}),
	)
}

// OnFileMapped advances the bar. progressbar serializes concurrent Adds.
func (c *CLIProgressReporter) OnFileMapped(path string) {
	if c.quiet {
		return
	}
	if c.fileBar != nil {
		c.fileBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnComplete(stats *indexer.BatchStats) {
	if c.quiet {
		return
	}
	if c.fileBar != nil {
		c.fileBar.Finish()
		c.fileBar = nil
	}

	fmt.Fprintf(c.out, "✓ Mapping complete: %s files, %s symbols in %.1fs\n",
		formatNumber(stats.Mapped),
		formatNumber(stats.Symbols),
		stats.Duration.Seconds())
	if stats.Degraded > 0 {
		fmt.Fprintf(c.out, "  Degraded:    %s\n", formatNumber(stats.Degraded))
	}
	if skipped := stats.Unsupported + stats.TooLarge; skipped > 0 {
		fmt.Fprintf(c.out, "  Skipped:     %s (%d unsupported, %d too large)\n",
			formatNumber(skipped), stats.Unsupported, stats.TooLarge)
	}
	if stats.Failed > 0 {
		fmt.Fprintf(c.out, "  Failed:      %s\n", formatNumber(stats.Failed))
	}
}

// formatNumber formats an integer with thousand separators.
func formatNumber(n int) string {
	if n < 1000 && n > -1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	sign := ""
	if str[0] == '-' {
		sign, str = "-", str[1:]
	}
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return sign + result
}
