package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	slogctx "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// Placeholders rendered in place of a map.
const (
	NoMap         = "[NO MAP]"
	NoMapTooLarge = "[NO MAP - TOO LARGE]"
)

// DefaultWorkers is half the CPUs, at least one.
func DefaultWorkers() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		return 1
	}
	return n
}

// FileResult is the outcome for one file of a batch.
type FileResult struct {
	Path string
	// Map is nil when the file was skipped or failed.
	Map *symbols.FileMap
	// Placeholder is set for files that have no map.
	Placeholder string
	Err         error
}

// Render returns the map outline or the placeholder.
func (r *FileResult) Render(opts symbols.RenderOptions) string {
	if r.Map == nil {
		return r.Placeholder + "\n"
	}
	return r.Map.Render(opts)
}

// BatchResult holds every file of a batch keyed by path.
type BatchResult struct {
	Files map[string]*FileResult
	Stats BatchStats
}

// Paths returns the mapped paths in sorted order.
func (b *BatchResult) Paths() []string {
	out := make([]string, 0, len(b.Files))
	for p := range b.Files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Combined renders every file as a "### path" section, sorted by path.
func (b *BatchResult) Combined(opts symbols.RenderOptions) string {
	var sb strings.Builder
	for i, p := range b.Paths() {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "### %s\n\n", p)
		sb.WriteString(b.Files[p].Render(opts))
	}
	return sb.String()
}

// BatchOptions configures MapFiles.
type BatchOptions struct {
	// Workers bounds concurrent files; zero means DefaultWorkers.
	Workers int
	// Root, when set, makes file ids relative to it.
	Root     string
	Progress ProgressReporter
}

// MapFiles maps many files concurrently. Unsupported and oversized files get
// placeholders. A failing file never affects the others; per-file failures
// are returned together as a *multierror.Error alongside the full result.
// Only cancellation of ctx aborts the batch.
func (m *Mapper) MapFiles(ctx context.Context, paths []string, opts BatchOptions) (*BatchResult, error) {
	start := time.Now()
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	progress := opts.Progress
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}

	result := &BatchResult{Files: make(map[string]*FileResult, len(paths))}
	var (
		mu   sync.Mutex
		errs *multierror.Error
	)

	progress.OnMappingStart(len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			id := fileID(opts.Root, path)
			res := m.mapFile(gctx, id, path)
			if res.Err != nil && gctx.Err() != nil {
				return gctx.Err()
			}

			mu.Lock()
			result.Files[id] = res
			s := &result.Stats
			s.Files++
			switch {
			case res.Err != nil:
				s.Failed++
				errs = multierror.Append(errs, res.Err)
			case res.Placeholder == NoMapTooLarge:
				s.TooLarge++
			case res.Placeholder == NoMap:
				s.Unsupported++
			default:
				s.Mapped++
				s.Symbols += res.Map.Len()
				if res.Map.Degraded {
					s.Degraded++
				}
			}
			mu.Unlock()

			progress.OnFileMapped(id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Stats.Duration = time.Since(start)
	progress.OnComplete(&result.Stats)

	slogctx.Info(ctx, "batch mapping complete",
		"files", result.Stats.Files,
		"mapped", result.Stats.Mapped,
		"unsupported", result.Stats.Unsupported,
		"too_large", result.Stats.TooLarge,
		"failed", result.Stats.Failed,
		"duration", result.Stats.Duration)

	return result, errs.ErrorOrNil()
}

// mapFile reads and maps one file, turning expected refusals into
// placeholders.
func (m *Mapper) mapFile(ctx context.Context, id, path string) *FileResult {
	res := &FileResult{Path: path}
	if !m.Supports(path) {
		res.Placeholder = NoMap
		return res
	}

	info, err := os.Stat(path)
	if err != nil {
		res.Placeholder = NoMap
		res.Err = fmt.Errorf("failed to stat %s: %w", path, err)
		return res
	}
	if m.CheckSize(path, int(info.Size())) != nil {
		res.Placeholder = NoMapTooLarge
		return res
	}

	src, err := os.ReadFile(path)
	if err != nil {
		res.Placeholder = NoMap
		res.Err = fmt.Errorf("failed to read %s: %w", path, err)
		return res
	}

	fm, err := m.Map(ctx, id, src)
	switch {
	case err == nil:
		res.Map = fm
	case errors.Is(err, symbols.ErrFileTooLarge):
		res.Placeholder = NoMapTooLarge
	case errors.Is(err, symbols.ErrUnsupportedLanguage):
		res.Placeholder = NoMap
	default:
		res.Placeholder = NoMap
		res.Err = err
	}
	return res
}

// fileID is the slash-separated path relative to root when possible.
func fileID(root, path string) string {
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}

// MapDir discovers files under root and maps them.
func (m *Mapper) MapDir(ctx context.Context, discovery *FileDiscovery, opts BatchOptions) (*BatchResult, error) {
	progress := opts.Progress
	if progress == nil {
		progress = &NoOpProgressReporter{}
	}
	progress.OnDiscoveryStart()
	files, err := discovery.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	progress.OnDiscoveryComplete(len(files))
	if opts.Root == "" {
		opts.Root = discovery.rootDir
	}
	return m.MapFiles(ctx, files, opts)
}
