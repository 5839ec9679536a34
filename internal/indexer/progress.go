package indexer

import "time"

// ProgressReporter provides callbacks for reporting batch mapping progress.
// Implementations can display progress bars, log messages, or remain silent.
// OnFileMapped may be called from several goroutines at once.
type ProgressReporter interface {
	// OnDiscoveryStart is called when file discovery begins.
	OnDiscoveryStart()

	// OnDiscoveryComplete is called when file discovery finishes.
	OnDiscoveryComplete(files int)

	// OnMappingStart is called before mapping files.
	OnMappingStart(totalFiles int)

	// OnFileMapped is called after each file is mapped or skipped.
	OnFileMapped(path string)

	// OnComplete is called when the batch finishes.
	OnComplete(stats *BatchStats)
}

// BatchStats summarizes one batch mapping run.
type BatchStats struct {
	Files       int
	Mapped      int
	Unsupported int
	TooLarge    int
	Failed      int
	Symbols     int
	Degraded    int
	Duration    time.Duration
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnDiscoveryStart()             {}
func (n *NoOpProgressReporter) OnDiscoveryComplete(files int) {}
func (n *NoOpProgressReporter) OnMappingStart(totalFiles int) {}
func (n *NoOpProgressReporter) OnFileMapped(path string)      {}
func (n *NoOpProgressReporter) OnComplete(stats *BatchStats)  {}
