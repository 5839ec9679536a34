package cache

import (
	"errors"
	"fmt"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// State is the lifecycle position of one cache entry.
type State int

const (
	Absent State = iota
	Building
	Ready
	Stale
	Failed
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Building:
		return "building"
	case Ready:
		return "ready"
	case Stale:
		return "stale"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrClosed is returned by operations on a closed cache.
	ErrClosed = errors.New("cache closed")

	// ErrSuperseded is returned to callers waiting on a build that was
	// cancelled because newer content arrived.
	ErrSuperseded = errors.New("build superseded by newer content")

	// ErrBuildCancelled is returned to callers waiting on a build that was
	// cancelled explicitly.
	ErrBuildCancelled = errors.New("build cancelled")
)

// unavailable wraps err so callers can test for ErrMapUnavailable and for
// the underlying cause.
func unavailable(fileID string, err error) error {
	return fmt.Errorf("%s: %w: %w", fileID, symbols.ErrMapUnavailable, err)
}

// Snapshot is what a caller observed for one file. The map is immutable
// and stays valid after the entry is rebuilt or evicted.
type Snapshot struct {
	FileID string
	Map    *symbols.FileMap
	State  State
	// Stale is set when Map was built from older content than the latest
	// content the cache has seen for the file.
	Stale bool
	// Err is the last build failure of a Failed entry.
	Err error
}

// Stats are cumulative counters plus current occupancy.
type Stats struct {
	Entries       int `json:"entries"`
	Building      int `json:"building"`
	Symbols       int `json:"symbols"`
	RetainedTrees int `json:"retained_trees"`

	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Builds        int64 `json:"builds"`
	PartialBuilds int64 `json:"partial_builds"`
	WarmStarts    int64 `json:"warm_starts"`
	Failures      int64 `json:"failures"`
	StaleServed   int64 `json:"stale_served"`
	Superseded    int64 `json:"superseded"`
	Cancelled     int64 `json:"cancelled"`
	Evictions     int64 `json:"evictions"`
}
