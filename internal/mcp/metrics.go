package mcp

import (
	"sync"
	"time"
)

// ServerMetrics tracks tool calls and watcher invalidations.
// All methods are thread-safe and can be called concurrently.
type ServerMetrics struct {
	mu                   sync.RWMutex
	tools                map[string]*ToolMetrics
	invalidations        int64
	invalidatedFiles     int64
	lastInvalidationTime time.Time
}

// ToolMetrics are the counters of one tool.
type ToolMetrics struct {
	Calls            int64         `json:"calls"`
	Failures         int64         `json:"failures"`
	LastCallDuration time.Duration `json:"last_call_duration_ns"`
	LastError        string        `json:"last_error,omitempty"`
}

// MetricsSnapshot is an immutable snapshot of server metrics at a point in time.
type MetricsSnapshot struct {
	Tools                map[string]ToolMetrics `json:"tools"`
	Invalidations        int64                  `json:"invalidations"`
	InvalidatedFiles     int64                  `json:"invalidated_files"`
	LastInvalidationTime time.Time              `json:"last_invalidation_time,omitempty"`
}

// NewServerMetrics creates a new ServerMetrics instance with zero values.
func NewServerMetrics() *ServerMetrics {
	return &ServerMetrics{tools: make(map[string]*ToolMetrics)}
}

// RecordCall records the outcome of one tool call.
func (m *ServerMetrics) RecordCall(tool string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tm, ok := m.tools[tool]
	if !ok {
		tm = &ToolMetrics{}
		m.tools[tool] = tm
	}
	tm.Calls++
	tm.LastCallDuration = duration
	if err != nil {
		tm.Failures++
		tm.LastError = err.Error()
	} else {
		tm.LastError = ""
	}
}

// RecordInvalidation records one batch of files invalidated by the watcher.
func (m *ServerMetrics) RecordInvalidation(files int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.invalidations++
	m.invalidatedFiles += int64(files)
	m.lastInvalidationTime = time.Now()
}

// GetMetrics returns an immutable snapshot of current metrics.
func (m *ServerMetrics) GetMetrics() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tools := make(map[string]ToolMetrics, len(m.tools))
	for name, tm := range m.tools {
		tools[name] = *tm
	}
	return MetricsSnapshot{
		Tools:                tools,
		Invalidations:        m.invalidations,
		InvalidatedFiles:     m.invalidatedFiles,
		LastInvalidationTime: m.lastInvalidationTime,
	}
}
