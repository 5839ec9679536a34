package mcp

import (
	"github.com/mvp-joe/symmap/internal/cache"
	"github.com/mvp-joe/symmap/internal/config"
	"github.com/mvp-joe/symmap/internal/query"
)

// MCPServerConfig contains configuration for the MCP server.
type MCPServerConfig struct {
	ProjectPath string         // Root of the files the tools serve
	Config      *config.Config // Loaded project configuration; nil means defaults
	Watch       bool           // Invalidate cached maps when files change
	Version     string         // Reported to clients
}

// OutlineRequest is the argument set of symmap_outline.
type OutlineRequest struct {
	File         string `json:"file"`
	MaxDepth     int    `json:"max_depth"`
	IncludeLocal *bool  `json:"include_local"`
	Symbol       string `json:"symbol"` // Expand one symbol instead of the file roots
}

// LookupRequest is the argument set of symmap_lookup.
type LookupRequest struct {
	File     string `json:"file"`
	Position string `json:"position"`
}

// FindRequest is the argument set of symmap_find.
type FindRequest struct {
	File    string   `json:"file"`
	Pattern string   `json:"pattern"`
	Kinds   []string `json:"kinds"`
}

// StatusRequest is the argument set of symmap_status.
type StatusRequest struct {
	File string `json:"file"`
}

// ResponseMetadata is attached to every tool response.
type ResponseMetadata struct {
	TookMs int64 `json:"took_ms"`
}

// OutlineResponse is the symmap_outline result.
type OutlineResponse struct {
	*query.OutlineResult
	Metadata ResponseMetadata `json:"metadata"`
}

// LookupResponse is the symmap_lookup result.
type LookupResponse struct {
	*query.LookupResult
	Metadata ResponseMetadata `json:"metadata"`
}

// FindResponse is the symmap_find result.
type FindResponse struct {
	*query.FindResult
	Total    int              `json:"total"`
	Metadata ResponseMetadata `json:"metadata"`
}

// StatusResponse is the symmap_status result.
type StatusResponse struct {
	Root    string          `json:"root"`
	File    string          `json:"file,omitempty"`
	State   string          `json:"state,omitempty"`
	Cache   cache.Stats     `json:"cache"`
	Metrics MetricsSnapshot `json:"metrics"`
}
