package symbols

import (
	"errors"
	"fmt"
)

var (
	// ErrMapUnavailable is returned when no ready map exists for a file.
	ErrMapUnavailable = errors.New("map unavailable")

	// ErrUnsupportedLanguage is returned when no parser adapter is registered for a language.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrFileTooLarge is returned for sources above the configured size limit.
	ErrFileTooLarge = errors.New("file too large to map")

	// ErrMalformedMap is returned by Validate when the containment invariant is broken.
	ErrMalformedMap = errors.New("malformed map")
)

// SyntaxError is a parse failure localized to a span. It never aborts
// extraction of the rest of the file.
type SyntaxError struct {
	Span    Span
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %s: %s", e.Span.Start, e.Message)
}

// DiagnosticKind classifies per-file problems recorded on a FileMap.
type DiagnosticKind string

const (
	DiagSyntaxError      DiagnosticKind = "syntax_error"
	DiagUnknownConstruct DiagnosticKind = "unknown_construct"
	DiagMalformedMap     DiagnosticKind = "malformed_map"
)

// Diagnostic is a non-fatal problem found while building a map.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Span    Span           `json:"span"`
	Message string         `json:"message"`
	Text    string         `json:"text,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s at %s: %s", d.Kind, d.Span.Start, d.Message)
}
