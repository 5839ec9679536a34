package symbols

import (
	"fmt"
	"sort"
)

// Point is a zero-based line/column position. Column counts bytes.
type Point struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Less reports whether p comes before q.
func (p Point) Less(q Point) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Column < q.Column
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Column+1)
}

// Span is a half-open byte range with matching line/column points.
type Span struct {
	StartByte int   `json:"start_byte"`
	EndByte   int   `json:"end_byte"`
	Start     Point `json:"start"`
	End       Point `json:"end"`
}

// Len returns the number of bytes covered.
func (s Span) Len() int {
	return s.EndByte - s.StartByte
}

// IsEmpty reports whether the span covers no bytes.
func (s Span) IsEmpty() bool {
	return s.EndByte <= s.StartByte
}

// Contains reports whether other lies entirely within s.
func (s Span) Contains(other Span) bool {
	return other.StartByte >= s.StartByte && other.EndByte <= s.EndByte
}

// ContainsOffset reports whether the byte offset falls inside s.
func (s Span) ContainsOffset(off int) bool {
	return off >= s.StartByte && off < s.EndByte
}

// Overlaps reports whether s and other share at least one byte.
// Empty spans overlap a span that strictly surrounds their offset.
func (s Span) Overlaps(other Span) bool {
	if other.IsEmpty() {
		return other.StartByte > s.StartByte && other.StartByte < s.EndByte
	}
	if s.IsEmpty() {
		return s.StartByte > other.StartByte && s.StartByte < other.EndByte
	}
	return s.StartByte < other.EndByte && other.StartByte < s.EndByte
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d) %s-%s", s.StartByte, s.EndByte, s.Start, s.End)
}

// LineIndex converts between byte offsets and points for one source text.
type LineIndex struct {
	starts []int
	size   int
}

// NewLineIndex indexes the line starts of src.
func NewLineIndex(src []byte) *LineIndex {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{starts: starts, size: len(src)}
}

// Point returns the position of a byte offset. Offsets are clamped to the source.
func (li *LineIndex) Point(off int) Point {
	if off < 0 {
		off = 0
	}
	if off > li.size {
		off = li.size
	}
	line := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > off }) - 1
	return Point{Line: line, Column: off - li.starts[line]}
}

// Offset returns the byte offset of a point, or -1 if the line does not exist.
func (li *LineIndex) Offset(p Point) int {
	if p.Line < 0 || p.Line >= len(li.starts) {
		return -1
	}
	off := li.starts[p.Line] + p.Column
	if off > li.size {
		return li.size
	}
	return off
}

// Span builds a span for a byte range.
func (li *LineIndex) Span(start, end int) Span {
	return Span{
		StartByte: start,
		EndByte:   end,
		Start:     li.Point(start),
		End:       li.Point(end),
	}
}

// Lines returns the number of lines in the source.
func (li *LineIndex) Lines() int {
	return len(li.starts)
}
