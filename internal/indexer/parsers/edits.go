package parsers

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// Edit replaces old content [StartByte, OldEndByte) with NewText.
// Offsets are in old-content coordinates.
type Edit struct {
	StartByte  int    `json:"start_byte"`
	OldEndByte int    `json:"old_end_byte"`
	NewText    string `json:"new_text"`
}

// Delta is the change in content length caused by the edit.
func (e Edit) Delta() int {
	return len(e.NewText) - (e.OldEndByte - e.StartByte)
}

// SortEdits orders edits by start offset and checks they are in bounds and
// do not overlap.
func SortEdits(edits []Edit, oldLen int) ([]Edit, error) {
	sorted := append([]Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartByte < sorted[j].StartByte
	})

	prevEnd := 0
	for i, e := range sorted {
		if e.StartByte < 0 || e.OldEndByte < e.StartByte || e.OldEndByte > oldLen {
			return nil, fmt.Errorf("edit %d out of range: [%d,%d) in %d bytes", i, e.StartByte, e.OldEndByte, oldLen)
		}
		if i > 0 && e.StartByte < prevEnd {
			return nil, fmt.Errorf("edit %d overlaps previous edit at %d", i, e.StartByte)
		}
		prevEnd = e.OldEndByte
	}
	return sorted, nil
}

// ApplyEdits produces the new content. Edits must be sorted (see SortEdits).
func ApplyEdits(old []byte, edits []Edit) []byte {
	var buf bytes.Buffer
	buf.Grow(len(old))
	pos := 0
	for _, e := range edits {
		buf.Write(old[pos:e.StartByte])
		buf.WriteString(e.NewText)
		pos = e.OldEndByte
	}
	buf.Write(old[pos:])
	return buf.Bytes()
}

// ShiftOffset maps an old-content offset to new-content coordinates.
// Start offsets move past text inserted exactly at them; end offsets do not.
func ShiftOffset(off int, edits []Edit, isEnd bool) int {
	delta := 0
	for _, e := range edits {
		if isEnd && off <= e.StartByte {
			break
		}
		if !isEnd && off < e.StartByte {
			break
		}
		if off >= e.OldEndByte {
			delta += e.Delta()
			continue
		}
		// Offset falls inside a replaced range.
		inner := off - e.StartByte
		if inner > len(e.NewText) {
			inner = len(e.NewText)
		}
		return e.StartByte + delta + inner
	}
	return off + delta
}

// ShiftSpan maps an old-content span into the new content.
func ShiftSpan(span symbols.Span, edits []Edit, li *symbols.LineIndex) symbols.Span {
	return li.Span(ShiftOffset(span.StartByte, edits, false), ShiftOffset(span.EndByte, edits, true))
}

// EditedSpans returns the replaced regions in new-content coordinates.
// Pure deletions yield empty spans at the deletion point.
func EditedSpans(edits []Edit, li *symbols.LineIndex) []symbols.Span {
	out := make([]symbols.Span, 0, len(edits))
	delta := 0
	for _, e := range edits {
		start := e.StartByte + delta
		out = append(out, li.Span(start, start+len(e.NewText)))
		delta += e.Delta()
	}
	return out
}

// TouchesEdit reports whether an old-content span intersects any edited region.
func TouchesEdit(span symbols.Span, edits []Edit) bool {
	for _, e := range edits {
		if e.StartByte == e.OldEndByte {
			if e.StartByte > span.StartByte && e.StartByte < span.EndByte {
				return true
			}
			continue
		}
		if e.StartByte < span.EndByte && span.StartByte < e.OldEndByte {
			return true
		}
	}
	return false
}
