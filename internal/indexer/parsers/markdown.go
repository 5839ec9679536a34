package parsers

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mvp-joe/symmap/internal/symbols"
)

// markdownParser maps the heading outline of Markdown documents. Every
// heading opens a "section" node that runs to the next heading of the same
// or a higher level, so deeper headings nest inside it.
//
// Section children are "level" (a heading_level node whose text is h1..h6),
// "name" (the heading text) and "body" (the nested sections).
type markdownParser struct{}

// NewMarkdownParser creates a new Markdown parser.
func NewMarkdownParser() *markdownParser {
	return &markdownParser{}
}

func (p *markdownParser) Language() string {
	return LangMarkdown
}

// Parse never fails on content: any text is a valid document.
func (p *markdownParser) Parse(ctx context.Context, src []byte) (Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := &markdownBuilder{src: src, li: symbols.NewLineIndex(src)}
	return &BasicTree{
		RootNode: b.document(scanHeadings(src)),
		Src:      src,
		Lang:     LangMarkdown,
	}, nil
}

// heading is one ATX (# Title) or setext (Title / =====) heading.
type heading struct {
	level      int
	start      int // Start of the first heading line
	end        int // End of the last heading line
	titleStart int
	titleEnd   int
	titleLine  int // End of the line holding the title
}

// mdLine is a line without its line break.
type mdLine struct{ start, end int }

func splitLines(src []byte) []mdLine {
	var lines []mdLine
	for start := 0; start < len(src); {
		end, next := len(src), len(src)
		if i := bytes.IndexByte(src[start:], '\n'); i >= 0 {
			end, next = start+i, start+i+1
		}
		if end > start && src[end-1] == '\r' {
			end--
		}
		lines = append(lines, mdLine{start, end})
		start = next
	}
	return lines
}

// scanHeadings lists the headings of src in order, ignoring fenced code
// blocks and YAML front matter.
func scanHeadings(src []byte) []heading {
	lines := splitLines(src)
	var out []heading
	var fence []byte // Opening fence while inside a code block
	title := -1      // Previous line when it can carry a setext underline

	for i := frontMatterEnd(src, lines); i < len(lines); i++ {
		ln := lines[i]
		text := src[ln.start:ln.end]

		if fence != nil {
			if closesFence(text, fence) {
				fence = nil
			}
			title = -1
			continue
		}
		if f := openFence(text); f != nil {
			fence, title = f, -1
			continue
		}
		if h, ok := atxHeading(src, ln); ok {
			out = append(out, h)
			title = -1
			continue
		}
		if level := setextLevel(text); level > 0 {
			if title >= 0 {
				t := lines[title]
				ts, te := trimSpan(src, t.start, t.end)
				out = append(out, heading{
					level:      level,
					start:      t.start,
					end:        ln.end,
					titleStart: ts,
					titleEnd:   te,
					titleLine:  t.end,
				})
			}
			title = -1
			continue
		}

		if isBlank(text) || indent(text) > 3 {
			title = -1
		} else {
			title = i
		}
	}
	return out
}

// frontMatterEnd returns the first line after a leading "---" block.
func frontMatterEnd(src []byte, lines []mdLine) int {
	if len(lines) == 0 || string(bytes.TrimRight(src[lines[0].start:lines[0].end], " \t")) != "---" {
		return 0
	}
	for i := 1; i < len(lines); i++ {
		switch string(bytes.TrimRight(src[lines[i].start:lines[i].end], " \t")) {
		case "---", "...":
			return i + 1
		}
	}
	return 0
}

func atxHeading(src []byte, ln mdLine) (heading, bool) {
	line := src[ln.start:ln.end]
	if indent(line) > 3 {
		return heading{}, false
	}
	off := len(line) - len(bytes.TrimLeft(line, " "))
	level := run(line[off:], '#')
	if level == 0 || level > 6 {
		return heading{}, false
	}
	rest := off + level
	if rest < len(line) && line[rest] != ' ' && line[rest] != '\t' {
		return heading{}, false
	}

	ts, te := trimSpan(line, rest, len(line))
	// Optional closing sequence: "## Title ##".
	k := te
	for k > ts && line[k-1] == '#' {
		k--
	}
	switch {
	case k == ts:
		te = ts
	case k < te && (line[k-1] == ' ' || line[k-1] == '\t'):
		_, te = trimSpan(line, ts, k)
	}
	if te == ts {
		return heading{}, false
	}

	return heading{
		level:      level,
		start:      ln.start,
		end:        ln.end,
		titleStart: ln.start + ts,
		titleEnd:   ln.start + te,
		titleLine:  ln.end,
	}, true
}

func setextLevel(line []byte) int {
	if indent(line) > 3 {
		return 0
	}
	s := bytes.TrimSpace(line)
	if len(s) < 2 {
		return 0
	}
	switch len(s) {
	case run(s, '='):
		return 1
	case run(s, '-'):
		return 2
	}
	return 0
}

func openFence(line []byte) []byte {
	if indent(line) > 3 {
		return nil
	}
	s := bytes.TrimLeft(line, " ")
	if len(s) == 0 || (s[0] != '`' && s[0] != '~') {
		return nil
	}
	n := run(s, s[0])
	if n < 3 {
		return nil
	}
	if s[0] == '`' && bytes.IndexByte(s[n:], '`') >= 0 {
		return nil
	}
	return s[:n]
}

func closesFence(line, fence []byte) bool {
	if indent(line) > 3 {
		return false
	}
	s := bytes.TrimLeft(line, " ")
	n := run(s, fence[0])
	return n >= len(fence) && isBlank(s[n:])
}

// run counts the leading bytes of s equal to c.
func run(s []byte, c byte) int {
	n := 0
	for n < len(s) && s[n] == c {
		n++
	}
	return n
}

// indent is the width of the leading whitespace, with tabs as four columns.
func indent(line []byte) int {
	w := 0
	for _, c := range line {
		switch c {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return w
		}
	}
	return w
}

func isBlank(s []byte) bool {
	return len(bytes.TrimSpace(s)) == 0
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// trimSpan narrows [start, end) of b to exclude surrounding spaces and tabs.
func trimSpan(b []byte, start, end int) (int, int) {
	for start < end && (b[start] == ' ' || b[start] == '\t') {
		start++
	}
	for end > start && (b[end-1] == ' ' || b[end-1] == '\t') {
		end--
	}
	return start, end
}

type markdownBuilder struct {
	src []byte
	li  *symbols.LineIndex
}

func (b *markdownBuilder) rangeNode(kind string, start, end int) *BasicNode {
	return NewBasicNode(kind, b.li.Span(start, end), string(b.src[start:end]))
}

// openSection is a section whose end is not known yet.
type openSection struct {
	h       heading
	section *BasicNode
	body    *BasicNode
}

func (b *markdownBuilder) document(headings []heading) *BasicNode {
	root := NewBasicNode("document", b.li.Span(0, len(b.src)), string(b.src))

	var stack []openSection
	closeTo := func(level, boundary int) {
		for len(stack) > 0 && stack[len(stack)-1].h.level >= level {
			b.close(stack[len(stack)-1], boundary)
			stack = stack[:len(stack)-1]
		}
	}

	for _, h := range headings {
		closeTo(h.level, h.start)

		level := NewBasicNode("heading_level", b.li.Span(h.start, h.start), fmt.Sprintf("h%d", h.level))
		body := NewBasicNode("section_body", symbols.Span{}, "")
		section := NewBasicNode("section", symbols.Span{}, "").
			Add("level", level).
			Add("name", b.rangeNode("heading_content", h.titleStart, h.titleEnd)).
			Add("body", body)

		parent := root
		if len(stack) > 0 {
			parent = stack[len(stack)-1].body
		}
		parent.Add("", section)
		stack = append(stack, openSection{h: h, section: section, body: body})
	}
	closeTo(1, len(b.src))

	return root
}

// close ends a section before boundary, dropping trailing blank lines.
func (b *markdownBuilder) close(s openSection, boundary int) {
	end := boundary
	for end > s.h.end && isSpaceByte(b.src[end-1]) {
		end--
	}
	s.section.NodeSpan = b.li.Span(s.h.start, end)
	s.section.Content = string(b.src[s.h.start:end])
	s.body.NodeSpan = b.li.Span(s.h.titleLine, end)
	s.body.Content = string(b.src[s.h.titleLine:end])
}
