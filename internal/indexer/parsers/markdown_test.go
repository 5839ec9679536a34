package parsers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the Markdown adapter:
// - ATX and setext headings open sections nested by level
// - A section runs to the next heading of the same or a higher level, without trailing blank lines
// - Closing hashes are not part of the heading text, empty headings are ignored
// - Headings inside fenced code blocks and front matter are ignored
// - "#tag" and indented "# text" are not headings

const markdownSource = `---
title: Guide
---

Intro text.

# Guide

## Install ##

Run the installer.

` + "```sh" + `
# not a heading
` + "```" + `

### From source

Build it.

Usage
-----

#hashtag and #

Reference
=========

    # indented code
`

func sectionName(n Node) string {
	return n.Field("name").Text()
}

func sectionLevel(n Node) string {
	return n.Field("level").Text()
}

func sections(n Node) []Node {
	if body := n.Field("body"); body != nil {
		return body.Children()
	}
	return n.Children()
}

// Test: sections nest by heading level
func TestMarkdownParser_Parse(t *testing.T) {
	t.Parallel()

	tree, err := NewMarkdownParser().Parse(context.Background(), []byte(markdownSource))
	require.NoError(t, err)
	defer tree.Close()

	assert.Equal(t, LangMarkdown, tree.Language())
	assert.Empty(t, tree.SyntaxErrors())

	roots := sections(tree.Root())
	require.Len(t, roots, 2)

	guide := roots[0]
	assert.Equal(t, "section", guide.Kind())
	assert.Equal(t, "Guide", sectionName(guide))
	assert.Equal(t, "h1", sectionLevel(guide))
	assert.Equal(t, 6, guide.Span().Start.Line)

	children := sections(guide)
	require.Len(t, children, 2)
	assert.Equal(t, "Install", sectionName(children[0]))
	assert.Equal(t, "h2", sectionLevel(children[0]))
	assert.Equal(t, "Usage", sectionName(children[1]))
	assert.Equal(t, "h2", sectionLevel(children[1]))

	fromSource := sections(children[0])
	require.Len(t, fromSource, 1)
	assert.Equal(t, "From source", sectionName(fromSource[0]))
	assert.Equal(t, "h3", sectionLevel(fromSource[0]))
	assert.Equal(t, "### From source\n\nBuild it.", fromSource[0].Text())
	assert.Empty(t, sections(fromSource[0]))

	// Test: a section ends where a heading of the same level starts
	assert.LessOrEqual(t, children[0].Span().EndByte, children[1].Span().StartByte)
	assert.True(t, strings.HasPrefix(children[0].Text(), "## Install ##\n"))

	// Test: setext sections start at the title line
	assert.Equal(t, "Usage\n-----\n\n#hashtag and #", children[1].Text())
	assert.Empty(t, sections(children[1]))

	reference := roots[1]
	assert.Equal(t, "Reference", sectionName(reference))
	assert.Equal(t, "h1", sectionLevel(reference))
	assert.Empty(t, sections(reference))
	assert.Less(t, guide.Span().EndByte, reference.Span().StartByte)
}

// Test: headings without content and level jumps
func TestMarkdownParser_Headings(t *testing.T) {
	t.Parallel()

	src := "#\n\n## ##\n\n# Top #\n\n### Deep\n\n## Mid\n\n####### seven\n"
	tree, err := NewMarkdownParser().Parse(context.Background(), []byte(src))
	require.NoError(t, err)

	roots := sections(tree.Root())
	require.Len(t, roots, 1)
	assert.Equal(t, "Top", sectionName(roots[0]))

	children := sections(roots[0])
	require.Len(t, children, 2)
	assert.Equal(t, "Deep", sectionName(children[0]))
	assert.Equal(t, "h3", sectionLevel(children[0]))
	assert.Equal(t, "Mid", sectionName(children[1]))
	assert.Equal(t, "## Mid\n\n####### seven", children[1].Text())
}

// Test: documents without headings and unterminated fences
func TestMarkdownParser_NoHeadings(t *testing.T) {
	t.Parallel()

	for _, src := range []string{"", "just text\n", "```\n# inside\n", "---\n# front\n"} {
		tree, err := NewMarkdownParser().Parse(context.Background(), []byte(src))
		require.NoError(t, err)
		if src == "---\n# front\n" {
			// Unterminated front matter is ordinary text.
			require.Len(t, sections(tree.Root()), 1, src)
			continue
		}
		assert.Empty(t, sections(tree.Root()), src)
	}
}

// Test: cancelled context
func TestMarkdownParser_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMarkdownParser().Parse(ctx, []byte("# A\n"))
	assert.ErrorIs(t, err, context.Canceled)
}
