package preview

import (
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyaoi/mdupload/internal/upload"
)

const sample = `---
title: Release notes
tags: [docs, release]
---
# Overview

Intro with **bold** text.

## Install *quickly*

### From ` + "`source`" + `

#### Deep detail

## Usage
`

func TestParse_Frontmatter(t *testing.T) {
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "Release notes", doc.Meta.Title)
	assert.Equal(t, []string{"docs", "release"}, doc.Meta.Tags)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(string(doc.Body)), "# Overview"))
}

func TestParse_WithoutFrontmatter(t *testing.T) {
	doc, err := Parse([]byte("# Plain\n"))
	require.NoError(t, err)
	assert.Empty(t, doc.Meta.Title)
	assert.Equal(t, "# Plain\n", string(doc.Body))
}

func TestOutline_Depth(t *testing.T) {
	doc, err := Parse([]byte(sample))
	require.NoError(t, err)

	got := Outline(doc.Body, upload.TOCDepth)
	assert.Equal(t, []Heading{
		{Level: 1, Text: "Overview"},
		{Level: 2, Text: "Install quickly"},
		{Level: 3, Text: "From source"},
		{Level: 2, Text: "Usage"},
	}, got)

	assert.Len(t, Outline(doc.Body, 1), 1)
}

func TestFormatOutline(t *testing.T) {
	got := FormatOutline([]Heading{{Level: 2, Text: "A"}, {Level: 3, Text: "B"}, {Level: 2, Text: "C"}})
	assert.Equal(t, "• A\n  • B\n• C", got)
	assert.Equal(t, "(見出しなし)", FormatOutline(nil))
}

func TestLoad(t *testing.T) {
	f := upload.File{
		Name: "x.md",
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(sample)), nil },
	}
	doc, err := Load(f)
	require.NoError(t, err)
	assert.Equal(t, "Release notes", doc.Meta.Title)
}

func TestRender(t *testing.T) {
	out, err := Render([]byte("# Heading\n\nSome paragraph text."), 40)
	require.NoError(t, err)

	plain := ansi.Strip(out)
	assert.Contains(t, plain, "Heading")
	assert.Contains(t, plain, "Some paragraph text.")
}

func TestStyleSample(t *testing.T) {
	for _, name := range upload.HighlightStyles {
		out, err := StyleSample(name)
		require.NoError(t, err, name)
		assert.Contains(t, ansi.Strip(out), "func greet", name)
	}
}
