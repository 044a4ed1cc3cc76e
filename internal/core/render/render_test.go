package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/codesentry/pkg/tuitest"
)

func TestHighlightLines_PreservesText(t *testing.T) {
	src := "package main\n\n// comment\nfunc main() {\n\tprintln(\"hi\")\n}\n"

	lines := HighlightLines("main.go", src)

	require.Len(t, lines, 6)
	for i, want := range strings.Split(strings.TrimSuffix(src, "\n"), "\n") {
		assert.Equal(t, want, tuitest.StripANSI(lines[i]), "line %d", i+1)
	}
}

func TestHighlightLines_UnknownFile(t *testing.T) {
	lines := HighlightLines("notes.zzz-unknown", "just words\nmore words")
	require.Len(t, lines, 2)
	assert.Equal(t, "just words", tuitest.StripANSI(lines[0]))
	assert.Equal(t, "more words", tuitest.StripANSI(lines[1]))
}

func TestHighlightLines_Empty(t *testing.T) {
	assert.Empty(t, HighlightLines("main.go", ""))
}

func TestCode_UnknownLanguage(t *testing.T) {
	assert.Equal(t, "a\nb", Code("not-a-language", "a\nb\n"))
}

func TestMarkdown(t *testing.T) {
	out := tuitest.StripANSI(Markdown("# Title\n\nSome **bold** text.", 60))

	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "Some bold text.")
	assert.NotContains(t, out, "**")
}
