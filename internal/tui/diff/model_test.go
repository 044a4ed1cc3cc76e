package diff

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/codesentry/internal/core/linediff"
	"github.com/colonyops/codesentry/pkg/tuitest"
)

func newModel(t *testing.T, original, fixed string, w, h int) Model {
	t.Helper()
	m := New("main.py", linediff.Compute(original, fixed))
	m.SetSize(w, h)
	return m
}

func TestView_SideBySide(t *testing.T) {
	m := newModel(t, "a\nb\nc\n", "a\nB\nc\n", 40, 10)

	lines := strings.Split(tuitest.StripANSI(m.View()), "\n")
	require.Len(t, lines, 2+3)

	assert.Contains(t, lines[0], "main.py")
	assert.Contains(t, lines[0], "+1 -1")
	assert.Contains(t, lines[1], "original")
	assert.Contains(t, lines[2], "a")
	// The removal and its replacement share a row.
	assert.Contains(t, lines[3], "-b")
	assert.Contains(t, lines[3], "+B")
	assert.Contains(t, lines[4], "c")
}

func TestView_RowsHaveFixedWidth(t *testing.T) {
	m := newModel(t, "short\n", "a much longer line that will not fit in the column\n", 31, 10)

	for i, line := range strings.Split(m.View(), "\n")[1:] {
		assert.Equal(t, 31, ansi.StringWidth(line), "line %d", i+1)
	}
}

func TestView_Unchanged(t *testing.T) {
	m := newModel(t, "", "", 40, 10)
	assert.Contains(t, tuitest.StripANSI(m.View()), "No changes")
}

func TestView_ZeroSize(t *testing.T) {
	m := New("x", linediff.Compute("a\n", "b\n"))
	assert.Empty(t, m.View())
}

func TestUpdate_Scroll(t *testing.T) {
	var orig strings.Builder
	for range 30 {
		orig.WriteString("same\n")
	}
	m := newModel(t, orig.String()+"old\n", orig.String()+"new\n", 40, 12)
	require.Equal(t, 31, m.Rows())

	m, _ = m.Update(tuitest.KeyDown())
	assert.Equal(t, 1, m.Offset())

	m, _ = m.Update(tuitest.KeyPress('G'))
	assert.Equal(t, 31-10, m.Offset())

	m, _ = m.Update(tuitest.KeyPress('g'))
	assert.Equal(t, 0, m.Offset())

	m, _ = m.Update(tuitest.KeyUp())
	assert.Equal(t, 0, m.Offset())

	m, _ = m.Update(tuitest.KeyPress('n'))
	assert.Equal(t, 21, m.Offset(), "clamped to the last page")
}
