// Package diff renders a linediff.View as two index-aligned columns: the
// original file on the left and the fixed file on the right.
package diff

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/colonyops/codesentry/internal/core/linediff"
	"github.com/colonyops/codesentry/internal/core/styles"
)

const (
	// headerHeight is the title line plus the column captions.
	headerHeight = 2
	tabWidth     = 4
)

// Model is a scrollable side-by-side diff.
type Model struct {
	title  string
	rows   []linediff.Row
	stats  linediff.Stats
	numW   int
	offset int
	width  int
	height int
}

// New creates a model for view. title is shown above the columns.
func New(title string, view linediff.View) Model {
	rows := linediff.Columns(view)

	maxNum := 0
	for _, r := range rows {
		maxNum = max(maxNum, r.Left.Num, r.Right.Num)
	}

	return Model{
		title: title,
		rows:  rows,
		stats: view.Stats(),
		numW:  len(fmt.Sprint(maxNum)),
	}
}

// SetSize sets the rendering area.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.clamp()
}

// Rows returns the number of rendered rows.
func (m Model) Rows() int { return len(m.rows) }

// Offset returns the first visible row.
func (m Model) Offset() int { return m.offset }

func (m Model) visible() int {
	return max(m.height-headerHeight, 1)
}

func (m *Model) clamp() {
	m.offset = min(m.offset, max(len(m.rows)-m.visible(), 0))
	m.offset = max(m.offset, 0)
}

// Update handles scrolling keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "j", "down":
		m.offset++
	case "k", "up":
		m.offset--
	case "ctrl+d", "pgdown", " ":
		m.offset += m.visible() / 2
	case "ctrl+u", "pgup":
		m.offset -= m.visible() / 2
	case "g", "home":
		m.offset = 0
	case "G", "end":
		m.offset = len(m.rows)
	case "n":
		m.offset = m.nextChange(m.offset + 1)
	}
	m.clamp()
	return m, nil
}

// nextChange returns the first changed row at or after from, or the current
// offset when there is none.
func (m Model) nextChange(from int) int {
	for i := from; i < len(m.rows); i++ {
		if m.rows[i].Left.Kind != linediff.Unchanged || m.rows[i].Right.Kind != linediff.Unchanged {
			return i
		}
	}
	return m.offset
}

// View renders the visible rows.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	colW := max((m.width-1)/2, 1)
	sep := styles.DiffGutterStyle.Render("│")

	var b strings.Builder
	summary := fmt.Sprintf("+%d -%d", m.stats.Added, m.stats.Removed)
	b.WriteString(styles.PaneTitleStyle.Render(m.title) + " " + styles.MutedStyle.Render(summary))
	b.WriteString("\n")
	b.WriteString(styles.MutedStyle.Render(pad("original", colW)) + sep + styles.MutedStyle.Render(pad("fixed", colW)))

	if len(m.rows) == 0 {
		b.WriteString("\n")
		b.WriteString(styles.MutedStyle.Render("No changes"))
		return b.String()
	}

	end := min(m.offset+m.visible(), len(m.rows))
	for _, r := range m.rows[m.offset:end] {
		b.WriteString("\n")
		b.WriteString(m.cell(r.Left, colW))
		b.WriteString(sep)
		b.WriteString(m.cell(r.Right, colW))
	}
	return b.String()
}

func (m Model) cell(c linediff.Cell, width int) string {
	if c.Empty {
		return styles.DiffEmptyStyle.Render(strings.Repeat(" ", width))
	}

	var style lipgloss.Style
	mark := " "
	switch c.Kind {
	case linediff.Added:
		style, mark = styles.DiffAddedStyle, "+"
	case linediff.Removed:
		style, mark = styles.DiffRemovedStyle, "-"
	default:
		style = styles.DiffUnchangedStyle
	}

	num := styles.DiffGutterStyle.Render(fmt.Sprintf("%*d", m.numW, c.Num))
	prefixW := m.numW + 2
	textW := max(width-prefixW, 1)
	text := pad(expandTabs(strings.TrimRight(c.Text, "\r\n")), textW)

	return num + style.Render(" "+mark+text)
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

// pad truncates or right-pads s to exactly width cells.
func pad(s string, width int) string {
	s = ansi.Truncate(s, width, "…")
	if w := ansi.StringWidth(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}
