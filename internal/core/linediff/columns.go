package linediff

import (
	"fmt"
	"strings"
)

// Cell is one side of a side-by-side row. Empty cells pad a side that has no
// line at that row.
type Cell struct {
	Kind  Kind
	Num   int
	Text  string
	Empty bool
}

// Row is one index-aligned row of the side-by-side rendering.
type Row struct {
	Left  Cell
	Right Cell
}

// Columns lays a View out as index-aligned rows. Unchanged lines fill both
// sides. Within a divergence run the k-th removal shares a row with the k-th
// addition; the shorter side is padded with empty cells. Reading the non-empty
// left cells gives the original lines and the non-empty right cells give the
// fixed lines.
func Columns(v View) []Row {
	rows := make([]Row, 0, len(v))

	for i := 0; i < len(v); {
		if v[i].Kind == Unchanged {
			rows = append(rows, Row{
				Left:  Cell{Kind: Unchanged, Num: v[i].OriginalNum, Text: v[i].Original},
				Right: Cell{Kind: Unchanged, Num: v[i].FixedNum, Text: v[i].Fixed},
			})
			i++
			continue
		}

		var removed, added []Line
		for ; i < len(v) && v[i].Kind != Unchanged; i++ {
			if v[i].Kind == Removed {
				removed = append(removed, v[i])
			} else {
				added = append(added, v[i])
			}
		}

		for k := 0; k < max(len(removed), len(added)); k++ {
			row := Row{Left: Cell{Empty: true}, Right: Cell{Empty: true}}
			if k < len(removed) {
				row.Left = Cell{Kind: Removed, Num: removed[k].OriginalNum, Text: removed[k].Original}
			}
			if k < len(added) {
				row.Right = Cell{Kind: Added, Num: added[k].FixedNum, Text: added[k].Fixed}
			}
			rows = append(rows, row)
		}
	}

	return rows
}

// Unified renders the view as unified-diff style hunks with the given number
// of context lines around each change. An unchanged view renders as "".
func Unified(v View, context int) string {
	if !v.Changed() {
		return ""
	}
	if context < 0 {
		context = 0
	}

	// Mark which lines are within context of a change.
	keep := make([]bool, len(v))
	for i, l := range v {
		if l.Kind == Unchanged {
			continue
		}
		for k := max(0, i-context); k <= min(len(v)-1, i+context); k++ {
			keep[k] = true
		}
	}

	var b strings.Builder
	for i := 0; i < len(v); {
		if !keep[i] {
			i++
			continue
		}

		end := i
		for end < len(v) && keep[end] {
			end++
		}
		writeHunk(&b, v[i:end])
		i = end
	}

	return b.String()
}

func writeHunk(b *strings.Builder, hunk View) {
	var oldStart, newStart, oldCount, newCount int
	for _, l := range hunk {
		if l.HasOriginal() {
			if oldStart == 0 {
				oldStart = l.OriginalNum
			}
			oldCount++
		}
		if l.HasFixed() {
			if newStart == 0 {
				newStart = l.FixedNum
			}
			newCount++
		}
	}

	fmt.Fprintf(b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
	for _, l := range hunk {
		switch l.Kind {
		case Unchanged:
			writeDiffLine(b, ' ', l.Original)
		case Removed:
			writeDiffLine(b, '-', l.Original)
		case Added:
			writeDiffLine(b, '+', l.Fixed)
		}
	}
}

func writeDiffLine(b *strings.Builder, prefix byte, text string) {
	b.WriteByte(prefix)
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteString("\n\\ No newline at end of file\n")
	}
}
