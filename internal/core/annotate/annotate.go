// Package annotate maps line-tagged issues onto the lines of a code view.
package annotate

import (
	"slices"

	"github.com/colonyops/codesentry/internal/core/textparse"
)

// Annotations indexes issue messages by 1-based line number.
type Annotations struct {
	// ByLine holds messages for lines inside [1, LineCount], in issue order.
	ByLine map[int][]string
	// OutOfRange keeps issues whose line does not exist in the file. The file
	// may have changed since the model referenced it, so they are surfaced
	// rather than dropped or clipped.
	OutOfRange []textparse.Issue
	LineCount  int
}

// Map builds Annotations for a file with lineCount lines.
func Map(issues []textparse.Issue, lineCount int) Annotations {
	a := Annotations{
		ByLine:    make(map[int][]string),
		LineCount: max(lineCount, 0),
	}

	for _, issue := range issues {
		if issue.Line < 1 || issue.Line > a.LineCount {
			a.OutOfRange = append(a.OutOfRange, issue)
			continue
		}
		a.ByLine[issue.Line] = append(a.ByLine[issue.Line], issue.Message)
	}

	return a
}

// Lookup returns the messages attached to line, if any.
func (a Annotations) Lookup(line int) ([]string, bool) {
	msgs, ok := a.ByLine[line]
	return msgs, ok
}

// Lines returns the annotated in-range line numbers in ascending order.
func (a Annotations) Lines() []int {
	lines := make([]int, 0, len(a.ByLine))
	for l := range a.ByLine {
		lines = append(lines, l)
	}
	slices.Sort(lines)
	return lines
}

// Len is the total number of issues, including out-of-range ones.
func (a Annotations) Len() int {
	n := len(a.OutOfRange)
	for _, msgs := range a.ByLine {
		n += len(msgs)
	}
	return n
}
