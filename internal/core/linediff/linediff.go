// Package linediff computes a line-level alignment between an original and a
// fixed text and derives the side-by-side column model used to render it.
package linediff

import (
	"strings"
)

// Kind classifies a line of a View.
type Kind int

const (
	Unchanged Kind = iota
	Removed
	Added
)

func (k Kind) String() string {
	switch k {
	case Unchanged:
		return "unchanged"
	case Removed:
		return "removed"
	case Added:
		return "added"
	default:
		return "unknown"
	}
}

// Line is one aligned line. Original is set for Unchanged and Removed lines,
// Fixed for Unchanged and Added lines. Text keeps its line terminator so the
// inputs can be rebuilt byte for byte. Line numbers are 1-based and zero when
// the side is absent.
type Line struct {
	Kind        Kind
	Original    string
	Fixed       string
	OriginalNum int
	FixedNum    int
}

// HasOriginal reports whether the line exists in the original text.
func (l Line) HasOriginal() bool { return l.Kind != Added }

// HasFixed reports whether the line exists in the fixed text.
func (l Line) HasFixed() bool { return l.Kind != Removed }

// View is an ordered diff of two texts.
type View []Line

// Stats summarises a View.
type Stats struct {
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
	Added     int `json:"added"`
}

// Compute aligns original and fixed line by line using a longest common
// subsequence. At every divergence point all removals come before all
// additions, so the output is deterministic. Memory stays linear in the input
// for large texts; very large divergent blocks are shown as a full
// replacement.
func Compute(original, fixed string) View {
	a := SplitLines(original)
	b := SplitLines(fixed)

	// Common prefix and suffix never need the table.
	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix &&
		a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	ops := make([]Kind, 0, len(a)+len(b))
	for range prefix {
		ops = append(ops, Unchanged)
	}
	ops = append(ops, script(a[prefix:len(a)-suffix], b[prefix:len(b)-suffix])...)
	for range suffix {
		ops = append(ops, Unchanged)
	}

	ops = groupRuns(ops)

	view := make(View, 0, len(ops))
	var i, j int
	for _, op := range ops {
		switch op {
		case Unchanged:
			view = append(view, Line{Kind: Unchanged, Original: a[i], Fixed: b[j], OriginalNum: i + 1, FixedNum: j + 1})
			i++
			j++
		case Removed:
			view = append(view, Line{Kind: Removed, Original: a[i], OriginalNum: i + 1})
			i++
		case Added:
			view = append(view, Line{Kind: Added, Fixed: b[j], FixedNum: j + 1})
			j++
		}
	}

	return view
}

// Size limits for the alignment, in table cells (len(a)*len(b)).
var (
	// maxTableCells bounds the full dynamic-programming table. Larger inputs
	// are split in half recursively using two rows of linear space.
	maxTableCells = 1 << 20
	// maxAlignCells bounds the total work. Beyond it the whole divergent
	// block is reported as removed then added.
	maxAlignCells = 1 << 26
)

// script returns the edit operations turning a into b.
func script(a, b []string) []Kind {
	n, m := len(a), len(b)
	if n == 0 || m == 0 || n*m > maxAlignCells {
		return replaceAll(n, m)
	}
	return split(a, b, make([]Kind, 0, n+m))
}

func replaceAll(n, m int) []Kind {
	ops := make([]Kind, 0, n+m)
	for range n {
		ops = append(ops, Removed)
	}
	for range m {
		ops = append(ops, Added)
	}
	return ops
}

// split appends the operations for a and b to ops. a is halved and b is cut
// where the LCS lengths of the two halves sum to the maximum.
func split(a, b []string, ops []Kind) []Kind {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return append(ops, replaceAll(n, m)...)
	}
	if n == 1 || n*m <= maxTableCells {
		return append(ops, table(a, b)...)
	}

	mid := n / 2
	fwd := prefixLCS(a[:mid], b)
	bwd := suffixLCS(a[mid:], b)

	cut, best := 0, int32(-1)
	for j := 0; j <= m; j++ {
		if l := fwd[j] + bwd[j]; l > best {
			cut, best = j, l
		}
	}

	ops = split(a[:mid], b[:cut], ops)
	return split(a[mid:], b[cut:], ops)
}

// prefixLCS returns row[j] = LCS length of a and b[:j].
func prefixLCS(a, b []string) []int32 {
	m := len(b)
	prev := make([]int32, m+1)
	cur := make([]int32, m+1)
	for i := range a {
		cur[0] = 0
		for j := 1; j <= m; j++ {
			switch {
			case a[i] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev
}

// suffixLCS returns row[j] = LCS length of a and b[j:].
func suffixLCS(a, b []string) []int32 {
	m := len(b)
	prev := make([]int32, m+1)
	cur := make([]int32, m+1)
	for i := len(a) - 1; i >= 0; i-- {
		cur[m] = 0
		for j := m - 1; j >= 0; j-- {
			switch {
			case a[i] == b[j]:
				cur[j] = prev[j+1] + 1
			case prev[j] >= cur[j+1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j+1]
			}
		}
		prev, cur = cur, prev
	}
	return prev
}

// table aligns a and b with a full LCS table, preferring removals on ties.
func table(a, b []string) []Kind {
	n, m := len(a), len(b)

	// lcs[i*(m+1)+j] is the LCS length of a[i:] and b[j:].
	w := m + 1
	lcs := make([]int32, (n+1)*w)
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			switch {
			case a[i] == b[j]:
				lcs[i*w+j] = lcs[(i+1)*w+j+1] + 1
			case lcs[(i+1)*w+j] >= lcs[i*w+j+1]:
				lcs[i*w+j] = lcs[(i+1)*w+j]
			default:
				lcs[i*w+j] = lcs[i*w+j+1]
			}
		}
	}

	ops := make([]Kind, 0, n+m)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			ops = append(ops, Unchanged)
			i++
			j++
		case lcs[(i+1)*w+j] >= lcs[i*w+j+1]:
			ops = append(ops, Removed)
			i++
		default:
			ops = append(ops, Added)
			j++
		}
	}
	for ; i < n; i++ {
		ops = append(ops, Removed)
	}
	for ; j < m; j++ {
		ops = append(ops, Added)
	}

	return ops
}

// groupRuns reorders every maximal run of non-unchanged operations so its
// removals precede its additions. Relative order within each side is kept.
func groupRuns(ops []Kind) []Kind {
	out := make([]Kind, 0, len(ops))
	for start := 0; start < len(ops); {
		if ops[start] == Unchanged {
			out = append(out, Unchanged)
			start++
			continue
		}

		end := start
		removed := 0
		for end < len(ops) && ops[end] != Unchanged {
			if ops[end] == Removed {
				removed++
			}
			end++
		}
		for k := 0; k < end-start; k++ {
			if k < removed {
				out = append(out, Removed)
			} else {
				out = append(out, Added)
			}
		}
		start = end
	}
	return out
}

// SplitLines splits s after every '\n'. The final element has no terminator
// when s does not end in a newline. An empty string has no lines.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Original rebuilds the original text from the view.
func (v View) Original() string {
	var b strings.Builder
	for _, l := range v {
		if l.HasOriginal() {
			b.WriteString(l.Original)
		}
	}
	return b.String()
}

// Fixed rebuilds the fixed text from the view.
func (v View) Fixed() string {
	var b strings.Builder
	for _, l := range v {
		if l.HasFixed() {
			b.WriteString(l.Fixed)
		}
	}
	return b.String()
}

// Stats counts the lines of each kind.
func (v View) Stats() Stats {
	var s Stats
	for _, l := range v {
		switch l.Kind {
		case Unchanged:
			s.Unchanged++
		case Removed:
			s.Removed++
		case Added:
			s.Added++
		}
	}
	return s
}

// Changed reports whether the view contains any removal or addition.
func (v View) Changed() bool {
	s := v.Stats()
	return s.Removed+s.Added > 0
}
