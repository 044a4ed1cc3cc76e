// Package textparse extracts structured artifacts from free-form model output:
// fenced code blocks, the surrounding explanation, and line-tagged issues.
package textparse

import (
	"iter"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// DefaultLanguage is reported for fenced blocks that carry no language tag.
const DefaultLanguage = "text"

var (
	// fenceRe matches one fenced block: an opening fence with an optional
	// word tag, a LF or CRLF newline, then the shortest body up to the next
	// fence.
	// Explanation and code block extraction share this pattern so the two
	// partition the input the same way.
	fenceRe = regexp.MustCompile("(?s)```(\\w+)?\\r?\\n(.*?)```")

	issueRe = regexp.MustCompile(`^[ \t]*(?:[-*][ \t]+)?(?:\*\*)?Line[ \t]+(\d+)(?:\*\*)?:(?:\*\*)?[ \t]*(.*?)[ \t\r]*$`)
)

// CodeBlock is a single fenced block from the input.
type CodeBlock struct {
	Language string `json:"language"`
	Body     string `json:"body"`
}

// Issue is a message attached to a 1-based line of the analysed file.
type Issue struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Analysis is the structured form of a raw analysis result.
type Analysis struct {
	Explanation string      `json:"explanation"`
	CodeBlocks  []CodeBlock `json:"code_blocks"`
	Issues      []Issue     `json:"issues"`
}

// CodeBlocks yields the fenced blocks of text in document order. The sequence
// is lazy and may be ranged over any number of times. An opening fence with
// no closing fence yields nothing.
func CodeBlocks(text string) iter.Seq[CodeBlock] {
	return func(yield func(CodeBlock) bool) {
		rest := text
		for {
			loc := fenceRe.FindStringSubmatchIndex(rest)
			if loc == nil {
				return
			}

			lang := DefaultLanguage
			if loc[2] >= 0 {
				lang = rest[loc[2]:loc[3]]
			}

			if !yield(CodeBlock{Language: lang, Body: rest[loc[4]:loc[5]]}) {
				return
			}
			rest = rest[loc[1]:]
		}
	}
}

// Explanation returns text with every fenced block removed, trimmed of
// surrounding whitespace.
func Explanation(text string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
}

// Issues yields every "Line N: message" line of text in document order.
// N must be a positive integer; other lines are skipped.
func Issues(text string) iter.Seq[Issue] {
	return func(yield func(Issue) bool) {
		for line := range strings.Lines(text) {
			issue, ok := parseIssueLine(strings.TrimRight(line, "\n"))
			if !ok {
				continue
			}
			if !yield(issue) {
				return
			}
		}
	}
}

func parseIssueLine(line string) (Issue, bool) {
	m := issueRe.FindStringSubmatch(line)
	if m == nil {
		return Issue{}, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return Issue{}, false
	}

	return Issue{Line: n, Message: m[2]}, true
}

// FormatIssues renders issues back into "Line N: message" lines. Extracting
// issues from the output yields the same sequence.
func FormatIssues(issues []Issue) string {
	var b strings.Builder
	for i, issue := range issues {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("Line ")
		b.WriteString(strconv.Itoa(issue.Line))
		b.WriteString(": ")
		b.WriteString(issue.Message)
	}
	return b.String()
}

// Parse derives the full structured view of a raw result. Issue lines are
// reported through Issues and therefore left out of the rendered explanation.
func Parse(text string) Analysis {
	a := Analysis{
		CodeBlocks: slices.Collect(CodeBlocks(text)),
		Issues:     slices.Collect(Issues(text)),
	}

	explanation := Explanation(text)
	if len(a.Issues) > 0 {
		var kept []string
		for line := range strings.Lines(explanation) {
			if _, ok := parseIssueLine(strings.TrimRight(line, "\n")); ok {
				continue
			}
			kept = append(kept, line)
		}
		explanation = strings.TrimSpace(strings.Join(kept, ""))
	}
	a.Explanation = explanation

	return a
}
