package mockbackend

import (
	"fmt"
	"strings"
)

const longLine = 100

// Analyze produces a deterministic review of content in the shape the real
// service uses: prose, "Line N:" findings and a fenced suggestion.
func Analyze(content string) string {
	lines := splitLines(content)

	var issues []string
	for i, line := range lines {
		n := i + 1
		switch {
		case strings.TrimRight(line, " \t") != line:
			issues = append(issues, fmt.Sprintf("Line %d: trailing whitespace", n))
		case strings.Contains(line, "TODO") || strings.Contains(line, "FIXME"):
			issues = append(issues, fmt.Sprintf("Line %d: unresolved TODO", n))
		case len(line) > longLine:
			issues = append(issues, fmt.Sprintf("Line %d: line longer than %d characters", n, longLine))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Reviewed %d lines.\n\n", len(lines))
	if len(issues) == 0 {
		b.WriteString("This code looks great! No issues found.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Found %d issue(s):\n\n", len(issues))
	for _, issue := range issues {
		b.WriteString("- " + issue + "\n")
	}

	b.WriteString("\nSuggested cleanup:\n\n```\n")
	b.WriteString(Fix(content))
	if !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n")
	return b.String()
}

// Fix strips trailing whitespace from every line and ensures the text ends
// with a newline.
func Fix(content string) string {
	if content == "" {
		return ""
	}
	lines := splitLines(content)
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n") + "\n"
}

func splitLines(content string) []string {
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}
