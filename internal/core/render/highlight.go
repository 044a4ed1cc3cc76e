package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/colonyops/codesentry/internal/core/linediff"
	"github.com/colonyops/codesentry/internal/core/styles"
)

// Lexer picks a lexer by file name, then by content. Nil means plain text.
func Lexer(filename, content string) chroma.Lexer {
	l := lexers.Match(filename)
	if l == nil {
		l = lexers.Analyse(content)
	}
	return l
}

// HighlightLines returns one highlighted string per line of content, in
// the same order as linediff.SplitLines. Content that cannot be highlighted
// is returned as plain lines.
func HighlightLines(filename, content string) []string {
	return highlight(Lexer(filename, content), content)
}

// Code highlights a snippet tagged with language, falling back to plain
// text for unknown languages.
func Code(language, body string) string {
	return strings.Join(highlight(lexers.Get(language), body), "\n")
}

func highlight(lexer chroma.Lexer, content string) []string {
	plain := linediff.SplitLines(content)
	if lexer == nil {
		return plain
	}
	lexer = chroma.Coalesce(lexer)

	style := chromastyles.Get(styles.CurrentPalette.Chroma)
	if style == nil {
		style = chromastyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return plain
	}

	it, err := lexer.Tokenise(nil, content)
	if err != nil {
		return plain
	}

	out := make([]string, 0, len(plain))
	for _, tokens := range chroma.SplitTokensIntoLines(it.Tokens()) {
		for i := range tokens {
			tokens[i].Value = strings.TrimSuffix(tokens[i].Value, "\n")
		}
		var b strings.Builder
		if err := formatter.Format(&b, style, chroma.Literator(tokens...)); err != nil {
			return plain
		}
		out = append(out, b.String())
	}

	// Tokenizers may add a trailing empty line.
	if len(out) > len(plain) {
		out = out[:len(plain)]
	}
	if len(out) != len(plain) {
		return plain
	}
	return out
}
