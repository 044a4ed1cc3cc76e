// Package render turns analysis text and file content into terminal output:
// markdown through glamour and source code through chroma, both using the
// active theme.
package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	"github.com/colonyops/codesentry/internal/core/styles"
)

const minWrap = 20

// Markdown renders text for a pane width columns wide. Rendering failures
// return text unchanged.
func Markdown(text string, width int) string {
	style := styles.GlamourStyle()
	noMargin := uint(0)
	style.Document.Margin = &noMargin

	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(max(width, minWrap)),
	)
	if err != nil {
		log.Debug().Err(err).Msg("failed to create markdown renderer, showing raw content")
		return text
	}

	out, err := r.Render(text)
	if err != nil {
		log.Debug().Err(err).Msg("failed to render markdown, showing raw content")
		return text
	}
	return strings.Trim(out, "\n")
}
