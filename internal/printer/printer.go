// Package printer writes styled status lines for CLI commands. A Printer is
// carried on the context so nested helpers print to the same writer.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/codesentry/internal/core/styles"
)

type ctxKey struct{}

// Printer writes human readable output.
type Printer struct {
	w io.Writer
}

// New creates a printer on w.
func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// NewContext returns a context carrying p.
func NewContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx returns the printer on ctx, or a stderr printer.
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok && p != nil {
		return p
	}
	return New(os.Stderr)
}

func (p *Printer) line(icon string, style lipgloss.Style, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if icon == "" {
		_, _ = fmt.Fprintln(p.w, msg)
		return
	}
	_, _ = fmt.Fprintf(p.w, "%s %s\n", style.Render(icon), msg)
}

// Printf prints a plain line.
func (p *Printer) Printf(format string, args ...any) {
	p.line("", lipgloss.Style{}, format, args...)
}

func (p *Printer) Successf(format string, args ...any) {
	p.line("✔", lipgloss.NewStyle().Foreground(styles.ColorSuccess), format, args...)
}

func (p *Printer) Infof(format string, args ...any) {
	p.line("•", lipgloss.NewStyle().Foreground(styles.ColorPrimary), format, args...)
}

func (p *Printer) Warnf(format string, args ...any) {
	p.line("●", lipgloss.NewStyle().Foreground(styles.ColorWarning), format, args...)
}

func (p *Printer) Errorf(format string, args ...any) {
	p.line("✘", lipgloss.NewStyle().Foreground(styles.ColorError), format, args...)
}

// Section prints a bold heading.
func (p *Printer) Section(title string) {
	_, _ = fmt.Fprintln(p.w, lipgloss.NewStyle().Bold(true).Foreground(styles.ColorForeground).Render(title))
}

// CheckItem prints a passed check with optional muted detail.
func (p *Printer) CheckItem(label, detail string) {
	p.item("✔", styles.ColorSuccess, label, detail)
}

func (p *Printer) WarnItem(label, detail string) {
	p.item("●", styles.ColorWarning, label, detail)
}

func (p *Printer) FailItem(label, detail string) {
	p.item("✘", styles.ColorError, label, detail)
}

func (p *Printer) item(icon string, color lipgloss.Color, label, detail string) {
	if detail != "" {
		detail = " " + styles.MutedStyle.Render(detail)
	}
	_, _ = fmt.Fprintf(p.w, "  %s %s%s\n", lipgloss.NewStyle().Foreground(color).Render(icon), label, detail)
}
