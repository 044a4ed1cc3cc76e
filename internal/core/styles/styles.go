// Package styles provides shared lipgloss styles for CLI and TUI components.
package styles

import (
	glamouransi "github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// CurrentPalette holds the active theme palette.
var CurrentPalette Palette

// Exported colors of the active palette.
var (
	ColorPrimary    lipgloss.Color
	ColorSecondary  lipgloss.Color
	ColorForeground lipgloss.Color
	ColorMuted      lipgloss.Color
	ColorBackground lipgloss.Color
	ColorSurface    lipgloss.Color
	ColorSuccess    lipgloss.Color
	ColorWarning    lipgloss.Color
	ColorError      lipgloss.Color

	// Diff line backgrounds, tinted from the background toward the
	// success and error colors.
	ColorBgAdded   lipgloss.Color
	ColorBgRemoved lipgloss.Color
	// ColorBgIssue marks annotated lines in the code pane.
	ColorBgIssue lipgloss.Color
)

// Style exports.
var (
	// CLI styles.
	CommandHeaderStyle lipgloss.Style
	CommandStyle       lipgloss.Style
	DividerStyle       lipgloss.Style
	ErrorStyle         lipgloss.Style

	// Dashboard chrome.
	HeaderStyle     lipgloss.Style
	BreadcrumbStyle lipgloss.Style
	StatusStyle     lipgloss.Style
	StatusErrStyle  lipgloss.Style
	HelpStyle       lipgloss.Style
	PaneStyle       lipgloss.Style
	PaneFocusStyle  lipgloss.Style
	PaneTitleStyle  lipgloss.Style

	// Listings.
	ItemStyle         lipgloss.Style
	ItemSelectedStyle lipgloss.Style
	DirStyle          lipgloss.Style
	MutedStyle        lipgloss.Style

	// Code and annotations.
	LineNumberStyle lipgloss.Style
	IssueLineStyle  lipgloss.Style
	IssueMarkStyle  lipgloss.Style
	IssueTextStyle  lipgloss.Style
	UnplacedStyle   lipgloss.Style

	// Diff.
	DiffAddedStyle     lipgloss.Style
	DiffRemovedStyle   lipgloss.Style
	DiffUnchangedStyle lipgloss.Style
	DiffEmptyStyle     lipgloss.Style
	DiffGutterStyle    lipgloss.Style

	CopiedStyle  lipgloss.Style
	PendingStyle lipgloss.Style
)

// SetTheme sets the active palette and rebuilds all global styles.
func SetTheme(p Palette) {
	CurrentPalette = p

	ColorPrimary = p.Primary
	ColorSecondary = p.Secondary
	ColorForeground = p.Foreground
	ColorMuted = p.Muted
	ColorBackground = p.Background
	ColorSurface = p.Surface
	ColorSuccess = p.Success
	ColorWarning = p.Warning
	ColorError = p.Error

	ColorBgAdded = Tint(p.Background, p.Success, 0.18)
	ColorBgRemoved = Tint(p.Background, p.Error, 0.18)
	ColorBgIssue = Tint(p.Background, p.Warning, 0.14)

	CommandHeaderStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)
	CommandStyle = lipgloss.NewStyle().
		Foreground(ColorForeground)
	DividerStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
	ErrorStyle = lipgloss.NewStyle().
		Foreground(ColorError).
		Bold(true)

	HeaderStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(0, 1)
	BreadcrumbStyle = lipgloss.NewStyle().
		Foreground(ColorSecondary)
	StatusStyle = lipgloss.NewStyle().
		Foreground(ColorMuted).
		Padding(0, 1)
	StatusErrStyle = lipgloss.NewStyle().
		Foreground(ColorError).
		Padding(0, 1)
	HelpStyle = lipgloss.NewStyle().
		Foreground(ColorMuted).
		Padding(0, 1)
	PaneStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorSurface)
	PaneFocusStyle = PaneStyle.
		BorderForeground(ColorPrimary)
	PaneTitleStyle = lipgloss.NewStyle().
		Foreground(ColorForeground).
		Bold(true)

	ItemStyle = lipgloss.NewStyle().
		Foreground(ColorForeground).
		PaddingLeft(2)
	ItemSelectedStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Background(ColorSurface).
		Bold(true).
		PaddingLeft(2)
	DirStyle = lipgloss.NewStyle().
		Foreground(ColorSecondary)
	MutedStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)

	LineNumberStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)
	IssueLineStyle = lipgloss.NewStyle().
		Background(ColorBgIssue)
	IssueMarkStyle = lipgloss.NewStyle().
		Foreground(ColorWarning).
		Bold(true)
	IssueTextStyle = lipgloss.NewStyle().
		Foreground(ColorWarning).
		Italic(true)
	UnplacedStyle = lipgloss.NewStyle().
		Foreground(ColorWarning)

	DiffAddedStyle = lipgloss.NewStyle().
		Foreground(ColorSuccess).
		Background(ColorBgAdded)
	DiffRemovedStyle = lipgloss.NewStyle().
		Foreground(ColorError).
		Background(ColorBgRemoved)
	DiffUnchangedStyle = lipgloss.NewStyle().
		Foreground(ColorForeground)
	DiffEmptyStyle = lipgloss.NewStyle().
		Foreground(ColorSurface)
	DiffGutterStyle = lipgloss.NewStyle().
		Foreground(ColorMuted)

	CopiedStyle = lipgloss.NewStyle().
		Foreground(ColorSuccess)
	PendingStyle = lipgloss.NewStyle().
		Foreground(ColorWarning)
}

// Tint blends base toward accent by t (0..1) in Lab space. Unparseable colors
// return base unchanged.
func Tint(base, accent lipgloss.Color, t float64) lipgloss.Color {
	b, err := colorful.Hex(string(base))
	if err != nil {
		return base
	}
	a, err := colorful.Hex(string(accent))
	if err != nil {
		return base
	}
	return lipgloss.Color(b.BlendLab(a, t).Clamped().Hex())
}

// nolint:gochecknoinits // bootstrap default theme before any style is accessed.
func init() {
	SetTheme(themes[DefaultTheme])
}

func colorHexPtr(c lipgloss.Color) *string {
	if c == "" {
		return nil
	}
	hex := string(c)
	return &hex
}

// GlamourStyle returns a Glamour style config derived from the active theme.
func GlamourStyle() glamouransi.StyleConfig {
	cfg := glamourstyles.DarkStyleConfig

	fg := colorHexPtr(ColorForeground)
	primary := colorHexPtr(ColorPrimary)
	secondary := colorHexPtr(ColorSecondary)
	muted := colorHexPtr(ColorMuted)
	surface := colorHexPtr(ColorSurface)

	cfg.Document.Color = fg
	cfg.Paragraph.Color = fg

	cfg.Heading.Color = primary
	cfg.H1.Color = fg
	cfg.H1.BackgroundColor = surface
	cfg.H2.Color = primary
	cfg.H3.Color = primary

	cfg.BlockQuote.Color = muted
	cfg.HorizontalRule.Color = muted

	cfg.Link.Color = secondary
	cfg.LinkText.Color = secondary

	cfg.Code.Color = secondary
	cfg.CodeBlock.Color = muted
	if CurrentPalette.Chroma != "" {
		cfg.CodeBlock.Chroma = nil
		cfg.CodeBlock.Theme = CurrentPalette.Chroma
	}

	return cfg
}
