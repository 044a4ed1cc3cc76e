package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/codesentry/internal/codesentry"
	"github.com/colonyops/codesentry/internal/core/analysis"
	"github.com/colonyops/codesentry/internal/core/annotate"
	"github.com/colonyops/codesentry/internal/core/linediff"
	"github.com/colonyops/codesentry/internal/core/push"
	"github.com/colonyops/codesentry/internal/core/render"
	"github.com/colonyops/codesentry/internal/core/styles"
	"github.com/colonyops/codesentry/internal/core/textparse"
	"github.com/colonyops/codesentry/pkg/iojson"
)

const connectTimeout = 5 * time.Second

// AnalyzeCmd implements both "analyze" and "fix": it opens one file, submits
// it and waits for the pushed result.
type AnalyzeCmd struct {
	flags *Flags
	kind  analysis.Kind

	// flags
	jsonOutput bool
	fixedOnly  bool
	context    int
}

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd(flags *Flags) *AnalyzeCmd {
	return &AnalyzeCmd{flags: flags, kind: analysis.KindAnalyze}
}

// NewFixCmd creates the fix command.
func NewFixCmd(flags *Flags) *AnalyzeCmd {
	return &AnalyzeCmd{flags: flags, kind: analysis.KindFix}
}

// Register adds the command to the application.
func (cmd *AnalyzeCmd) Register(app *cli.Command) *cli.Command {
	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "output the result as JSON",
			Destination: &cmd.jsonOutput,
		},
	}

	c := &cli.Command{
		Name:          string(cmd.kind),
		ShellComplete: RepositoryCompleter(cmd.flags),
		Action:        cmd.run,
	}

	switch cmd.kind {
	case analysis.KindFix:
		c.Usage = "Request a fixed version of a file and show the diff"
		c.UsageText = "codesentry fix [options] <repo> <path>"
		c.Description = `Submits the file to the fix endpoint and waits for the result on the push
channel. Prints a unified diff against the original, or the fixed text with
--fixed.`
		flags = append(flags,
			&cli.BoolFlag{
				Name:        "fixed",
				Usage:       "print the fixed file instead of a diff",
				Destination: &cmd.fixedOnly,
			},
			&cli.IntFlag{
				Name:        "context",
				Aliases:     []string{"U"},
				Usage:       "lines of context in the diff",
				Value:       3,
				Destination: &cmd.context,
			},
		)
	default:
		c.Usage = "Analyze a file and print the review"
		c.UsageText = "codesentry analyze [options] <repo> <path>"
		c.Description = `Submits the file to the analysis endpoint and waits for the result on the
push channel. Prints the explanation, code suggestions and the issues mapped
onto the file's lines.`
	}
	c.Flags = flags

	app.Commands = append(app.Commands, c)
	return app
}

func (cmd *AnalyzeCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("expected <repo> <path>, got %d argument(s)", c.Args().Len())
	}
	repo, filePath := c.Args().Get(0), c.Args().Get(1)

	app, err := cmd.flags.OpenApp(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	app.Serve()

	if err := app.OpenPath(ctx, repo, filePath); err != nil {
		return err
	}
	state := app.State()
	if state.ActiveFile == nil {
		return fmt.Errorf("%s is a directory", filePath)
	}

	waitConnected(ctx, app.Push)

	start := app.StartAnalyze
	if cmd.kind == analysis.KindFix {
		start = app.StartFix
	}
	id, err := start(ctx)
	if err != nil {
		return fmt.Errorf("submit %s: %w", cmd.kind, err)
	}
	log.Info().Str("request_id", id).Str("file", state.FileKey()).Msg("waiting for result")

	req, err := app.Wait(ctx, id)
	if err != nil {
		return fmt.Errorf("wait for %s result: %w", cmd.kind, err)
	}
	if req.Status == analysis.StatusRejected {
		return req.Err
	}

	out := c.Root().Writer
	if cmd.kind == analysis.KindFix {
		return cmd.printFix(out, app, state.ActiveFile.Path)
	}
	return cmd.printAnalysis(out, app, state.ActiveFile.Path, state.Content)
}

// waitConnected gives the push channel a moment to subscribe so the result
// is not broadcast before anyone listens.
func waitConnected(ctx context.Context, ch *push.Channel) {
	if ch == nil {
		return
	}
	deadline := time.Now().Add(connectTimeout)
	for !ch.Connected() {
		if time.Now().After(deadline) {
			log.Warn().Msg("push channel not connected; the result may be missed")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func termWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 80
}

type analysisJSON struct {
	File     string             `json:"file"`
	Analysis textparse.Analysis `json:"analysis"`
	Unplaced []textparse.Issue  `json:"unplaced,omitempty"`
	Lines    map[int][]string   `json:"lines,omitempty"`
}

func (cmd *AnalyzeCmd) printAnalysis(out io.Writer, app *codesentry.App, filePath, content string) error {
	a, ok := app.Analysis()
	if !ok {
		return codesentry.ErrAbandoned
	}
	notes := app.Annotations()

	if cmd.jsonOutput {
		return iojson.WriteWith(out, os.Stderr, analysisJSON{
			File:     filePath,
			Analysis: a,
			Unplaced: notes.OutOfRange,
			Lines:    notes.ByLine,
		})
	}

	if !isTTY(out) {
		return writePlainAnalysis(out, a)
	}

	_, _ = fmt.Fprintln(out, render.Markdown(a.Explanation, termWidth(out)))
	for _, block := range a.CodeBlocks {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, styles.MutedStyle.Render(block.Language))
		_, _ = fmt.Fprintln(out, render.Code(block.Language, block.Body))
	}
	printIssues(out, content, notes)
	return nil
}

func writePlainAnalysis(out io.Writer, a textparse.Analysis) error {
	var b strings.Builder
	b.WriteString(a.Explanation)
	b.WriteString("\n")
	for _, block := range a.CodeBlocks {
		fmt.Fprintf(&b, "\n```%s\n%s", block.Language, block.Body)
		if !strings.HasSuffix(block.Body, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```\n")
	}
	if len(a.Issues) > 0 {
		b.WriteString("\n")
		b.WriteString(textparse.FormatIssues(a.Issues))
		b.WriteString("\n")
	}
	_, err := io.WriteString(out, b.String())
	return err
}

func printIssues(out io.Writer, content string, notes annotate.Annotations) {
	if notes.Len() == 0 && len(notes.OutOfRange) == 0 {
		return
	}

	lines := linediff.SplitLines(content)
	width := len(fmt.Sprint(len(lines)))

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, lipgloss.NewStyle().Bold(true).Render("Issues"))
	for _, n := range notes.Lines() {
		msgs, _ := notes.Lookup(n)
		num := styles.LineNumberStyle.Render(fmt.Sprintf("%*d", width, n))
		_, _ = fmt.Fprintf(out, "%s %s\n", num, strings.TrimSpace(lines[n-1]))
		for _, m := range msgs {
			_, _ = fmt.Fprintf(out, "%s %s %s\n", strings.Repeat(" ", width), styles.IssueMarkStyle.Render("▲"), styles.IssueTextStyle.Render(m))
		}
	}

	if len(notes.OutOfRange) > 0 {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, styles.UnplacedStyle.Render("Unplaced issues"))
		for _, issue := range notes.OutOfRange {
			_, _ = fmt.Fprintf(out, "  Line %d: %s\n", issue.Line, issue.Message)
		}
	}
}

type fixJSON struct {
	File    string         `json:"file"`
	Fixed   string         `json:"fixed"`
	Changed bool           `json:"changed"`
	Stats   linediff.Stats `json:"stats"`
	Diff    string         `json:"diff"`
}

func (cmd *AnalyzeCmd) printFix(out io.Writer, app *codesentry.App, filePath string) error {
	fixed, ok := app.FixedText()
	view, hasDiff := app.Diff()
	if !ok || !hasDiff {
		return codesentry.ErrAbandoned
	}

	if cmd.fixedOnly {
		_, err := io.WriteString(out, fixed)
		return err
	}

	unified := linediff.Unified(view, cmd.context)

	if cmd.jsonOutput {
		return iojson.WriteWith(out, os.Stderr, fixJSON{
			File:    filePath,
			Fixed:   fixed,
			Changed: view.Changed(),
			Stats:   view.Stats(),
			Diff:    unified,
		})
	}

	if !view.Changed() {
		_, err := fmt.Fprintln(out, "No changes")
		return err
	}

	header := fmt.Sprintf("--- a/%s\n+++ b/%s\n", filePath, filePath)
	if !isTTY(out) {
		_, err := io.WriteString(out, header+unified)
		return err
	}

	_, _ = io.WriteString(out, styles.MutedStyle.Render(strings.TrimSuffix(header, "\n"))+"\n")
	for _, line := range strings.SplitAfter(unified, "\n") {
		text := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(text, "+"):
			text = lipgloss.NewStyle().Foreground(styles.ColorSuccess).Render(text)
		case strings.HasPrefix(text, "-"):
			text = lipgloss.NewStyle().Foreground(styles.ColorError).Render(text)
		case strings.HasPrefix(text, "@@"):
			text = lipgloss.NewStyle().Foreground(styles.ColorSecondary).Render(text)
		}
		if line != "" {
			_, _ = io.WriteString(out, text+"\n")
		}
	}
	return nil
}
