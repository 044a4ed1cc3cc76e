package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/codesentry/internal/core/styles"
)

const (
	defaultToastTTL   = 4 * time.Second
	defaultMaxToasts  = 3
	toastTickInterval = 250 * time.Millisecond
)

type toastLevel int

const (
	toastInfo toastLevel = iota
	toastSuccess
	toastError
)

type toast struct {
	level     toastLevel
	message   string
	remaining time.Duration
}

// ToastController manages the lifecycle of active toast notifications.
type ToastController struct {
	toasts  []toast
	ticking bool
}

func NewToastController() *ToastController {
	return &ToastController{}
}

// Push adds a toast, evicting the oldest once defaultMaxToasts is exceeded.
func (c *ToastController) Push(level toastLevel, message string) {
	c.toasts = append(c.toasts, toast{level: level, message: message, remaining: defaultToastTTL})
	if len(c.toasts) > defaultMaxToasts {
		c.toasts = c.toasts[len(c.toasts)-defaultMaxToasts:]
	}
}

// Tick decrements the remaining TTL on all toasts by d and removes
// any that have expired.
func (c *ToastController) Tick(d time.Duration) {
	alive := c.toasts[:0]
	for _, t := range c.toasts {
		t.remaining -= d
		if t.remaining > 0 {
			alive = append(alive, t)
		}
	}
	c.toasts = alive
}

// HasToasts returns true if there are any active toasts.
func (c *ToastController) HasToasts() bool {
	return len(c.toasts) > 0
}

type toastTickMsg time.Time

// schedule starts the tick loop unless it already runs.
func (c *ToastController) schedule() tea.Cmd {
	if c.ticking {
		return nil
	}
	c.ticking = true
	return tea.Tick(toastTickInterval, func(t time.Time) tea.Msg {
		return toastTickMsg(t)
	})
}

// onTick advances toasts and re-arms the tick while any remain.
func (c *ToastController) onTick() tea.Cmd {
	c.ticking = false
	c.Tick(toastTickInterval)
	if !c.HasToasts() {
		return nil
	}
	return c.schedule()
}

// View renders the toast stack, newest last.
func (c *ToastController) View() string {
	if len(c.toasts) == 0 {
		return ""
	}

	lines := make([]string, 0, len(c.toasts))
	for _, t := range c.toasts {
		var style lipgloss.Style
		icon := "•"
		switch t.level {
		case toastSuccess:
			style, icon = styles.CopiedStyle, "✔"
		case toastError:
			style, icon = styles.ErrorStyle, "✘"
		default:
			style = styles.BreadcrumbStyle
		}
		lines = append(lines, style.Render(icon+" "+t.message))
	}
	return strings.Join(lines, "\n")
}
