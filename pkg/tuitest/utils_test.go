package tuitest

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestStripANSI(t *testing.T) {
	in := "\x1b[31mred\x1b[0m   \nplain  \n\n"
	assert.Equal(t, "red\nplain", StripANSI(in))
}

func TestKeyPress(t *testing.T) {
	assert.Equal(t, "a", KeyPress('a').String())
	assert.Equal(t, "enter", KeyEnter().String())
	assert.Equal(t, "esc", KeyEsc().String())
}

type msgA struct{}
type msgB struct{}

func TestDrain(t *testing.T) {
	cmd := tea.Batch(
		func() tea.Msg { return msgA{} },
		tea.Batch(func() tea.Msg { return msgB{} }, func() tea.Msg { return nil }),
	)
	assert.ElementsMatch(t, []tea.Msg{msgA{}, msgB{}}, Drain(cmd))
	assert.Nil(t, Drain(nil))
}
