package ui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header is the banner printed at the start of a command.
type Header struct {
	Title   string
	Command string
	Params  map[string]string
	Width   int
}

// NewHeader creates a new header with the given values
func NewHeader(title, command string, params map[string]string) *Header {
	return &Header{
		Title:   title,
		Command: command,
		Params:  params,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header. Params are listed in key order.
func (h *Header) Render() string {
	width := clampWidth(h.Width)

	top := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(h.Title)),
		HeaderCommandStyle.Render(h.Command),
	)

	content := top
	if len(h.Params) > 0 {
		divider := lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Render(strings.Repeat("─", width-6))

		keys := make([]string, 0, len(h.Params))
		for k := range h.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			lines = append(lines, HeaderParamKeyStyle.Render(k+":")+" "+HeaderParamValueStyle.Render(h.Params[k]))
		}
		content = lipgloss.JoinVertical(lipgloss.Left, top, divider, strings.Join(lines, "\n"))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(content)
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}
