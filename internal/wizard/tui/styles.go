package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/wifiman/internal/version"
)

// AppName is shown in the header of every screen.
const AppName = "WIFIMAN DOCUMENT EDITOR"

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 72
	MaxContentWidth  = 120
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF0000") // Red

	TextColor      = lipgloss.Color("#FFFFFF")
	SubtleColor    = lipgloss.Color("#626262")
	BorderColor    = PrimaryColor
	HighlightColor = SecondaryColor
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			Padding(1, 0)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(HighlightColor).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Width(14)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1).
			MarginLeft(2)
)

// RenderTitle renders a title with consistent styling
func RenderTitle(text string) string {
	return TitleStyle.Render(text)
}

// RenderSubtitle renders a subtitle with consistent styling
func RenderSubtitle(text string) string {
	return SubtitleStyle.Render(text)
}

// RenderError renders an error message
func RenderError(text string) string {
	return ErrorStyle.Render("✗ " + text)
}

// RenderSuccess renders a success message
func RenderSuccess(text string) string {
	return SuccessStyle.Render("✓ " + text)
}

// contentWidth clamps the usable width between the layout limits.
func contentWidth(terminalWidth int) int {
	switch {
	case terminalWidth <= 0:
		return MinTerminalWidth
	case terminalWidth > MaxContentWidth:
		return MaxContentWidth
	}
	return terminalWidth
}

// RenderApplicationContainer wraps a screen in the shared frame: a header
// with the app name and version, the content, and a footer with help text.
// Every screen's View goes through it.
func RenderApplicationContainer(content, footerText string, terminalWidth, terminalHeight int) string {
	width := contentWidth(terminalWidth)

	header := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(AppName + " v" + version.Version)

	headerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(width-4).
		Padding(0, 1)

	footerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Foreground(SubtleColor).
		Width(width-4).
		Padding(0, 1)

	inner := lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(header),
		lipgloss.NewStyle().Width(width-4).Render(content),
		footerStyle.Render(footerText),
	)

	frame := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(width - 2)
	if terminalHeight > 2 {
		frame = frame.Height(terminalHeight - 2)
	}

	return lipgloss.Place(width, terminalHeight, lipgloss.Left, lipgloss.Top, frame.Render(inner))
}
