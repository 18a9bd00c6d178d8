package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	PrimaryColor = lipgloss.Color("#7D56F4") // headers, borders
	SuccessColor = lipgloss.Color("#43BF6D")
	ErrorColor   = lipgloss.Color("#FF5555")
	WarningColor = lipgloss.Color("#FFA500")
	MutedColor   = lipgloss.Color("#626262") // secondary info
	TextColor    = lipgloss.Color("#FFFFFF")
)

const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

var (
	HeaderTitleStyle = lipgloss.NewStyle().
				Foreground(TextColor).
				Bold(true).
				PaddingLeft(2)

	HeaderCommandStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				PaddingLeft(2)

	HeaderParamKeyStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				PaddingLeft(2)

	HeaderParamValueStyle = lipgloss.NewStyle().
				Foreground(TextColor)

	StepCompleteStyle = lipgloss.NewStyle().
				Foreground(SuccessColor)

	StepRunningStyle = lipgloss.NewStyle().
				Foreground(WarningColor)

	StepPendingStyle = lipgloss.NewStyle().
				Foreground(MutedColor)

	StepNoteStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	SuccessTitleStyle = lipgloss.NewStyle().
				Foreground(SuccessColor).
				Bold(true)

	ErrorTitleStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningTitleStyle = lipgloss.NewStyle().
				Foreground(WarningColor).
				Bold(true)

	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	ResultKeyStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(18)

	ResultValueStyle = lipgloss.NewStyle().
				Foreground(TextColor)

	TroubleshootingTitleStyle = lipgloss.NewStyle().
					Foreground(MutedColor).
					Bold(true)

	TroubleshootingItemStyle = lipgloss.NewStyle().
					Foreground(MutedColor)

	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true)

	TableCellStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// TableHighlightStyle marks the row a command acted on, such as the
	// network a setup cycle joined.
	TableHighlightStyle = lipgloss.NewStyle().
				Foreground(SuccessColor).
				Bold(true)
)

const (
	StepMarkerComplete = "✓"
	StepMarkerRunning  = "●"
	StepMarkerPending  = "·"
	StepMarkerSkipped  = "⊘"
	SuccessMarker      = "✓"
	FailureMarker      = "✗"
	WarningMarker      = "⚠"
)

// GetTerminalWidth returns the stdout width clamped to the supported range.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// IsTerminal reports whether stdout is a terminal. Animated components fall
// back to plain lines when it is not.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

func boxStyle(color lipgloss.Color, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(width-2).
		Padding(0, 2)
}
