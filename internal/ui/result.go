package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result is the box printed when a command finishes.
type Result struct {
	Type            ResultType
	Title           string
	Details         map[string]string
	Error           error
	Troubleshooting []string
	Width           int
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details map[string]string) *Result {
	return &Result{Type: ResultSuccess, Title: title, Details: details, Width: GetTerminalWidth()}
}

// NewFailureResult creates a failure result box
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	return &Result{Type: ResultFailure, Title: title, Error: err, Troubleshooting: troubleshooting, Width: GetTerminalWidth()}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details map[string]string) *Result {
	return &Result{Type: ResultWarning, Title: title, Details: details, Width: GetTerminalWidth()}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail adds a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	if r.Details == nil {
		r.Details = make(map[string]string)
	}
	r.Details[key] = value
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := clampWidth(r.Width)

	var (
		color lipgloss.Color
		title string
	)
	switch r.Type {
	case ResultFailure:
		color = ErrorColor
		title = ErrorTitleStyle.Render(fmt.Sprintf("   %s  FAILED  ─  %s", FailureMarker, r.Title))
	case ResultWarning:
		color = WarningColor
		title = WarningTitleStyle.Render(fmt.Sprintf("   %s  WARNING  ─  %s", WarningMarker, r.Title))
	default:
		color = SuccessColor
		title = SuccessTitleStyle.Render(fmt.Sprintf("   %s  SUCCESS  ─  %s", SuccessMarker, r.Title))
	}

	lines := []string{"", title, ""}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+r.Error.Error()), "")
	}

	if len(r.Details) > 0 {
		keys := make([]string, 0, len(r.Details))
		for k := range r.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = append(lines, ResultKeyStyle.Render("   "+k+":")+" "+ResultValueStyle.Render(r.Details[k]))
		}
		lines = append(lines, "")
	}

	if len(r.Troubleshooting) > 0 {
		lines = append(lines, r.renderTroubleshooting(width), "")
	}

	return boxStyle(color, width).Render(strings.Join(lines, "\n"))
}

func (r *Result) renderTroubleshooting(width int) string {
	lines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
	for _, tip := range r.Troubleshooting {
		lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
	}

	innerWidth := width - 12
	if innerWidth < 40 {
		innerWidth = 40
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(innerWidth).
		Padding(0, 1).
		MarginLeft(3).
		Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
